// Package persistence provides SQLite-based session storage. A session
// is one city: grid tiles, stats snapshot, active controllers, and the
// news feed, written as a full replace on each save.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/disaster"
	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/event"
	"github.com/talgya/mayorsim/internal/mayor"
	"github.com/talgya/mayorsim/internal/news"
	"github.com/talgya/mayorsim/internal/weather"
)

// ErrNoSession means the database holds no saved city.
var ErrNoSession = errors.New("no saved session")

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		building TEXT NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS news (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		day INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_news_day ON news(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SessionState is everything needed to resume a city.
type SessionState struct {
	Seed      int64
	Tick      uint64
	AIEnabled bool
	Stats     econ.CityStats
	Tiles     []SavedTile
	News      []news.Item
	Weather   *SavedWeather
	Disaster  *disaster.Active
	Goal      *mayor.Goal
	Event     *event.GameEvent
}

// SavedTile is one occupied grid cell.
type SavedTile struct {
	X        int    `db:"x"`
	Y        int    `db:"y"`
	Building string `db:"building"`
}

// SavedWeather mirrors the weather controller's restorable state.
type SavedWeather struct {
	Current  weather.Condition `json:"current"`
	DaysLeft int               `json:"days_left"`
}

// SaveSession writes the whole session in one transaction.
func (db *DB) SaveSession(state *SessionState) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO tiles (x, y, building) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range state.Tiles {
		if _, err := stmt.Exec(t.X, t.Y, t.Building); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.X, t.Y, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM news"); err != nil {
		return err
	}
	for _, item := range state.News {
		if _, err := tx.Exec(
			"INSERT INTO news (id, day, text, type) VALUES (?, ?, ?, ?)",
			item.ID, item.Day, item.Text, string(item.Type),
		); err != nil {
			return err
		}
	}

	meta := map[string]any{
		"seed":       state.Seed,
		"tick":       state.Tick,
		"ai_enabled": boolMeta(state.AIEnabled),
	}
	for key, v := range map[string]any{
		"stats":    state.Stats,
		"weather":  state.Weather,
		"disaster": state.Disaster,
		"goal":     state.Goal,
		"event":    state.Event,
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		meta[key] = string(raw)
	}
	for key, value := range meta {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
			key, fmt.Sprintf("%v", value),
		); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("session saved", "day", state.Stats.Day, "tiles", len(state.Tiles), "news", len(state.News))
	return nil
}

// LoadSession reads the saved session. Returns ErrNoSession when the
// database is empty.
func (db *DB) LoadSession() (*SessionState, error) {
	state := &SessionState{}

	seedStr, err := db.getMeta("seed")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if state.Seed, err = strconv.ParseInt(seedStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	tickStr, err := db.getMeta("tick")
	if err != nil {
		return nil, err
	}
	if state.Tick, err = strconv.ParseUint(tickStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse tick: %w", err)
	}

	aiStr, err := db.getMeta("ai_enabled")
	if err != nil {
		return nil, err
	}
	state.AIEnabled = aiStr == "1"

	if err := db.getMetaJSON("stats", &state.Stats); err != nil {
		return nil, err
	}
	if err := db.getMetaJSON("weather", &state.Weather); err != nil {
		return nil, err
	}
	if err := db.getMetaJSON("disaster", &state.Disaster); err != nil {
		return nil, err
	}
	if err := db.getMetaJSON("goal", &state.Goal); err != nil {
		return nil, err
	}
	if err := db.getMetaJSON("event", &state.Event); err != nil {
		return nil, err
	}

	if err := db.conn.Select(&state.Tiles, "SELECT x, y, building FROM tiles"); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	for _, t := range state.Tiles {
		if _, ok := catalog.FromString(t.Building); !ok {
			return nil, fmt.Errorf("load tiles: unknown building %q at (%d,%d)", t.Building, t.X, t.Y)
		}
	}

	rows, err := db.conn.Queryx("SELECT id, day, text, type FROM news ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("load news: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item news.Item
		var typ string
		if err := rows.Scan(&item.ID, &item.Day, &item.Text, &typ); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		item.Type = news.Type(typ)
		state.News = append(state.News, item)
	}

	slog.Info("session loaded", "day", state.Stats.Day, "tiles", len(state.Tiles), "news", len(state.News))
	return state, nil
}

func (db *DB) getMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	return value, err
}

// getMetaJSON unmarshals a JSON meta value. A missing key or stored
// "null" leaves the destination untouched.
func (db *DB) getMetaJSON(key string, dst any) error {
	raw, err := db.getMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load meta %s: %w", key, err)
	}
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("parse meta %s: %w", key, err)
	}
	return nil
}

func boolMeta(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

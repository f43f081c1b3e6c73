package engine

import (
	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/persistence"
)

// ExportState captures the session for persistence. tick is the
// driving clock's counter, owned by the caller.
func (s *Simulation) ExportState(tick uint64) *persistence.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &persistence.SessionState{
		Seed:      s.seed,
		Tick:      tick,
		AIEnabled: s.AIEnabled,
		Stats:     s.Stats,
		News:      s.News.All(),
		Weather: &persistence.SavedWeather{
			Current:  s.Weather.Current,
			DaysLeft: s.Weather.DaysLeft,
		},
		Goal:  s.Planner.Current,
		Event: s.Events.Pending(),
	}
	for _, t := range s.Grid.Snapshot() {
		if t.Building == catalog.None {
			continue
		}
		state.Tiles = append(state.Tiles, persistence.SavedTile{
			X: t.X, Y: t.Y, Building: catalog.String(t.Building),
		})
	}
	if s.Disasters.Current != nil {
		a := *s.Disasters.Current
		state.Disaster = &a
	}
	return state
}

// RestoreState rebuilds the session from a saved snapshot. The grid is
// regenerated from the saved seed so land values match, then occupied
// tiles are replayed onto it.
func (s *Simulation) RestoreState(state *persistence.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initState(state.Seed)
	s.Stats = state.Stats
	s.AIEnabled = state.AIEnabled

	for _, t := range state.Tiles {
		if bt, ok := catalog.FromString(t.Building); ok {
			s.Grid.Restore(t.X, t.Y, bt)
		}
	}
	s.News.Restore(state.News)
	if state.Weather != nil {
		s.Weather.Restore(state.Weather.Current, state.Weather.DaysLeft)
	}
	s.Disasters.Restore(state.Disaster)
	s.Planner.Restore(state.Goal)
	s.Events.Restore(state.Event)
}

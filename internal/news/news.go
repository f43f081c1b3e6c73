// Package news derives the human-readable city feed from state
// transitions in the other systems. Pure projection: items are created
// from drafts and never change afterwards.
package news

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Type classifies a feed item for presentation.
type Type string

const (
	Positive Type = "positive"
	Negative Type = "negative"
	Neutral  Type = "neutral"
)

// Draft is an unpublished feed entry emitted by a simulation system.
type Draft struct {
	Text string
	Type Type
}

// Item is a published feed entry. Immutable once created.
type Item struct {
	ID   string `json:"id"`
	Day  int    `json:"day"`
	Text string `json:"text"`
	Type Type   `json:"type"`
}

// Log is the append-only city feed. Ordering is insertion order.
type Log struct {
	mu    sync.RWMutex
	items []Item

	nextSubID int
	subs      map[int]chan Item
}

// NewLog creates an empty feed.
func NewLog() *Log {
	return &Log{subs: make(map[int]chan Item)}
}

// Publish turns drafts into items stamped with the given day.
func (l *Log) Publish(day int, drafts ...Draft) []Item {
	if len(drafts) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	published := make([]Item, 0, len(drafts))
	for _, d := range drafts {
		item := Item{
			ID:   uuid.NewString(),
			Day:  day,
			Text: d.Text,
			Type: d.Type,
		}
		l.items = append(l.items, item)
		published = append(published, item)

		for _, ch := range l.subs {
			select {
			case ch <- item:
			default:
				// Slow subscriber; the item stays in the feed either way.
			}
		}
	}
	return published
}

// Subscribe registers a live feed listener. The returned channel gets
// every item published from now on.
func (l *Log) Subscribe() (int, <-chan Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSubID
	l.nextSubID++
	ch := make(chan Item, 64)
	l.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (l *Log) Unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.subs[id]; ok {
		close(ch)
		delete(l.subs, id)
	}
}

// Reset clears the feed for a new session. Live subscribers stay
// attached and receive whatever the new session publishes.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Restore reloads previously published items, preserving order.
func (l *Log) Restore(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]Item(nil), items...)
}

// Recent returns the newest n items, oldest first.
func (l *Log) Recent(n int) []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if len(l.items) > n {
		start = len(l.items) - n
	}
	return append([]Item(nil), l.items[start:]...)
}

// All returns every item in insertion order.
func (l *Log) All() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Item(nil), l.items...)
}

// Len returns the number of published items.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Money formats an amount for feed text ("12,500").
func Money(amount float64) string {
	return humanize.CommafWithDigits(amount, 0)
}

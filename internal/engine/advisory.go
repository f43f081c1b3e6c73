// Advisory broker: fire-and-forget requests to the external advisory
// service, one outstanding per purpose. The tick loop never blocks on
// a request; responses are drained and applied at the next tick
// boundary, and anything stale (superseded or issued before a reset)
// is discarded by token comparison.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/mayorsim/internal/event"
	"github.com/talgya/mayorsim/internal/llm"
	"github.com/talgya/mayorsim/internal/mayor"
)

// Purpose identifies what an advisory request is for.
type Purpose string

const (
	PurposeGoal   Purpose = "goal"
	PurposeEvent  Purpose = "event"
	PurposeAction Purpose = "action"
)

// AdvisoryResult is one completed request, matched back by token.
type AdvisoryResult struct {
	Purpose Purpose
	Token   string

	Goal   *mayor.Goal
	Event  *event.GameEvent
	Action *mayor.Action
	Err    error
}

// AdvisoryBroker manages the in-flight advisory requests.
type AdvisoryBroker struct {
	client  *llm.Client
	timeout time.Duration

	mu          sync.Mutex
	outstanding map[Purpose]string // purpose -> live token
	cancels     map[Purpose]context.CancelFunc
	results     chan AdvisoryResult
}

// NewAdvisoryBroker wraps an advisory client. A nil client is valid;
// Enabled reports false and no requests are issued.
func NewAdvisoryBroker(client *llm.Client) *AdvisoryBroker {
	return &AdvisoryBroker{
		client:      client,
		timeout:     25 * time.Second,
		outstanding: make(map[Purpose]string),
		cancels:     make(map[Purpose]context.CancelFunc),
		results:     make(chan AdvisoryResult, 8),
	}
}

// Enabled reports whether advisory requests can be issued at all.
func (b *AdvisoryBroker) Enabled() bool {
	return b.client.Enabled()
}

// Busy reports whether a request for the purpose is still in flight.
func (b *AdvisoryBroker) Busy(p Purpose) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.outstanding[p]
	return ok
}

// Request issues a new advisory call for the purpose, cancelling any
// prior in-flight request for the same purpose.
func (b *AdvisoryBroker) Request(p Purpose, sum llm.CitySummary) {
	if !b.Enabled() {
		return
	}

	b.mu.Lock()
	if cancel, ok := b.cancels[p]; ok {
		cancel()
	}
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	b.outstanding[p] = token
	b.cancels[p] = cancel
	b.mu.Unlock()

	go func() {
		defer cancel()
		res := AdvisoryResult{Purpose: p, Token: token}

		switch p {
		case PurposeGoal:
			res.Goal, res.Err = llm.GenerateGoal(ctx, b.client, sum)
		case PurposeEvent:
			res.Event, res.Err = llm.GenerateEvent(ctx, b.client, sum)
		case PurposeAction:
			res.Action, res.Err = llm.ProposeAction(ctx, b.client, sum)
		}

		select {
		case b.results <- res:
		default:
			// Channel full means results are not being drained; a
			// dropped advisory response only degrades AI quality.
			slog.Warn("advisory result dropped", "purpose", p)
		}
	}()
}

// Drain returns all completed, still-relevant results. Stale tokens
// (superseded or cancelled by reset) are discarded here.
func (b *AdvisoryBroker) Drain() []AdvisoryResult {
	var out []AdvisoryResult
	for {
		select {
		case res := <-b.results:
			b.mu.Lock()
			live := b.outstanding[res.Purpose] == res.Token
			if live {
				delete(b.outstanding, res.Purpose)
				delete(b.cancels, res.Purpose)
			}
			b.mu.Unlock()
			if live {
				out = append(out, res)
			} else {
				slog.Debug("stale advisory response discarded", "purpose", res.Purpose)
			}
		default:
			return out
		}
	}
}

// CancelAll invalidates every in-flight request (city reset). Their
// eventual responses will fail the token comparison and be ignored.
func (b *AdvisoryBroker) CancelAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p, cancel := range b.cancels {
		cancel()
		delete(b.cancels, p)
		delete(b.outstanding, p)
	}
}

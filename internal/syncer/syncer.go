package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"clockout.agent/internal/ports/repository"
	"clockout.agent/internal/remote"
)

// Result is the outcome of one sync attempt.
type Result struct {
	Submitted int `json:"submitted"`
	Remaining int `json:"remaining"`
}

// Outcome describes the most recent attempt for status reporting. A zero
// At means no attempt has been made since the agent started.
type Outcome struct {
	At        time.Time `json:"at"`
	Submitted int       `json:"submitted"`
	Remaining int       `json:"remaining"`
	Error     string    `json:"error,omitempty"`
}

// Engine reconciles the local queue with the backend. Each call is one
// attempt: the whole batch is acknowledged and marked, or nothing is.
// There is no internal retry; callers invoke it from a timer or by
// hand, and failures simply leave the queue for the next attempt.
// It uses a circuit breaker to avoid hammering the backend while it is
// having issues.
type Engine struct {
	store     repository.EventStore
	client    remote.Client
	batchSize int
	cb        *gobreaker.CircuitBreaker

	// mu serializes attempts so concurrent triggers cannot submit the
	// same snapshot twice.
	mu   sync.Mutex
	last Outcome
}

// NewEngine creates the sync engine with a circuit breaker sized for a
// device that polls every couple of minutes.
func NewEngine(store repository.EventStore, client remote.Client, batchSize int) *Engine {
	settings := gobreaker.Settings{
		Name:        "Attendance-Backend",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger then 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &Engine{
		store:     store,
		client:    client,
		batchSize: batchSize,
		cb:        gobreaker.NewCircuitBreaker(settings),
	}
}

// Sync snapshots the unsynced queue, submits one batch, and marks every
// submitted event with its server id. An empty queue returns success
// without touching the network.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.sync(ctx)

	e.last = Outcome{At: time.Now(), Submitted: res.Submitted, Remaining: res.Remaining}
	if err != nil {
		e.last.Error = err.Error()
	}
	return res, err
}

// LastOutcome reports the most recent attempt, however it was triggered.
func (e *Engine) LastOutcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) sync(ctx context.Context) (Result, error) {
	unsynced, err := e.store.ListUnsynced(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing unsynced events: %w", err)
	}

	if len(unsynced) == 0 {
		return Result{}, nil
	}

	batch := unsynced
	if e.batchSize > 0 && len(batch) > e.batchSize {
		batch = batch[:e.batchSize]
	}

	uploads := make([]remote.EventUpload, 0, len(batch))
	for _, ev := range batch {
		uploads = append(uploads, remote.UploadFromEvent(ev))
	}

	acksAny, err := e.cb.Execute(func() (interface{}, error) {
		return e.client.SubmitEventsBulk(ctx, uploads)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Ctx(ctx).Warn().Msg("Circuit breaker is OPEN; skipping backend call")
		}
		return Result{Remaining: len(unsynced)}, err
	}

	acks := acksAny.([]remote.EventAck)
	if len(acks) != len(batch) {
		// A partial echo violates the bulk endpoint's all-or-nothing
		// contract; treat the attempt as failed and mark nothing.
		return Result{Remaining: len(unsynced)},
			fmt.Errorf("backend acknowledged %d of %d submitted events", len(acks), len(batch))
	}

	for i, ev := range batch {
		if err := e.store.MarkSynced(ctx, ev.ID, acks[i].ID); err != nil {
			return Result{Submitted: i, Remaining: len(unsynced) - i},
				fmt.Errorf("marking event %d synced: %w", ev.ID, err)
		}
	}

	result := Result{Submitted: len(batch), Remaining: len(unsynced) - len(batch)}

	log.Ctx(ctx).Info().
		Int("submitted", result.Submitted).
		Int("remaining", result.Remaining).
		Msg("Sync attempt completed")
	return result, nil
}

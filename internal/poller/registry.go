package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is a snapshot of one submission's poller.
type Status struct {
	ID         string     `json:"id"`
	State      State      `json:"state"`
	Baseline   int        `json:"baseline"`
	Count      int        `json:"count"`
	Attempts   int        `json:"attempts"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type entry struct {
	cancel context.CancelFunc
	status Status
}

// Registry runs at most one poller per submission id. Each poller owns its
// timer and context, so concurrent submissions never share a loop.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	ctx     context.Context
	stop    context.CancelFunc
	entries map[string]*entry
	wg      sync.WaitGroup
}

func NewRegistry(cfg Config, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:     cfg,
		logger:  log.Named("poller"),
		ctx:     ctx,
		stop:    cancel,
		entries: make(map[string]*entry),
	}
}

// Start begins polling for id. It returns false without doing anything if
// id already has a poller, running or settled. onSettled, if set, runs once
// when the poller settles.
func (r *Registry) Start(id string, baseline int, count CountFunc, onSettled func(Outcome)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return false
	}
	if r.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithCancel(r.ctx)
	e := &entry{
		cancel: cancel,
		status: Status{
			ID:        id,
			State:     StatePolling,
			Baseline:  baseline,
			Count:     baseline,
			StartedAt: time.Now(),
		},
	}
	r.entries[id] = e

	log := r.logger.With(zap.String("submission_id", id))
	log.Info("polling started", zap.Int("baseline", baseline))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		out := Poll(ctx, r.cfg, baseline, count, log, func(attempt, n int) {
			r.mu.Lock()
			e.status.Attempts = attempt
			e.status.Count = n
			r.mu.Unlock()
		})

		now := time.Now()
		r.mu.Lock()
		e.status.State = out.State
		e.status.Attempts = out.Attempts
		e.status.Count = out.Count
		e.status.Message = out.Message
		e.status.FinishedAt = &now
		r.mu.Unlock()

		log.Info("polling settled",
			zap.String("state", string(out.State)),
			zap.Int("attempts", out.Attempts),
			zap.Int("count", out.Count))

		if onSettled != nil {
			onSettled(out)
		}
	}()
	return true
}

// Stop cancels the poller for id. It reports whether id was polling.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	polling := ok && !e.status.State.Settled()
	r.mu.Unlock()

	if ok {
		e.cancel()
	}
	return polling
}

func (r *Registry) Status(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Status{}, false
	}
	return e.status, true
}

// Forget drops settled entries that finished before cutoff.
func (r *Registry) Forget(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if e.status.FinishedAt != nil && e.status.FinishedAt.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Close cancels every poller and waits for them to settle.
func (r *Registry) Close() {
	r.mu.Lock()
	r.stop()
	r.mu.Unlock()
	r.wg.Wait()
}

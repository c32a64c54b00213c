package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/poller"
	"recruitai/internal/relay"
)

// SubmissionState is the lifecycle of a queued scoring submission.
type SubmissionState string

const (
	SubmissionAccepted  SubmissionState = "accepted"
	SubmissionPolling   SubmissionState = "polling"
	SubmissionCompleted SubmissionState = "completed"
	SubmissionTimedOut  SubmissionState = "timed_out"
	SubmissionFailed    SubmissionState = "failed"
	SubmissionCancelled SubmissionState = "cancelled"
)

func (s SubmissionState) settled() bool {
	switch s {
	case SubmissionCompleted, SubmissionTimedOut, SubmissionFailed, SubmissionCancelled:
		return true
	}
	return false
}

// submissionRetention is how long settled submissions stay queryable.
const submissionRetention = time.Hour

// ForwardJob is a submission waiting for a worker to forward it.
type ForwardJob struct {
	SubmissionID string
	Submission   *relay.Submission
	Ctx          context.Context
	Timestamp    time.Time
}

type submission struct {
	ID        string
	JobID     string
	Baseline  int
	State     SubmissionState
	Message   string
	Inserted  int
	CreatedAt time.Time
	UpdatedAt time.Time
	cancel    context.CancelFunc
}

// SubmissionStatus is the JSON view of a submission.
type SubmissionStatus struct {
	SubmissionID string          `json:"submission_id"`
	JobID        string          `json:"job_id,omitempty"`
	Status       SubmissionState `json:"status"`
	Baseline     int             `json:"baseline"`
	Count        int             `json:"count"`
	Attempts     int             `json:"attempts"`
	Inserted     int             `json:"inserted"`
	Message      string          `json:"message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StartBackgroundWorkers starts the forwarding pool.
func (a *API) StartBackgroundWorkers() {
	n := a.cfg.Tunables.Workers
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		a.workers.Add(1)
		go a.forwardWorker(i)
	}
	a.logger.Info("background workers started", zap.Int("forward_workers", n), zap.Int("queue_size", cap(a.forwardQueue)))
}

func (a *API) forwardWorker(n int) {
	defer a.workers.Done()
	log := a.logger.Named("forward_worker").With(zap.Int("worker", n))

	for job := range a.forwardQueue {
		if job.Ctx.Err() != nil {
			log.Info("skipping cancelled submission", zap.String("submission_id", job.SubmissionID))
			continue
		}
		log.Info("forwarding submission",
			zap.String("submission_id", job.SubmissionID),
			zap.Duration("queued_for", time.Since(job.Timestamp)))

		res, err := a.relay.Score(job.Ctx, job.Submission)
		if err != nil {
			a.forwardFailed(job.SubmissionID, err)
			continue
		}
		a.updateSubmission(job.SubmissionID, func(s *submission) {
			s.Inserted = res.Inserted
		})
		if res.Inserted > 0 {
			a.invalidateScored(context.Background(), job.Submission.JobID(), res.Candidates)
		}
		log.Info("submission forwarded",
			zap.String("submission_id", job.SubmissionID),
			zap.Int("candidates", len(res.Candidates)),
			zap.Int("inserted", res.Inserted),
			zap.Duration("took", time.Since(job.Timestamp)))
	}
	log.Debug("worker stopped")
}

// forwardFailed records a failed forward. A timeout leaves the poller
// running because the workflow may still finish and write its rows.
func (a *API) forwardFailed(id string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if apperr.Status(err) == http.StatusGatewayTimeout {
		a.updateSubmission(id, func(s *submission) {
			s.Message = msg
		})
		return
	}

	a.logger.Warn("submission forward failed", zap.String("submission_id", id), zap.Error(err))
	a.updateSubmission(id, func(s *submission) {
		if !s.State.settled() {
			s.State = SubmissionFailed
			s.Message = msg
		}
	})
	a.pollers.Stop(id)
}

// enqueueSubmission registers a submission, queues its forward and starts
// its poller. It returns a 503 error when the queue is full.
func (a *API) enqueueSubmission(id string, sub *relay.Submission, baseline int) (*SubmissionStatus, error) {
	now := a.now()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &submission{
		ID:        id,
		JobID:     sub.JobID(),
		Baseline:  baseline,
		State:     SubmissionAccepted,
		CreatedAt: now,
		UpdatedAt: now,
		cancel:    cancel,
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		return nil, apperr.NewUnavailable("server is shutting down")
	}
	select {
	case a.forwardQueue <- ForwardJob{SubmissionID: id, Submission: sub, Ctx: ctx, Timestamp: now}:
		a.forgetSubmissions(now.Add(-submissionRetention))
		a.submissions[id] = rec
		a.mu.Unlock()
	default:
		a.mu.Unlock()
		cancel()
		a.logger.Warn("forward queue full, rejecting submission", zap.String("submission_id", id))
		return nil, apperr.NewUnavailable("too many submissions in progress, try again shortly")
	}

	jobID := sub.JobID()
	count := func(ctx context.Context) (int, error) {
		return a.store.CountCandidates(ctx, jobID)
	}
	a.pollers.Start(id, baseline, count, func(out poller.Outcome) {
		a.pollSettled(id, out)
	})
	var settled bool
	a.updateSubmission(id, func(s *submission) {
		if s.State == SubmissionAccepted {
			s.State = SubmissionPolling
		}
		settled = s.State.settled()
	})
	if settled {
		// The forward already failed before polling began.
		a.pollers.Stop(id)
	}

	st, _ := a.submissionStatus(id)
	return st, nil
}

func (a *API) pollSettled(id string, out poller.Outcome) {
	a.updateSubmission(id, func(s *submission) {
		if s.State.settled() {
			return
		}
		switch out.State {
		case poller.StateSucceeded:
			s.State = SubmissionCompleted
			s.Message = ""
		case poller.StateTimedOut:
			s.State = SubmissionTimedOut
			s.Message = out.Message
		default:
			s.State = SubmissionCancelled
		}
	})
	if out.State != poller.StateSucceeded {
		a.cancelForward(id)
	}
}

func (a *API) cancelForward(id string) {
	a.mu.Lock()
	rec, ok := a.submissions[id]
	a.mu.Unlock()
	if ok && rec.cancel != nil {
		rec.cancel()
	}
}

// cancelSubmission stops polling and any pending forward.
func (a *API) cancelSubmission(id string) (*SubmissionStatus, bool) {
	a.mu.Lock()
	rec, ok := a.submissions[id]
	a.mu.Unlock()
	if !ok {
		return nil, false
	}
	a.updateSubmission(id, func(s *submission) {
		if !s.State.settled() {
			s.State = SubmissionCancelled
			s.Message = "cancelled by user"
		}
	})
	a.pollers.Stop(id)
	rec.cancel()
	return a.submissionStatus(id)
}

func (a *API) updateSubmission(id string, fn func(*submission)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.submissions[id]; ok {
		fn(s)
		s.UpdatedAt = a.now()
	}
}

func (a *API) submissionStatus(id string) (*SubmissionStatus, bool) {
	a.mu.Lock()
	rec, ok := a.submissions[id]
	if !ok {
		a.mu.Unlock()
		return nil, false
	}
	st := &SubmissionStatus{
		SubmissionID: rec.ID,
		JobID:        rec.JobID,
		Status:       rec.State,
		Baseline:     rec.Baseline,
		Count:        rec.Baseline,
		Inserted:     rec.Inserted,
		Message:      rec.Message,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	a.mu.Unlock()

	if ps, ok := a.pollers.Status(id); ok {
		st.Attempts = ps.Attempts
		if ps.Attempts > 0 {
			st.Count = ps.Count
		}
	}
	return st, true
}

// forgetSubmissions drops settled submissions last updated before cutoff.
// Callers hold a.mu.
func (a *API) forgetSubmissions(cutoff time.Time) {
	for id, s := range a.submissions {
		if s.State.settled() && s.UpdatedAt.Before(cutoff) {
			delete(a.submissions, id)
		}
	}
	a.pollers.Forget(cutoff)
}

// Package relay forwards scoring submissions to the external workflow and
// fans the ranked candidates it returns out to the datastore.
package relay

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/storage"
	"recruitai/pkg/httpclient"
)

// RawLimit bounds the upstream body echoed back in error responses.
const RawLimit = 2000

// Store is the part of the datastore the relay writes to.
type Store interface {
	InsertCandidates(ctx context.Context, cands []*storage.Candidate) (int, error)
	IncrementApplicants(ctx context.Context, jobID string, n int) error
}

type Relay struct {
	webhookURL string
	timeout    time.Duration
	client     *httpclient.Client
	store      Store
	logger     *zap.Logger
}

func New(webhookURL string, timeout time.Duration, store Store, log *zap.Logger) *Relay {
	return &Relay{
		webhookURL: webhookURL,
		timeout:    timeout,
		client:     httpclient.NewClient(timeout),
		store:      store,
		logger:     log.Named("relay"),
	}
}

// Configured reports whether a scoring webhook is set.
func (r *Relay) Configured() bool {
	return r.webhookURL != ""
}

// Result is a successful scoring round trip.
type Result struct {
	Body       []byte
	Candidates []*storage.Candidate
	Inserted   int
}

// Score forwards sub, stores whatever ranked candidates come back and
// returns the upstream body. Storage failures are logged, never returned.
func (r *Relay) Score(ctx context.Context, sub *Submission) (*Result, error) {
	body, err := r.Forward(ctx, sub)
	if err != nil {
		return nil, err
	}
	res := &Result{Body: body}
	res.Candidates = ParseRanked(body, sub.JobID())
	res.Inserted = r.Persist(context.WithoutCancel(ctx), sub.JobID(), res.Candidates)
	return res, nil
}

// Forward posts sub to the scoring webhook in a single request bounded by
// the relay timeout and classifies the response.
func (r *Relay) Forward(ctx context.Context, sub *Submission) ([]byte, error) {
	if !r.Configured() {
		return nil, apperr.NewInternal("scoring webhook URL is not configured")
	}

	payload, contentType, err := sub.Encode()
	if err != nil {
		return nil, apperr.NewInternal("could not build scoring request").Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.logger.With(zap.String("job_id", sub.JobID()), zap.Int("resumes", len(sub.Resumes)))
	log.Info("forwarding submission", zap.Int("bytes", len(payload)))
	start := time.Now()

	resp, err := r.client.Post(ctx, r.webhookURL, contentType, bytes.NewReader(payload), nil)
	if err != nil {
		if httpclient.IsTimeout(err) {
			log.Warn("scoring service timed out", zap.Duration("after", time.Since(start)))
			return nil, apperr.NewGatewayTimeout(
				"scoring service did not answer within %s; the job may still be running, refresh candidates later", r.timeout).Wrap(err)
		}
		log.Error("scoring service unreachable", zap.Error(err))
		return nil, apperr.NewBadGateway("could not reach scoring service").Wrap(err)
	}

	log.Info("scoring service answered",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("took", time.Since(start)))

	if err := classify(resp); err != nil {
		log.Warn("scoring response rejected", zap.Error(err))
		return nil, err
	}
	return resp.Body, nil
}

func classify(resp *httpclient.Response) error {
	if !resp.OK() {
		e := apperr.NewBadGateway("scoring service returned status %d", resp.StatusCode)
		e.UpstreamStatus = resp.StatusCode
		e.Raw = truncateRaw(resp.Body)
		return e
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return apperr.NewBadGateway("scoring service returned an empty response")
	}
	if !gjson.ValidBytes(resp.Body) {
		e := apperr.NewBadGateway("scoring service returned non-JSON response")
		e.Raw = truncateRaw(resp.Body)
		return e
	}
	return nil
}

func truncateRaw(b []byte) string {
	if len(b) > RawLimit {
		b = b[:RawLimit]
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// Persist inserts cands in one batch and bumps the role's applicant count.
// It returns how many rows were new.
func (r *Relay) Persist(ctx context.Context, jobID string, cands []*storage.Candidate) int {
	if len(cands) == 0 {
		r.logger.Info("no ranked candidates in response", zap.String("job_id", jobID))
		return 0
	}

	n, err := r.store.InsertCandidates(ctx, cands)
	if err != nil {
		r.logger.Error("failed to store ranked candidates",
			zap.String("job_id", jobID), zap.Int("candidates", len(cands)), zap.Error(err))
		return 0
	}
	r.logger.Info("stored ranked candidates",
		zap.String("job_id", jobID), zap.Int("received", len(cands)), zap.Int("inserted", n))

	if jobID != "" && n > 0 {
		if err := r.store.IncrementApplicants(ctx, jobID, n); err != nil {
			r.logger.Warn("failed to update applicant count", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	return n
}

// Package notify forwards reject, invite and free-form email requests to the
// notification webhooks of the external workflow.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recruitai/internal/apperr"
	"recruitai/internal/logger"
	"recruitai/pkg/httpclient"
)

type Kind string

const (
	KindReject Kind = "reject"
	KindInvite Kind = "invite"
	KindEmail  Kind = "email"
)

// Payload is the subset of the request body the API itself looks at. The
// body is forwarded verbatim, so unknown fields survive.
type Payload struct {
	CandidateID    string `json:"candidate_id"`
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email" validate:"required,email"`
	RecruiterName  string `json:"recruiter_name"`
	RecruiterEmail string `json:"recruiter_email" validate:"omitempty,email"`
	Company        string `json:"company"`
	EmailSubject   string `json:"email_subject"`
	EmailBody      string `json:"email_body"`
	TimeSlot       string `json:"time_slot"`
	Date           string `json:"date"`
}

var validate = validator.New()

type Forwarder struct {
	urls    map[Kind]string
	client  *httpclient.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewForwarder builds a forwarder for the given webhook URLs. Outbound calls
// share one limiter of perMinute requests with a small burst.
func NewForwarder(urls map[Kind]string, perMinute int, timeout time.Duration, log *zap.Logger) *Forwarder {
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := 5
	if perMinute < burst {
		burst = perMinute
	}
	return &Forwarder{
		urls:    urls,
		client:  httpclient.NewClient(timeout),
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		logger:  log.Named("notify"),
	}
}

// Decode parses and validates a request body.
func Decode(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperr.NewBadRequest("invalid JSON body").Wrap(err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, apperr.NewBadRequest("%s", validationMessage(err))
	}
	return &p, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	}
	return fe.Field() + " is invalid"
}

// Forward validates body and posts it unchanged to the webhook for kind.
// The decoded payload is returned so callers can apply side effects.
func (f *Forwarder) Forward(ctx context.Context, kind Kind, body []byte) (*Payload, error) {
	p, err := Decode(body)
	if err != nil {
		return nil, err
	}

	url := f.urls[kind]
	if url == "" {
		return nil, apperr.NewInternal("%s webhook URL is not configured", kind)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperr.NewUnavailable("notification rate limit exceeded").Wrap(err)
	}

	f.logger.Info("forwarding notification",
		zap.String("kind", string(kind)),
		zap.String("candidate_id", p.CandidateID))

	resp, err := f.client.PostJSON(ctx, url, body, nil)
	if err != nil {
		f.logger.Warn("notification webhook unreachable", zap.String("kind", string(kind)), zap.Error(err))
		if httpclient.IsTimeout(err) {
			return nil, apperr.NewGatewayTimeout("%s webhook timed out", kind).Wrap(err)
		}
		return nil, apperr.NewBadGateway("%s webhook unreachable", kind).Wrap(err)
	}
	if !resp.OK() {
		msg := "n8n rejected the request"
		if upstream := gjson.GetBytes(resp.Body, "error"); upstream.Type == gjson.String && upstream.String() != "" {
			msg = upstream.String()
		}
		f.logger.Warn("notification webhook failed",
			zap.String("kind", string(kind)),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Truncate(string(resp.Body), 500)))
		e := apperr.NewBadGateway("%s", msg)
		e.UpstreamStatus = resp.StatusCode
		return nil, e
	}
	return p, nil
}

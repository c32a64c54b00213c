// Package client talks to the RecruitAI API on behalf of recruitctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"recruitai/internal/storage"
	"recruitai/internal/views"
	"recruitai/pkg/httpclient"
)

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode     int
	Message        string
	UpstreamStatus int
}

func (e *Error) Error() string {
	if e.UpstreamStatus > 0 {
		return fmt.Sprintf("%d: %s (upstream %d)", e.StatusCode, e.Message, e.UpstreamStatus)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout),
	}
}

// SetToken makes later requests run as the session's user.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Upload names the files and fields of one scoring request. Files are read
// from disk when the request is built.
type Upload struct {
	JD       string
	Resumes  []string
	JobID    string
	JobTitle string
}

type Submission struct {
	SubmissionID string    `json:"submission_id"`
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Baseline     int       `json:"baseline"`
	Count        int       `json:"count"`
	Attempts     int       `json:"attempts"`
	Inserted     int       `json:"inserted"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Settled reports whether the submission has stopped changing.
func (s *Submission) Settled() bool {
	switch s.Status {
	case "completed", "timed_out", "failed", "cancelled":
		return true
	}
	return false
}

type Session struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	User      *storage.User `json:"user"`
}

// ListOptions filters the candidate list. Zero values are left out.
type ListOptions struct {
	JobID  string
	Status string
	Query  string
	Sort   string
	Dir    string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	for k, s := range map[string]string{"job_id": o.JobID, "status": o.Status, "q": o.Query, "sort": o.Sort, "dir": o.Dir} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

func decodeError(resp *httpclient.Response) error {
	e := &Error{StatusCode: resp.StatusCode}
	var body struct {
		Error          string `json:"error"`
		UpstreamStatus int    `json:"upstream_status"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != "" {
		e.Message = body.Error
		e.UpstreamStatus = body.UpstreamStatus
	} else {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader, out interface{}) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.OK() {
		return nil, decodeError(resp)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(raw), out)
	return err
}

// encodeUpload builds the multipart body the API expects: JD plus
// resume_0..resume_{n-1}.
func encodeUpload(u Upload) (*bytes.Buffer, string, error) {
	if u.JD == "" {
		return nil, "", fmt.Errorf("a JD file is required")
	}
	if len(u.Resumes) == 0 {
		return nil, "", fmt.Errorf("at least one resume is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if u.JobID != "" {
		w.WriteField("job_id", u.JobID)
	}
	if u.JobTitle != "" {
		w.WriteField("job_title", u.JobTitle)
	}
	if err := addFile(w, "JD", u.JD); err != nil {
		return nil, "", err
	}
	for i, p := range u.Resumes {
		if err := addFile(w, "resume_"+strconv.Itoa(i), p); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func addFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Score runs a synchronous scoring request and returns the upstream body.
func (c *Client) Score(ctx context.Context, u Upload) ([]byte, error) {
	body, ct, err := encodeUpload(u)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/api/score", ct, body, nil)
}

// Submit queues a scoring request and returns immediately.
func (c *Client) Submit(ctx context.Context, u Upload) (*Submission, error) {
	body, ct, err := encodeUpload(u)
	if err != nil {
		return nil, err
	}
	var s Submission
	if _, err := c.do(ctx, http.MethodPost, "/api/submissions", ct, body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Submission(ctx context.Context, id string) (*Submission, error) {
	var s Submission
	if _, err := c.do(ctx, http.MethodGet, "/api/submissions/"+url.PathEscape(id), "", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CancelSubmission(ctx context.Context, id string) (*Submission, error) {
	var s Submission
	if _, err := c.do(ctx, http.MethodDelete, "/api/submissions/"+url.PathEscape(id), "", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CountCandidates(ctx context.Context, jobID string) (int, error) {
	path := "/api/candidates/count"
	if jobID != "" {
		path += "?job_id=" + url.QueryEscape(jobID)
	}
	var body struct {
		Count int `json:"count"`
	}
	if _, err := c.do(ctx, http.MethodGet, path, "", nil, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (c *Client) Candidates(ctx context.Context, opts ListOptions) ([]views.CandidateView, error) {
	path := "/api/candidates"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var body struct {
		Candidates []views.CandidateView `json:"candidates"`
	}
	if _, err := c.do(ctx, http.MethodGet, path, "", nil, &body); err != nil {
		return nil, err
	}
	return body.Candidates, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.postJSON(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", "", nil, nil)
	return err
}

func (c *Client) Me(ctx context.Context) (*storage.User, error) {
	var u storage.User
	if _, err := c.do(ctx, http.MethodGet, "/api/me", "", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

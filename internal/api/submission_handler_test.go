package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recruitai/internal/storage"
)

const rankedBody = `{"ranked_candidates":[
	{"candidate_id":"cand_a","candidate_name":"A","candidate_email":"a@example.com","score":90,"gaps":["None"]},
	{"candidate_id":"cand_b","candidate_name":"B","candidate_email":"b@example.com","score":75},
	{"candidate_id":"cand_c","candidate_name":"C","candidate_email":"c@example.com","score":60}
]}`

var (
	jdFile     = formFile{field: "JD", filename: "jd.txt", content: "Senior Go engineer, PostgreSQL, Docker"}
	resumeFile = formFile{field: "resume_0", filename: "a.txt", content: "Eight years of Go and PostgreSQL"}
)

func scoreFields() map[string]string {
	return map[string]string{"job_id": "job_go", "job_title": "Go Engineer"}
}

func TestScoreRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		files   []formFile
		wantMsg string
	}{
		{name: "missing JD", files: []formFile{resumeFile}, wantMsg: "JD file is required"},
		{name: "no resumes", files: []formFile{jdFile}, wantMsg: "at least one resume is required"},
		{
			name:    "unreadable resume",
			files:   []formFile{jdFile, {field: "resume_0", filename: "cv.txt", content: "\xff\xfe"}},
			wantMsg: "cv.txt",
		},
		{
			name:    "empty JD",
			files:   []formFile{{field: "JD", filename: "jd.txt", content: "   "}, resumeFile},
			wantMsg: "jd.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := newWebhook(t, http.StatusOK, rankedBody)
			env := newTestEnv(t, withScoring(wh.URL))

			body, h := multipartBody(t, scoreFields(), tt.files...)
			rec := env.do(t, http.MethodPost, "/api/score", body, h)
			wantStatus(t, rec, http.StatusBadRequest)
			if msg := errorMessage(t, rec).Error; !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", msg, tt.wantMsg)
			}
			if n := wh.calls.Load(); n != 0 {
				t.Errorf("webhook called %d times on invalid input", n)
			}
		})
	}
}

func TestScoreNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	rec := env.do(t, http.MethodPost, "/api/score", body, h)
	wantStatus(t, rec, http.StatusInternalServerError)
	if msg := errorMessage(t, rec).Error; !strings.Contains(msg, "not configured") {
		t.Errorf("error = %q", msg)
	}
}

func TestScoreUpstreamFailures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantUpstream int
		wantRaw      bool
	}{
		{name: "upstream error", status: http.StatusInternalServerError, body: "boom", wantUpstream: 500, wantRaw: true},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "not json", status: http.StatusOK, body: "<html>oops</html>", wantRaw: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := newWebhook(t, tt.status, tt.body)
			env := newTestEnv(t, withScoring(wh.URL))

			body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
			rec := env.do(t, http.MethodPost, "/api/score", body, h)
			wantStatus(t, rec, http.StatusBadGateway)

			e := errorMessage(t, rec)
			if e.UpstreamStatus != tt.wantUpstream {
				t.Errorf("upstream_status = %d, want %d", e.UpstreamStatus, tt.wantUpstream)
			}
			if (e.Raw != "") != tt.wantRaw {
				t.Errorf("raw = %q", e.Raw)
			}
			if n, _ := env.store.CountCandidates(t.Context(), ""); n != 0 {
				t.Errorf("stored %d candidates after a failed relay", n)
			}
		})
	}
}

func TestScoreSuccess(t *testing.T) {
	wh := newWebhook(t, http.StatusOK, rankedBody)
	env := newTestEnv(t, withScoring(wh.URL))
	env.doJSON(t, http.MethodPost, "/api/roles", map[string]string{"title": "Go Engineer", "job_id": "job_go"}, nil)

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	rec := env.do(t, http.MethodPost, "/api/score", body, h)
	wantStatus(t, rec, http.StatusOK)
	if rec.Body.String() != rankedBody {
		t.Errorf("body not returned verbatim: %s", rec.Body.String())
	}

	sent := wh.lastBody()
	for _, want := range []string{`name="JD_text"`, `name="resume_0_text"`, `name="resume_count"`, "Eight years of Go"} {
		if !strings.Contains(sent, want) {
			t.Errorf("outbound payload missing %q", want)
		}
	}

	if n, _ := env.store.CountCandidates(t.Context(), "job_go"); n != 3 {
		t.Fatalf("stored %d candidates, want 3", n)
	}
	roles, _ := env.store.ListRoles(t.Context())
	if roles[0].Applicants != 3 {
		t.Errorf("applicants = %d, want 3", roles[0].Applicants)
	}

	var shortlist shortlistResponse
	decode(t, env.do(t, http.MethodGet, "/api/shortlist", nil, nil), &shortlist)
	if shortlist.Count != 1 || shortlist.Candidates[0].Name != "A" {
		t.Errorf("shortlist = %+v", shortlist.TopPicks)
	}

	var rejected candidateList
	decode(t, env.do(t, http.MethodGet, "/api/candidates?status=rejected", nil, nil), &rejected)
	if rejected.Count != 1 || rejected.Candidates[0].Name != "C" {
		t.Errorf("rejected = %+v", rejected)
	}
}

func TestScoreRefreshesCachedRole(t *testing.T) {
	wh := newWebhook(t, http.StatusOK, rankedBody)
	env := newTestEnv(t, withScoring(wh.URL))
	env.doJSON(t, http.MethodPost, "/api/roles", map[string]string{"title": "Other", "job_id": "job_other"}, nil)
	rec := env.doJSON(t, http.MethodPost, "/api/roles", map[string]string{"title": "Go Engineer", "job_id": "job_go"}, nil)
	wantStatus(t, rec, http.StatusCreated)
	var role storage.Role
	decode(t, rec, &role)

	path := "/api/roles/" + strconv.FormatInt(role.ID, 10)
	var cached storage.Role
	decode(t, env.do(t, http.MethodGet, path, nil, nil), &cached)
	if cached.Applicants != 0 {
		t.Fatalf("applicants before scoring = %d", cached.Applicants)
	}

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	wantStatus(t, env.do(t, http.MethodPost, "/api/score", body, h), http.StatusOK)

	var fresh storage.Role
	decode(t, env.do(t, http.MethodGet, path, nil, nil), &fresh)
	if fresh.Applicants != 3 {
		t.Errorf("applicants after scoring = %d, want 3", fresh.Applicants)
	}
	env.store.mu.Lock()
	lookups := env.store.roleLookups
	env.store.mu.Unlock()
	if lookups != 1 {
		t.Errorf("role lookups = %d, want 1", lookups)
	}
}

func TestScoreForwardsImageResumeWithoutText(t *testing.T) {
	wh := newWebhook(t, http.StatusOK, rankedBody)
	env := newTestEnv(t, withScoring(wh.URL))

	png := formFile{field: "resume_1", filename: "portfolio.png", content: "\x89PNG"}
	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile, png)
	wantStatus(t, env.do(t, http.MethodPost, "/api/score", body, h), http.StatusOK)

	if n := wh.calls.Load(); n != 1 {
		t.Fatalf("webhook called %d times, want 1", n)
	}
	sent := wh.lastBody()
	for _, want := range []string{`filename="portfolio.png"`, `name="resume_0_text"`} {
		if !strings.Contains(sent, want) {
			t.Errorf("outbound payload missing %q", want)
		}
	}
	if strings.Contains(sent, `name="resume_1_text"`) {
		t.Error("image resume forwarded with a text field")
	}
	if !strings.Contains(sent, "name=\"resume_count\"\r\n\r\n2") {
		t.Error("resume_count should include the image")
	}
}

func TestScoreFillsRecruiterFromSession(t *testing.T) {
	wh := newWebhook(t, http.StatusOK, rankedBody)
	env := newTestEnv(t, withScoring(wh.URL))
	token := signup(t, env, "Dana Reyes", "dana@acme.test")

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	h.Set("Authorization", "Bearer "+token)
	wantStatus(t, env.do(t, http.MethodPost, "/api/score", body, h), http.StatusOK)

	sent := wh.lastBody()
	if !strings.Contains(sent, "dana@acme.test") || !strings.Contains(sent, "Dana Reyes") {
		t.Errorf("recruiter fields not forwarded: %s", sent)
	}
}

func waitSubmission(t *testing.T, env *testEnv, id string, want SubmissionState) SubmissionStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var st SubmissionStatus
		rec := env.do(t, http.MethodGet, "/api/submissions/"+id, nil, nil)
		wantStatus(t, rec, http.StatusOK)
		decode(t, rec, &st)
		if st.Status == want {
			return st
		}
		if st.Status.settled() || time.Now().After(deadline) {
			t.Fatalf("submission status = %s (%s), want %s", st.Status, st.Message, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmissionCompletes(t *testing.T) {
	wh := newWebhook(t, http.StatusOK, rankedBody)
	env := newTestEnv(t, withScoring(wh.URL))

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	rec := env.do(t, http.MethodPost, "/api/submissions", body, h)
	wantStatus(t, rec, http.StatusAccepted)

	var st SubmissionStatus
	decode(t, rec, &st)
	if st.SubmissionID == "" || st.Baseline != 0 || st.JobID != "job_go" {
		t.Fatalf("accepted = %+v", st)
	}

	done := waitSubmission(t, env, st.SubmissionID, SubmissionCompleted)
	if done.Count <= done.Baseline {
		t.Errorf("completed with count %d <= baseline %d", done.Count, done.Baseline)
	}
}

func TestSubmissionFailsOnUpstreamError(t *testing.T) {
	wh := newWebhook(t, http.StatusBadGateway, `{"error":"workflow crashed"}`)
	env := newTestEnv(t, withScoring(wh.URL))

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	rec := env.do(t, http.MethodPost, "/api/submissions", body, h)
	wantStatus(t, rec, http.StatusAccepted)
	var st SubmissionStatus
	decode(t, rec, &st)

	failed := waitSubmission(t, env, st.SubmissionID, SubmissionFailed)
	if !strings.Contains(failed.Message, "502") {
		t.Errorf("message = %q", failed.Message)
	}
}

func TestSubmissionCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	env := newTestEnv(t, withScoring(srv.URL))
	t.Cleanup(func() { close(release) })

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	rec := env.do(t, http.MethodPost, "/api/submissions", body, h)
	wantStatus(t, rec, http.StatusAccepted)
	var st SubmissionStatus
	decode(t, rec, &st)

	rec = env.do(t, http.MethodDelete, "/api/submissions/"+st.SubmissionID, nil, nil)
	wantStatus(t, rec, http.StatusOK)
	var cancelled SubmissionStatus
	decode(t, rec, &cancelled)
	if cancelled.Status != SubmissionCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// Settled submissions stay settled.
	time.Sleep(30 * time.Millisecond)
	waitSubmission(t, env, st.SubmissionID, SubmissionCancelled)
}

func TestCloseAbandonsQueuedForwards(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
			io.WriteString(w, rankedBody)
		}
	}))
	t.Cleanup(srv.Close)
	env := newTestEnv(t, withScoring(srv.URL), withWorkers(1, 4))

	var ids []string
	for i := 0; i < 4; i++ {
		body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
		rec := env.do(t, http.MethodPost, "/api/submissions", body, h)
		wantStatus(t, rec, http.StatusAccepted)
		var st SubmissionStatus
		decode(t, rec, &st)
		ids = append(ids, st.SubmissionID)
	}

	start := time.Now()
	env.api.Close()
	if took := time.Since(start); took > 400*time.Millisecond {
		t.Errorf("Close took %s with a backed-up queue", took)
	}
	if n := calls.Load(); n > 1 {
		t.Errorf("webhook called %d times during shutdown, want at most 1", n)
	}
	for _, id := range ids {
		st, ok := env.api.submissionStatus(id)
		if !ok || st.Status != SubmissionCancelled {
			t.Errorf("submission %s = %+v, want cancelled", id, st)
		}
	}

	body, h := multipartBody(t, scoreFields(), jdFile, resumeFile)
	wantStatus(t, env.do(t, http.MethodPost, "/api/submissions", body, h), http.StatusServiceUnavailable)
}

func TestSubmissionUnknown(t *testing.T) {
	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodGet, "/api/submissions/nope", nil, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/submissions/nope", nil, nil), http.StatusNotFound)
}

package api

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"recruitai/internal/export"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

func seedABC(env *testEnv) {
	env.store.seed(&storage.Candidate{CandidateID: "a", JobID: "job_1", Name: "Ana", Email: "ana@example.com", Score: 90})
	env.store.seed(&storage.Candidate{CandidateID: "b", JobID: "job_1", Name: "Ben", Email: "ben@example.com", Score: 75})
	env.store.seed(&storage.Candidate{CandidateID: "c", JobID: "job_2", Name: "Cleo", Email: "cleo@example.com", Score: 60})
}

func listNames(t *testing.T, env *testEnv, path string) []string {
	t.Helper()
	rec := env.do(t, http.MethodGet, path, nil, nil)
	wantStatus(t, rec, http.StatusOK)
	var list candidateList
	decode(t, rec, &list)
	names := []string{}
	for _, c := range list.Candidates {
		names = append(names, c.Name)
	}
	return names
}

func TestListCandidates(t *testing.T) {
	env := newTestEnv(t)
	seedABC(env)

	tests := []struct {
		path string
		want []string
	}{
		{path: "/api/candidates", want: []string{"Ana", "Ben", "Cleo"}},
		{path: "/api/candidates?dir=asc", want: []string{"Cleo", "Ben", "Ana"}},
		{path: "/api/candidates?sort=name&dir=asc", want: []string{"Ana", "Ben", "Cleo"}},
		{path: "/api/candidates?status=review", want: []string{"Ben"}},
		{path: "/api/candidates?q=LE", want: []string{"Cleo"}},
		{path: "/api/candidates?job_id=job_1", want: []string{"Ana", "Ben"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := listNames(t, env, tt.path); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	wantStatus(t, env.do(t, http.MethodGet, "/api/candidates?status=hired", nil, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodGet, "/api/candidates?sort=age", nil, nil), http.StatusBadRequest)
}

func TestCountCandidates(t *testing.T) {
	env := newTestEnv(t)
	seedABC(env)

	var body map[string]int
	decode(t, env.do(t, http.MethodGet, "/api/candidates/count?job_id=job_1", nil, nil), &body)
	if body["count"] != 2 {
		t.Errorf("count = %d, want 2", body["count"])
	}
}

func TestCandidateStatusOverride(t *testing.T) {
	env := newTestEnv(t)
	seedABC(env)

	get := func() views.CandidateView {
		t.Helper()
		rec := env.do(t, http.MethodGet, "/api/candidates/b", nil, nil)
		wantStatus(t, rec, http.StatusOK)
		var v views.CandidateView
		decode(t, rec, &v)
		return v
	}

	if v := get(); v.Status != storage.StatusReview || v.Explanation == "" {
		t.Fatalf("initial = %s %q", v.Status, v.Explanation)
	}
	get()
	if env.store.getCandidateCalls != 1 {
		t.Errorf("store read %d times, want 1 (second read cached)", env.store.getCandidateCalls)
	}

	rec := env.doJSON(t, http.MethodPatch, "/api/candidates/b/status", map[string]string{"status": "shortlisted"}, nil)
	wantStatus(t, rec, http.StatusOK)
	if v := get(); v.Status != storage.StatusShortlisted || !v.StatusOverride {
		t.Errorf("after override = %s override=%v", v.Status, v.StatusOverride)
	}
	if names := listNames(t, env, "/api/candidates?status=shortlisted"); !reflect.DeepEqual(names, []string{"Ana", "Ben"}) {
		t.Errorf("shortlisted = %v", names)
	}

	env.doJSON(t, http.MethodPatch, "/api/candidates/b/status", map[string]string{"status": "auto"}, nil)
	if v := get(); v.Status != storage.StatusReview || v.StatusOverride {
		t.Errorf("after auto = %s override=%v", v.Status, v.StatusOverride)
	}

	wantStatus(t, env.doJSON(t, http.MethodPatch, "/api/candidates/b/status", map[string]string{"status": "hired"}, nil), http.StatusBadRequest)
	wantStatus(t, env.doJSON(t, http.MethodPatch, "/api/candidates/zz/status", map[string]string{"status": "review"}, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, "/api/candidates/zz", nil, nil), http.StatusNotFound)
}

func TestCandidateTags(t *testing.T) {
	env := newTestEnv(t)
	seedABC(env)

	var resp tagsResponse
	for _, tag := range []string{"strong", "remote", "strong"} {
		rec := env.doJSON(t, http.MethodPost, "/api/candidates/a/tags", map[string]string{"tag": tag}, nil)
		wantStatus(t, rec, http.StatusOK)
		decode(t, rec, &resp)
	}
	if want := []string{"remote", "strong"}; !reflect.DeepEqual(resp.Tags, want) {
		t.Errorf("tags = %v, want %v", resp.Tags, want)
	}

	rec := env.do(t, http.MethodDelete, "/api/candidates/a/tags/remote", nil, nil)
	wantStatus(t, rec, http.StatusOK)
	decode(t, rec, &resp)
	if want := []string{"strong"}; !reflect.DeepEqual(resp.Tags, want) {
		t.Errorf("tags = %v, want %v", resp.Tags, want)
	}

	wantStatus(t, env.doJSON(t, http.MethodPost, "/api/candidates/a/tags", map[string]string{"tag": "  "}, nil), http.StatusBadRequest)
}

func TestShortlistOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.store.seed(&storage.Candidate{CandidateID: "x", Name: "Xia", Score: 95})
	env.store.seed(&storage.Candidate{CandidateID: "y", Name: "Yan", Score: 88})
	env.store.seed(&storage.Candidate{CandidateID: "z", Name: "Zoe", Score: 40})

	order := func(rec *httptest.ResponseRecorder) []string {
		t.Helper()
		wantStatus(t, rec, http.StatusOK)
		var s shortlistResponse
		decode(t, rec, &s)
		return s.TopPicks
	}

	if got := order(env.do(t, http.MethodGet, "/api/shortlist", nil, nil)); !reflect.DeepEqual(got, []string{"Xia", "Yan"}) {
		t.Fatalf("initial = %v", got)
	}

	// Top entry moving up is a no-op.
	if got := order(env.doJSON(t, http.MethodPost, "/api/shortlist/x/move", map[string]string{"direction": "up"}, nil)); !reflect.DeepEqual(got, []string{"Xia", "Yan"}) {
		t.Errorf("after no-op = %v", got)
	}
	if got := order(env.doJSON(t, http.MethodPost, "/api/shortlist/y/move", map[string]string{"direction": "up"}, nil)); !reflect.DeepEqual(got, []string{"Yan", "Xia"}) {
		t.Errorf("after move = %v", got)
	}
	if got := order(env.doJSON(t, http.MethodPut, "/api/shortlist/order", map[string][]string{"candidate_ids": {"x", "y"}}, nil)); !reflect.DeepEqual(got, []string{"Xia", "Yan"}) {
		t.Errorf("after reorder = %v", got)
	}

	wantStatus(t, env.doJSON(t, http.MethodPost, "/api/shortlist/z/move", map[string]string{"direction": "up"}, nil), http.StatusNotFound)
	wantStatus(t, env.doJSON(t, http.MethodPost, "/api/shortlist/x/move", map[string]string{"direction": "left"}, nil), http.StatusBadRequest)
	wantStatus(t, env.doJSON(t, http.MethodPut, "/api/shortlist/order", map[string][]string{"candidate_ids": {"x", "z"}}, nil), http.StatusBadRequest)
}

func TestExportShortlist(t *testing.T) {
	env := newTestEnv(t)
	seedABC(env)
	env.store.seed(&storage.Candidate{CandidateID: "d", Name: "Dev", Score: 99})

	rec := env.do(t, http.MethodGet, "/api/shortlist/export", nil, nil)
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("content type = %q", ct)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.ShortlistSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[1][1] != "Dev" || rows[2][1] != "Ana" {
		t.Errorf("rows = %v", rows[1:])
	}
}

package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recruitai/internal/config"
	"recruitai/internal/objectstore"
	"recruitai/internal/storage"
)

func TestRoleRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/roles", map[string]interface{}{
		"title":  "Product Manager",
		"skills": []string{"Roadmaps", " SQL ", "roadmaps", ""},
	}, nil)
	wantStatus(t, rec, http.StatusCreated)
	var created storage.Role
	decode(t, rec, &created)

	if created.ID == 0 || !strings.HasPrefix(created.JobID, "job_") {
		t.Errorf("created = %+v", created)
	}
	if created.Experience != 3 || created.Location != "Remote" || created.Status != storage.RoleActive {
		t.Errorf("defaults = %d %q %q", created.Experience, created.Location, created.Status)
	}
	if want := []string{"Roadmaps", "SQL"}; !reflect.DeepEqual(created.Skills, want) {
		t.Errorf("skills = %v, want %v", created.Skills, want)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/roles/%d", created.ID), nil, nil)
	wantStatus(t, rec, http.StatusOK)
	var got storage.Role
	decode(t, rec, &got)
	if got.Title != created.Title || got.JobID != created.JobID {
		t.Errorf("got %+v, want %+v", got, created)
	}

	env.doJSON(t, http.MethodPost, "/api/roles", map[string]interface{}{"title": "Designer", "experience": 0, "status": "draft"}, nil)
	var list roleList
	decode(t, env.do(t, http.MethodGet, "/api/roles", nil, nil), &list)
	if list.Count != 2 || list.Roles[0].Title != "Designer" {
		t.Errorf("roles = %+v", list.Roles)
	}
	if list.Roles[0].Experience != 0 || list.Roles[0].Status != storage.RoleDraft {
		t.Errorf("explicit fields lost: %+v", list.Roles[0])
	}
}

func TestCreateRoleValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{name: "missing title", body: map[string]interface{}{"department": "Eng"}, want: http.StatusBadRequest},
		{name: "bad status", body: map[string]interface{}{"title": "X", "status": "closed"}, want: http.StatusBadRequest},
		{name: "negative experience", body: map[string]interface{}{"title": "X", "experience": -1}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, env.doJSON(t, http.MethodPost, "/api/roles", tt.body, nil), tt.want)
		})
	}

	env.doJSON(t, http.MethodPost, "/api/roles", map[string]string{"title": "A", "job_id": "job_dup"}, nil)
	wantStatus(t, env.doJSON(t, http.MethodPost, "/api/roles", map[string]string{"title": "B", "job_id": "job_dup"}, nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodGet, "/api/roles/999", nil, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, "/api/roles/abc", nil, nil), http.StatusBadRequest)
}

func TestCreateRoleWithJD(t *testing.T) {
	var uploadedPath atomic.Value
	storageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		uploadedPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"Key":"ok"}`)
	}))
	defer storageSrv.Close()

	tun := config.DefaultTunables()
	store := newMemStore()
	a := NewAPI(Options{
		Config:  &config.Config{Tunables: tun},
		Store:   store,
		Uploads: objectstore.NewClient(storageSrv.URL, "service-key", 5*time.Second),
	})
	defer a.Close()
	env := &testEnv{api: a, store: store, h: NewRouter(a)}

	body, h := multipartBody(t,
		map[string]string{"title": "Backend Engineer", "experience": "5"},
		formFile{field: "jd", filename: "backend.txt", content: "We use Go, PostgreSQL and Kubernetes."})
	rec := env.do(t, http.MethodPost, "/api/roles", body, h)
	wantStatus(t, rec, http.StatusCreated)

	var role storage.Role
	decode(t, rec, &role)
	if role.JDURL == "" || !strings.Contains(role.JDURL, "/jd-files/roles/") {
		t.Errorf("jd_url = %q", role.JDURL)
	}
	if p, _ := uploadedPath.Load().(string); !strings.HasPrefix(p, "/storage/v1/object/jd-files/roles/") {
		t.Errorf("uploaded to %q", p)
	}
	if role.Experience != 5 {
		t.Errorf("experience = %d", role.Experience)
	}
	if want := []string{"Go", "Kubernetes", "PostgreSQL"}; !reflect.DeepEqual(role.Skills, want) {
		t.Errorf("skills = %v, want %v", role.Skills, want)
	}
}

func TestCreateRoleUploadFailureLeavesURLEmpty(t *testing.T) {
	storageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket missing", http.StatusNotFound)
	}))
	defer storageSrv.Close()

	store := newMemStore()
	a := NewAPI(Options{
		Config:  &config.Config{Tunables: config.DefaultTunables()},
		Store:   store,
		Uploads: objectstore.NewClient(storageSrv.URL, "service-key", 5*time.Second),
	})
	defer a.Close()

	body, h := multipartBody(t, map[string]string{"title": "QA"},
		formFile{field: "jd", filename: "qa.txt", content: "Testing"})
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header = h
	rec := httptest.NewRecorder()
	NewRouter(a).ServeHTTP(rec, req)

	wantStatus(t, rec, http.StatusCreated)
	var role storage.Role
	decode(t, rec, &role)
	if role.JDURL != "" {
		t.Errorf("jd_url = %q, want empty", role.JDURL)
	}
}

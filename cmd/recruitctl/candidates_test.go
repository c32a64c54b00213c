package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"recruitai/internal/localstore"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

func TestCandidateTable(t *testing.T) {
	out := candidateTable(views.ProjectAll([]*storage.Candidate{
		{Name: "Ana", Email: "ana@example.com", Score: 91.5, Tags: []string{"remote", "senior"}},
		{Name: "Ben", Email: "ben@example.com", Score: 60},
	}))
	for _, want := range []string{"NAME", "Ana", "91.5", "shortlisted", "remote, senior", "Ben", "rejected"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestLocalRanked(t *testing.T) {
	state, err := localstore.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()
	e := &env{state: state, log: zap.NewNop()}
	ctx := context.Background()

	got, err := localRanked(ctx, e)
	if err != nil || got != nil {
		t.Fatalf("empty state = %v, %v", got, err)
	}

	ranked := []*storage.Candidate{{CandidateID: "a", Name: "Ana", Score: 80}}
	if err := saveRanked(ctx, e, ranked); err != nil {
		t.Fatal(err)
	}
	got, err = localRanked(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Ana" || got[0].Status != storage.StatusReview {
		t.Errorf("got %+v", got)
	}
}

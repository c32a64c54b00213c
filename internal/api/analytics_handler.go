package api

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"recruitai/internal/storage"
	"recruitai/internal/views"
)

type snapshot struct {
	candidates []*storage.Candidate
	roles      []*storage.Role
	slots      []*storage.Slot
}

// loadSnapshot reads candidates, roles and bookings concurrently.
func (a *API) loadSnapshot(r *http.Request) (*snapshot, error) {
	var s snapshot
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		s.candidates, err = a.store.ListCandidates(ctx, "")
		return err
	})
	g.Go(func() (err error) {
		s.roles, err = a.store.ListRoles(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.slots, err = a.store.ListSlots(ctx, "", "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

// AnalyticsHandler returns pipeline totals and the seven-day trend.
// @Summary Analytics
// @Tags analytics
// @Produce json
// @Success 200 {object} views.Analytics
// @Router /analytics [get]
func (a *API) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	s, err := a.loadSnapshot(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views.BuildAnalytics(s.candidates, s.roles, s.slots, a.now()))
}

// DashboardHandler returns the landing page summary.
// @Summary Dashboard
// @Tags analytics
// @Produce json
// @Success 200 {object} views.Dashboard
// @Router /dashboard [get]
func (a *API) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	s, err := a.loadSnapshot(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views.BuildDashboard(s.candidates, s.roles, s.slots, a.now()))
}

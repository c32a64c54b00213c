package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/cache"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

// StatusAuto clears a recruiter override so the status follows the score again.
const StatusAuto = "auto"

type candidateList struct {
	Candidates []views.CandidateView `json:"candidates"`
	Count      int                   `json:"count"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=shortlisted review rejected auto"`
}

type tagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

type tagsResponse struct {
	CandidateID string   `json:"candidate_id"`
	Tags        []string `json:"tags"`
}

func (a *API) getCandidate(ctx context.Context, id string) (*storage.Candidate, error) {
	return cache.Fetch(ctx, a.cache, cache.CandidateKey(id), a.cfg.Tunables.CacheTTL,
		func(ctx context.Context) (*storage.Candidate, error) {
			return a.store.GetCandidate(ctx, id)
		})
}

func (a *API) invalidateCandidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.CandidateKey(id)
	}
	if err := a.cache.Delete(ctx, keys...); err != nil {
		a.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// invalidateScored drops cache entries touched by a relay fan-out.
func (a *API) invalidateScored(ctx context.Context, jobID string, cands []*storage.Candidate) {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.CandidateID
	}
	a.invalidateCandidate(ctx, ids...)
	a.invalidateRoleByJobID(ctx, jobID)
}

// ListCandidatesHandler returns candidates filtered by effective status and
// name, sorted by score or name.
// @Summary List candidates
// @Tags candidates
// @Produce json
// @Param status query string false "shortlisted, review or rejected"
// @Param q query string false "Case-insensitive name search"
// @Param sort query string false "score (default) or name"
// @Param dir query string false "desc (default) or asc"
// @Param job_id query string false "Restrict to one job"
// @Success 200 {object} candidateList
// @Failure 400 {object} errorBody
// @Router /candidates [get]
func (a *API) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := views.Filter{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
		Dir:   q.Get("dir"),
	}
	if s := q.Get("status"); s != "" {
		status, ok := storage.ParseStatus(s)
		if !ok {
			a.writeError(w, r, apperr.NewBadRequest("unknown status %q", s))
			return
		}
		f.Status = status
	}
	if f.Sort != "" && f.Sort != views.SortScore && f.Sort != views.SortName {
		a.writeError(w, r, apperr.NewBadRequest("sort must be score or name"))
		return
	}
	if f.Dir != "" && f.Dir != views.DirAsc && f.Dir != views.DirDesc {
		a.writeError(w, r, apperr.NewBadRequest("dir must be asc or desc"))
		return
	}

	cands, err := a.store.ListCandidates(r.Context(), q.Get("job_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := f.Apply(cands)
	writeJSON(w, http.StatusOK, candidateList{Candidates: views.ProjectAll(out), Count: len(out)})
}

// CountCandidatesHandler is what the result poller reads.
// @Summary Count candidates
// @Tags candidates
// @Produce json
// @Param job_id query string false "Restrict to one job"
// @Success 200 {object} map[string]int
// @Router /candidates/count [get]
func (a *API) CountCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	n, err := a.store.CountCandidates(r.Context(), r.URL.Query().Get("job_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// GetCandidateHandler returns one candidate.
// @Summary Get candidate
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate id"
// @Success 200 {object} views.CandidateView
// @Failure 404 {object} errorBody
// @Router /candidates/{id} [get]
func (a *API) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.getCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views.Project(c))
}

// UpdateCandidateStatusHandler overrides the derived status, or clears the
// override with "auto".
// @Summary Set candidate status
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Candidate id"
// @Param body body statusRequest true "New status"
// @Success 200 {object} views.CandidateView
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Router /candidates/{id}/status [patch]
func (a *API) UpdateCandidateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	var status storage.Status
	if req.Status != StatusAuto {
		status = storage.Status(req.Status)
	}
	if err := a.store.SetCandidateStatus(r.Context(), id, status); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.invalidateCandidate(r.Context(), id)

	c, err := a.getCandidate(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views.Project(c))
}

// AddTagHandler tags a candidate. Re-adding a tag moves it to the end.
// @Summary Add candidate tag
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Candidate id"
// @Param body body tagRequest true "Tag"
// @Success 200 {object} tagsResponse
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Router /candidates/{id}/tags [post]
func (a *API) AddTagHandler(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Tag) == "" {
		a.writeError(w, r, apperr.NewBadRequest("tag is required"))
		return
	}
	a.updateTags(w, r, func(tags []string) []string {
		return views.AddTag(tags, req.Tag)
	})
}

// RemoveTagHandler removes a tag from a candidate.
// @Summary Remove candidate tag
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate id"
// @Param tag path string true "Tag"
// @Success 200 {object} tagsResponse
// @Failure 404 {object} errorBody
// @Router /candidates/{id}/tags/{tag} [delete]
func (a *API) RemoveTagHandler(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")
	a.updateTags(w, r, func(tags []string) []string {
		return views.RemoveTag(tags, tag)
	})
}

func (a *API) updateTags(w http.ResponseWriter, r *http.Request, change func([]string) []string) {
	id := r.PathValue("id")
	// Tags are edited against the stored row, never the cached copy.
	c, err := a.store.GetCandidate(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	tags := change(c.Tags)
	if err := a.store.SetCandidateTags(r.Context(), id, tags); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.invalidateCandidate(r.Context(), id)
	writeJSON(w, http.StatusOK, tagsResponse{CandidateID: id, Tags: tags})
}

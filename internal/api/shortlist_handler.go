package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/export"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

const topPicksCount = 2

type shortlistResponse struct {
	Candidates []views.CandidateView `json:"candidates"`
	TopPicks   []string              `json:"top_picks"`
	Count      int                   `json:"count"`
}

type orderRequest struct {
	CandidateIDs []string `json:"candidate_ids" validate:"required"`
}

type moveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func (a *API) loadShortlist(r *http.Request, jobID string) ([]*storage.Candidate, error) {
	cands, err := a.store.ListCandidates(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	return views.Shortlist(cands), nil
}

func (a *API) writeShortlist(w http.ResponseWriter, r *http.Request, jobID string) {
	list, err := a.loadShortlist(r, jobID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shortlistResponse{
		Candidates: views.ProjectAll(list),
		TopPicks:   views.TopPicks(list, topPicksCount),
		Count:      len(list),
	})
}

// ShortlistHandler returns the shortlisted candidates in display order.
// @Summary Get shortlist
// @Tags shortlist
// @Produce json
// @Param job_id query string false "Restrict to one job"
// @Success 200 {object} shortlistResponse
// @Router /shortlist [get]
func (a *API) ShortlistHandler(w http.ResponseWriter, r *http.Request) {
	a.writeShortlist(w, r, r.URL.Query().Get("job_id"))
}

// ReorderShortlistHandler stores a manual order for the shortlist. Ids not
// currently shortlisted are rejected.
// @Summary Reorder shortlist
// @Tags shortlist
// @Accept json
// @Produce json
// @Param body body orderRequest true "Candidate ids in the new order"
// @Success 200 {object} shortlistResponse
// @Failure 400 {object} errorBody
// @Router /shortlist/order [put]
func (a *API) ReorderShortlistHandler(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	list, err := a.loadShortlist(r, "")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	current := make(map[string]bool, len(list))
	for _, c := range list {
		current[c.CandidateID] = true
	}
	seen := make(map[string]bool, len(req.CandidateIDs))
	for _, id := range req.CandidateIDs {
		if !current[id] {
			a.writeError(w, r, apperr.NewBadRequest("candidate %s is not shortlisted", id))
			return
		}
		if seen[id] {
			a.writeError(w, r, apperr.NewBadRequest("candidate %s appears twice", id))
			return
		}
		seen[id] = true
	}

	if err := a.store.SetShortlistOrder(r.Context(), req.CandidateIDs); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.invalidateCandidate(r.Context(), views.IDs(list)...)
	a.writeShortlist(w, r, "")
}

// MoveShortlistHandler swaps a candidate with its neighbour. Moving past
// either end leaves the order unchanged.
// @Summary Move a shortlisted candidate
// @Tags shortlist
// @Accept json
// @Produce json
// @Param id path string true "Candidate id"
// @Param body body moveRequest true "up or down"
// @Success 200 {object} shortlistResponse
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Router /shortlist/{id}/move [post]
func (a *API) MoveShortlistHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")

	list, err := a.loadShortlist(r, "")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	order := views.IDs(list)
	found := false
	for _, v := range order {
		if v == id {
			found = true
			break
		}
	}
	if !found {
		a.writeError(w, r, apperr.NewNotFound("candidate %s is not shortlisted", id))
		return
	}

	if next, moved := views.Move(order, id, req.Direction); moved {
		if err := a.store.SetShortlistOrder(r.Context(), next); err != nil {
			a.writeError(w, r, err)
			return
		}
		a.invalidateCandidate(r.Context(), next...)
	}
	a.writeShortlist(w, r, "")
}

// ExportShortlistHandler downloads the shortlist as an Excel workbook.
// @Summary Export shortlist
// @Tags shortlist
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param job_id query string false "Restrict to one job"
// @Success 200 {file} file
// @Router /shortlist/export [get]
func (a *API) ExportShortlistHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	list, err := a.loadShortlist(r, jobID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	title := ""
	if jobID != "" {
		title = a.roleTitle(r, jobID)
	}

	now := a.now()
	var buf bytes.Buffer
	if err := export.WriteShortlist(&buf, list, title, now); err != nil {
		a.writeError(w, r, fmt.Errorf("export shortlist: %w", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="shortlist-%s.xlsx"`, now.Format("2006-01-02")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		a.logger.Debug("write export", zap.Error(err))
	}
}

// roleTitle finds the title of the role with jobID, or "" when there is none.
func (a *API) roleTitle(r *http.Request, jobID string) string {
	roles, err := a.store.ListRoles(r.Context())
	if err != nil {
		a.logger.Warn("role lookup for export failed", zap.Error(err))
		return ""
	}
	for _, role := range roles {
		if role.JobID == jobID {
			return role.Title
		}
	}
	return ""
}

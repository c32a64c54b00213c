package api

import (
	"net/http"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/auth"
	"recruitai/internal/schedule"
	"recruitai/internal/storage"
)

type scheduleResponse struct {
	Week     schedule.Week   `json:"week"`
	Slots    []*storage.Slot `json:"slots"`
	Upcoming []*storage.Slot `json:"upcoming"`
}

type slotRequest struct {
	CandidateID string `json:"candidate_id" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Day         string `json:"day" validate:"required"`
	Time        string `json:"time" validate:"required"`
}

// ScheduleHandler returns the Mon..Fri grid of a week with its bookings and
// every booking from today on.
// @Summary Get interview schedule
// @Tags schedule
// @Produce json
// @Param week query string false "Any date in the week (YYYY-MM-DD), default this week"
// @Success 200 {object} scheduleResponse
// @Failure 400 {object} errorBody
// @Router /schedule [get]
func (a *API) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	now := a.now()
	monday, err := schedule.ParseWeek(r.URL.Query().Get("week"), now)
	if err != nil {
		a.writeError(w, r, apperr.NewBadRequest("%v", err))
		return
	}
	week := schedule.NewWeek(monday)

	slots, err := a.store.ListSlots(r.Context(), week.Start, week.End)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	upcoming, err := a.store.ListSlots(r.Context(), now.Format("2006-01-02"), "")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	schedule.SortSlots(slots)
	schedule.SortSlots(upcoming)
	writeJSON(w, http.StatusOK, scheduleResponse{Week: week, Slots: nonNilSlots(slots), Upcoming: nonNilSlots(upcoming)})
}

func nonNilSlots(s []*storage.Slot) []*storage.Slot {
	if s == nil {
		return []*storage.Slot{}
	}
	return s
}

// CreateSlotHandler books an interview for a shortlisted candidate.
// @Summary Book interview slot
// @Tags schedule
// @Accept json
// @Produce json
// @Param body body slotRequest true "Slot"
// @Success 201 {object} storage.Slot
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Failure 409 {object} errorBody
// @Router /schedule [post]
func (a *API) CreateSlotHandler(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := schedule.ValidateSlot(req.Date, req.Day, req.Time); err != nil {
		a.writeError(w, r, apperr.NewBadRequest("%v", err))
		return
	}

	c, err := a.store.GetCandidate(r.Context(), req.CandidateID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if c.EffectiveStatus() != storage.StatusShortlisted {
		a.writeError(w, r, apperr.NewBadRequest("only shortlisted candidates can be scheduled"))
		return
	}

	slot := &storage.Slot{
		CandidateID:    c.CandidateID,
		CandidateName:  c.Name,
		CandidateEmail: c.Email,
		Date:           req.Date,
		Day:            req.Day,
		Time:           req.Time,
		Status:         storage.SlotPending,
	}
	if err := a.store.CreateSlot(r.Context(), slot); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("interview booked",
		zap.Int64("slot_id", slot.ID),
		zap.String("candidate_id", slot.CandidateID),
		zap.String("date", slot.Date),
		zap.String("time", slot.Time))
	writeJSON(w, http.StatusCreated, slot)
}

// ConfirmSlotHandler marks a booking as confirmed.
// @Summary Confirm interview slot
// @Tags schedule
// @Produce json
// @Param id path int true "Slot id"
// @Success 200 {object} storage.Slot
// @Failure 404 {object} errorBody
// @Router /schedule/{id}/confirm [post]
func (a *API) ConfirmSlotHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.store.ConfirmSlot(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	slot, err := a.store.GetSlot(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// DeleteSlotHandler cancels a booking.
// @Summary Cancel interview slot
// @Tags schedule
// @Param id path int true "Slot id"
// @Success 204
// @Failure 404 {object} errorBody
// @Router /schedule/{id} [delete]
func (a *API) DeleteSlotHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.store.DeleteSlot(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvitePreviewHandler drafts the invitation email for a booking, signed
// with the session user's name and company.
// @Summary Preview interview invitation
// @Tags schedule
// @Produce json
// @Param id path int true "Slot id"
// @Success 200 {object} schedule.Invite
// @Failure 404 {object} errorBody
// @Router /schedule/{id}/invite [get]
func (a *API) InvitePreviewHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	slot, err := a.store.GetSlot(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var name, company string
	if u := auth.UserFromContext(r.Context()); u != nil {
		name, company = u.Name, u.Company
	}
	writeJSON(w, http.StatusOK, schedule.InviteFor(slot, name, company))
}

package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/notify"
	"recruitai/internal/schedule"
	"recruitai/internal/storage"
)

// RejectHandler sends a rejection email and marks the candidate rejected.
// @Summary Send rejection
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body notify.Payload true "Notification"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 502 {object} errorBody
// @Router /reject [post]
func (a *API) RejectHandler(w http.ResponseWriter, r *http.Request) {
	a.forwardNotification(w, r, notify.KindReject)
}

// InviteHandler sends an interview invitation and confirms the slot it names.
// @Summary Send interview invitation
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body notify.Payload true "Notification with date and time_slot"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 502 {object} errorBody
// @Router /invite [post]
func (a *API) InviteHandler(w http.ResponseWriter, r *http.Request) {
	a.forwardNotification(w, r, notify.KindInvite)
}

// SendEmailHandler sends a free-form email to a candidate.
// @Summary Send email
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body notify.Payload true "Notification with email_subject and email_body"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 502 {object} errorBody
// @Router /send-email [post]
func (a *API) SendEmailHandler(w http.ResponseWriter, r *http.Request) {
	a.forwardNotification(w, r, notify.KindEmail)
}

func (a *API) forwardNotification(w http.ResponseWriter, r *http.Request, kind notify.Kind) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBytes))
	if err != nil {
		a.writeError(w, r, apperr.NewBadRequest("could not read request body").Wrap(err))
		return
	}

	p, err := a.notifier.Forward(r.Context(), kind, body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	switch kind {
	case notify.KindReject:
		a.markRejected(r, p)
	case notify.KindInvite:
		a.confirmInvited(r, p)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// markRejected applies the side effect of a sent rejection. The email is
// already out, so failures are only logged.
func (a *API) markRejected(r *http.Request, p *notify.Payload) {
	if p.CandidateID == "" {
		return
	}
	if err := a.store.SetCandidateStatus(r.Context(), p.CandidateID, storage.StatusRejected); err != nil {
		a.logger.Warn("could not mark candidate rejected", zap.String("candidate_id", p.CandidateID), zap.Error(err))
		return
	}
	a.invalidateCandidate(r.Context(), p.CandidateID)
}

func (a *API) confirmInvited(r *http.Request, p *notify.Payload) {
	if p.Date == "" || p.TimeSlot == "" {
		return
	}
	day, slotTime, err := schedule.ParseTimeSlot(p.TimeSlot)
	if err != nil {
		a.logger.Warn("invite sent with unrecognised time slot", zap.String("time_slot", p.TimeSlot))
		return
	}
	err = a.store.ConfirmSlotAt(r.Context(), p.Date, day, slotTime)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.logger.Info("invite sent for a slot that is not booked",
			zap.String("date", p.Date), zap.String("time_slot", p.TimeSlot))
	case err != nil:
		a.logger.Warn("could not confirm slot", zap.String("date", p.Date), zap.String("time_slot", p.TimeSlot), zap.Error(err))
	}
}

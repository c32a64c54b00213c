package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/auth"
	"recruitai/internal/relay"
)

// prepareSubmission parses and validates the multipart form and extracts
// the text of every document. Nothing leaves the process on failure.
func (a *API) prepareSubmission(w http.ResponseWriter, r *http.Request) (*relay.Submission, error) {
	limit := a.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.NewBadRequest("upload exceeds %d MB", a.cfg.Tunables.MaxUploadMB).Wrap(err)
		}
		return nil, apperr.NewBadRequest("invalid multipart form").Wrap(err)
	}
	sub, err := relay.Prepare(r.Context(), a.parser, r.MultipartForm, auth.UserFromContext(r.Context()))
	// Prepare keeps its own copy of every file.
	r.MultipartForm.RemoveAll()
	if err != nil {
		return nil, err
	}
	if !a.relay.Configured() {
		return nil, apperr.NewInternal("scoring webhook URL is not configured")
	}
	return sub, nil
}

// ScoreHandler relays a job description and résumés to the scoring workflow
// and answers with its response once it is done.
// @Summary Score résumés against a job description
// @Description Extracts text from every file, forwards the submission to the scoring workflow, stores the ranked candidates and returns the workflow response verbatim.
// @Tags scoring
// @Accept multipart/form-data
// @Produce json
// @Param JD formData file true "Job description"
// @Param resume_0 formData file true "First résumé (resume_1, resume_2, ... for more)"
// @Param job_id formData string false "Job id"
// @Param job_title formData string false "Job title"
// @Param recruiter_name formData string false "Recruiter name"
// @Param recruiter_email formData string false "Recruiter email"
// @Param company formData string false "Company"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 502 {object} errorBody
// @Failure 504 {object} errorBody
// @Router /score [post]
func (a *API) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	sub, err := a.prepareSubmission(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.relay.Score(r.Context(), sub)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if res.Inserted > 0 {
		a.invalidateScored(r.Context(), sub.JobID(), res.Candidates)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Body); err != nil {
		a.logger.Debug("write score response", zap.Error(err))
	}
}

// CreateSubmissionHandler validates a submission, queues it for forwarding
// and starts watching the datastore for its results.
// @Summary Queue a scoring submission
// @Tags scoring
// @Accept multipart/form-data
// @Produce json
// @Param JD formData file true "Job description"
// @Param resume_0 formData file true "First résumé"
// @Param job_id formData string false "Job id"
// @Success 202 {object} SubmissionStatus
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 503 {object} errorBody
// @Router /submissions [post]
func (a *API) CreateSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	sub, err := a.prepareSubmission(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	baseline, err := a.store.CountCandidates(r.Context(), sub.JobID())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	st, err := a.enqueueSubmission(uuid.NewString(), sub, baseline)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// GetSubmissionHandler reports the state of a queued submission.
// @Summary Get submission status
// @Tags scoring
// @Produce json
// @Param id path string true "Submission id"
// @Success 200 {object} SubmissionStatus
// @Failure 404 {object} errorBody
// @Router /submissions/{id} [get]
func (a *API) GetSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.submissionStatus(r.PathValue("id"))
	if !ok {
		a.writeError(w, r, apperr.NewNotFound("submission not found"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CancelSubmissionHandler stops polling for a submission.
// @Summary Cancel a submission
// @Tags scoring
// @Produce json
// @Param id path string true "Submission id"
// @Success 200 {object} SubmissionStatus
// @Failure 404 {object} errorBody
// @Router /submissions/{id} [delete]
func (a *API) CancelSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := a.cancelSubmission(r.PathValue("id"))
	if !ok {
		a.writeError(w, r, apperr.NewNotFound("submission not found"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

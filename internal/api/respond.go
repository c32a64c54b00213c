package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/storage"
)

const maxJSONBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error"`
	Raw            string `json:"raw,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

// writeError reports err as {"ok":false,"error":...}. Errors that are not an
// *apperr.Error become a generic 500 and are logged with their cause.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = storeError(err)
	}

	log := a.logger.With(zap.String("path", r.URL.Path), zap.String("request_id", requestID(r.Context())))
	if appErr.Code >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", appErr.Code), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Int("status", appErr.Code), zap.Error(err))
	}

	writeJSON(w, appErr.Code, errorBody{
		Error:          appErr.Message,
		Raw:            appErr.Raw,
		UpstreamStatus: appErr.UpstreamStatus,
	})
}

// storeError maps the storage sentinels onto HTTP errors.
func storeError(err error) *apperr.Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NewNotFound("not found").Wrap(err)
	case errors.Is(err, storage.ErrDuplicate):
		return apperr.NewBadRequest("already exists").Wrap(err)
	case errors.Is(err, storage.ErrSlotTaken):
		return apperr.NewConflict("that interview slot is already booked").Wrap(err)
	}
	return apperr.NewInternal("internal error").Wrap(err)
}

// decodeJSON reads a JSON body into v and runs its validate tags.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.NewBadRequest("invalid JSON").Wrap(err)
	}
	if err := validate.Struct(v); err != nil {
		return apperr.NewBadRequest("%s", validationMessage(err)).Wrap(err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewBadRequest("invalid %s", name)
	}
	return id, nil
}

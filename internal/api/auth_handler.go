package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recruitai/internal/apperr"
	"recruitai/internal/auth"
	"recruitai/internal/storage"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Company  string `json:"company"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type settingsRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Company string `json:"company"`
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	User      *storage.User `json:"user"`
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request, u *storage.User, status int) {
	s := auth.NewSession(u.ID, a.now(), a.cfg.Tunables.SessionTTL)
	if err := a.store.CreateSession(r.Context(), s); err != nil {
		a.writeError(w, r, err)
		return
	}
	http.SetCookie(w, auth.SessionCookie(s))
	writeJSON(w, status, sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		User:      u,
	})
}

// SignupHandler creates a recruiter account and signs it in.
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param body body signupRequest true "Account"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} errorBody
// @Router /auth/signup [post]
func (a *API) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		a.writeError(w, r, apperr.NewBadRequest("password must be at least %d characters", auth.MinPasswordLength))
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		a.writeError(w, r, apperr.NewBadRequest("password must be at most %d bytes", auth.MaxPasswordBytes))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	u := &storage.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Company:      strings.TrimSpace(req.Company),
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = apperr.NewBadRequest("an account with this email already exists").Wrap(err)
		}
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("account created", zap.Int64("user_id", u.ID))
	a.startSession(w, r, u, http.StatusCreated)
}

// LoginHandler checks the password and issues a session.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} sessionResponse
// @Failure 400 {object} errorBody
// @Router /auth/login [post]
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	u, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		a.writeError(w, r, apperr.NewBadRequest("%v", auth.ErrInvalidCredentials))
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		a.writeError(w, r, apperr.NewBadRequest("%v", err))
		return
	}
	a.startSession(w, r, u, http.StatusOK)
}

// LogoutHandler ends the current session.
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /auth/logout [post]
func (a *API) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := a.store.DeleteSession(r.Context(), token); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, auth.SessionCookie(nil))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MeHandler returns the signed-in user.
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} storage.User
// @Failure 401 {object} errorBody
// @Router /me [get]
func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
}

// SettingsHandler updates the signed-in user's profile. Blank fields keep
// their current value.
// @Summary Update settings
// @Tags auth
// @Accept json
// @Produce json
// @Param body body settingsRequest true "Profile fields"
// @Success 200 {object} storage.User
// @Failure 400 {object} errorBody
// @Failure 401 {object} errorBody
// @Router /settings [put]
func (a *API) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	u := *auth.UserFromContext(r.Context())
	if v := strings.TrimSpace(req.Name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		u.Email = v
	}
	if v := strings.TrimSpace(req.Company); v != "" {
		u.Company = v
	}
	if err := a.store.UpdateUser(r.Context(), &u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = apperr.NewBadRequest("an account with this email already exists").Wrap(err)
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &u)
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/auth"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/service"
)

// UserLifecycle is what the user handler needs from the service layer,
// narrowed to an interface so tests can stub it.
type UserLifecycle interface {
	Signup(ctx context.Context, email, password, referredBy string) (*service.AuthResult, error)
	Signin(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetByID(ctx context.Context, uid string) (*model.User, error)
	LogActivity(ctx context.Context, uid, activity string) (*model.Activity, error)
}

// UserHandler serves signup, signin, user lookup, and activity logging.
type UserHandler struct {
	users  UserLifecycle
	logger *slog.Logger
}

func NewUserHandler(users UserLifecycle, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	ReferredBy string `json:"referredBy,omitempty"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleSignup handles POST /signup.
func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.users.Signup(r.Context(), req.Email, req.Password, req.ReferredBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

// HandleSignin handles POST /signin.
func (h *UserHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.users.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleGetUser handles GET /user/{uid}.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	user, err := h.users.GetByID(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleMe handles GET /me — the record of the authenticated caller, with
// the uid taken from the validated token rather than the URL.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.users.GetByID(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type activityRequest struct {
	UID      string `json:"uid"`
	Activity string `json:"activity"`
}

type activityResponse struct {
	Status   string          `json:"status"`
	Activity *model.Activity `json:"activity"`
}

// HandleActivity handles POST /activity.
func (h *UserHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	entry, err := h.users.LogActivity(r.Context(), req.UID, req.Activity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, activityResponse{Status: "logged", Activity: entry})
}

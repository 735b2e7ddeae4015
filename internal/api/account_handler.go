package api

import (
	"errors"
	"net/http"

	"accountsvc/internal/api/middleware"
	"accountsvc/internal/domain"
	"accountsvc/internal/validation"
	"accountsvc/pkg/logger"
)

type AccountHandler struct {
	service domain.AccountService
	tokens  middleware.TokenParser
	logger  logger.Logger
}

func NewAccountHandler(service domain.AccountService, tokens middleware.TokenParser, logger logger.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}
}

type notFoundResponse struct {
	status  int
	message string
}

var (
	accountMissing = &notFoundResponse{http.StatusNotFound, "Account not found"}
	nothingChanged = &notFoundResponse{http.StatusBadRequest, msgNoChange}
	emailMissing   = &notFoundResponse{http.StatusNotFound, "Email not found"}
)

type signupRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Pointer fields distinguish an absent (or null) field from an empty one.
type profileRequest struct {
	UserID       string        `json:"userId"`
	ProfilePhoto *string       `json:"profile_photo"`
	PhoneNumber  *string       `json:"phone_number"`
	Location     *string       `json:"location"`
	Theme        *domain.Theme `json:"theme"`
}

type settingsRequest struct {
	UserID   string        `json:"userId"`
	Theme    *domain.Theme `json:"theme"`
	Language *string       `json:"language"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string  `json:"token"`
	NewPassword     string  `json:"new_password"`
	ConfirmPassword *string `json:"confirm_password"`
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.Register(r.Context(), req.UserName, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "signup", err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{Message: "User created successfully", ID: id})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeError(w, r, "login", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	patch := domain.ProfilePatch{
		ProfilePhoto: req.ProfilePhoto,
		PhoneNumber:  req.PhoneNumber,
		Location:     req.Location,
		Theme:        req.Theme,
	}
	if err := h.service.UpdateProfile(r.Context(), req.UserID, patch); err != nil {
		h.writeError(w, r, "profile", err, nothingChanged)
		return
	}

	writeMessage(w, http.StatusOK, "Profile updated successfully")
}

func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UpdateSettings(r.Context(), req.UserID, req.Theme, req.Language); err != nil {
		h.writeError(w, r, "settings", err, nothingChanged)
		return
	}

	writeMessage(w, http.StatusOK, "Settings updated successfully")
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, "forgot_password", err, emailMissing)
		return
	}

	writeMessage(w, http.StatusOK, "Password reset link sent to the email")
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeError(w, r, "reset_password", err, accountMissing)
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successful!")
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authorization token is required")
		return
	}

	view, err := h.service.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		h.writeError(w, r, "me", err, accountMissing)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *AccountHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// writeError is the single place domain errors become HTTP statuses. The
// meaning of ErrAccountNotFound differs per route, so callers supply it. A nil
// notFound marks routes where the error cannot legitimately occur; it is then
// logged and reported as a server error.
func (h *AccountHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error, notFound *notFoundResponse) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeMessage(w, http.StatusBadRequest, "Email is already in use")
	case errors.Is(err, domain.ErrDuplicateUsername):
		writeMessage(w, http.StatusBadRequest, "Username is already in use")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid email/username or password")
	case errors.Is(err, domain.ErrNoChangeApplied):
		writeMessage(w, http.StatusBadRequest, msgNoChange)
	case errors.Is(err, domain.ErrAccountNotFound) && notFound != nil:
		writeMessage(w, notFound.status, notFound.message)
	case errors.Is(err, domain.ErrInvalidTheme):
		writeMessage(w, http.StatusBadRequest, validation.MsgInvalidTheme)
	case errors.Is(err, domain.ErrPasswordMismatch):
		writeMessage(w, http.StatusBadRequest, "Passwords do not match.")
	case errors.Is(err, domain.ErrInvalidResetToken):
		writeMessage(w, http.StatusBadRequest, "Invalid or expired reset token.")
	case errors.Is(err, domain.ErrPasswordReused):
		writeMessage(w, http.StatusBadRequest, "New password must be different from the old password.")
	default:
		h.logger.WithContext(r.Context()).Error("Request failed", map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
		writeMessage(w, http.StatusInternalServerError, msgServerError)
	}
}

func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /profile", h.UpdateProfile)
	mux.HandleFunc("POST /settings", h.UpdateSettings)
	mux.HandleFunc("POST /forgot_password", h.ForgotPassword)
	mux.HandleFunc("POST /reset_password", h.ResetPassword)
	mux.Handle("GET /me", middleware.Authenticate(h.tokens)(http.HandlerFunc(h.Me)))
}

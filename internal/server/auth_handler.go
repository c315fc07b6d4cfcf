package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/server/middleware"
	"github.com/jonathan/resumind/internal/types"
	"github.com/jonathan/resumind/internal/users"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *users.Service
	jwtService  *JWTService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *users.Service, jwtService *JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, user, http.StatusCreated)
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, user, http.StatusOK)
}

// Guest creates a guest account and signs it in.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Guest(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, user, http.StatusCreated)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookie(w)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// UpdatePassword handles password update requests for the authenticated user.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.UpdatePasswordWithUserID(w, r, userID)
}

// UpdatePasswordWithUserID handles password update requests with an explicit user ID.
func (h *AuthHandler) UpdatePasswordWithUserID(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var req types.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// issue signs a token for user, sets the session cookie and writes the login response.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *types.User, status int) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Guest)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.ID.String()), zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	setSessionCookie(w, r, token, h.jwtService.Expiration())
	jsonResponse(w, status, types.LoginResponse{User: user, Token: token})
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	errorResponse(w, status, PublicMessage(err))
}

// SignIn authenticates a submitted form and returns the session token.
// action is "login", "register" or "guest".
func (h *AuthHandler) SignIn(r *http.Request, action string) (string, error) {
	var (
		user *types.User
		err  error
	)
	switch action {
	case "login":
		req := types.LoginRequest{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
		if err := h.validator.Struct(req); err != nil {
			return "", &users.ErrInvalidCredentials{}
		}
		user, err = h.userService.Login(r.Context(), &req)
	case "register":
		req := types.CreateUserRequest{
			Name:     strings.TrimSpace(r.PostFormValue("name")),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}
		if err := h.validator.Struct(req); err != nil {
			return "", &ErrValidation{Field: validationField(err), Message: "is invalid"}
		}
		user, err = h.userService.Register(r.Context(), &req)
	case "guest":
		user, err = h.userService.Guest(r.Context())
	default:
		return "", fmt.Errorf("unknown sign-in action %q", action)
	}
	if err != nil {
		return "", err
	}
	return h.jwtService.GenerateToken(user.ID, user.Guest)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// Return first validation error for simplicity
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}

func validationField(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return strings.ToLower(validationErrors[0].Field())
	}
	return "request"
}

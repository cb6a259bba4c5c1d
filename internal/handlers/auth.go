package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/auth"
	"github.com/ukydev/fleet-manager/internal/db"
	"github.com/ukydev/fleet-manager/internal/fleet"
	"github.com/ukydev/fleet-manager/internal/middleware"
	"github.com/ukydev/fleet-manager/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
	credentials db.CredentialCollection
	tx          db.Transactor
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, users db.UserCollection, credentials db.CredentialCollection, tx db.Transactor, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		credentials: credentials,
		tx:          tx,
		log:         log,
	}
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		http.Error(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, status, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		writeError(w, h.log, err)
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	cred, err := h.credentials.FindCredentialByEmail(r.Context(), loginReq.Email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.log.WithError(err).Error("credential lookup failed")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, cred.PasswordHash) {
		h.log.WithField("email", loginReq.Email).Info("failed login")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), cred.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, h.log, err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// Register creates a user together with its login credential. Anyone may
// register as a driver or maintenance personnel; registering a fleet manager
// requires a fleet manager's token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(r, &registerReq); err != nil {
		writeError(w, h.log, err)
		return
	}
	if registerReq.User == nil {
		writeError(w, h.log, models.NewValidationError("user", "is required"))
		return
	}
	user := registerReq.User
	if user.Role() == models.RoleFleet {
		if role, ok := h.callerRole(r); !ok || role != models.RoleFleet {
			h.log.WithField("email", user.Email).Warn("fleet manager registration refused")
			writeError(w, h.log, fmt.Errorf("register %s: %w", models.RoleFleet, fleet.ErrForbidden))
			return
		}
	}
	if p, ok := user.Driver(); ok {
		p.UpcomingTripID = ""
	}

	cred, err := h.authService.NewCredential(user, registerReq.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if _, err := h.credentials.FindCredentialByEmail(r.Context(), user.Email); err == nil {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		writeError(w, h.log, err)
		return
	}

	if err := h.createAccount(r.Context(), user, cred); err != nil {
		writeError(w, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role()}).Info("user registered")
	h.respondWithTokens(w, http.StatusCreated, user)
}

// callerRole returns the role of an optional bearer token. Registration is
// served without authentication, so the header is checked here.
func (h *AuthHandler) callerRole(r *http.Request) (models.Role, bool) {
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		return claims.Role, true
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	claims, err := h.authService.ValidateToken(header)
	if err != nil {
		return "", false
	}
	return claims.Role, true
}

func (h *AuthHandler) createAccount(ctx context.Context, user *models.User, cred models.Credential) error {
	return h.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := h.users.InsertUser(ctx, user); err != nil {
			return err
		}
		return h.credentials.InsertCredential(ctx, cred)
	})
}

// EnsureFleetManager creates the initial fleet manager account unless a
// credential for email already exists. It reports whether an account was created.
func (h *AuthHandler) EnsureFleetManager(ctx context.Context, name, email, password string) (bool, error) {
	if _, err := h.credentials.FindCredentialByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return false, err
	}

	manager, err := models.NewFleetManager(name, email, "")
	if err != nil {
		return false, err
	}
	cred, err := h.authService.NewCredential(manager, password)
	if err != nil {
		return false, err
	}
	if err := h.createAccount(ctx, manager, cred); err != nil {
		return false, fmt.Errorf("create fleet manager: %w", err)
	}
	h.log.WithFields(logrus.Fields{"user_id": manager.ID, "email": email}).Info("initial fleet manager created")
	return true, nil
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &passwordReq); err != nil {
		writeError(w, h.log, err)
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}

	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}

	cred, err := h.credentials.FindCredentialByUserID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, cred.PasswordHash) {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	cred.PasswordHash = newPasswordHash
	cred.UpdatedAt = time.Now().UTC()
	if err := h.credentials.UpdateCredential(r.Context(), *cred); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

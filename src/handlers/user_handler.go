package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/username/mango/backend/src/config"
	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/model"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/security"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/utils"
)

type UserHandler struct {
	authService *security.AuthService
}

func NewUserHandler(authService *security.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *model.User `json:"user"`
}

// RegisterUserHandler creates a user, seeds their default categories
// and logs them in.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = validation.SanitizeText(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = validation.SanitizeText(req.FullName)

	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		utils.SendJSONError(w, "username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user := &model.User{Username: req.Username, Email: req.Email, FullName: req.FullName}
	if err := user.HashPassword(req.Password); err != nil {
		utils.SendJSONError(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	if err := user.CreateUser(database.DB); err != nil {
		logger.FromContext(r.Context()).Warn("User registration failed", "email", req.Email, "error", err)
		utils.SendJSONError(w, "Username or email already in use", http.StatusConflict)
		return
	}

	if err := models.SeedDefaultCategories(database.DB, user.ID); err != nil {
		logger.FromContext(r.Context()).Error("Failed to seed default categories", "userID", user.ID, "error", err)
	}

	h.issueTokens(w, r, user, http.StatusCreated)
}

// LoginUserHandler authenticates by email and password.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByEmail(database.DB, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	if err := user.CheckPassword(req.Password); err != nil {
		utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	h.issueTokens(w, r, user, http.StatusOK)
}

// RefreshTokenHandler rotates an access/refresh token pair.
func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, session.UserID)
	if err != nil {
		utils.SendJSONError(w, "Invalid session", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(user.ID, config.Cfg.AccessTokenExpiry)
	if err != nil {
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	expiresAt := time.Now().Add(config.Cfg.RefreshTokenExpiry)
	if err := model.RotateSession(database.DB, session.ID, accessToken, refreshToken, expiresAt); err != nil {
		utils.SendJSONError(w, "Failed to rotate session", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, authResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, http.StatusOK)
}

// LogoutUserHandler revokes the current session.
func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.FromContext(r.Context()).Warn("Failed to delete session on logout", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// GetProfileHandler returns the authenticated user's profile.
func (h *UserHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		utils.SendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, user, http.StatusOK)
}

// UpdateProfileHandler updates full name and avatar URL.
func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		utils.SendJSONError(w, "User not found", http.StatusNotFound)
		return
	}

	user.FullName = validation.SanitizeText(req.FullName)
	user.AvatarURL = validation.SanitizeText(req.AvatarURL)
	if err := user.UpdateProfile(database.DB); err != nil {
		utils.SendJSONError(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, user, http.StatusOK)
}

// issueTokens creates a session row and writes the token pair.
func (h *UserHandler) issueTokens(w http.ResponseWriter, r *http.Request, user *model.User, statusCode int) {
	accessToken, err := h.authService.GenerateToken(user.ID, config.Cfg.AccessTokenExpiry)
	if err != nil {
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	expiresAt := time.Now().Add(config.Cfg.RefreshTokenExpiry)
	if err := model.CreateSession(database.DB, user.ID, accessToken, refreshToken, expiresAt); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, authResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, statusCode)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/mango/backend/src/config"
	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/model"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/utils"
)

var googleOAuthConfig *oauth2.Config

// InitializeGoogleOAuthConfig builds the OAuth config from the loaded
// app config. Call after config.LoadConfig.
func InitializeGoogleOAuthConfig() {
	googleOAuthConfig = &oauth2.Config{
		ClientID:     config.Cfg.GoogleClientID,
		ClientSecret: config.Cfg.GoogleClientSecret,
		RedirectURL:  config.Cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// HandleGoogleLogin redirects to Google's consent screen.
func (h *UserHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if googleOAuthConfig == nil || googleOAuthConfig.ClientID == "" {
		utils.SendJSONError(w, "Google login is not configured", http.StatusServiceUnavailable)
		return
	}
	url := googleOAuthConfig.AuthCodeURL(config.Cfg.OAuthStateString, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleGoogleCallback exchanges the code, provisions the user on
// first login and redirects back to the frontend with the token pair.
func (h *UserHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != config.Cfg.OAuthStateString {
		utils.SendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	info, err := fetchGoogleUserInfo(r.Context(), r.FormValue("code"))
	if err != nil {
		logger.FromContext(r.Context()).Error("Google OAuth exchange failed", "error", err)
		utils.SendJSONError(w, "Google authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByEmail(database.DB, strings.ToLower(info.Email))
	if errors.Is(err, model.ErrUserNotFound) {
		user = &model.User{
			Username:     strings.ToLower(strings.SplitN(info.Email, "@", 2)[0]),
			Email:        strings.ToLower(info.Email),
			AuthProvider: "google",
			FullName:     info.Name,
			AvatarURL:    info.Picture,
		}
		// OAuth users get a random unusable local password.
		random, randErr := h.authService.GenerateRefreshToken()
		if randErr != nil {
			utils.SendJSONError(w, "Failed to provision user", http.StatusInternalServerError)
			return
		}
		if hashErr := user.HashPassword(random); hashErr != nil {
			utils.SendJSONError(w, "Failed to provision user", http.StatusInternalServerError)
			return
		}
		if createErr := user.CreateUser(database.DB); createErr != nil {
			logger.FromContext(r.Context()).Error("Failed to create OAuth user", "email", info.Email, "error", createErr)
			utils.SendJSONError(w, "Failed to provision user", http.StatusInternalServerError)
			return
		}
		if seedErr := models.SeedDefaultCategories(database.DB, user.ID); seedErr != nil {
			logger.FromContext(r.Context()).Error("Failed to seed default categories", "userID", user.ID, "error", seedErr)
		}
	} else if err != nil {
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
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
	if err := model.CreateSession(database.DB, user.ID, accessToken, refreshToken, expiresAt); err != nil {
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	redirect := fmt.Sprintf("%s/auth/callback?access_token=%s&refresh_token=%s",
		config.Cfg.FrontendBaseURL, accessToken, refreshToken)
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

func fetchGoogleUserInfo(ctx context.Context, code string) (*googleUserInfo, error) {
	token, err := googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	client := googleOAuthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("user info response missing email")
	}
	return &info, nil
}

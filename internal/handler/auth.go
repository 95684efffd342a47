package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"inkwell/internal/httputil"
	"inkwell/internal/model"
	"inkwell/internal/service"
)

type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewAuthHandler(userService *service.UserService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			httputil.WriteConflict(w, "Username already taken")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	tokens, err := h.authService.GenerateTokenPair(r.Context(), user.ID)
	if err != nil {
		log.Printf("[ERROR] Register handler: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to issue tokens")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, model.LoginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid username or password")
			return
		}
		log.Printf("[ERROR] Login handler: err=%v", err)
		httputil.WriteInternalError(w, "Login failed")
		return
	}

	tokens, err := h.authService.GenerateTokenPair(r.Context(), user.ID)
	if err != nil {
		log.Printf("[ERROR] Login handler: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to issue tokens")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.LoginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	tokens, _, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenNotFound), errors.Is(err, model.ErrRefreshTokenRevoked):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		default:
			log.Printf("[ERROR] Refresh handler: err=%v", err)
			httputil.WriteInternalError(w, "Failed to refresh tokens")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		// Revoking an unknown token is not an error worth surfacing
		log.Printf("[AuthHandler] Logout revoke: err=%v", err)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// LogoutAll handles POST /auth/logout-all (requires authentication)
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		log.Printf("[ERROR] LogoutAll handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to revoke sessions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "All sessions revoked",
	})
}

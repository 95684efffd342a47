package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"inkwell/internal/httputil"
	"inkwell/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
// Checks Authorization header first, then falls back to the access_token cookie.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, errCode := userIDFromRequest(r, jwtSecret)
			if errCode != "" {
				switch errCode {
				case model.CodeTokenExpired:
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
				case model.CodeTokenInvalid:
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				default:
					httputil.WriteUnauthorized(w, "Missing authentication token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware resolves the user ID when a valid token is present
// but lets anonymous requests through. Used on public reads that personalize
// their response (is_liked, view dedup) for signed-in users.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, errCode := userIDFromRequest(r, jwtSecret)
			if errCode == "" {
				r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// userIDFromRequest extracts and validates the token, returning the user ID
// or an error code ("" on success, "MISSING" when no token was sent).
func userIDFromRequest(r *http.Request, jwtSecret string) (string, string) {
	var tokenString string

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = parts[1]
		}
	}

	if tokenString == "" {
		cookie, err := r.Cookie("access_token")
		if err == nil && cookie.Value != "" {
			tokenString = cookie.Value
		}
	}

	if tokenString == "" {
		return "", "MISSING"
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return "", model.CodeTokenExpired
		}
		return "", model.CodeTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", model.CodeTokenInvalid
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", model.CodeTokenInvalid
	}

	return userID, ""
}

// GetUserIDFromContext extracts the user ID from the request context.
// Returns the user ID and true if found, or "" and false if not found.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

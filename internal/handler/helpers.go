package handler

import (
	"context"
	"net/http"
	"strconv"

	"inkwell/internal/httputil"
	"inkwell/internal/service"
	"inkwell/internal/transport/http/middleware"
)

// requireUser extracts the authenticated user ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return "", false
	}
	return userID, true
}

// isAdmin reports whether the user has the admin flag. Lookup failures count
// as not-admin.
func isAdmin(ctx context.Context, users *service.UserService, userID string) bool {
	user, err := users.GetByID(ctx, userID)
	return err == nil && user.IsAdmin
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

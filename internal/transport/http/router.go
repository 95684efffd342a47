package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"inkwell/internal/handler"
	"inkwell/internal/httputil"
	authmw "inkwell/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	PostHandler     *handler.PostHandler
	CommentHandler  *handler.CommentHandler
	LikeHandler     *handler.LikeHandler
	CategoryHandler *handler.CategoryHandler
	MediaHandler    *handler.MediaHandler
	JWTSecret       string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	optional := authmw.OptionalAuthMiddleware(cfg.JWTSecret)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
	})

	// Public reads; a valid token personalizes the response
	r.Group(func(r chi.Router) {
		r.Use(optional)

		r.Get("/users/{username}", cfg.UserHandler.GetByUsername)

		r.Get("/posts", cfg.PostHandler.List)
		r.Get("/posts/trending", cfg.PostHandler.Trending)
		r.Get("/posts/{id}", cfg.PostHandler.Get)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
		r.Get("/posts/{id}/likers", cfg.LikeHandler.PostLikers)

		r.Get("/comments/{commentId}", cfg.CommentHandler.Get)
		r.Get("/comments/{commentId}/likers", cfg.LikeHandler.CommentLikers)

		r.Get("/categories", cfg.CategoryHandler.List)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/users/me", cfg.UserHandler.Me)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Post endpoints
		r.Post("/posts", cfg.PostHandler.Create)
		r.Patch("/posts/{id}", cfg.PostHandler.Update)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/like", cfg.LikeHandler.LikePost)
		r.Delete("/posts/{id}/like", cfg.LikeHandler.UnlikePost)

		// Comment endpoints
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
		r.Patch("/comments/{commentId}", cfg.CommentHandler.Update)
		r.Delete("/comments/{commentId}", cfg.CommentHandler.Delete)
		r.Post("/comments/{commentId}/like", cfg.LikeHandler.LikeComment)
		r.Delete("/comments/{commentId}/like", cfg.LikeHandler.UnlikeComment)
		r.Post("/comments/{commentId}/report", cfg.CommentHandler.Report)
		r.Post("/comments/{commentId}/reports/dismiss", cfg.CommentHandler.DismissReports)

		// Category management (handlers enforce admin)
		r.Post("/categories", cfg.CategoryHandler.Create)
		r.Patch("/categories/{id}", cfg.CategoryHandler.Update)
		r.Delete("/categories/{id}", cfg.CategoryHandler.Delete)

		// Media endpoints (absent when R2 is not configured)
		if cfg.MediaHandler != nil {
			r.Post("/media/images", cfg.MediaHandler.UploadImage)
		}
	})

	return r
}

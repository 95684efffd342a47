package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/httputil"
	"inkwell/internal/model"
	"inkwell/internal/service"
	"inkwell/internal/transport/http/middleware"
)

type PostHandler struct {
	postService *service.PostService
	userService *service.UserService
}

func NewPostHandler(postService *service.PostService, userService *service.UserService) *PostHandler {
	return &PostHandler{
		postService: postService,
		userService: userService,
	}
}

// Create handles POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTitleRequired):
			httputil.WriteBadRequest(w, "Post title is required")
		case errors.Is(err, model.ErrTitleTooLong):
			httputil.WriteBadRequest(w, "Post title too long")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Post content too long")
		default:
			log.Printf("[ERROR] Create post handler: user=%s err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to create post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// Get handles GET /posts/{id}
// Public; a signed-in viewer additionally gets is_liked and view dedup.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	post, err := h.postService.GetByID(r.Context(), postID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] Get post handler: post=%s err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// List handles GET /posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)
	categorySlug := r.URL.Query().Get("category")
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.postService.List(r.Context(), page, pageSize, categorySlug, viewerID)
	if err != nil {
		log.Printf("[ERROR] List posts handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Trending handles GET /posts/trending
func (h *PostHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	posts, err := h.postService.Trending(r.Context(), limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] Trending handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to get trending posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
	})
}

// Update handles PATCH /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")

	var req model.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Update(r.Context(), postID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only edit your own posts")
		case errors.Is(err, model.ErrTitleRequired):
			httputil.WriteBadRequest(w, "Post title is required")
		case errors.Is(err, model.ErrTitleTooLong):
			httputil.WriteBadRequest(w, "Post title too long")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Post content too long")
		default:
			log.Printf("[ERROR] Update post handler: user=%s post=%s err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to update post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}
// The author or an admin may delete; everything hanging off the post goes
// with it.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")
	admin := isAdmin(r.Context(), h.userService, userID)

	err := h.postService.Delete(r.Context(), postID, userID, admin)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: user=%s post=%s err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

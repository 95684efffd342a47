package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/httputil"
	"inkwell/internal/model"
	"inkwell/internal/service"
)

type LikeHandler struct {
	likeService *service.LikeService
}

func NewLikeHandler(likeService *service.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// LikePost handles POST /posts/{id}/like
func (h *LikeHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.like(w, r, chi.URLParam(r, "id"), model.TargetPost)
}

// UnlikePost handles DELETE /posts/{id}/like
func (h *LikeHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	h.unlike(w, r, chi.URLParam(r, "id"), model.TargetPost)
}

// LikeComment handles POST /comments/{commentId}/like
func (h *LikeHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.like(w, r, chi.URLParam(r, "commentId"), model.TargetComment)
}

// UnlikeComment handles DELETE /comments/{commentId}/like
func (h *LikeHandler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	h.unlike(w, r, chi.URLParam(r, "commentId"), model.TargetComment)
}

// PostLikers handles GET /posts/{id}/likers
func (h *LikeHandler) PostLikers(w http.ResponseWriter, r *http.Request) {
	h.likers(w, r, chi.URLParam(r, "id"), model.TargetPost)
}

// CommentLikers handles GET /comments/{commentId}/likers
func (h *LikeHandler) CommentLikers(w http.ResponseWriter, r *http.Request) {
	h.likers(w, r, chi.URLParam(r, "commentId"), model.TargetComment)
}

func (h *LikeHandler) like(w http.ResponseWriter, r *http.Request, targetID string, targetType model.TargetType) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.likeService.Like(r.Context(), userID, targetID, targetType)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyLiked):
			httputil.WriteConflict(w, "Already liked")
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Comment has been deleted")
		default:
			log.Printf("[ERROR] Like handler: user=%s %s=%s err=%v", userID, targetType, targetID, err)
			httputil.WriteInternalError(w, "Failed to like")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *LikeHandler) unlike(w http.ResponseWriter, r *http.Request, targetID string, targetType model.TargetType) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.likeService.Unlike(r.Context(), userID, targetID, targetType)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotLiked):
			httputil.WriteConflict(w, "Not liked")
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Comment has been deleted")
		default:
			log.Printf("[ERROR] Unlike handler: user=%s %s=%s err=%v", userID, targetType, targetID, err)
			httputil.WriteInternalError(w, "Failed to unlike")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *LikeHandler) likers(w http.ResponseWriter, r *http.Request, targetID string, targetType model.TargetType) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	filter := parseLikerFilter(r)

	resp, err := h.likeService.ListLikers(r.Context(), targetID, targetType, filter, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Comment has been deleted")
		default:
			log.Printf("[ERROR] Likers handler: %s=%s err=%v", targetType, targetID, err)
			httputil.WriteInternalError(w, "Failed to list likers")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseLikerFilter(r *http.Request) model.LikerFilter {
	q := r.URL.Query()

	filter := model.LikerFilter{
		UsernameContains: q.Get("username_contains"),
		VerifiedOnly:     q.Get("verified_only") == "true",
		Sort:             model.LikerSort(q.Get("sort")),
	}

	if raw := q.Get("since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = &t
		}
	}
	if raw := q.Get("until"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Until = &t
		}
	}

	return filter
}

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

type CommentHandler struct {
	commentService *service.CommentService
	userService    *service.UserService
}

func NewCommentHandler(commentService *service.CommentService, userService *service.UserService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		userService:    userService,
	}
}

// Create handles POST /posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Parent comment not found")
		case errors.Is(err, model.ErrParentPostMismatch):
			httputil.WriteBadRequest(w, "Parent comment belongs to a different post")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Parent comment has been deleted")
		case errors.Is(err, model.ErrMaxDepthReached):
			httputil.WriteBadRequest(w, "Maximum nesting level reached")
		case errors.Is(err, model.ErrCommentEmpty):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrCommentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			log.Printf("[ERROR] Create comment handler: user=%s post=%s err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// List handles GET /posts/{id}/comments
// Public. The include_deleted flag is honored only for admins.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	q := model.ThreadQuery{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
		Sort:     model.ThreadSort(r.URL.Query().Get("sort")),
	}

	if r.URL.Query().Get("include_deleted") == "true" {
		if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			q.IncludeDeleted = isAdmin(r.Context(), h.userService, userID)
		}
	}

	page, err := h.commentService.ListThread(r.Context(), postID, q)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] List comments handler: post=%s err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /comments/{commentId}
// Returns the comment with its full reply subtree.
func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentId")

	comment, err := h.commentService.FindOne(r.Context(), commentID)
	if err != nil {
		if errors.Is(err, model.ErrCommentNotFound) {
			httputil.WriteNotFound(w, "Comment not found")
			return
		}
		log.Printf("[ERROR] Get comment handler: comment=%s err=%v", commentID, err)
		httputil.WriteInternalError(w, "Failed to get comment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Update handles PATCH /comments/{commentId}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "commentId")

	var req model.UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Update(r.Context(), commentID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only edit your own comments")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Comment has been deleted")
		case errors.Is(err, model.ErrCommentEmpty):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrCommentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			log.Printf("[ERROR] Update comment handler: user=%s comment=%s err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to update comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /comments/{commentId}
// Owners tombstone their own comments; admins remove anyone's.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "commentId")

	var err error
	if isAdmin(r.Context(), h.userService, userID) {
		err = h.commentService.RemoveAsAdmin(r.Context(), commentID)
	} else {
		err = h.commentService.SoftDelete(r.Context(), commentID, userID)
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only delete your own comments")
		case errors.Is(err, model.ErrCommentDeleted):
			httputil.WriteGone(w, "Comment already deleted")
		default:
			log.Printf("[ERROR] Delete comment handler: user=%s comment=%s err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Comment deleted successfully",
	})
}

// Report handles POST /comments/{commentId}/report
func (h *CommentHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "commentId")

	var req model.ReportCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	count, err := h.commentService.Report(r.Context(), commentID, userID, req)
	if err != nil {
		if errors.Is(err, model.ErrCommentNotFound) {
			httputil.WriteNotFound(w, "Comment not found")
			return
		}
		log.Printf("[ERROR] Report comment handler: user=%s comment=%s err=%v", userID, commentID, err)
		httputil.WriteInternalError(w, "Failed to report comment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Comment reported",
		"report_count": count,
	})
}

// DismissReports handles POST /comments/{commentId}/reports/dismiss (admin only)
func (h *CommentHandler) DismissReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isAdmin(r.Context(), h.userService, userID) {
		httputil.WriteForbidden(w, "Admin access required")
		return
	}

	commentID := chi.URLParam(r, "commentId")

	if err := h.commentService.DismissReports(r.Context(), commentID); err != nil {
		if errors.Is(err, model.ErrCommentNotFound) {
			httputil.WriteNotFound(w, "Comment not found")
			return
		}
		log.Printf("[ERROR] Dismiss reports handler: comment=%s err=%v", commentID, err)
		httputil.WriteInternalError(w, "Failed to dismiss reports")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Reports dismissed",
	})
}

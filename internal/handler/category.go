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
)

type CategoryHandler struct {
	categoryService *service.CategoryService
	userService     *service.UserService
}

func NewCategoryHandler(categoryService *service.CategoryService, userService *service.UserService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		userService:     userService,
	}
}

// List handles GET /categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] List categories handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list categories")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// Create handles POST /categories (admin only)
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isAdmin(r.Context(), h.userService, userID) {
		httputil.WriteForbidden(w, "Admin access required")
		return
	}

	var req model.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	category, err := h.categoryService.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrCategorySlugUsed) {
			httputil.WriteConflict(w, "Category slug already exists")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, category)
}

// Update handles PATCH /categories/{id} (admin only)
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isAdmin(r.Context(), h.userService, userID) {
		httputil.WriteForbidden(w, "Admin access required")
		return
	}

	categoryID := chi.URLParam(r, "id")

	var req model.UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	category, err := h.categoryService.Update(r.Context(), categoryID, req)
	if err != nil {
		if errors.Is(err, model.ErrCategoryNotFound) {
			httputil.WriteNotFound(w, "Category not found")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /categories/{id} (admin only)
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isAdmin(r.Context(), h.userService, userID) {
		httputil.WriteForbidden(w, "Admin access required")
		return
	}

	categoryID := chi.URLParam(r, "id")

	if err := h.categoryService.Delete(r.Context(), categoryID); err != nil {
		if errors.Is(err, model.ErrCategoryNotFound) {
			httputil.WriteNotFound(w, "Category not found")
			return
		}
		log.Printf("[ERROR] Delete category handler: category=%s err=%v", categoryID, err)
		httputil.WriteInternalError(w, "Failed to delete category")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Category deleted",
	})
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"inkwell/internal/httputil"
	"inkwell/internal/model"
	"inkwell/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadImage handles POST /media/images
// Accepts multipart form data with an "image" field.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(model.MaxImageSizeBytes); err != nil {
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "Missing image file")
		return
	}
	defer file.Close()

	result, err := h.mediaService.UploadImage(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds the size limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type")
		default:
			log.Printf("[ERROR] Upload image handler: user=%s err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to upload image")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}

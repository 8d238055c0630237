package handlers

import (
	"errors"
	"net/http"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"
)

// multipart overhead allowed on top of the file size limit
const multipartSlack = 1 << 20

// UploadHandler handles media uploads
type UploadHandler struct {
	mediaService *services.MediaService
}

// NewUploadHandler creates a new upload handler. A nil service disables uploads.
func NewUploadHandler(mediaService *services.MediaService) *UploadHandler {
	return &UploadHandler{mediaService: mediaService}
}

// Upload handles POST /uploads with a multipart "file" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		respondError(w, "uploads are not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.mediaService.MaxBytes()+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.mediaService.Upload(
		r.Context(),
		middleware.GetUserID(r.Context()),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		respondServiceError(w, r, err, "upload media")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Presign handles POST /uploads/presign
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		respondError(w, "uploads are not configured", http.StatusServiceUnavailable)
		return
	}

	var req services.PresignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "presign upload")
		return
	}

	result, err := h.mediaService.Presign(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "presign upload")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

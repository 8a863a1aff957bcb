package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/OpenCrew/crewflow/internal/auth"
)

type HTTPHandler struct {
	Service *UploadService
}

func NewHTTPHandler(service *UploadService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Upload handles POST /api/uploads. Expects multipart form fields
// instanceId, itemId and file.
func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Max memory 32MB
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, `{"error": "failed to parse form"}`, http.StatusBadRequest)
		return
	}

	instanceID, err := uuid.Parse(r.FormValue("instanceId"))
	if err != nil {
		http.Error(w, `{"error": "instanceId is required"}`, http.StatusBadRequest)
		return
	}
	itemID, err := uuid.Parse(r.FormValue("itemId"))
	if err != nil {
		http.Error(w, `{"error": "itemId is required"}`, http.StatusBadRequest)
		return
	}

	user := auth.GetUser(r.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error": "file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	proof, err := h.Service.UploadProof(r.Context(), instanceID, itemID, user.ID, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			http.Error(w, `{"error": "only image and PDF proofs are accepted"}`, http.StatusUnsupportedMediaType)
			return
		}
		slog.ErrorContext(r.Context(), "Upload failed", "error", err)
		http.Error(w, `{"error": "upload failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(proof)
}

// Download handles GET /api/uploads/{key...} and streams the proof back.
func (h *HTTPHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/uploads/")
	if key == "" {
		http.Error(w, `{"error": "key is required"}`, http.StatusBadRequest)
		return
	}

	reader, contentType, err := h.Service.Download(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error": "file not found"}`, http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, reader)
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/extract"
	"docuchat/internal/ingest"
	"docuchat/internal/store"
	"docuchat/internal/transport/http/response"
)

type DocumentHandler struct {
	ingest *ingest.Service
	store  *store.Store
}

type uploadURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func NewDocumentHandler(svc *ingest.Service, st *store.Store) *DocumentHandler {
	return &DocumentHandler{ingest: svc, store: st}
}

// Upload accepts a multipart form with "file". The acknowledgment is
// synchronous; readiness is polled via Get.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing file")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}

	doc, err := h.ingest.Upload(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	response.OK(c, gin.H{"document_id": doc.DocumentID, "status": doc.Status})
}

// UploadURL downloads a remote document and ingests it.
func (h *DocumentHandler) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	doc, err := h.ingest.UploadURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidURL) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		h.uploadError(c, err)
		return
	}
	response.OK(c, gin.H{"document_id": doc.DocumentID, "status": doc.Status})
}

func (h *DocumentHandler) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrEmptyFileName),
		errors.Is(err, ingest.ErrFileTooLarge),
		errors.Is(err, extract.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "upload failed: "+err.Error())
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.ingest.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) Reingest(c *gin.Context) {
	doc, err := h.ingest.Reingest(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(c, http.StatusNotFound, "document not found")
		case errors.Is(err, store.ErrInvalidTransition):
			response.Error(c, http.StatusConflict, "document is being processed")
		default:
			response.Error(c, http.StatusInternalServerError, "re-ingestion failed")
		}
		return
	}
	response.OK(c, gin.H{"document_id": doc.DocumentID, "status": doc.Status})
}

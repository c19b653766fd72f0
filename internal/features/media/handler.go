package media

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnhub-app/learnhub-server-go/pkg/apperrors"
	"github.com/learnhub-app/learnhub-server-go/pkg/response"
	"github.com/learnhub-app/learnhub-server-go/pkg/storage"
)

// Handler proxies signed media vault URLs so vault credentials never reach
// the browser.
type Handler struct {
	vault  *storage.Client
	logger *slog.Logger
}

// NewHandler creates a media handler.
func NewHandler(vault *storage.Client, logger *slog.Logger) *Handler {
	return &Handler{vault: vault, logger: logger}
}

type uploadURLRequest struct {
	FileName string `json:"fileName" binding:"required"`
	FileType string `json:"fileType" binding:"required"`
	Folder   string `json:"folder" binding:"required"`
}

// UploadURL mints a signed upload URL and the key the client should store.
func (h *Handler) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Missing file details", err.Error())
		return
	}

	key := storage.ObjectKey(req.Folder, req.FileName, time.Now())

	uploadURL, err := h.vault.UploadURL(key, req.FileType)
	if err != nil {
		appErr := apperrors.Wrap(err, "Failed to create upload URL", http.StatusInternalServerError, apperrors.ErrInternal)
		response.ErrorWithLog(h.logger, c, appErr.StatusCode(), appErr.Message(), appErr)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"key":       key,
	}, "", nil)
}

type accessURLRequest struct {
	Key string `json:"key" binding:"required"`
}

// AccessURL mints a signed retrieval URL for a stored key.
func (h *Handler) AccessURL(c *gin.Context) {
	var req accessURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Missing object key", err.Error())
		return
	}

	accessURL, err := h.vault.AccessURL(req.Key)
	if err != nil {
		appErr := apperrors.Wrap(err, "Failed to create access URL", http.StatusInternalServerError, apperrors.ErrInternal)
		response.ErrorWithLog(h.logger, c, appErr.StatusCode(), appErr.Message(), appErr)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"accessUrl": accessURL}, "", nil)
}

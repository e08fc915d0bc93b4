package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
	"github.com/rushibamb/dig-village-sub001/pkg/response"
	"github.com/rushibamb/dig-village-sub001/pkg/storage"
)

type uploadService interface {
	MaxBytes(purpose string) int64
	Upload(ctx context.Context, purpose string, data []byte) (*dto.UploadResult, error)
}

// FileOpener resolves signed file tokens. Only the local storage backend has one.
type FileOpener interface {
	Open(token string) (*os.File, error)
}

// UploadHandler accepts photo uploads and serves locally stored files.
type UploadHandler struct {
	uploads uploadService
	files   FileOpener
}

// NewUploadHandler constructs UploadHandler. files may be nil.
func NewUploadHandler(uploads uploadService, files FileOpener) *UploadHandler {
	return &UploadHandler{uploads: uploads, files: files}
}

// Upload godoc
// @Summary Upload an image
// @Description Images are compressed before storage. Returns the file URL and a thumbnail URL.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Param purpose formData string true "id-proof, grievance or resolution"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	purpose := strings.TrimSpace(c.PostForm("purpose"))
	limit := h.uploads.MaxBytes(purpose)
	if limit == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "purpose must be one of id-proof, grievance, resolution"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is required"))
		return
	}
	if header.Size > limit {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", limit)))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file could not be read"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file could not be read"))
		return
	}
	result, err := h.uploads.Upload(c.Request.Context(), purpose, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Serve godoc
// @Summary Download a locally stored file
// @Tags Uploads
// @Param token query string true "Signed file token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /uploads/files [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	if h.files == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file serving is not enabled"))
		return
	}
	file, err := h.files.Open(c.Query("token"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid file token"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	http.ServeContent(c.Writer, c.Request, filepath.Base(file.Name()), info.ModTime(), file)
}

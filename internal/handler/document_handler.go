package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/service"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, session service.DocumentSession, kind models.DocumentKind, upload service.DocumentUpload) (*dto.DocumentUploadResponse, error)
	OpenBlob(token string) (*service.DocumentBlob, error)
}

// DocumentHandler manages document uploads and signed blob downloads.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload godoc
// @Summary Upload a supporting document
// @Description PDF, JPEG or PNG up to the configured size. The stored URL replaces any previous one for the kind.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Document kind" Enums(classXMarksheet, classXIIMarksheet)
// @Param file formData file true "Document"
// @Success 200 {object} response.Envelope{data=dto.DocumentUploadResponse}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/documents/{kind} [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	kind := models.DocumentKind(c.Param("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidUpload, fmt.Sprintf("unknown document kind %q", kind)))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidUpload, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	result, err := h.service.Upload(c.Request.Context(), manager, kind, service.DocumentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Blob godoc
// @Summary Download a stored document
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/blob [get]
func (h *DocumentHandler) Blob(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "token is required"))
		return
	}
	blob, err := h.service.OpenBlob(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer blob.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", blob.Filename))
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, blob.SizeBytes, blob.MimeType, blob.File, nil)
}

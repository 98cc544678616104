package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"slotmarket/internal/app/dto"
	"slotmarket/internal/app/services/attachments"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

// AttachmentHTTP handles thread file uploads.
type AttachmentHTTP interface {
	Upload(c *gin.Context)
}

type AttachmentHandler struct {
	Service *attachments.Service
	Logger  *slog.Logger
}

// Upload accepts a multipart file and returns the stored attachment
// reference. The caller embeds it in a subsequent message.
func (h AttachmentHandler) Upload(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attachments unavailable"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer src.Close()

	attachment, err := h.Service.Upload(c.Request.Context(), attachments.UploadParams{
		Thread:      domainnegotiation.ThreadID(c.Param("id")),
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
		Reader:      src,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FeedAttachment{
		Name:     attachment.Name,
		URL:      attachment.URL,
		Size:     attachment.Size,
		MimeType: attachment.MimeType,
	})
}

func (h AttachmentHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attachments.ErrNameRequired),
		errors.Is(err, attachments.ErrTypeNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attachments.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("attachment upload failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ AttachmentHTTP = AttachmentHandler{}

package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	domainnegotiation "slotmarket/internal/domain/negotiation"
)

var (
	ErrNameRequired    = errors.New("attachments: file name is required")
	ErrTooLarge        = errors.New("attachments: file exceeds the size limit")
	ErrTypeNotAllowed  = errors.New("attachments: content type not allowed")
	ErrUploaderMissing = errors.New("attachments: uploader required")
)

// DefaultMaxSize bounds a single thread attachment.
const DefaultMaxSize = 10 << 20

var defaultAllowedTypes = map[string]struct{}{
	"image/png":          {},
	"image/jpeg":         {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"text/plain":         {},
	"application/zip":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
}

type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

// Service validates and stores negotiation thread attachments.
type Service struct {
	Uploader     Uploader
	MaxSize      int64
	AllowedTypes map[string]struct{}
	Logger       *slog.Logger
}

type UploadParams struct {
	Thread      domainnegotiation.ThreadID
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// Upload stores the file under threads/<thread>/<uuid>-<name> and returns the
// attachment reference to embed in a message.
func (s *Service) Upload(ctx context.Context, params UploadParams) (domainnegotiation.Attachment, error) {
	if s.Uploader == nil {
		return domainnegotiation.Attachment{}, ErrUploaderMissing
	}
	name := sanitizeName(params.Name)
	if name == "" {
		return domainnegotiation.Attachment{}, ErrNameRequired
	}
	if params.Size > s.maxSize() {
		return domainnegotiation.Attachment{}, ErrTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(params.ContentType))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, ok := s.allowedTypes()[contentType]; !ok {
		return domainnegotiation.Attachment{}, ErrTypeNotAllowed
	}

	key := fmt.Sprintf("threads/%s/%s-%s", params.Thread, uuid.NewString(), name)
	reader := params.Reader
	if params.Size > 0 {
		reader = io.LimitReader(reader, s.maxSize()+1)
	}
	url, err := s.Uploader.Upload(ctx, key, reader, contentType)
	if err != nil {
		return domainnegotiation.Attachment{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("attachment stored", "thread_id", params.Thread, "name", name, "size", params.Size)
	}
	return domainnegotiation.Attachment{
		Name:     name,
		URL:      url,
		Size:     params.Size,
		MimeType: contentType,
	}, nil
}

func (s *Service) maxSize() int64 {
	if s.MaxSize > 0 {
		return s.MaxSize
	}
	return DefaultMaxSize
}

func (s *Service) allowedTypes() map[string]struct{} {
	if len(s.AllowedTypes) > 0 {
		return s.AllowedTypes
	}
	return defaultAllowedTypes
}

func sanitizeName(name string) string {
	name = path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	domainnegotiation "slotmarket/internal/domain/negotiation"
)

type captureUploader struct {
	key         string
	contentType string
	body        string
	err         error
}

func (u *captureUploader) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key = key
	u.contentType = contentType
	data, _ := io.ReadAll(reader)
	u.body = string(data)
	return "https://cdn.example.com/" + key, nil
}

func TestUploadStoresUnderThreadPrefix(t *testing.T) {
	up := &captureUploader{}
	svc := &Service{Uploader: up}

	att, err := svc.Upload(context.Background(), UploadParams{
		Thread:      domainnegotiation.ThreadID("req-1"),
		Name:        "contract draft.pdf",
		Size:        128,
		ContentType: "application/pdf",
		Reader:      strings.NewReader("pdf-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(up.key, "threads/req-1/") {
		t.Errorf("key = %q, want threads/req-1/ prefix", up.key)
	}
	if !strings.HasSuffix(up.key, "-contract_draft.pdf") {
		t.Errorf("key = %q, want sanitized name suffix", up.key)
	}
	if up.body != "pdf-bytes" {
		t.Errorf("uploaded body = %q", up.body)
	}
	if att.Name != "contract_draft.pdf" || att.MimeType != "application/pdf" || att.Size != 128 {
		t.Errorf("attachment = %+v", att)
	}
	if att.URL != "https://cdn.example.com/"+up.key {
		t.Errorf("url = %q", att.URL)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  UploadParams
		wantErr error
	}{
		{
			name:    "missing name",
			params:  UploadParams{Thread: "req-1", Name: "  ", ContentType: "image/png"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "path only",
			params:  UploadParams{Thread: "req-1", Name: "///", ContentType: "image/png"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "too large",
			params:  UploadParams{Thread: "req-1", Name: "a.png", Size: DefaultMaxSize + 1, ContentType: "image/png"},
			wantErr: ErrTooLarge,
		},
		{
			name:    "executable rejected",
			params:  UploadParams{Thread: "req-1", Name: "a.exe", ContentType: "application/x-msdownload"},
			wantErr: ErrTypeNotAllowed,
		},
		{
			name:    "empty type defaults to octet-stream and is rejected",
			params:  UploadParams{Thread: "req-1", Name: "a.bin"},
			wantErr: ErrTypeNotAllowed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &Service{Uploader: &captureUploader{}}
			if _, err := svc.Upload(context.Background(), tc.params); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Upload = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUploadRequiresUploader(t *testing.T) {
	svc := &Service{}
	if _, err := svc.Upload(context.Background(), UploadParams{Thread: "req-1", Name: "a.png", ContentType: "image/png"}); !errors.Is(err, ErrUploaderMissing) {
		t.Fatalf("Upload = %v, want %v", err, ErrUploaderMissing)
	}
}

func TestUploadPropagatesStorageError(t *testing.T) {
	boom := errors.New("bucket offline")
	svc := &Service{Uploader: &captureUploader{err: boom}}
	if _, err := svc.Upload(context.Background(), UploadParams{Thread: "req-1", Name: "a.png", ContentType: "image/png", Reader: strings.NewReader("x")}); !errors.Is(err, boom) {
		t.Fatalf("Upload = %v, want %v", err, boom)
	}
}

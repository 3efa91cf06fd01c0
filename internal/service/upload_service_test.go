package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Luca89aa/video-analyzer/internal/domain"
)

func TestStore_Success(t *testing.T) {
	store := &fakeStore{}
	svc := NewUploadService(store, discardLogger())

	url, err := svc.Store(context.Background(), "user-1", "clip.mp4", "video/mp4", []byte("data"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example/videos/user-1/") {
		t.Errorf("url = %q", url)
	}
	if !strings.HasSuffix(store.key, "-clip.mp4") {
		t.Errorf("key = %q, want filename suffix", store.key)
	}
	if store.contentType != "video/mp4" {
		t.Errorf("contentType = %q", store.contentType)
	}
	if store.size != 4 {
		t.Errorf("size = %d", store.size)
	}
}

func TestStore_EmptyPayload(t *testing.T) {
	svc := NewUploadService(&fakeStore{}, discardLogger())
	_, err := svc.Store(context.Background(), "user-1", "clip.mp4", "video/mp4", nil)
	if !errors.Is(err, domain.ErrMissingInput) {
		t.Errorf("error = %v, want ErrMissingInput", err)
	}
}

func TestStore_RejectsNonVideo(t *testing.T) {
	svc := NewUploadService(&fakeStore{}, discardLogger())
	_, err := svc.Store(context.Background(), "user-1", "page.html", "text/html", []byte("<html>"))
	if !errors.Is(err, domain.ErrNotAVideo) {
		t.Fatalf("error = %v, want ErrNotAVideo", err)
	}
	var nv *domain.NotAVideoError
	if !errors.As(err, &nv) {
		t.Fatal("error must carry the declared type")
	}
	if nv.Declared != "text/html" {
		t.Errorf("Declared = %q", nv.Declared)
	}
}

func TestStore_GuessesTypeFromExtension(t *testing.T) {
	store := &fakeStore{}
	svc := NewUploadService(store, discardLogger())

	if _, err := svc.Store(context.Background(), "user-1", "clip.mov", "application/octet-stream", []byte("data")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if store.contentType != "video/quicktime" {
		t.Errorf("contentType = %q, want video/quicktime", store.contentType)
	}
}

func TestStore_StorageError(t *testing.T) {
	store := &fakeStore{err: errors.New("bucket unreachable")}
	svc := NewUploadService(store, discardLogger())
	_, err := svc.Store(context.Background(), "user-1", "clip.mp4", "video/mp4", []byte("data"))
	if err == nil {
		t.Fatal("Store() should surface storage failures")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"my video.mp4", "my_video.mp4"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"città è bella.mov", "citt____bella.mov"},
		{"UPPER-case_ok.webm", "UPPER-case_ok.webm"},
		{"", "video.mp4"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

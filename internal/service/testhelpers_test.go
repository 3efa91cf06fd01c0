package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/pkg/gemini"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLedger tracks reserve/refund calls and can fail either one.
type fakeLedger struct {
	reserveErr error
	refundErr  error
	reserves   int
	refunds    int
}

func (l *fakeLedger) Reserve(ctx context.Context, userID string) error {
	l.reserves++
	return l.reserveErr
}

func (l *fakeLedger) Refund(ctx context.Context, userID string) error {
	l.refunds++
	return l.refundErr
}

// net reports the balance delta the ledger has seen: debits minus credits.
func (l *fakeLedger) net() int {
	refunded := l.refunds
	if l.refundErr != nil {
		refunded = 0
	}
	return l.reserves - refunded
}

type fakeFetcher struct {
	media *domain.Media
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*domain.Media, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

// fakeAI scripts per-model outcomes and records which paths were used.
type fakeAI struct {
	texts      map[string]string // model -> completion
	errs       map[string]error  // model -> failure
	uploadErr  error
	uploads    int
	inlines    []string // models tried inline
	withFiles  []string // models tried with an uploaded file
	uploadedAs string   // mime type passed to Upload
}

func (a *fakeAI) GenerateInline(ctx context.Context, model string, data []byte, mimeType, prompt string) (string, error) {
	a.inlines = append(a.inlines, model)
	return a.complete(model)
}

func (a *fakeAI) Upload(ctx context.Context, data []byte, mimeType string) (*gemini.FileHandle, error) {
	a.uploads++
	a.uploadedAs = mimeType
	if a.uploadErr != nil {
		return nil, a.uploadErr
	}
	return &gemini.FileHandle{
		Name:     "files/fake",
		URI:      "https://files.example/fake",
		MimeType: mimeType,
		State:    gemini.StateActive,
	}, nil
}

func (a *fakeAI) GenerateWithFile(ctx context.Context, model string, file *gemini.FileHandle, prompt string) (string, error) {
	a.withFiles = append(a.withFiles, model)
	return a.complete(model)
}

func (a *fakeAI) complete(model string) (string, error) {
	if err, ok := a.errs[model]; ok {
		return "", err
	}
	if text, ok := a.texts[model]; ok {
		return text, nil
	}
	return "", fmt.Errorf("unscripted model %s", model)
}

type journalEntry struct {
	userID   string
	videoURL string
	state    string
}

type fakeJournal struct {
	recordErr error
	entries   map[string]*journalEntry
	seq       int
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{entries: map[string]*journalEntry{}}
}

func (j *fakeJournal) Record(ctx context.Context, userID, videoURL string) (string, error) {
	if j.recordErr != nil {
		return "", j.recordErr
	}
	j.seq++
	id := fmt.Sprintf("res-%d", j.seq)
	j.entries[id] = &journalEntry{userID: userID, videoURL: videoURL, state: "reserved"}
	return id, nil
}

func (j *fakeJournal) MarkCompleted(ctx context.Context, id string) error {
	return j.mark(id, "completed")
}

func (j *fakeJournal) MarkRefunded(ctx context.Context, id string) error {
	return j.mark(id, "refunded")
}

func (j *fakeJournal) mark(id, state string) error {
	e, ok := j.entries[id]
	if !ok {
		return fmt.Errorf("unknown reservation %s", id)
	}
	e.state = state
	return nil
}

func (j *fakeJournal) single(t *testing.T) *journalEntry {
	t.Helper()
	if len(j.entries) != 1 {
		t.Fatalf("journal has %d entries, want 1", len(j.entries))
	}
	for _, e := range j.entries {
		return e
	}
	return nil
}

// fakeStore records Put calls for the upload service.
type fakeStore struct {
	err         error
	key         string
	contentType string
	size        int
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key = key
	s.contentType = contentType
	s.size = len(data)
	return "https://cdn.example/" + key, nil
}

func videoMedia(size int) *domain.Media {
	return &domain.Media{
		Bytes:    make([]byte, size),
		MimeType: "video/mp4",
	}
}

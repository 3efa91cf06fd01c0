package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/internal/service"
	"github.com/Luca89aa/video-analyzer/pkg/gemini"
)

const testCookie = "sb-access-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSupabase implements supabase.Client in memory. Tokens maps accepted
// access tokens to user ids; balances maps user ids to credit balances.
type fakeSupabase struct {
	tokens    map[string]string
	balances  map[string]int
	ledgerErr error
	reserves  int
	refunds   int
	credited  map[string]int
	initUsers map[string]string
	initErr   error
}

func newFakeSupabase() *fakeSupabase {
	return &fakeSupabase{
		tokens:    map[string]string{"good-token": "user-1"},
		balances:  map[string]int{"user-1": 3},
		credited:  map[string]int{},
		initUsers: map[string]string{},
	}
}

func (f *fakeSupabase) AuthUser(ctx context.Context, token string) (string, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return "", domain.ErrUnauthenticated
}

func (f *fakeSupabase) Reserve(ctx context.Context, userID string) error {
	if f.ledgerErr != nil {
		return f.ledgerErr
	}
	if f.balances[userID] < 1 {
		return domain.ErrInsufficientCredits
	}
	f.balances[userID]--
	f.reserves++
	return nil
}

func (f *fakeSupabase) Refund(ctx context.Context, userID string) error {
	f.balances[userID]++
	f.refunds++
	return nil
}

func (f *fakeSupabase) AddCredits(ctx context.Context, userID string, n int) error {
	if f.ledgerErr != nil {
		return f.ledgerErr
	}
	f.balances[userID] += n
	f.credited[userID] += n
	return nil
}

func (f *fakeSupabase) Debit(ctx context.Context, userID string, n int) error {
	if f.ledgerErr != nil {
		return f.ledgerErr
	}
	if f.balances[userID] < n {
		return domain.ErrInsufficientCredits
	}
	f.balances[userID] -= n
	return nil
}

func (f *fakeSupabase) GetBalance(ctx context.Context, userID string) (int, error) {
	if f.ledgerErr != nil {
		return 0, f.ledgerErr
	}
	return f.balances[userID], nil
}

func (f *fakeSupabase) EnsureUser(ctx context.Context, userID, email string) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.initUsers[userID] = email
	return nil
}

type fakeFetcher struct {
	media *domain.Media
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*domain.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

type fakeAI struct {
	text string
	err  error
}

func (a *fakeAI) GenerateInline(ctx context.Context, model string, data []byte, mimeType, prompt string) (string, error) {
	return a.text, a.err
}

func (a *fakeAI) Upload(ctx context.Context, data []byte, mimeType string) (*gemini.FileHandle, error) {
	return &gemini.FileHandle{Name: "files/x", URI: "uri", MimeType: mimeType, State: gemini.StateActive}, nil
}

func (a *fakeAI) GenerateWithFile(ctx context.Context, model string, file *gemini.FileHandle, prompt string) (string, error) {
	return a.text, a.err
}

type fakeStore struct {
	err error
	key string
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key = key
	return "https://cdn.example/" + key, nil
}

// analyzeEnv wires an AnalyzeHandler over in-memory collaborators.
type analyzeEnv struct {
	supabase *fakeSupabase
	fetcher  *fakeFetcher
	ai       *fakeAI
	handler  *AnalyzeHandler
}

func newAnalyzeEnv() *analyzeEnv {
	sb := newFakeSupabase()
	fetch := &fakeFetcher{media: &domain.Media{Bytes: []byte("video"), MimeType: "video/mp4"}}
	ai := &fakeAI{text: "analisi"}
	svc := service.NewAnalysisService(sb, fetch, ai, nil, service.AnalysisConfig{
		InlineMax: 18 << 20,
		Models:    []string{"primary"},
	}, discardLogger())
	resolver := auth.NewResolver(sb, testCookie)
	return &analyzeEnv{
		supabase: sb,
		fetcher:  fetch,
		ai:       ai,
		handler:  NewAnalyzeHandler(resolver, svc, discardLogger()),
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

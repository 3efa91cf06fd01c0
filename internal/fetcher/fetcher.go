package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Luca89aa/video-analyzer/internal/config"
	"github.com/Luca89aa/video-analyzer/internal/domain"
)

// Fetcher retrieves video content from caller-supplied URLs.
type Fetcher interface {
	// Fetch downloads the media at url and validates its content type.
	Fetch(ctx context.Context, url string) (*domain.Media, error)
}

// HTTPFetcher implements Fetcher using HTTP requests.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	allowedHosts []string
}

// NewHTTPFetcher creates a new HTTP-based media fetcher.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent:    cfg.UserAgent,
		maxBytes:     cfg.MaxBytes,
		allowedHosts: cfg.AllowedHosts,
	}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		// Every redirect hop is re-checked against the allow-list; an allowed
		// origin must not be able to bounce the fetcher to an arbitrary host.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", domain.ErrFetchFailed)
			}
			return f.checkHost(req.URL.String())
		},
	}
	return f
}

// Fetch performs a single GET with redirect following, enforces the byte
// ceiling, and normalizes the declared content type. HTML or JSON payloads
// served with a 200 status are rejected as non-video.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*domain.Media, error) {
	if err := f.checkHost(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	mimeType := domain.NormalizeMIMEType(resp.Header.Get("Content-Type"), rawURL)
	if domain.IsConclusivelyNotVideo(mimeType) {
		return nil, &domain.NotAVideoError{Declared: mimeType}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, ceiling %d", domain.ErrPayloadTooLarge, resp.ContentLength, f.maxBytes)
	}

	// Read one byte past the ceiling to detect oversize bodies with no
	// Content-Length header.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrPayloadTooLarge, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrFetchFailed)
	}

	// When the server declared nothing useful, sniff the leading bytes to
	// tell a real video stream from an error page returned with 200.
	if !domain.IsVideoMIME(mimeType) || looksLikeText(data) {
		sniffed := domain.NormalizeMIMEType(http.DetectContentType(leading(data, 512)), "")
		if domain.IsConclusivelyNotVideo(sniffed) {
			return nil, &domain.NotAVideoError{Declared: sniffed}
		}
	}

	return &domain.Media{Bytes: data, MimeType: mimeType}, nil
}

// checkHost enforces the optional trusted-origin allow-list. An empty list
// leaves fetch targets unconstrained.
func (f *HTTPFetcher) checkHost(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: invalid URL %q", domain.ErrFetchFailed, rawURL)
	}
	if len(f.allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range f.allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q not in allow-list", domain.ErrFetchFailed, host)
}

// looksLikeText reports whether the payload starts with printable text,
// which no video container does.
func looksLikeText(data []byte) bool {
	head := leading(data, 64)
	trimmed := strings.TrimLeft(string(head), " \t\r\n")
	return strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func leading(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

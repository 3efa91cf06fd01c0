package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Luca89aa/video-analyzer/internal/config"
	"github.com/Luca89aa/video-analyzer/internal/domain"
)

// File states reported by the provider for uploaded media.
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

// FileHandle identifies media uploaded to the provider's Files API.
type FileHandle struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

// Client interfaces with the Gemini API for video analysis.
type Client interface {
	// GenerateInline submits media bytes inline with a prompt and returns the
	// generated text. Suited to small payloads only.
	GenerateInline(ctx context.Context, model string, data []byte, mimeType, prompt string) (string, error)
	// Upload transfers media through the resumable Files API and waits for it
	// to reach the ACTIVE state.
	Upload(ctx context.Context, data []byte, mimeType string) (*FileHandle, error)
	// GenerateWithFile submits an uploaded media reference with a prompt and
	// returns the generated text.
	GenerateWithFile(ctx context.Context, model string, file *FileHandle, prompt string) (string, error)
}

// HTTPClient implements Client using HTTP requests to the Gemini API.
type HTTPClient struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(cfg config.GeminiConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateRequest is the request body for the generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

// part holds exactly one of its fields. The media part must precede the text
// part; ordering affects model output quality per provider guidance.
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
	FileData   *fileData   `json:"file_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateInline submits media bytes inline with a prompt.
func (c *HTTPClient) GenerateInline(ctx context.Context, model string, data []byte, mimeType, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
	}
	return c.generate(ctx, model, req)
}

// GenerateWithFile submits an uploaded media reference with a prompt.
func (c *HTTPClient) GenerateWithFile(ctx context.Context, model string, file *FileHandle, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{FileData: &fileData{
					MimeType: file.MimeType,
					FileURI:  file.URI,
				}},
				{Text: prompt},
			},
		}},
	}
	return c.generate(ctx, model, req)
}

func (c *HTTPClient) generate(ctx context.Context, model string, genReq generateRequest) (string, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: send generate request: %v", domain.ErrInferenceFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read generate response: %v", domain.ErrInferenceFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &domain.InferenceError{Model: model, Status: resp.StatusCode, Body: string(respBody)}
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal generate response: %v", domain.ErrInferenceFailed, err)
	}

	text := extractText(&genResp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: model %s returned an empty completion", domain.ErrInferenceFailed, model)
	}
	return text, nil
}

func extractText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Upload runs the resumable upload handshake: start a session, finalize with
// the full payload, then poll until the file leaves PROCESSING.
func (c *HTTPClient) Upload(ctx context.Context, data []byte, mimeType string) (*FileHandle, error) {
	sessionURL, err := c.startUpload(ctx, int64(len(data)), mimeType)
	if err != nil {
		return nil, err
	}

	file, err := c.finalizeUpload(ctx, sessionURL, data)
	if err != nil {
		return nil, err
	}

	return c.waitActive(ctx, file)
}

// startUpload opens a resumable upload session and returns the session URL.
func (c *HTTPClient) startUpload(ctx context.Context, size int64, mimeType string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"file": map[string]string{"display_name": "video"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal start body: %w", err)
	}

	u := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadStartFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrUploadStartFailed, resp.StatusCode, string(respBody))
	}

	sessionURL := resp.Header.Get("X-Goog-Upload-URL")
	if sessionURL == "" {
		return "", fmt.Errorf("%w: no upload URL in response", domain.ErrUploadStartFailed)
	}
	return sessionURL, nil
}

// finalizeUpload transmits the payload in a single finalize call and returns
// the provider's media handle.
func (c *HTTPClient) finalizeUpload(ctx context.Context, sessionURL string, data []byte) (*FileHandle, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", sessionURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Length", strconv.Itoa(len(data)))
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFinalizeFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUploadFinalizeFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUploadFinalizeFailed, resp.StatusCode, string(respBody))
	}

	var result struct {
		File FileHandle `json:"file"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrUploadFinalizeFailed, err)
	}
	if result.File.Name == "" || result.File.URI == "" {
		return nil, fmt.Errorf("%w: response lacks file name/uri", domain.ErrUploadFinalizeFailed)
	}
	return &result.File, nil
}

// waitActive polls the file state at a fixed interval until it reaches a
// terminal state or the poll ceiling elapses. The ceiling is sized below the
// overall request budget so the final generate call still has time to run.
func (c *HTTPClient) waitActive(ctx context.Context, file *FileHandle) (*FileHandle, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for file.State == StateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: file %s still PROCESSING after %s", domain.ErrMediaNotReady, file.Name, c.pollTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		refreshed, err := c.getFile(ctx, file.Name)
		if err != nil {
			return nil, err
		}
		// The provider omits the URI on some state reads; keep the original.
		if refreshed.URI == "" {
			refreshed.URI = file.URI
		}
		if refreshed.MimeType == "" {
			refreshed.MimeType = file.MimeType
		}
		file = refreshed
	}

	if file.State != StateActive {
		return nil, fmt.Errorf("%w: file %s in state %s", domain.ErrMediaNotReady, file.Name, file.State)
	}
	return file, nil
}

// getFile re-fetches the state of an uploaded file.
func (c *HTTPClient) getFile(ctx context.Context, name string) (*FileHandle, error) {
	u := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: poll file: %v", domain.ErrMediaNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: poll status %d: %s", domain.ErrMediaNotReady, resp.StatusCode, string(respBody))
	}

	var file FileHandle
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode file state: %v", domain.ErrMediaNotReady, err)
	}
	return &file, nil
}

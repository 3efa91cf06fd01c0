package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Luca89aa/video-analyzer/internal/config"
	"github.com/Luca89aa/video-analyzer/internal/domain"
)

// Client interfaces with Supabase for token introspection and the credit ledger.
type Client interface {
	// AuthUser validates an access token and returns the user id it belongs to.
	AuthUser(ctx context.Context, token string) (string, error)
	// Reserve debits one credit from the user's balance.
	Reserve(ctx context.Context, userID string) error
	// Refund credits one credit back to the user's balance.
	Refund(ctx context.Context, userID string) error
	// AddCredits credits n purchased credits onto the user's balance.
	AddCredits(ctx context.Context, userID string, n int) error
	// Debit debits n credits from the user's balance in one adjustment.
	Debit(ctx context.Context, userID string, n int) error
	// GetBalance reads the user's current balance. Display only; the Reserve
	// call itself is the sole gate for debits.
	GetBalance(ctx context.Context, userID string) (int, error)
	// EnsureUser upserts the user's initial ledger row.
	EnsureUser(ctx context.Context, userID, email string) error
}

// HTTPClient implements Client against the Supabase Auth and PostgREST APIs.
type HTTPClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a new Supabase client.
func NewClient(cfg config.SupabaseConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AuthUser validates an access token against the auth provider and returns
// the user id. Any failure resolves to ErrUnauthenticated; the call never
// fails open.
func (c *HTTPClient) AuthUser(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth provider unreachable: %v", domain.ErrUnauthenticated, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token rejected (status %d)", domain.ErrUnauthenticated, resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("%w: decode user: %v", domain.ErrUnauthenticated, err)
	}
	if user.ID == "" {
		return "", domain.ErrUnauthenticated
	}
	return user.ID, nil
}

// Reserve debits one credit before billable work starts.
func (c *HTTPClient) Reserve(ctx context.Context, userID string) error {
	return c.adjust(ctx, userID, 1)
}

// Refund is the compensating credit for a failed reservation.
func (c *HTTPClient) Refund(ctx context.Context, userID string) error {
	return c.adjust(ctx, userID, -1)
}

// AddCredits credits purchased credits onto the balance.
func (c *HTTPClient) AddCredits(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", n)
	}
	return c.adjust(ctx, userID, -n)
}

// Debit debits n credits in a single atomic adjustment.
func (c *HTTPClient) Debit(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", n)
	}
	return c.adjust(ctx, userID, n)
}

// adjust invokes the single signed-amount remote procedure. A positive
// amount debits, a negative amount credits. One invocation is one atomic
// adjustment on the remote side.
func (c *HTTPClient) adjust(ctx context.Context, userID string, amount int) error {
	body, err := json.Marshal(map[string]interface{}{
		"uid":    userID,
		"amount": amount,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rest/v1/rpc/decrease_credits", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setServiceHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 500 && isInsufficientCredits(respBody) {
		return domain.ErrInsufficientCredits
	}
	return fmt.Errorf("%w: rpc status %d: %s", domain.ErrLedgerUnavailable, resp.StatusCode, string(respBody))
}

// isInsufficientCredits detects the ledger procedure's balance exception in a
// PostgREST error payload.
func isInsufficientCredits(body []byte) bool {
	var pgErr struct {
		Message string `json:"message"`
	}
	msg := string(body)
	if err := json.Unmarshal(body, &pgErr); err == nil && pgErr.Message != "" {
		msg = pgErr.Message
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "insufficient") || strings.Contains(msg, "crediti")
}

// GetBalance reads the authoritative balance from the ledger table.
func (c *HTTPClient) GetBalance(ctx context.Context, userID string) (int, error) {
	u := fmt.Sprintf("%s/rest/v1/analisi_video?user_id=eq.%s&select=credits",
		c.baseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.setServiceHeaders(req)
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%w: read balance status %d: %s", domain.ErrLedgerUnavailable, resp.StatusCode, string(respBody))
	}

	var row struct {
		Credits int `json:"credits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return 0, fmt.Errorf("%w: decode balance: %v", domain.ErrLedgerUnavailable, err)
	}
	return row.Credits, nil
}

// EnsureUser upserts the initial ledger row for a newly registered user.
func (c *HTTPClient) EnsureUser(ctx context.Context, userID, email string) error {
	body, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"email":   email,
		"credits": 1,
	})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rest/v1/analisi_video?on_conflict=user_id", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setServiceHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%w: upsert status %d: %s", domain.ErrLedgerUnavailable, resp.StatusCode, string(respBody))
}

func (c *HTTPClient) setServiceHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

// Package powens is a client for the Powens bank aggregation API.
package powens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const webviewBase = "https://webview.powens.com/en/manage"

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("powens API returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls one Powens domain. Transient failures (network errors, 429 and 5xx)
// are retried with backoff.
type Client struct {
	Domain  string
	BaseURL string

	http *retryablehttp.Client
}

// NewClient creates a client for https://{domain}/2.0
func NewClient(domain string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = logger.With("system", "powens")

	return &Client{
		Domain:  domain,
		BaseURL: "https://" + domain + "/2.0",
		http:    rc,
	}
}

// SetRetryWait overrides the backoff bounds
func (c *Client) SetRetryWait(min, max time.Duration) {
	c.http.RetryWaitMin = min
	c.http.RetryWaitMax = max
}

// CreateUser creates a permanent user for the client and returns its token and id
func (c *Client) CreateUser(ctx context.Context, clientID, clientSecret string) (string, int64, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/init", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		AuthToken string `json:"auth_token"`
		UserID    int64  `json:"id_user"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", 0, fmt.Errorf("creating user: %w", err)
	}

	return resp.AuthToken, resp.UserID, nil
}

// GenerateWebviewCode issues a single-use code for the connection webview
func (c *Client) GenerateWebviewCode(ctx context.Context, token string) (string, error) {
	var resp struct {
		Code string `json:"code"`
	}
	if err := c.get(ctx, token, "/auth/token/code", url.Values{"type": {"singleAccess"}}, &resp); err != nil {
		return "", fmt.Errorf("generating webview code: %w", err)
	}
	return resp.Code, nil
}

// WebviewURL returns the page where the user links bank connections
func (c *Client) WebviewURL(clientID, code string) string {
	q := url.Values{}
	q.Set("domain", c.Domain)
	q.Set("client_id", clientID)
	q.Set("code", code)
	return webviewBase + "?" + q.Encode()
}

// Connectors lists the banks that can be connected
func (c *Client) Connectors(ctx context.Context, token string) ([]Connector, error) {
	var resp struct {
		Connectors []Connector `json:"connectors"`
	}
	if err := c.get(ctx, token, "/connectors", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	return resp.Connectors, nil
}

// Connections lists the user's bank connections
func (c *Client) Connections(ctx context.Context, token string, userID int64) ([]Connection, error) {
	var resp struct {
		Connections []Connection `json:"connections"`
	}
	if err := c.get(ctx, token, fmt.Sprintf("/users/%d/connections", userID), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	return resp.Connections, nil
}

// Accounts lists the user's bank accounts
func (c *Client) Accounts(ctx context.Context, token string, userID int64) ([]Account, error) {
	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.get(ctx, token, fmt.Sprintf("/users/%d/accounts", userID), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return resp.Accounts, nil
}

// TransactionQuery bounds a transaction listing. Zero values are omitted.
type TransactionQuery struct {
	Limit   int
	MinDate *time.Time
	MaxDate *time.Time
}

// Transactions lists one account's transactions
func (c *Client) Transactions(ctx context.Context, token string, userID, accountID int64, query TransactionQuery) ([]Transaction, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.MinDate != nil {
		params.Set("min_date", query.MinDate.Format("2006-01-02"))
	}
	if query.MaxDate != nil {
		params.Set("max_date", query.MaxDate.Format("2006-01-02"))
	}

	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	path := fmt.Sprintf("/users/%d/accounts/%d/transactions", userID, accountID)
	if err := c.get(ctx, token, path, params, &resp); err != nil {
		return nil, fmt.Errorf("listing transactions of account %d: %w", accountID, err)
	}
	return resp.Transactions, nil
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values, out any) error {
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

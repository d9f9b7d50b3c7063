package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	tokenURL     = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope   = "https://graph.microsoft.com/.default"

	maxRetries = 3
)

var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Client is a minimal Microsoft Graph client for Excel workbook table
// operations, using the client-credentials flow. Tokens are cached
// until shortly before expiry.
type Client struct {
	httpClient   *http.Client
	tenantID     string
	clientID     string
	clientSecret string
	logger       *logrus.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(tenantID, clientID, clientSecret string) *Client {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(tokenURL, c.tenantID), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token request failed: HTTP %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.token = payload.AccessToken
	// Renew a minute early so in-flight requests never carry a token
	// that expires mid-call.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// request performs one Graph call with retry on 401 (token refresh),
// 429 and 5xx (exponential backoff).
func (c *Client) request(ctx context.Context, method, endpoint string, body any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelays[min(attempt-1, len(retryDelays)-1)]
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, graphBaseURL+endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			c.invalidateToken()
			lastErr = fmt.Errorf("graph: HTTP 401")
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("graph: HTTP %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("graph: HTTP %d: %s", resp.StatusCode, data)
		default:
			resp.Body.Close()
			return nil
		}
	}
	return lastErr
}

// AddTableRow appends one row to an Excel workbook table.
func (c *Client) AddTableRow(ctx context.Context, fileID, tableName string, values []any) error {
	endpoint := fmt.Sprintf("/me/drive/items/%s/workbook/tables/%s/rows/add", fileID, tableName)
	return c.request(ctx, http.MethodPost, endpoint, map[string]any{
		"values": [][]any{values},
	})
}

// VerifyTable checks that the workbook table is reachable with the
// configured credentials. Called once at startup.
func (c *Client) VerifyTable(ctx context.Context, fileID, tableName string) error {
	endpoint := fmt.Sprintf("/me/drive/items/%s/workbook/tables/%s", fileID, tableName)
	return c.request(ctx, http.MethodGet, endpoint, nil)
}

// ABOUTME: HTTP client for the upstream fleet-management API
// ABOUTME: Carries one tenant's credential pair as authentication headers

package fleet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/fleet-gateway/internal/credentials"
)

// Authentication headers expected by the upstream API.
const (
	HeaderKeyID     = "X-API-KEY-ID"
	HeaderKeySecret = "X-API-KEY-SECRET"
)

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API returned status %d: %s", e.StatusCode, e.Body)
}

// Message returns an operator-readable description of the failure. The 401
// case deliberately says the key was rejected upstream, so it cannot be
// confused with a tenant that has no key configured at all.
func (e *APIError) Message() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "Authentication error: the API key was rejected by the fleet-management service."
	case e.StatusCode == http.StatusForbidden:
		return "Permission denied: the account may lack the required subscription tier for this endpoint."
	case e.StatusCode == http.StatusNotFound:
		return "Not found: the requested resource does not exist."
	case e.StatusCode == http.StatusTooManyRequests:
		return "Rate limited: too many requests to the fleet-management service; retry later."
	case e.StatusCode >= 500:
		return fmt.Sprintf("Upstream failure: the fleet-management service returned status %d.", e.StatusCode)
	default:
		return fmt.Sprintf("Request failed with status %d: %s", e.StatusCode, e.Body)
	}
}

// Client performs authenticated requests against the upstream API on behalf
// of exactly one tenant. Instances are cheap; the factory creates a fresh one
// per call so credentials can never bleed between tenants.
type Client struct {
	baseURL string
	creds   credentials.Pair
	http    *http.Client
}

// NewClient creates a client bound to the given credential pair.
func NewClient(baseURL string, creds credentials.Pair, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
	}
}

// Get performs a GET against path with the given query parameters and returns
// the response body. Non-2xx responses are returned as *APIError.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (string, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Do performs an arbitrary request against the upstream API.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body io.Reader) (string, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderKeyID, c.creds.KeyID)
	req.Header.Set(HeaderKeySecret, c.creds.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling upstream API: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	return string(responseBody), nil
}

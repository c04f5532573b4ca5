// Package directory talks to the external users backend over REST. The
// engine only ever needs three operations: resolve a user by id during
// role checks, resolve by email during password resets, and push a new
// password after a confirmed reset.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	portalguard "github.com/eduportal/portalguard"
)

const defaultTimeout = 5 * time.Second

// Config configures the REST client.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:8080.
	BaseURL string
	// Timeout bounds each request. Zero means 5s.
	Timeout time.Duration
	// ServiceToken authenticates lookups that are not made on behalf of a
	// user credential, such as by-email lookups during resets.
	ServiceToken string
}

// RESTClient implements the engine's UserDirectory against the backend's
// JSON API.
type RESTClient struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

func NewRESTClient(cfg Config) (*RESTClient, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("directory: base URL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("directory: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &RESTClient{
		baseURL:      base,
		serviceToken: cfg.ServiceToken,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

// UserByID fetches GET /users/{id}. The caller's credential rides along in
// the accessToken header, matching what the backend expects from the
// session guard.
func (c *RESTClient) UserByID(ctx context.Context, id int64, accessToken string) (*portalguard.UserRecord, error) {
	endpoint := c.baseURL + "/users/" + strconv.FormatInt(id, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("accessToken", accessToken)

	return c.doUserRequest(req)
}

// UserByEmail fetches GET /users?email={email} with the service token.
func (c *RESTClient) UserByEmail(ctx context.Context, email string) (*portalguard.UserRecord, error) {
	endpoint := c.baseURL + "/users?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	if c.serviceToken != "" {
		req.Header.Set("accessToken", c.serviceToken)
	}

	return c.doUserRequest(req)
}

// UpdatePassword issues PUT /users/{id}/password with the service token.
func (c *RESTClient) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	endpoint := c.baseURL + "/users/" + strconv.FormatInt(id, 10) + "/password"

	payload, err := json.Marshal(struct {
		Password string `json:"senha"`
	}{Password: newPassword})
	if err != nil {
		return fmt.Errorf("directory: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("accessToken", c.serviceToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return portalguard.ErrDirectoryUnavailable
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return portalguard.ErrUserNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return portalguard.ErrDirectoryUnavailable
	}
}

func (c *RESTClient) doUserRequest(req *http.Request) (*portalguard.UserRecord, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, portalguard.ErrDirectoryUnavailable
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, portalguard.ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, portalguard.ErrDirectoryUnavailable
	}

	var user portalguard.UserRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return nil, portalguard.ErrDirectoryUnavailable
	}
	if user.ID == 0 {
		return nil, portalguard.ErrUserNotFound
	}
	return &user, nil
}

// drainAndClose reads the remainder so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/session"
)

const defaultTimeout = 15 * time.Second

// Paths under this prefix never trigger the refresh-and-retry flow,
// otherwise a failing /auth/refresh would recurse into itself
const authPathPrefix = "/auth/"

type Config struct {
	// Base URL of the UniHub backend, e.g. "http://localhost:8000"
	// Trailing slashes are stripped
	BaseURL string

	// Holder of the current token pair, shared with the rest of the app
	Credentials *session.Credentials

	// Durable session storage. Optional: nil disables persistence
	Store session.Store

	// HTTP client to perform requests with
	// If not set a client with a default timeout is used
	HTTPClient *http.Client

	Logger logger.Logger
}

// Client performs authenticated requests against the UniHub backend
// and transparently recovers from an expired access token: one
// coordinated refresh, then exactly one retry.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     *session.Credentials
	store     session.Store
	refresher *Refresher
	logger    logger.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL must not be empty")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("credentials must not be nil")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		creds:   cfg.Credentials,
		store:   cfg.Store,
		refresher: &Refresher{
			baseURL: baseURL,
			http:    httpClient,
			creds:   cfg.Credentials,
			store:   cfg.Store,
			logger:  log,
		},
		logger: log,
	}, nil
}

// Do performs one logical request. body, when not nil, is marshaled to
// JSON. On a 401 from a protected path it asks the refresher for a
// renewed token and, if renewal succeeded, re-issues the identical
// request exactly once; the retried response is returned whatever its
// status. Transport errors are not retried and propagate as-is.
func (c *Client) Do(ctx context.Context, method string, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if !resp.Unauthorized() || strings.HasPrefix(path, authPathPrefix) {
		return resp, nil
	}

	c.logger.Debug("Got 401, attempting token refresh", "method", method, "path", path)

	if !c.refresher.Refresh(ctx) {
		// Caller is responsible for treating this as a forced logout
		return resp, nil
	}

	return c.send(ctx, method, path, payload)
}

func (c *Client) send(ctx context.Context, method string, path string, payload []byte) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access := c.creds.AccessToken(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

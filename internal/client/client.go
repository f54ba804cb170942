// Package client talks to the blog server's HTTP API. It backs the quack
// command-line tool and implements the identity provider the session
// controller depends on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 15 * time.Second

// maxResponseSize caps decoded response bodies.
const maxResponseSize = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	TokenFile string
	Timeout   time.Duration
	// HTTPClient overrides the transport. Its Jar is replaced.
	HTTPClient *http.Client
	UserAgent  string
}

// Client is an HTTP client for the blog API.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    *TokenFile
	userAgent string
	logger    *slog.Logger
}

// New creates a client. The cookie jar keeps the session cookie for the life
// of the process; the token file carries it across processes.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https, got %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Jar = jar
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient.Timeout = cfg.Timeout

	if cfg.UserAgent == "" {
		cfg.UserAgent = "quack"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:      base,
		http:      httpClient,
		tokens:    NewTokenFile(cfg.TokenFile),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}, nil
}

// Tokens returns the token file the client reads its session from.
func (c *Client) Tokens() *TokenFile {
	return c.tokens
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	c.authorize(req.Header)
	return req, nil
}

// authorize adds the stored token, read fresh so a login in another process
// is picked up without a restart.
func (c *Client) authorize(h http.Header) {
	stored, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn("ignoring unreadable token file", "path", c.tokens.Path(), "error", err)
		return
	}
	if stored != nil {
		h.Set("Authorization", "Bearer "+stored.Token)
	}
}

// do sends a JSON request and decodes the envelope's data into out, which may
// be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domainerrors.Unavailable("server unreachable", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domainerrors.Unavailable("read response", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return domainerrors.New(domainerrors.CodeFromStatus(resp.StatusCode),
				fmt.Sprintf("server returned %s", resp.Status))
		}
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "malformed response")
	}

	if !env.Success {
		if env.Error == nil {
			return domainerrors.New(domainerrors.CodeFromStatus(resp.StatusCode),
				fmt.Sprintf("server returned %s", resp.Status))
		}
		apiErr := domainerrors.New(domainerrors.Code(env.Error.Code), env.Error.Message)
		if env.Error.Details != nil {
			apiErr = apiErr.WithDetails(env.Error.Details)
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "malformed response data")
	}
	return nil
}

// raw fetches a non-JSON resource.
func (c *Client) raw(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domainerrors.Unavailable("server unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, domainerrors.Unavailable("read response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Error != nil {
			return nil, domainerrors.New(domainerrors.Code(env.Error.Code), env.Error.Message)
		}
		return nil, domainerrors.New(domainerrors.CodeFromStatus(resp.StatusCode),
			fmt.Sprintf("server returned %s", resp.Status))
	}
	return data, nil
}

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const maxBody = 4 << 20

// TokenStore is the part of the session token store the client needs.
type TokenStore interface {
	Token(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	onUnauth   func(context.Context)
	logger     *log.Logger
}

type Option func(*Client)

// WithUnauthenticated registers a hook run once per call that the backend
// rejects with 401, after the token store has been cleared.
func WithUnauthenticated(fn func(context.Context)) Option {
	return func(c *Client) { c.onUnauth = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, httpClient *http.Client, tokens TokenStore, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one backend call. Body is JSON-encoded; Raw is sent
// as-is with ContentType (multipart uploads).
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	Raw         io.Reader
	ContentType string
	Auth        bool
}

// envelope holds the fields every backend answer may carry.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Do runs req and decodes a successful body into out (when non-nil).
// Failures come back as ErrUnauthenticated, *ClientError, *ServerError or
// *TransportError; see KindOf.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	err := c.do(ctx, req, out)
	if err != nil {
		c.logger.Printf("api: %s %s -> %s (%v)", req.Method, req.Path, KindOf(err), err)
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	var token string
	if req.Auth {
		if c.tokens == nil {
			return fmt.Errorf("%w: no token store", ErrUnauthenticated)
		}
		tok, ok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: no stored token", ErrUnauthenticated)
		}
		token = tok
	}

	full := c.baseURL + req.Path
	if len(req.Query) > 0 {
		full += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Body != nil:
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	case req.Raw != nil:
		body = req.Raw
		contentType = req.ContentType
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, full, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	hreq.Header.Set("Accept", "application/json")
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(hreq)
	}

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &TransportError{Err: err}
	}
	var env envelope
	_ = json.Unmarshal(raw, &env)
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized && req.Auth:
		c.unauthenticated(ctx)
		if msg == "" {
			msg = "token rejected"
		}
		return fmt.Errorf("%w: %s", ErrUnauthenticated, msg)
	case code >= 400 && code < 500:
		if msg == "" {
			msg = resp.Status
		}
		return &ClientError{Status: code, Message: msg}
	case code < 200 || code >= 300:
		return &ServerError{Status: code, Message: msg}
	}

	if strings.EqualFold(env.Status, "error") {
		return &ClientError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServerError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// unauthenticated is the single 401 policy: forget the token, then tell
// whoever owns navigation.
func (c *Client) unauthenticated(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Printf("api: clear token store: %v", err)
		}
	}
	if c.onUnauth != nil {
		c.onUnauth(ctx)
	}
}

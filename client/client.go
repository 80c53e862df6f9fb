// Package client implements the HTTP client for the remote review service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/reviewflow/internal/errors"
	"github.com/hrygo/reviewflow/internal/observability"
)

// Config holds the client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:28084",
		Timeout: 30 * time.Second,
	}
}

// TokenProvider supplies the current session token, or "" when anonymous.
type TokenProvider interface {
	Token() string
}

// StaticToken is a fixed TokenProvider, mainly for tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks JSON over HTTP to the review service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

// New creates a client. tokens may be nil for purely anonymous use.
func New(cfg *Config, tokens TokenProvider) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens:  tokens,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User == nil {
		return nil, errors.Transport("login failed", pkgerrors.New("incomplete auth response"))
	}
	return &out, nil
}

// Register creates an account and returns its token and user record.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", registerRequest{Email: email, Password: password, Name: name}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User == nil {
		return nil, errors.Transport("registration failed", pkgerrors.New("incomplete auth response"))
	}
	return &out, nil
}

// ListReviews returns all visible reviews.
func (c *Client) ListReviews(ctx context.Context) ([]Review, error) {
	var out []Review
	if err := c.do(ctx, http.MethodGet, "/api/v1/reviews", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReview returns one review with its responses.
func (c *Client) GetReview(ctx context.Context, id string) (*Review, error) {
	var out Review
	if err := c.do(ctx, http.MethodGet, "/api/v1/reviews/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts returns the reviewable products.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReview creates a review and returns the created record.
func (c *Client) SubmitReview(ctx context.Context, input ReviewInput) (*Review, error) {
	var out Review
	if err := c.do(ctx, http.MethodPost, "/api/v1/reviews", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitResponse attaches an agent response to a review and returns the created record.
func (c *Client) SubmitResponse(ctx context.Context, input ResponseInput) (*Response, error) {
	var out Response
	if err := c.do(ctx, http.MethodPost, "/api/v1/reviews/"+input.ReviewID+"/responses", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSuggestion returns a generated response draft for the review.
func (c *Client) FetchSuggestion(ctx context.Context, reviewID string) (*Suggestion, error) {
	var out Suggestion
	if err := c.do(ctx, http.MethodGet, "/api/v1/reviews/"+reviewID+"/suggestion", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Transport("request failed", pkgerrors.Wrap(err, "encode request"))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Transport("request failed", pkgerrors.Wrap(err, "build request"))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if rc, ok := observability.FromContext(ctx); ok {
			rc.Error("api call failed", err, slog.String("method", method), slog.String("path", path))
		}
		return errors.Transport("service unreachable", err)
	}
	defer resp.Body.Close()

	if rc, ok := observability.FromContext(ctx); ok {
		rc.Debug("api call",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int64(observability.LogFieldDuration, time.Since(started).Milliseconds()))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Transport("request failed", pkgerrors.Wrap(err, "decode response"))
		}
		return nil
	}

	return mapStatus(resp)
}

// mapStatus converts a non-2xx response into the error taxonomy.
func mapStatus(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		cerr := errors.InvalidCredentials()
		// Outside of login the accurate message is the server's ("authentication
		// required", "invalid or expired token"); the constructor default only
		// covers a silent body.
		if eb.Message != "" {
			cerr.Message = eb.Message
		}
		return cerr
	case http.StatusForbidden:
		return errors.Transport(firstNonEmpty(eb.Message, "permission denied"), nil)
	case http.StatusConflict:
		return errors.EmailConflict()
	case http.StatusBadRequest:
		msg := eb.Message
		if msg == "" {
			msg = "invalid request"
		}
		return errors.Validation(msg)
	default:
		return errors.Transport("request failed", pkgerrors.Errorf("unexpected status %d: %s", resp.StatusCode, firstNonEmpty(eb.Message, resp.Status)))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// String renders the client target for logs.
func (c *Client) String() string {
	return fmt.Sprintf("reviewflow-client(%s)", c.baseURL)
}

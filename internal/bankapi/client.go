package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/pointsjourney/internal/logging"
)

// DefaultBaseURL is the public deployment of the points service.
const DefaultBaseURL = "https://points-app-backend.vercel.app"

const userAgent = "pointsjourney/1"

// Client calls the points service at a single base address.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithRateLimit paces outgoing requests with a token bucket.
// A non-positive rps disables pacing.
func WithRateLimit(rps int, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client for baseURL. Only http and https schemes are accepted.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: host is required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// RegisterRequest is the body of POST /cadastro.
type RegisterRequest struct {
	CPF             string `json:"cpf"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendPointsRequest is the body of POST /points/send.
type SendPointsRequest struct {
	RecipientCPF string `json:"recipientCpf"`
	Amount       int64  `json:"amount"`
}

// DepositRequest is the body of POST /caixinha/deposit.
type DepositRequest struct {
	Amount int64 `json:"amount"`
}

// DeleteAccountRequest is the body of DELETE /account.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// Register creates an account. The service answers 201 with a confirmToken.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/cadastro", "", nil, req)
}

// ConfirmEmail consumes a confirmation token issued at registration.
func (c *Client) ConfirmEmail(ctx context.Context, token string) (*Response, error) {
	q := url.Values{}
	q.Set("token", token)
	return c.do(ctx, http.MethodGet, "/confirm-email", "", q, nil)
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/login", "", nil, req)
}

// SendPoints transfers points to another account identified by CPF.
func (c *Client) SendPoints(ctx context.Context, token string, req SendPointsRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/points/send", token, nil, req)
}

// DepositPiggyBank moves points from the normal balance into the piggy bank.
func (c *Client) DepositPiggyBank(ctx context.Context, token string, req DepositRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/caixinha/deposit", token, nil, req)
}

// Balance reads the normal and piggy bank balances.
func (c *Client) Balance(ctx context.Context, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/points/saldo", token, nil, nil)
}

// DeleteAccount marks the account as deleted. The password travels in the
// DELETE body.
func (c *Client) DeleteAccount(ctx context.Context, token string, req DeleteAccountRequest) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/account", token, nil, req)
}

func buildHeaders(token string, hasBody bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("User-Agent", userAgent)
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body any) (*Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header = buildHeaders(token, body != nil)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("bank api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		Method: method,
		Path:   path,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   respBody,
	}, nil
}

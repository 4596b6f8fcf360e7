package ocr

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://ocr-facture-api-production.up.railway.app"
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "facture-ocr-go/1.0"
)

// Header names used by the service
const (
	HeaderAuth        = "X-RapidAPI-Proxy-Secret"
	HeaderIdempotency = "Idempotency-Key"
	HeaderRetryAfter  = "Retry-After"
)

// ClientConfig is the connection configuration captured by a Client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the invoice OCR service. It is safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithBaseURL sets a custom base URL
func WithBaseURL(u string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = u
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client. Its Timeout is overridden
// by WithTimeout unless the timeout is zero.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *zap.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = l
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// NewClient creates a client for the given API key
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ocr: api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ocr: invalid base url %q", cfg.baseURL)
	}

	if cfg.timeout < 0 {
		return nil, fmt.Errorf("ocr: negative timeout %s", cfg.timeout)
	}

	// Copy so the caller's client is never mutated.
	var hc http.Client
	if cfg.httpClient != nil {
		hc = *cfg.httpClient
	}
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg: ClientConfig{
			BaseURL:   baseURL,
			APIKey:    apiKey,
			Timeout:   cfg.timeout,
			UserAgent: cfg.userAgent,
		},
		httpClient: &hc,
		logger:     logger,
	}, nil
}

// Config returns a copy of the client configuration
func (c *Client) Config() ClientConfig {
	return c.cfg
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a fetched payload stays fresh.
const DefaultCacheTTL = time.Hour

// DefaultUserAgent identifies the service to upstream APIs.
const DefaultUserAgent = "hsebcm-calendar-sync/1.0"

// Cache is the payload cache consulted before every request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
}

// Limiter gates outgoing requests per source.
type Limiter interface {
	Acquire(ctx context.Context, sourceID string) error
}

// Client fetches raw payloads from one upstream source.
type Client struct {
	sourceID   string
	baseURL    string
	credential string
	httpClient *http.Client
	logger     *slog.Logger

	cache     Cache
	limiter   Limiter
	cacheTTL  time.Duration
	userAgent string

	inflight singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for sourceID rooted at baseURL. credential may
// be empty.
func NewClient(sourceID, baseURL, credential string, opts ...ClientOption) *Client {
	c := &Client{
		sourceID:   sourceID,
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    slog.Default(),
		cacheTTL:  DefaultCacheTTL,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache sets the payload cache.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLimiter sets the rate limiter.
func WithLimiter(l Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithCacheTTL overrides how long fetched payloads are cached.
func WithCacheTTL(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// SourceID returns the source this client is bound to.
func (c *Client) SourceID() string {
	return c.sourceID
}

// BaseURL returns the request root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

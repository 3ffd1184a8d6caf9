package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// APIError represents a non-success response from an upstream source.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Source, e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// requestOptions are the effective request settings folded into the cache key.
type requestOptions struct {
	Method string `json:"method"`
	Accept string `json:"accept"`
	Auth   bool   `json:"auth"`
}

// CacheKey returns "<requestURL>_<serializedOptions>".
func CacheKey(requestURL string, method string, authenticated bool) string {
	opts, _ := json.Marshal(requestOptions{
		Method: method,
		Accept: "application/json",
		Auth:   authenticated,
	})
	return requestURL + "_" + string(opts)
}

// ResolveURL joins the base URL, endpoint and encoded query.
func (c *Client) ResolveURL(endpoint string, query url.Values) string {
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return fullURL
}

// Fetch returns the JSON payload at endpoint, from cache when fresh.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	fullURL := c.ResolveURL(endpoint, query)
	key := CacheKey(fullURL, http.MethodGet, c.credential != "")

	if body, ok := c.cached(ctx, key); ok {
		c.logger.Debug("cache hit", "source", c.sourceID, "url", fullURL)
		return body, nil
	}

	// Collapse concurrent identical fetches into one request.
	v, err, shared := c.inflight.Do(key, func() (any, error) {
		if body, ok := c.cached(ctx, key); ok {
			return body, nil
		}

		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, c.sourceID); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		body, err := c.doRequest(ctx, http.MethodGet, fullURL)
		if err != nil {
			return nil, err
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("%s: response is not valid JSON (%d bytes)", c.sourceID, len(body))
		}

		if c.cache != nil {
			c.cache.Set(ctx, key, body, c.cacheTTL)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight request", "source", c.sourceID, "url", fullURL)
	}

	body := v.([]byte)
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// FetchYear fetches endpoint with the year query parameter set.
func (c *Client) FetchYear(ctx context.Context, endpoint string, year int) ([]byte, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	return c.Fetch(ctx, endpoint, q)
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(ctx, key)
}

// doRequest performs one HTTP request with the standard headers.
func (c *Client) doRequest(ctx context.Context, method, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("upstream returned error status",
			"source", c.sourceID,
			"status", resp.StatusCode,
			"url", fullURL,
		)
		return nil, &APIError{
			Source:     c.sourceID,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

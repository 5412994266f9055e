package ephem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/litescript/ls-rise/internal/version"
)

// DefaultTimeout for HTTP requests.
const DefaultTimeout = 10 * time.Second

// Option configures the HTTP-backed sources.
type Option func(*httpSource)

type httpSource struct {
	client  *http.Client
	url     string
	apiKey  string
	timeout time.Duration
}

// WithURL sets a custom endpoint.
func WithURL(url string) Option {
	return func(s *httpSource) {
		s.url = url
	}
}

// WithAPIKey sets the API key sent with each request.
func WithAPIKey(key string) Option {
	return func(s *httpSource) {
		s.apiKey = key
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *httpSource) {
		s.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *httpSource) {
		s.client = client
	}
}

func newHTTPSource(defaultURL string, opts []Option) httpSource {
	s := httpSource{
		url:     defaultURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	return s
}

// get fetches reqURL and returns the body of a 200 response.
func (s httpSource) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

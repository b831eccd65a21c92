package monitoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openlearnnitj/openlearn-dashboard/internal/dasherr"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

const (
	// DefaultTimeout bounds a single request when no timeout is configured
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response body is read
	maxBodySize = 1 << 20
)

// UserAgent is sent with every request
var UserAgent = "OpenLearn-Dashboard/1.0"

// Service fetches the raw body of a monitoring endpoint
type Service struct {
	apiURL string
	client *http.Client
}

// NewService creates a new monitoring service
func NewService(apiURL string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the endpoint this service polls
func (s *Service) URL() string {
	return s.apiURL
}

// Fetch issues a single GET against the endpoint.
// Transport failures are reported as dasherr.ErrNetwork and non-2xx responses as dasherr.ErrHTTPStatus.
func (s *Service) Fetch(ctx context.Context) (*models.FetchResult, error) {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return nil, dasherr.New(dasherr.ErrNetwork, err, "failed to create request")
	}

	req.Header.Set("User-Agent", UserAgent)

	// Measure response time
	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		return nil, dasherr.New(dasherr.ErrNetwork, err, "HTTP request failed")
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, dasherr.New(dasherr.ErrHTTPStatus, nil, "HTTP error! Status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, dasherr.New(dasherr.ErrNetwork, err, "failed to read response body")
	}

	return &models.FetchResult{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    latency,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// String implements fmt.Stringer
func (s *Service) String() string {
	return fmt.Sprintf("monitoring.Service(%s)", s.apiURL)
}

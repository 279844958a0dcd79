// HTTP client for the chart archive pages
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/unavoidables/internal/shared"
)

const defaultChartURL = "https://andyg.dk/p3trends/unavoidables"

// ChartService fetches raw chart pages from the archive site.
type ChartService struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewChartService creates a chart client. A nil client gets one with the given timeout.
func NewChartService(baseURL, userAgent string, timeout time.Duration, client *http.Client) *ChartService {
	if baseURL == "" {
		baseURL = defaultChartURL
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &ChartService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
	}
}

// PageResponse is a fetched page.
type PageResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Get performs a GET request for the page at path, relative to the base URL.
//
// Non-2xx responses are returned as [shared.ErrServiceUnavailable].
func (c *ChartService) Get(ctx context.Context, path string) (*PageResponse, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	page := &PageResponse{
		URL:        fullURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, fmt.Errorf("%w: %s returned status %d", shared.ErrServiceUnavailable, fullURL, resp.StatusCode)
	}

	return page, nil
}

// Decade fetches the chart page for the decade starting at year.
func (c *ChartService) Decade(ctx context.Context, year int) (*PageResponse, error) {
	return c.Get(ctx, fmt.Sprintf("%d", year))
}

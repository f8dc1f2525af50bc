package bank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Source returns the raw bank payload for a class.
type Source interface {
	Fetch(ctx context.Context, class string) ([]byte, error)
}

const maxPayloadBytes = 32 << 20

// HTTPSource reads the bank from a JSON endpoint.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(baseURL string, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, class string) ([]byte, error) {
	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("bank url: %w", err)
	}
	if class != "" {
		values := endpoint.Query()
		values.Set("class", class)
		endpoint.RawQuery = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bank endpoint non-2xx: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read bank payload: %w", err)
	}
	return body, nil
}

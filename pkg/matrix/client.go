// Package matrix provides a client for travel-time matrix services exposing
// an OSRM/ORS-style "one source, many destinations" endpoint.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lng float64
	Lat float64
}

// Client defines the travel-time matrix operations.
type Client interface {
	// Durations returns travel times in minutes from one origin to each
	// destination, in destination order. A nil entry means the service
	// found no path; the destination should be treated as unreachable.
	Durations(ctx context.Context, origin Point, destinations []Point) ([]*float64, error)
}

// StatusError reports a non-2xx response from the matrix service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("matrix: service returned %d: %s", e.StatusCode, e.Body)
}

// Option configures the matrix client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithTimeout caps the total time for one matrix request (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.http.Timeout = d }
}

// WithRateLimit caps requests per second against the service.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithProfile sets the routing profile (default "driving-car").
func WithProfile(profile string) Option {
	return func(c *httpClient) { c.profile = profile }
}

type httpClient struct {
	baseURL string
	profile string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a matrix client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		profile: "driving-car",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Durations [][]*float64 `json:"durations"`
}

// Durations implements Client. The service returns seconds; values are
// converted to minutes to match the cost units used everywhere else.
func (c *httpClient) Durations(ctx context.Context, origin Point, destinations []Point) ([]*float64, error) {
	if len(destinations) == 0 {
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "matrix: rate limit wait")
		}
	}

	locations := make([][]float64, 0, 1+len(destinations))
	locations = append(locations, []float64{origin.Lng, origin.Lat})
	destIdx := make([]int, 0, len(destinations))
	for i, d := range destinations {
		locations = append(locations, []float64{d.Lng, d.Lat})
		destIdx = append(destIdx, i+1)
	}

	payload, err := json.Marshal(matrixRequest{
		Locations:    locations,
		Sources:      []int{0},
		Destinations: destIdx,
		Metrics:      []string{"duration"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "matrix: marshal request")
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", c.baseURL, c.profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "matrix: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "matrix: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, eris.Wrap(err, "matrix: decode response")
	}
	if len(mr.Durations) != 1 {
		return nil, eris.Errorf("matrix: expected 1 source row, got %d", len(mr.Durations))
	}
	row := mr.Durations[0]
	if len(row) != len(destinations) {
		return nil, eris.Errorf("matrix: row length %d does not match %d destinations", len(row), len(destinations))
	}

	// Seconds to minutes; nil (no path) passes through.
	out := make([]*float64, len(row))
	for i, secs := range row {
		if secs == nil {
			continue
		}
		minutes := *secs / 60
		out[i] = &minutes
	}
	return out, nil
}

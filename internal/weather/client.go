// Package weather implements the HTTP client for the weather data service.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swelljoe/wthr.lol/internal/metrics"
)

// ErrTransport marks network failures and unreadable responses.
var ErrTransport = errors.New("weather service unavailable")

// ServiceError is an error reported by the service in the response body.
// Its message is meant to be shown to the user verbatim.
type ServiceError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// DefaultUserAgent identifies the dashboard to the weather service.
const DefaultUserAgent = "wthr.lol/1.0 (contact@wthr.lol)"

// Endpoint paths.
const (
	EndpointSearch   = "search"
	EndpointWeather  = "weather"
	EndpointForecast = "forecast"
	EndpointAlerts   = "alerts"
)

// Client handles weather service interactions
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.Metrics = m }
}

// NewClient creates a new weather service client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: DefaultUserAgent,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope captures the error field every endpoint may return.
type envelope struct {
	Error string `json:"error"`
}

// get performs a GET against endpoint and decodes the JSON body into out.
// A body carrying "error" yields a *ServiceError; anything else that goes
// wrong yields an error wrapping ErrTransport.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		var svcErr *ServiceError
		switch {
		case errors.As(err, &svcErr):
			outcome = metrics.OutcomeServiceError
		case err != nil:
			outcome = metrics.OutcomeTransport
		}
		c.Metrics.RecordFetch(endpoint, outcome, time.Since(start))
	}()

	requestURL := c.BaseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %w", ErrTransport, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", ErrTransport, endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decoding %s response: %w", ErrTransport, endpoint, err)
	}
	if env.Error != "" {
		return &ServiceError{Endpoint: endpoint, Status: resp.StatusCode, Message: env.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d %s", ErrTransport, endpoint, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s payload: %w", ErrTransport, endpoint, err)
	}
	return nil
}

func coordParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("lat", FormatCoordinate(lat))
	params.Set("lon", FormatCoordinate(lon))
	return params
}

// FormatCoordinate renders a coordinate with the shortest exact representation.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SearchLocations returns the places matching query, in service order.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]Location, error) {
	params := url.Values{}
	params.Set("q", query)

	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.get(ctx, EndpointSearch, params, &resp); err != nil {
		return nil, err
	}
	if resp.Locations == nil {
		resp.Locations = []Location{}
	}
	return resp.Locations, nil
}

// FetchCurrentWeather returns the current conditions at lat/lon.
func (c *Client) FetchCurrentWeather(ctx context.Context, lat, lon float64) (*CurrentWeather, error) {
	var cw CurrentWeather
	if err := c.get(ctx, EndpointWeather, coordParams(lat, lon), &cw); err != nil {
		return nil, err
	}
	return &cw, nil
}

// FetchForecast returns the daily forecast at lat/lon in chronological order.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) ([]ForecastEntry, error) {
	var resp struct {
		Forecasts []ForecastEntry `json:"forecasts"`
	}
	if err := c.get(ctx, EndpointForecast, coordParams(lat, lon), &resp); err != nil {
		return nil, err
	}
	if resp.Forecasts == nil {
		resp.Forecasts = []ForecastEntry{}
	}
	return resp.Forecasts, nil
}

// FetchAlerts returns the active alerts at lat/lon.
func (c *Client) FetchAlerts(ctx context.Context, lat, lon float64) ([]Alert, error) {
	var resp struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := c.get(ctx, EndpointAlerts, coordParams(lat, lon), &resp); err != nil {
		return nil, err
	}
	if resp.Alerts == nil {
		resp.Alerts = []Alert{}
	}
	return resp.Alerts, nil
}

// IsServiceError reports whether err carries a message reported by the service
// and returns it.
func IsServiceError(err error) (string, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message, true
	}
	return "", false
}

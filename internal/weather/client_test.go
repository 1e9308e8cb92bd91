package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swelljoe/wthr.lol/internal/metrics"
)

const testBaseURL = "http://weather.test"

// mockRoundTripper serves requests from an http.Handler without a network.
type mockRoundTripper struct {
	handler http.Handler
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	m.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// newMockClient returns a client whose transport is an isolated httpmock transport.
func newMockClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: mt})}, opts...)
	return NewClient(testBaseURL+"/", opts...), mt
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("http://weather.test/")
	assert.Equal(t, testBaseURL, c.BaseURL)
	assert.Equal(t, DefaultUserAgent, c.UserAgent)
	require.NotNil(t, c.HTTPClient)
	assert.NotZero(t, c.HTTPClient.Timeout)
}

func TestSearchLocations_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "San Francisco", r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"locations":[
			{"name":"San Francisco","lat":37.7749,"lon":-122.4194,"state":"California","country":"US"},
			{"name":"San Francisco","lat":13.7,"lon":-88.1,"country":"SV"}
		]}`))
	})

	c := NewClient(testBaseURL,
		WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: handler}}),
		WithUserAgent("test-agent"),
	)

	locs, err := c.SearchLocations(context.Background(), "San Francisco")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "San Francisco, California, US", locs[0].DisplayName())
	assert.Equal(t, "San Francisco, SV", locs[1].DisplayName())
	assert.InDelta(t, 37.7749, locs[0].Lat, 1e-9)
	assert.InDelta(t, -122.4194, locs[0].Lon, 1e-9)
}

func TestSearchLocations_EmptyList(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder("GET", testBaseURL+"/search", httpmock.NewStringResponder(http.StatusOK, `{}`))

	locs, err := c.SearchLocations(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)
}

func TestFetchCurrentWeather_Success(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder("GET", testBaseURL+"/weather", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "10", req.URL.Query().Get("lat"))
		assert.Equal(t, "20.5", req.URL.Query().Get("lon"))
		return httpmock.NewStringResponse(http.StatusOK, `{
			"location":"Testville","temperature":21,"feels_like":19,"humidity":64,
			"pressure":1013,"wind_speed":3.6,"wind_direction":220,"visibility":10,
			"description":"broken clouds","icon":"04d"}`), nil
	})

	cw, err := c.FetchCurrentWeather(context.Background(), 10.0, 20.5)
	require.NoError(t, err)
	assert.Equal(t, "Testville", cw.Location)
	assert.InDelta(t, 21, cw.Temperature, 0)
	assert.InDelta(t, 19, cw.FeelsLike, 0)
	assert.InDelta(t, 3.6, cw.WindSpeed, 1e-9)
	assert.InDelta(t, 10, cw.Visibility, 0)
	assert.Equal(t, "04d", cw.Icon)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestFetchForecast_Success(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder("GET", testBaseURL+"/forecast", httpmock.NewStringResponder(http.StatusOK, `{
		"location":"Testville",
		"forecasts":[
			{"date":"2026-10-19","day":"Monday","temp_max":22,"temp_min":12,"humidity":60,"pressure":1012,"description":"clear sky","icon":"01d","wind_speed":2.1},
			{"date":"2026-10-20","day":"Tuesday","temp_max":18,"temp_min":9,"humidity":80,"description":"light rain","icon":"10d","wind_speed":5}
		]}`))

	entries, err := c.FetchForecast(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Monday", entries[0].Day)
	assert.True(t, entries[0].HasPressure())
	assert.Equal(t, "Tuesday", entries[1].Day)
	assert.False(t, entries[1].HasPressure())
}

func TestFetchAlerts_Success(t *testing.T) {
	c, mt := newMockClient(t)
	mt.RegisterResponder("GET", testBaseURL+"/alerts", httpmock.NewStringResponder(http.StatusOK, `{"alerts":[
		{"title":"Flood Watch","description":"Rivers rising","start":"Mon","end":null},
		{"title":"Wind","description":"Gusts","severity":"Severe","start":"Mon","end":"Tue"}
	]}`))

	alerts, err := c.FetchAlerts(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.False(t, alerts[0].HasEnd())
	assert.Equal(t, SeverityModerate, alerts[0].SeverityClass())
	assert.True(t, alerts[1].HasEnd())
	assert.Equal(t, SeveritySevere, alerts[1].SeverityClass())
}

func TestFetch_ServiceError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"server error", http.StatusInternalServerError},
		{"ok status", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newMockClient(t)
			mt.RegisterResponder("GET", testBaseURL+"/weather",
				httpmock.NewStringResponder(tt.status, `{"error":"Missing coordinates"}`))

			cw, err := c.FetchCurrentWeather(context.Background(), 1, 2)
			require.Error(t, err)
			assert.Nil(t, cw)
			assert.NotErrorIs(t, err, ErrTransport)

			msg, ok := IsServiceError(err)
			assert.True(t, ok)
			assert.Equal(t, "Missing coordinates", msg)

			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, EndpointWeather, svcErr.Endpoint)
			assert.Equal(t, tt.status, svcErr.Status)
		})
	}
}

func TestFetch_TransportFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"network error", httpmock.NewErrorResponder(errors.New("connection refused"))},
		{"invalid json", httpmock.NewStringResponder(http.StatusOK, `<html>oops</html>`)},
		{"status without error field", httpmock.NewStringResponder(http.StatusBadGateway, `{}`)},
		{"wrong payload shape", httpmock.NewStringResponder(http.StatusOK, `{"forecasts":"soon"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newMockClient(t)
			mt.RegisterResponder("GET", testBaseURL+"/forecast", tt.responder)

			entries, err := c.FetchForecast(context.Background(), 1, 2)
			require.Error(t, err)
			assert.Nil(t, entries)
			assert.ErrorIs(t, err, ErrTransport)
			_, ok := IsServiceError(err)
			assert.False(t, ok)
		})
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"alerts":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchAlerts(ctx, 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c, mt := newMockClient(t, WithMetrics(m))
	mt.RegisterResponder("GET", testBaseURL+"/alerts", httpmock.NewStringResponder(http.StatusOK, `{"alerts":[]}`))
	mt.RegisterResponder("GET", testBaseURL+"/search", httpmock.NewStringResponder(http.StatusOK, `{"error":"Missing search query"}`))

	_, err = c.FetchAlerts(context.Background(), 1, 2)
	require.NoError(t, err)
	_, err = c.SearchLocations(context.Background(), "")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "wthr_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "10", FormatCoordinate(10.0))
	assert.Equal(t, "-122.4194", FormatCoordinate(-122.4194))
	assert.Equal(t, "0.5", FormatCoordinate(0.5))
}

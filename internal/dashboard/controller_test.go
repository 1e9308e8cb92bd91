package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/metrics"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/render"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubFetcher serves canned weather and counts calls per endpoint.
type stubFetcher struct {
	mu    sync.Mutex
	calls map[string][]weather.Coordinates

	current  func(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error)
	forecast func(ctx context.Context, lat, lon float64) ([]weather.ForecastEntry, error)
	alerts   func(ctx context.Context, lat, lon float64) ([]weather.Alert, error)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		calls: make(map[string][]weather.Coordinates),
		current: func(_ context.Context, lat, lon float64) (*weather.CurrentWeather, error) {
			return &weather.CurrentWeather{
				Location:    fmt.Sprintf("Place %g,%g", lat, lon),
				Temperature: 21,
				FeelsLike:   19,
				Humidity:    64,
				Pressure:    1013,
				WindSpeed:   3.6,
				Visibility:  10,
				Description: "clear sky",
				Icon:        "01d",
			}, nil
		},
		forecast: func(context.Context, float64, float64) ([]weather.ForecastEntry, error) {
			return []weather.ForecastEntry{
				{Day: "Monday", TempMax: 22, TempMin: 12, Humidity: 60, Description: "light rain", Icon: "10d", WindSpeed: 4},
			}, nil
		},
		alerts: func(context.Context, float64, float64) ([]weather.Alert, error) {
			return []weather.Alert{}, nil
		},
	}
}

func (s *stubFetcher) record(endpoint string, lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint] = append(s.calls[endpoint], weather.Coordinates{Lat: lat, Lon: lon})
}

func (s *stubFetcher) count(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[endpoint])
}

func (s *stubFetcher) last(endpoint string) weather.Coordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls[endpoint]
	return c[len(c)-1]
}

func (s *stubFetcher) FetchCurrentWeather(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error) {
	s.record(weather.EndpointWeather, lat, lon)
	return s.current(ctx, lat, lon)
}

func (s *stubFetcher) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.ForecastEntry, error) {
	s.record(weather.EndpointForecast, lat, lon)
	return s.forecast(ctx, lat, lon)
}

func (s *stubFetcher) FetchAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error) {
	s.record(weather.EndpointAlerts, lat, lon)
	return s.alerts(ctx, lat, lon)
}

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	results []weather.Location
	err     error
	gate    chan struct{} // when set, searches wait for it to close
}

func (s *stubSearcher) SearchLocations(ctx context.Context, query string) ([]weather.Location, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	results, err, gate := s.results, s.err, s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, err
}

func (s *stubSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// fakeClock hands out timers that only fire when told to.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Fire runs every armed timer and returns how many ran.
func (c *fakeClock) Fire() int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// gatedSurface holds the first SetHTML of id whose markup contains match
// until open is called.
type gatedSurface struct {
	*page.Document
	id, match string
	entered   chan struct{}
	release   chan struct{}
	hold      sync.Once
	opened    sync.Once
}

func newGatedSurface(doc *page.Document, id, match string) *gatedSurface {
	return &gatedSurface{
		Document: doc,
		id:       id,
		match:    match,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gatedSurface) SetHTML(id string, html template.HTML) {
	if id == g.id && strings.Contains(string(html), g.match) {
		g.hold.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	g.Document.SetHTML(id, html)
}

func (g *gatedSurface) open() {
	g.opened.Do(func() { close(g.release) })
}

type harness struct {
	c        *Controller
	doc      *page.Document
	fetcher  *stubFetcher
	searcher *stubSearcher
	geo      *page.PositionReport
	clock    *fakeClock
	registry *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, page.NewDocument(), nil)
}

// newHarnessOn builds a harness drawing into surface, or into doc itself when
// surface is nil.
func newHarnessOn(t *testing.T, doc *page.Document, surface page.Surface) *harness {
	t.Helper()
	if surface == nil {
		surface = doc
	}
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	h := &harness{
		doc:      doc,
		fetcher:  newStubFetcher(),
		searcher: &stubSearcher{},
		geo:      page.NewPositionReport(),
		clock:    &fakeClock{},
		registry: registry,
	}
	h.c, err = New(Options{
		Fetcher:    h.fetcher,
		Searcher:   h.searcher,
		Surface:    surface,
		Geolocator: h.geo,
		Map:        mapview.NewController(mapview.Tiles{APIKey: "test-key"}),
		Metrics:    m,
		AfterFunc:  h.clock.AfterFunc,
	})
	require.NoError(t, err)
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.c.Settle(ctx))
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestNew_InitialPage(t *testing.T) {
	h := newHarness(t)

	assert.True(t, h.doc.HasClass(page.TabButtonID("current"), page.ActiveClass))
	assert.True(t, h.doc.HasClass(page.TabPanelID("current"), page.ActiveClass))
	assert.False(t, h.doc.HasClass(page.TabButtonID("forecast"), page.ActiveClass))
	assert.False(t, h.doc.HasClass(page.RefreshButton, page.RefreshingClass))
	assert.Contains(t, h.doc.HTML(page.RefreshButton), render.RefreshIdleLabel)
}

func TestSearchInput_Debounce(t *testing.T) {
	h := newHarness(t)
	h.searcher.results = []weather.Location{{Name: "London", State: "England", Country: "GB", Lat: 51.5074, Lon: -0.1278}}

	h.c.SearchInput("Lon")
	h.c.SearchInput("Lond")
	h.c.SearchInput("London")
	assert.Equal(t, 1, h.clock.Pending(), "earlier keystrokes should cancel their timers")
	assert.Empty(t, h.searcher.Queries())

	require.Equal(t, 1, h.clock.Fire())
	h.settle(t)

	assert.Equal(t, []string{"London"}, h.searcher.Queries())
	visible, _ := h.doc.Visible(page.SearchResults)
	assert.True(t, visible)
	assert.Contains(t, h.doc.HTML(page.SearchResults), "London, England, GB")
	assert.Contains(t, h.doc.HTML(page.SearchResults), `data-lat="51.5074"`)
}

func TestSearchInput_ShortQuery(t *testing.T) {
	h := newHarness(t)

	h.c.SearchInput("Lo")
	assert.Zero(t, h.clock.Pending())
	visible, set := h.doc.Visible(page.SearchResults)
	assert.True(t, set)
	assert.False(t, visible)

	// Shortening the query cancels a pending search.
	h.c.SearchInput("Lon")
	h.c.SearchInput("Lo")
	assert.Zero(t, h.clock.Fire())
	h.settle(t)
	assert.Empty(t, h.searcher.Queries())
}

func TestSearchNow(t *testing.T) {
	h := newHarness(t)

	h.c.SearchNow("   ")
	h.c.SearchNow("Paris")
	h.settle(t)

	assert.Equal(t, []string{"Paris"}, h.searcher.Queries())
	assert.Contains(t, h.doc.HTML(page.SearchResults), render.NoLocationsText)
}

func TestSearch_FailureKeepsResults(t *testing.T) {
	h := newHarness(t)
	h.searcher.results = []weather.Location{{Name: "Paris", Country: "FR"}}
	h.c.SearchNow("Paris")
	h.settle(t)
	before := h.doc.HTML(page.SearchResults)

	h.searcher.mu.Lock()
	h.searcher.err = weather.ErrTransport
	h.searcher.mu.Unlock()
	h.c.SearchNow("Parma")
	h.settle(t)

	assert.Equal(t, before, h.doc.HTML(page.SearchResults))
}

func TestDismissSearch(t *testing.T) {
	h := newHarness(t)
	h.c.SearchNow("Paris")
	h.settle(t)

	h.c.DismissSearch()
	visible, _ := h.doc.Visible(page.SearchResults)
	assert.False(t, visible)
}

func TestSelectLocation_LoadsForecastOnlyWhenTabActive(t *testing.T) {
	h := newHarness(t)
	h.c.SearchInput("Test")

	h.c.SelectLocation(10, 20, "Testville")
	h.settle(t)

	assert.Zero(t, h.clock.Pending(), "selection cancels the pending search")
	assert.Equal(t, "Testville", h.doc.Value(page.SearchInput))
	visible, _ := h.doc.Visible(page.SearchResults)
	assert.False(t, visible)

	assert.Equal(t, 1, h.fetcher.count(weather.EndpointWeather))
	assert.Equal(t, weather.Coordinates{Lat: 10, Lon: 20}, h.fetcher.last(weather.EndpointWeather))
	assert.Zero(t, h.fetcher.count(weather.EndpointForecast))
	assert.Contains(t, h.doc.HTML(page.WeatherDisplay), "Place 10,20")
	assert.Equal(t, "19°C", h.doc.Text(page.FeelsLike))
	detailsVisible, _ := h.doc.Visible(page.WeatherDetails)
	assert.True(t, detailsVisible)

	h.c.ActivateTab(TabForecast)
	h.settle(t)

	assert.Equal(t, 1, h.fetcher.count(weather.EndpointForecast))
	assert.Contains(t, h.doc.HTML(page.ForecastPanel), "Monday")
	assert.True(t, h.doc.HasClass(page.TabButtonID("forecast"), page.ActiveClass))
	assert.False(t, h.doc.HasClass(page.TabButtonID("current"), page.ActiveClass))
}

func TestSelectLocation_ReloadsActiveAlerts(t *testing.T) {
	h := newHarness(t)

	h.c.ActivateTab(TabAlerts)
	h.settle(t)
	assert.Zero(t, h.fetcher.count(weather.EndpointAlerts))
	assert.Contains(t, h.doc.HTML(page.AlertsPanel), render.SelectFirstText)

	h.c.SelectLocation(40.7128, -74.006, "New York")
	h.settle(t)

	assert.Equal(t, 1, h.fetcher.count(weather.EndpointAlerts))
	assert.Contains(t, h.doc.HTML(page.AlertsPanel), render.NoAlertsText)
	assert.Zero(t, h.fetcher.count(weather.EndpointForecast))
}

func TestForecastTab_NoLocation(t *testing.T) {
	h := newHarness(t)

	h.c.ActivateTab(TabForecast)
	h.settle(t)

	assert.Zero(t, h.fetcher.count(weather.EndpointForecast))
	assert.Contains(t, h.doc.HTML(page.ForecastPanel), render.SelectFirstText)
}

func TestRefreshWeather_Guard(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	base := h.fetcher.current
	h.fetcher.current = func(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return base(ctx, lat, lon)
	}
	h.c.State().SetLocation(weather.Coordinates{Lat: 1, Lon: 2})

	require.True(t, h.c.RefreshWeather())
	assert.False(t, h.c.RefreshWeather(), "second refresh should be refused while the first runs")
	assert.True(t, h.doc.HasClass(page.RefreshButton, page.RefreshingClass))
	assert.Contains(t, h.doc.HTML(page.RefreshButton), render.RefreshBusyLabel)

	close(release)
	h.settle(t)

	assert.False(t, h.c.State().Refreshing())
	assert.False(t, h.doc.HasClass(page.RefreshButton, page.RefreshingClass))
	assert.Contains(t, h.doc.HTML(page.RefreshButton), render.RefreshIdleLabel)
	assert.Equal(t, 1, h.fetcher.count(weather.EndpointWeather))

	require.True(t, h.c.RefreshWeather())
	h.settle(t)
	assert.Equal(t, 2, h.fetcher.count(weather.EndpointWeather))
}

func TestRefreshWeather_ReleasesGuardOnFailure(t *testing.T) {
	h := newHarness(t)
	h.fetcher.current = func(context.Context, float64, float64) (*weather.CurrentWeather, error) {
		return nil, weather.ErrTransport
	}
	h.c.State().SetLocation(weather.Coordinates{Lat: 1, Lon: 2})

	require.True(t, h.c.RefreshWeather())
	h.settle(t)

	assert.False(t, h.c.State().Refreshing())
	assert.Contains(t, h.doc.HTML(page.WeatherDisplay), MsgWeatherFailed)
	assert.True(t, h.c.RefreshWeather())
}

func TestSelectLocation_StaleResponseDropped(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	base := h.fetcher.current
	h.fetcher.current = func(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error) {
		if lat == 1 {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return base(ctx, lat, lon)
	}

	h.c.SelectLocation(1, 1, "First")
	h.c.SelectLocation(2, 2, "Second")
	close(release)
	h.settle(t)

	assert.Equal(t, 2, h.fetcher.count(weather.EndpointWeather))
	assert.Contains(t, h.doc.HTML(page.WeatherDisplay), "Place 2,2")
	assert.NotContains(t, h.doc.HTML(page.WeatherDisplay), "Place 1,1")
	expected := `
# HELP wthr_stale_responses_total Responses discarded because a newer request was issued for the same view
# TYPE wthr_stale_responses_total counter
wthr_stale_responses_total{view="current"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.registry, strings.NewReader(expected), "wthr_stale_responses_total"))
}

// staleCounts renders the expected wthr_stale_responses_total series.
func staleCounts(views ...View) string {
	labels := make([]string, len(views))
	for i, v := range views {
		labels[i] = string(v)
	}
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("# HELP wthr_stale_responses_total Responses discarded because a newer request was issued for the same view\n")
	b.WriteString("# TYPE wthr_stale_responses_total counter\n")
	for _, l := range labels {
		fmt.Fprintf(&b, "wthr_stale_responses_total{view=%q} 1\n", l)
	}
	return b.String()
}

func TestSelectLocation_NewerSelectionWaitsForApply(t *testing.T) {
	doc := page.NewDocument()
	gate := newGatedSurface(doc, page.WeatherDisplay, "Place 1,1")
	h := newHarnessOn(t, doc, gate)
	t.Cleanup(gate.open)

	h.c.SelectLocation(1, 1, "First")
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first response was never applied")
	}

	selected := make(chan struct{})
	go func() {
		defer close(selected)
		h.c.SelectLocation(2, 2, "Second")
	}()

	select {
	case <-selected:
		t.Fatal("newer selection started while an older response was being written")
	case <-time.After(50 * time.Millisecond):
	}

	gate.open()
	<-selected
	h.settle(t)

	loc, ok := h.c.State().Location()
	require.True(t, ok)
	assert.Equal(t, weather.Coordinates{Lat: 2, Lon: 2}, loc)
	assert.Contains(t, doc.HTML(page.WeatherDisplay), "Place 2,2")
	assert.NotContains(t, doc.HTML(page.WeatherDisplay), "Place 1,1")
}

func TestSelectLocation_StalePanelDropped(t *testing.T) {
	tests := []struct {
		name     string
		tab      Tab
		view     View
		panel    string
		endpoint string
		label    string
	}{
		{"forecast", TabForecast, ViewForecast, page.ForecastPanel, weather.EndpointForecast, "Day"},
		{"alerts", TabAlerts, ViewAlerts, page.AlertsPanel, weather.EndpointAlerts, "Alert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			release := make(chan struct{})
			hold := func(ctx context.Context, lat float64) error {
				if lat != 1 {
					return nil
				}
				select {
				case <-release:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			base := h.fetcher.current
			h.fetcher.current = func(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error) {
				if err := hold(ctx, lat); err != nil {
					return nil, err
				}
				return base(ctx, lat, lon)
			}
			h.fetcher.forecast = func(ctx context.Context, lat, _ float64) ([]weather.ForecastEntry, error) {
				if err := hold(ctx, lat); err != nil {
					return nil, err
				}
				return []weather.ForecastEntry{{Day: fmt.Sprintf("Day %g", lat), Description: "clear sky", Icon: "01d"}}, nil
			}
			h.fetcher.alerts = func(ctx context.Context, lat, _ float64) ([]weather.Alert, error) {
				if err := hold(ctx, lat); err != nil {
					return nil, err
				}
				return []weather.Alert{{Title: fmt.Sprintf("Alert %g", lat), Start: "Mon"}}, nil
			}

			h.c.ActivateTab(tt.tab)
			h.c.SelectLocation(1, 1, "First")
			h.c.SelectLocation(2, 2, "Second")
			close(release)
			h.settle(t)

			assert.Equal(t, 2, h.fetcher.count(tt.endpoint))
			html := h.doc.HTML(tt.panel)
			assert.Contains(t, html, tt.label+" 2")
			assert.NotContains(t, html, tt.label+" 1")
			assert.NoError(t, testutil.GatherAndCompare(h.registry,
				strings.NewReader(staleCounts(ViewCurrent, tt.view)), "wthr_stale_responses_total"))
		})
	}
}

func TestSearch_InvalidatedInFlight(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(c *Controller)
	}{
		{"selection", func(c *Controller) { c.SelectLocation(51.5074, -0.1278, "London") }},
		{"short query", func(c *Controller) { c.SearchInput("Lo") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			gate := make(chan struct{})
			h.searcher.results = []weather.Location{{Name: "Londonderry", Country: "GB"}}
			h.searcher.gate = gate

			h.c.SearchNow("London")
			require.Eventually(t, func() bool { return len(h.searcher.Queries()) == 1 },
				2*time.Second, 5*time.Millisecond)

			tt.interrupt(h.c)
			close(gate)
			h.settle(t)

			assert.NotContains(t, h.doc.HTML(page.SearchResults), "Londonderry")
			visible, _ := h.doc.Visible(page.SearchResults)
			assert.False(t, visible)
			assert.NoError(t, testutil.GatherAndCompare(h.registry,
				strings.NewReader(staleCounts(ViewSearch)), "wthr_stale_responses_total"))
		})
	}
}

func TestView_Retryable(t *testing.T) {
	tests := []struct {
		view View
		want bool
	}{
		{ViewCurrent, true},
		{ViewForecast, true},
		{ViewAlerts, true},
		{ViewSearch, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.view.Retryable(), string(tt.view))
	}
}

func TestLoadCurrentWeather_Geolocation(t *testing.T) {
	tests := []struct {
		name   string
		report func(p *page.PositionReport)
		want   string
	}{
		{
			name:   "unsupported",
			report: func(*page.PositionReport) {},
			want:   MsgGeolocationUnsupported,
		},
		{
			name:   "denied",
			report: func(p *page.PositionReport) { p.ReportError(page.ErrPositionDenied) },
			want:   MsgLocationDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.report(h.geo)

			h.c.LoadCurrentWeather()
			h.settle(t)

			html := h.doc.HTML(page.WeatherDisplay)
			assert.Contains(t, html, tt.want)
			assert.NotContains(t, html, "data-retry", "geolocation failures offer no retry")
			assert.Zero(t, h.fetcher.count(weather.EndpointWeather))
			_, ok := h.c.State().Location()
			assert.False(t, ok)
		})
	}
}

func TestLoadCurrentWeather_Position(t *testing.T) {
	h := newHarness(t)
	h.geo.Report(weather.Coordinates{Lat: 48.8566, Lon: 2.3522})

	h.c.LoadCurrentWeather()
	h.settle(t)

	assert.Equal(t, weather.Coordinates{Lat: 48.8566, Lon: 2.3522}, h.fetcher.last(weather.EndpointWeather))
	loc, ok := h.c.State().Location()
	require.True(t, ok)
	assert.Equal(t, 48.8566, loc.Lat)
	assert.Contains(t, h.doc.HTML(page.WeatherDisplay), "Place 48.8566,2.3522")
}

func TestRetry_Current(t *testing.T) {
	h := newHarness(t)
	base := h.fetcher.current
	h.fetcher.current = func(context.Context, float64, float64) (*weather.CurrentWeather, error) {
		return nil, &weather.ServiceError{Endpoint: weather.EndpointWeather, Status: 404, Message: "Location not found"}
	}

	h.c.SelectLocation(5, 6, "Nowhere")
	h.settle(t)
	html := h.doc.HTML(page.WeatherDisplay)
	assert.Contains(t, html, "Location not found")
	assert.Contains(t, html, `data-retry="current"`)
	detailsVisible, _ := h.doc.Visible(page.WeatherDetails)
	assert.False(t, detailsVisible)

	h.fetcher.mu.Lock()
	h.fetcher.current = base
	h.fetcher.mu.Unlock()
	h.c.Retry(ViewCurrent)
	h.settle(t)

	assert.Equal(t, weather.Coordinates{Lat: 5, Lon: 6}, h.fetcher.last(weather.EndpointWeather))
	assert.Contains(t, h.doc.HTML(page.WeatherDisplay), "Place 5,6")
}

func TestRetry_Forecast(t *testing.T) {
	h := newHarness(t)
	fail := true
	base := h.fetcher.forecast
	h.fetcher.forecast = func(ctx context.Context, lat, lon float64) ([]weather.ForecastEntry, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return base(ctx, lat, lon)
	}

	h.c.SelectLocation(5, 6, "Somewhere")
	h.c.ActivateTab(TabForecast)
	h.settle(t)
	assert.Contains(t, h.doc.HTML(page.ForecastPanel), MsgForecastFailed)
	assert.Contains(t, h.doc.HTML(page.ForecastPanel), `data-retry="forecast"`)

	fail = false
	h.c.Retry(ViewForecast)
	h.settle(t)
	assert.Contains(t, h.doc.HTML(page.ForecastPanel), "Monday")
}

func TestMapsTab(t *testing.T) {
	h := newHarness(t)

	h.c.ActivateTab(TabMaps)
	st := h.c.Map().Snapshot()
	require.True(t, st.Initialized)
	assert.Equal(t, mapview.DefaultCenter, st.Center)
	assert.Equal(t, mapview.CountryZoom, st.Zoom)
	assert.Nil(t, st.Marker)
	assert.True(t, h.doc.HasClass(page.LayerButtonID("temp"), page.ActiveClass))

	h.c.SelectMapLayer(mapview.LayerWind)
	st = h.c.Map().Snapshot()
	require.Len(t, st.Layers, 2)
	assert.Equal(t, mapview.BaseLayerID, st.Layers[0].ID)
	assert.Equal(t, mapview.OverlayID(mapview.LayerWind), st.Layers[1].ID)
	assert.True(t, h.doc.HasClass(page.LayerButtonID("wind"), page.ActiveClass))
	assert.False(t, h.doc.HasClass(page.LayerButtonID("temp"), page.ActiveClass))

	h.c.SelectLocation(10, 20, "Testville")
	h.settle(t)
	st = h.c.Map().Snapshot()
	assert.Equal(t, weather.Coordinates{Lat: 10, Lon: 20}, st.Center)
	assert.Equal(t, mapview.LocalZoom, st.Zoom)
	require.NotNil(t, st.Marker)
	assert.Equal(t, mapview.OverlayID(mapview.LayerWind), st.Layers[1].ID, "recentering keeps the overlay")
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	h.c.SearchInput("London")
	require.Equal(t, 1, h.clock.Pending())

	h.c.Close()
	h.c.Close()

	assert.Zero(t, h.clock.Pending())
	assert.False(t, h.c.RefreshWeather())
	h.c.SearchInput("Paris")
	assert.Zero(t, h.clock.Pending())
	h.settle(t)
}

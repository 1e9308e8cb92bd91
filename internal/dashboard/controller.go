// Package dashboard implements the view controller of the weather dashboard.
//
// A Controller owns the shared State of one dashboard (selected location,
// active tab, refresh guard, request generations), decides what to fetch when
// the user acts, and writes the rendered result to a page.Surface.
//
// Fetches run asynchronously. Each location-triggered fetch is tagged with a
// generation number and its response is applied only if no newer request was
// issued for the same view, so a slow response for an old location never
// overwrites a newer one. Issuing a generation and applying a response are
// serialized with the writes they guard.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/metrics"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/render"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

// Messages shown to the user.
const (
	MsgWeatherFailed          = "Failed to load weather data. Please check your connection."
	MsgForecastFailed         = "Failed to load forecast data"
	MsgAlertsFailed           = "Failed to load alerts data"
	MsgLocationDenied         = "Location access denied. Please enable location services or search for a city."
	MsgGeolocationUnsupported = "Geolocation is not supported by this browser."
	MsgLoadingWeather         = "Loading weather..."
	MsgLoadingForecast        = "Loading forecast..."
	MsgLoadingAlerts          = "Loading alerts..."
)

// MinSearchLength is the shortest query that is sent to the search endpoint
// while typing.
const MinSearchLength = 3

// DefaultSearchDebounce is the quiet period after the last keystroke before a
// search is issued.
const DefaultSearchDebounce = 300 * time.Millisecond

// Fetcher loads weather data for a point.
type Fetcher interface {
	FetchCurrentWeather(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, error)
	FetchForecast(ctx context.Context, lat, lon float64) ([]weather.ForecastEntry, error)
	FetchAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error)
}

// LocationSearcher resolves free text to places.
type LocationSearcher interface {
	SearchLocations(ctx context.Context, query string) ([]weather.Location, error)
}

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options holds the dependencies of a Controller.
type Options struct {
	Fetcher    Fetcher
	Searcher   LocationSearcher
	Surface    page.Surface
	Geolocator page.Geolocator
	Map        *mapview.Controller
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	// SearchDebounce defaults to DefaultSearchDebounce.
	SearchDebounce time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
}

// Controller coordinates user input, fetches and rendering for one dashboard.
type Controller struct {
	state    *State
	fetcher  Fetcher
	searcher LocationSearcher
	surface  page.Surface
	geo      page.Geolocator
	maps     *mapview.Controller
	logger   *slog.Logger
	metrics  *metrics.Metrics

	debounce  time.Duration
	afterFunc AfterFunc

	ctx    context.Context
	cancel context.CancelFunc
	work   tracker

	// viewMu orders generation changes against the surface writes they guard.
	viewMu sync.Mutex

	lifeMu sync.Mutex
	closed bool

	searchMu    sync.Mutex
	searchTimer Timer

	retryMu sync.Mutex
	retries map[View]func()
}

// ErrMissingDependency is returned by New when a required option is nil.
var ErrMissingDependency = errors.New("dashboard: missing dependency")

// New creates a controller and draws the initial page state.
func New(opts Options) (*Controller, error) {
	if opts.Fetcher == nil || opts.Searcher == nil || opts.Surface == nil || opts.Geolocator == nil {
		return nil, ErrMissingDependency
	}
	if opts.Map == nil {
		opts.Map = mapview.NewController(mapview.Tiles{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		state:     NewState(),
		fetcher:   opts.Fetcher,
		searcher:  opts.Searcher,
		surface:   opts.Surface,
		geo:       opts.Geolocator,
		maps:      opts.Map,
		logger:    opts.Logger.With("module", "dashboard"),
		metrics:   opts.Metrics,
		debounce:  opts.SearchDebounce,
		afterFunc: opts.AfterFunc,
		ctx:       ctx,
		cancel:    cancel,
		retries:   make(map[View]func()),
	}

	c.markActiveTab(c.state.ActiveTab())
	c.markRefreshing(false)
	return c, nil
}

// State returns the controller's state.
func (c *Controller) State() *State {
	return c.state
}

// Map returns the map controller.
func (c *Controller) Map() *mapview.Controller {
	return c.maps
}

// Settle waits until no debounce timer or fetch is pending.
func (c *Controller) Settle(ctx context.Context) error {
	return c.work.wait(ctx)
}

// Close cancels in-flight fetches, stops pending timers and waits for every
// background goroutine to return. It is safe to call more than once.
func (c *Controller) Close() {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.closed = true
	c.lifeMu.Unlock()

	c.cancel()
	c.stopSearchTimer()
	_ = c.work.wait(context.Background())
}

func (c *Controller) isClosed() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.closed
}

// spawn runs f in the background under the controller's lifetime context.
// The returned channel is closed when f returns. After Close, f is not run
// and the channel is already closed.
func (c *Controller) spawn(f func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})

	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		close(done)
		return done
	}
	c.work.add()
	c.lifeMu.Unlock()

	go func() {
		defer c.work.done()
		defer close(done)
		f(c.ctx)
	}()
	return done
}

func (c *Controller) setRetry(v View, f func()) {
	c.retryMu.Lock()
	defer c.retryMu.Unlock()
	c.retries[v] = f
}

// Retry re-runs the last load attempted for v. For the current view without
// any previous attempt it falls back to geolocation. Views that are not
// Retryable are ignored.
func (c *Controller) Retry(v View) {
	c.retryMu.Lock()
	f := c.retries[v]
	c.retryMu.Unlock()

	switch {
	case f != nil:
		f()
	case v == ViewCurrent:
		c.LoadCurrentWeather()
	case v == ViewForecast:
		c.loadForecast()
	case v == ViewAlerts:
		c.loadAlerts()
	}
}

// begin issues a new generation for v and runs write before any response
// for v can be applied. write may be nil.
func (c *Controller) begin(v View, write func()) uint64 {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	gen := c.state.NextGeneration(v)
	if write != nil {
		write()
	}
	return gen
}

// apply runs write if gen is still the latest generation for v. The check and
// the write happen under one lock, so no newer request for v can start in
// between. It reports whether write ran.
func (c *Controller) apply(v View, gen uint64, write func()) bool {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	if !c.state.IsCurrent(v, gen) {
		c.metrics.RecordStale(string(v))
		c.logger.Debug("discarding stale response", "view", v, "generation", gen)
		return false
	}
	write()
	return true
}

// failureMessage picks the message for a failed fetch: the service's own
// message when it reported one, otherwise the view's generic text.
func failureMessage(err error, generic string) string {
	if msg, ok := weather.IsServiceError(err); ok {
		return msg
	}
	return generic
}

// SelectLocation makes loc the shared location, updates the search box and
// reloads every visible view for it.
func (c *Controller) SelectLocation(lat, lon float64, name string) {
	loc := weather.Coordinates{Lat: lat, Lon: lon}
	gen := c.begin(ViewCurrent, func() {
		c.state.SetLocation(loc)
		c.showCurrentLoading(loc)
	})

	c.closeSearch()
	c.surface.SetValue(page.SearchInput, name)

	c.spawn(func(ctx context.Context) {
		c.fetchCurrent(ctx, gen, loc)
	})

	switch c.state.ActiveTab() {
	case TabForecast:
		c.loadForecast()
	case TabAlerts:
		c.loadAlerts()
	}

	c.maps.Recenter(loc)
	c.logger.Info("location selected", "lat", lat, "lon", lon, "name", name)
}

// LoadCurrentWeather locates the user and loads current weather there.
func (c *Controller) LoadCurrentWeather() {
	c.startGeolocatedLoad()
}

// RefreshWeather reloads current weather for the selected location, or for
// the geolocated position when none is selected. It reports false without
// doing anything while a previous refresh has not settled.
func (c *Controller) RefreshWeather() bool {
	if c.isClosed() {
		return false
	}
	if !c.state.BeginRefresh() {
		c.logger.Debug("refresh already running")
		return false
	}
	c.markRefreshing(true)

	var done <-chan struct{}
	if loc, ok := c.state.Location(); ok {
		done = c.startCurrentLoad(loc)
	} else {
		done = c.startGeolocatedLoad()
	}

	c.spawn(func(context.Context) {
		<-done
		c.state.EndRefresh()
		c.markRefreshing(false)
	})
	return true
}

func (c *Controller) markRefreshing(on bool) {
	c.surface.SetClass(page.RefreshButton, page.RefreshingClass, on)
	c.surface.SetHTML(page.RefreshButton, render.RefreshButton(on))
}

// startCurrentLoad shows the loading block and fetches current weather for loc.
func (c *Controller) startCurrentLoad(loc weather.Coordinates) <-chan struct{} {
	gen := c.begin(ViewCurrent, func() { c.showCurrentLoading(loc) })
	return c.spawn(func(ctx context.Context) {
		c.fetchCurrent(ctx, gen, loc)
	})
}

// startGeolocatedLoad asks for the user's position, then loads current
// weather there. A selection made while the position is pending wins.
func (c *Controller) startGeolocatedLoad() <-chan struct{} {
	gen := c.begin(ViewCurrent, func() {
		c.setRetry(ViewCurrent, nil)
		c.surface.SetHTML(page.WeatherDisplay, render.Loading(MsgLoadingWeather))
	})
	return c.spawn(func(ctx context.Context) {
		pos, err := c.geo.Locate(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.apply(ViewCurrent, gen, func() { c.showGeolocationError(err) })
			return
		}
		located := c.apply(ViewCurrent, gen, func() {
			c.state.SetLocation(pos)
			c.showCurrentLoading(pos)
		})
		if located {
			c.fetchCurrent(ctx, gen, pos)
		}
	})
}

// showCurrentLoading remembers loc for Retry and shows the loading block.
// Caller holds viewMu.
func (c *Controller) showCurrentLoading(loc weather.Coordinates) {
	c.setRetry(ViewCurrent, func() { c.startCurrentLoad(loc) })
	c.surface.SetHTML(page.WeatherDisplay, render.Loading(MsgLoadingWeather))
}

func (c *Controller) fetchCurrent(ctx context.Context, gen uint64, loc weather.Coordinates) {
	cw, err := c.fetcher.FetchCurrentWeather(ctx, loc.Lat, loc.Lon)
	if ctx.Err() != nil {
		return
	}
	c.apply(ViewCurrent, gen, func() {
		if err != nil {
			c.logger.Warn("current weather failed", "lat", loc.Lat, "lon", loc.Lon, "error", err)
			c.showWeatherError(failureMessage(err, MsgWeatherFailed), string(ViewCurrent))
			return
		}
		c.displayCurrentWeather(cw)
	})
}

func (c *Controller) displayCurrentWeather(cw *weather.CurrentWeather) {
	view := render.CurrentWeather(cw)
	c.surface.SetHTML(page.WeatherDisplay, view.Main)
	c.surface.SetText(page.FeelsLike, view.Details.FeelsLike)
	c.surface.SetText(page.Humidity, view.Details.Humidity)
	c.surface.SetText(page.Wind, view.Details.Wind)
	c.surface.SetText(page.Pressure, view.Details.Pressure)
	c.surface.SetText(page.Visibility, view.Details.Visibility)
	c.surface.SetVisible(page.WeatherDetails, true)
}

func (c *Controller) showWeatherError(message, retry string) {
	c.surface.SetHTML(page.WeatherDisplay, render.Error(message, retry))
	c.surface.SetVisible(page.WeatherDetails, false)
}

func (c *Controller) showGeolocationError(err error) {
	msg := MsgLocationDenied
	if errors.Is(err, page.ErrGeolocationUnsupported) {
		msg = MsgGeolocationUnsupported
	}
	c.logger.Info("geolocation failed", "error", err)
	c.showWeatherError(msg, "")
}

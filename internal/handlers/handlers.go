// Package handlers serves the dashboard page, its assets and the session
// bridge the page talks to.
package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swelljoe/wthr.lol/internal/dashboard"
	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/web"
)

// DefaultSettleTimeout bounds how long a UI request waits for the work it
// started before answering with the current state.
const DefaultSettleTimeout = 15 * time.Second

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the dependencies of the HTTP host.
type Config struct {
	Sessions      *Sessions
	Database      Pinger // optional
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
	SettleTimeout time.Duration
}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	sessions      *Sessions
	db            Pinger
	gatherer      prometheus.Gatherer
	templates     *template.Template
	logger        *slog.Logger
	settleTimeout time.Duration
}

// New creates a new Handlers instance
func New(cfg Config) (*Handlers, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = DefaultSettleTimeout
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.NewRegistry()
	}

	return &Handlers{
		sessions:      cfg.Sessions,
		db:            cfg.Database,
		gatherer:      cfg.Gatherer,
		templates:     tmpl,
		logger:        cfg.Logger.With("module", "http"),
		settleTimeout: cfg.SettleTimeout,
	}, nil
}

// Routes returns the dashboard's request router wrapped in request logging.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /{$}", h.HandleIndex)

	mux.HandleFunc("GET /ui/state", h.ui(func(*http.Request, *Session) error { return nil }))
	mux.HandleFunc("POST /ui/tab", h.ui(h.activateTab))
	mux.HandleFunc("POST /ui/search", h.ui(h.search))
	mux.HandleFunc("POST /ui/search/dismiss", h.ui(h.dismissSearch))
	mux.HandleFunc("POST /ui/select", h.ui(h.selectLocation))
	mux.HandleFunc("POST /ui/locate", h.ui(h.locate))
	mux.HandleFunc("POST /ui/refresh", h.ui(h.refresh))
	mux.HandleFunc("POST /ui/retry", h.ui(h.retry))
	mux.HandleFunc("POST /ui/layer", h.ui(h.selectLayer))

	return logRequests(h.logger, mux)
}

type tabLink struct {
	Name     string
	Label    string
	ButtonID string
}

// pageIDs exposes the page's element ids to the index template.
type pageIDs struct {
	SearchInput    string
	SearchButton   string
	SearchResults  string
	LocationButton string
	WeatherDisplay string
	WeatherDetails string
	FeelsLike      string
	Humidity       string
	Wind           string
	Pressure       string
	Visibility     string
	ForecastPanel  string
	AlertsPanel    string
	RefreshButton  string
	WeatherMap     string
	Panels         map[string]string
}

type indexData struct {
	Title  string
	IDs    pageIDs
	Tabs   []tabLink
	Layers []tabLink
}

var tabLabels = map[dashboard.Tab]string{
	dashboard.TabCurrent:  "Current",
	dashboard.TabForecast: "Forecast",
	dashboard.TabMaps:     "Maps",
	dashboard.TabAlerts:   "Alerts",
}

var layerLabels = map[mapview.LayerType]string{
	mapview.LayerTemp:          "Temperature",
	mapview.LayerPrecipitation: "Precipitation",
	mapview.LayerWind:          "Wind",
	mapview.LayerClouds:        "Clouds",
}

func newIndexData() indexData {
	d := indexData{
		Title: "wthr.lol",
		IDs: pageIDs{
			SearchInput:    page.SearchInput,
			SearchButton:   page.SearchButton,
			SearchResults:  page.SearchResults,
			LocationButton: page.LocationButton,
			WeatherDisplay: page.WeatherDisplay,
			WeatherDetails: page.WeatherDetails,
			FeelsLike:      page.FeelsLike,
			Humidity:       page.Humidity,
			Wind:           page.Wind,
			Pressure:       page.Pressure,
			Visibility:     page.Visibility,
			ForecastPanel:  page.ForecastPanel,
			AlertsPanel:    page.AlertsPanel,
			RefreshButton:  page.RefreshButton,
			WeatherMap:     page.WeatherMap,
			Panels:         make(map[string]string, len(dashboard.Tabs)),
		},
	}
	for _, t := range dashboard.Tabs {
		d.IDs.Panels[string(t)] = page.TabPanelID(string(t))
		d.Tabs = append(d.Tabs, tabLink{Name: string(t), Label: tabLabels[t], ButtonID: page.TabButtonID(string(t))})
	}
	for _, l := range mapview.LayerTypes {
		d.Layers = append(d.Layers, tabLink{Name: string(l), Label: layerLabels[l], ButtonID: page.LayerButtonID(string(l))})
	}
	return d
}

// HandleIndex handles the main page
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", newIndexData()); err != nil {
		h.logger.Error("executing index template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleHealth handles health check endpoint
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			status = "degraded"
		}
	} else {
		status = "no_database"
	}

	resp := map[string]any{"status": status}
	if h.sessions != nil {
		resp["sessions"] = h.sessions.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("response write failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

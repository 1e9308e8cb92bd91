package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/swelljoe/wthr.lol/internal/config"
	"github.com/swelljoe/wthr.lol/internal/dashboard"
	"github.com/swelljoe/wthr.lol/internal/gazetteer"
	"github.com/swelljoe/wthr.lol/internal/handlers"
	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/metrics"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := a.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), settings, logger)
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().String("service-url", "http://localhost:5000", "base URL of the weather service")
	cmd.Flags().String("search-source", config.SourceRemote, "location search source: remote or gazetteer")
	cmd.Flags().String("tiles-key", "", "API key for weather map tiles")
	bindFlags(a.v, cmd.Flags(), map[string]string{
		"server.port":     "port",
		"service.baseurl": "service-url",
		"search.source":   "search-source",
		"tiles.apikey":    "tiles-key",
	})
	return cmd
}

// server is a fully wired dashboard host.
type server struct {
	http     *http.Server
	sessions *handlers.Sessions
	store    *gazetteer.Store
}

// Close ends every session and closes the gazetteer.
func (s *server) Close() {
	s.sessions.Close()
	if s.store != nil {
		s.store.Close()
	}
}

func newServer(settings *config.Settings, logger *slog.Logger) (*server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	client := weather.NewClient(settings.Service.BaseURL,
		weather.WithTimeout(settings.Service.Timeout),
		weather.WithUserAgent(settings.Service.UserAgent),
		weather.WithMetrics(m),
	)

	var (
		searcher dashboard.LocationSearcher = client
		database handlers.Pinger
		store    *gazetteer.Store
	)
	if settings.Search.Source == config.SourceGazetteer {
		store, err = gazetteer.Open(settings.Gazetteer.Path,
			gazetteer.WithLimit(settings.Search.Limit),
			gazetteer.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		searcher, database = store, store
		logger.Info("searching the local gazetteer", "path", settings.Gazetteer.Path)
	}

	tiles := mapview.Tiles{
		BaseTemplate:    settings.Tiles.BaseTemplate,
		OverlayTemplate: settings.Tiles.OverlayTemplate,
		APIKey:          settings.Tiles.APIKey,
	}
	if tiles.APIKey == "" {
		logger.Warn("no tiles.apikey configured; weather map overlays will not load")
	}

	sessions := handlers.NewSessions(settings.Session.TTL, func(doc *page.Document, geo *page.PositionReport) (*dashboard.Controller, error) {
		return dashboard.New(dashboard.Options{
			Fetcher:        client,
			Searcher:       searcher,
			Surface:        doc,
			Geolocator:     geo,
			Map:            mapview.NewController(tiles),
			Logger:         logger,
			Metrics:        m,
			SearchDebounce: settings.Search.Debounce,
		})
	}, m, logger.With("module", "sessions"))

	h, err := handlers.New(handlers.Config{
		Sessions:      sessions,
		Database:      database,
		Gatherer:      registry,
		Logger:        logger,
		SettleTimeout: settings.Service.Timeout + settings.Search.Debounce + time.Second,
	})
	if err != nil {
		sessions.Close()
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", settings.Server.Port),
			Handler:           h.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		sessions: sessions,
		store:    store,
	}, nil
}

// serve runs the HTTP server until ctx is canceled, then shuts it down.
func serve(ctx context.Context, settings *config.Settings, logger *slog.Logger) error {
	srv, err := newServer(settings, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.http.Addr, "service", settings.Service.BaseURL)
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

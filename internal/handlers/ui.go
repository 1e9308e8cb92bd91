package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/swelljoe/wthr.lol/internal/dashboard"
	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

// Search modes posted to /ui/search.
const (
	SearchModeInput  = "input"
	SearchModeSubmit = "submit"
)

// UIState is the body of every /ui response.
type UIState struct {
	Version  uint64                  `json:"version"`
	Elements map[string]page.Element `json:"elements"`
	Map      mapview.State           `json:"map"`
	State    dashboard.Summary       `json:"state"`
}

func snapshot(sess *Session) UIState {
	doc := sess.Document.Snapshot()
	return UIState{
		Version:  doc.Version,
		Elements: doc.Elements,
		Map:      sess.Controller.Map().Snapshot(),
		State:    sess.Controller.State().Summary(),
	}
}

// ui adapts a controller action to a handler. The action runs against the
// caller's session, then the response waits until the work it started has
// settled and returns the resulting page state.
func (h *Handlers) ui(action func(r *http.Request, sess *Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err))
			return
		}

		sess, err := h.sessions.Ensure(w, r)
		if err != nil {
			h.logger.Error("session unavailable", "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("session unavailable"))
			return
		}

		if err := action(r, sess); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
		defer cancel()
		if err := sess.Controller.Settle(ctx); err != nil {
			h.logger.Debug("answering before work settled", "session", sess.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, snapshot(sess))
	}
}

func (h *Handlers) activateTab(r *http.Request, sess *Session) error {
	tab, err := dashboard.ParseTab(r.FormValue("tab"))
	if err != nil {
		return err
	}
	sess.Controller.ActivateTab(tab)
	return nil
}

func (h *Handlers) search(r *http.Request, sess *Session) error {
	q := r.FormValue("q")
	switch mode := r.FormValue("mode"); mode {
	case SearchModeInput, "":
		sess.Controller.SearchInput(q)
	case SearchModeSubmit:
		sess.Controller.SearchNow(q)
	default:
		return fmt.Errorf("unknown search mode %q", mode)
	}
	return nil
}

func (h *Handlers) dismissSearch(_ *http.Request, sess *Session) error {
	sess.Controller.DismissSearch()
	return nil
}

func (h *Handlers) selectLocation(r *http.Request, sess *Session) error {
	pos, err := parseCoordinates(r.FormValue("lat"), r.FormValue("lon"))
	if err != nil {
		return err
	}
	sess.Controller.SelectLocation(pos.Lat, pos.Lon, r.FormValue("name"))
	return nil
}

func (h *Handlers) locate(r *http.Request, sess *Session) error {
	if err := reportPosition(r, sess.Position); err != nil {
		return err
	}
	sess.Controller.LoadCurrentWeather()
	return nil
}

func (h *Handlers) refresh(r *http.Request, sess *Session) error {
	if err := reportPosition(r, sess.Position); err != nil {
		return err
	}
	if !sess.Controller.RefreshWeather() {
		h.logger.Debug("refresh ignored while running", "session", sess.ID)
	}
	return nil
}

func (h *Handlers) retry(r *http.Request, sess *Session) error {
	v, err := dashboard.ParseView(r.FormValue("view"))
	if err != nil {
		return err
	}
	if !v.Retryable() {
		return fmt.Errorf("view %q cannot be retried", v)
	}
	sess.Controller.Retry(v)
	return nil
}

func (h *Handlers) selectLayer(r *http.Request, sess *Session) error {
	layer, err := mapview.ParseLayerType(r.FormValue("layer"))
	if err != nil {
		return err
	}
	sess.Controller.SelectMapLayer(layer)
	return nil
}

// reportPosition records the browser's geolocation outcome, if the request
// carries one.
func reportPosition(r *http.Request, geo *page.PositionReport) error {
	if code := r.FormValue("geo_error"); code != "" {
		geo.ReportError(page.ParseGeoError(code))
		return nil
	}
	if r.FormValue("lat") == "" && r.FormValue("lon") == "" {
		return nil
	}
	pos, err := parseCoordinates(r.FormValue("lat"), r.FormValue("lon"))
	if err != nil {
		return err
	}
	geo.Report(pos)
	return nil
}

func parseCoordinates(latStr, lonStr string) (weather.Coordinates, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	if lat < -90 || lat > 90 {
		return weather.Coordinates{}, fmt.Errorf("latitude out of range: %g", lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	if lon < -180 || lon > 180 {
		return weather.Coordinates{}, fmt.Errorf("longitude out of range: %g", lon)
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, nil
}

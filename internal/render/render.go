// Package render turns weather payloads into HTML fragments for the dashboard.
//
// Every function is free of side effects. Values are interpolated through
// html/template, so service-provided text is always escaped.
package render

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/swelljoe/wthr.lol/internal/icons"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

// Fixed texts shown by the dashboard.
const (
	NoAlertsText      = "No weather alerts for this location"
	NoLocationsText   = "No locations found"
	SelectFirstText   = "Please select a location first"
	PressureMissing   = "--"
	RetryLabel        = "Try Again"
	RefreshIdleLabel  = "Refresh Weather"
	RefreshBusyLabel  = "Refreshing..."
	errorGlyph        = "⚠️"
	noAlertsGlyph     = "✅"
	refreshGlyph      = "🔄"
	windGlyph         = "🌪️"
	humidityGlyph     = "💧"
	pressureGlyph     = "📊"
	unexpectedFailure = "Unable to display this content"
)

var tmpl = template.Must(template.New("render").Funcs(template.FuncMap{
	"num":      Number,
	"icon":     icons.Resolve,
	"pressure": forecastPressure,
	"timeText": alertTimeRange,
}).Parse(templates))

// Number formats a reading the way the browser prints JSON numbers:
// no trailing zeros, no exponent.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func execute(name string, data any) template.HTML {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return Error(unexpectedFailure, "")
	}
	return template.HTML(b.String())
}

// Details holds the five secondary readings shown next to current weather.
type Details struct {
	FeelsLike  string
	Humidity   string
	Wind       string
	Pressure   string
	Visibility string
}

// CurrentView is the rendered current-weather panel.
type CurrentView struct {
	Main    template.HTML
	Details Details
}

// CurrentWeather renders the main weather block and its detail slots.
func CurrentWeather(cw *weather.CurrentWeather) CurrentView {
	return CurrentView{
		Main: execute("current", cw),
		Details: Details{
			FeelsLike:  Number(cw.FeelsLike) + "°C",
			Humidity:   Number(cw.Humidity) + "%",
			Wind:       Number(cw.WindSpeed) + " m/s",
			Pressure:   Number(cw.Pressure) + " hPa",
			Visibility: Number(cw.Visibility) + " km",
		},
	}
}

func forecastPressure(f weather.ForecastEntry) string {
	if !f.HasPressure() {
		return PressureMissing
	}
	return Number(*f.Pressure) + " hPa"
}

// Forecast renders one card per entry, in order.
func Forecast(entries []weather.ForecastEntry) template.HTML {
	return execute("forecast", entries)
}

// alertTimeRange is "start" or "start - end".
func alertTimeRange(a weather.Alert) string {
	if a.HasEnd() {
		return a.Start + " - " + *a.End
	}
	return a.Start
}

// Alerts renders the alert list, or the no-alerts block when empty.
func Alerts(alerts []weather.Alert) template.HTML {
	if len(alerts) == 0 {
		return execute("no-alerts", nil)
	}
	return execute("alerts", alerts)
}

// Error renders the uniform error block. When retry is non-empty a retry
// button targeting that view is included.
func Error(message, retry string) template.HTML {
	var b strings.Builder
	data := struct{ Message, Retry string }{message, retry}
	if err := tmpl.ExecuteTemplate(&b, "error", data); err != nil {
		return template.HTML(`<div class="error-container"><p class="error-text">` +
			template.HTMLEscapeString(message) + `</p></div>`)
	}
	return template.HTML(b.String())
}

// Loading renders the spinner block shown while a fetch is in flight.
func Loading(text string) template.HTML {
	return execute("loading", text)
}

// Placeholder renders a prompt without spinner.
func Placeholder(text string) template.HTML {
	return execute("placeholder", text)
}

// SearchResults renders the search dropdown.
func SearchResults(locs []weather.Location) template.HTML {
	if len(locs) == 0 {
		return execute("no-results", nil)
	}
	return execute("results", locs)
}

// RefreshButton renders the refresh button label.
func RefreshButton(refreshing bool) template.HTML {
	return execute("refresh", refreshing)
}

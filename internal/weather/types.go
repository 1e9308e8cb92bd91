package weather

import "strings"

// Location is a named place returned by the search endpoint.
type Location struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
}

// DisplayName renders "name, state, country", omitting an empty state.
func (l Location) DisplayName() string {
	if l.State != "" {
		return l.Name + ", " + l.State + ", " + l.Country
	}
	return l.Name + ", " + l.Country
}

// CurrentWeather holds point-in-time conditions for a location.
type CurrentWeather struct {
	Location      string  `json:"location"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Visibility    float64 `json:"visibility"` // km
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
}

// ForecastEntry is one day of the forecast.
type ForecastEntry struct {
	Date        string   `json:"date,omitempty"`
	Day         string   `json:"day"` // e.g., "Monday"
	TempMax     float64  `json:"temp_max"`
	TempMin     float64  `json:"temp_min"`
	Humidity    float64  `json:"humidity"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	WindSpeed   float64  `json:"wind_speed"`
}

// HasPressure reports whether the entry carries a usable pressure reading.
func (f ForecastEntry) HasPressure() bool {
	return f.Pressure != nil && *f.Pressure != 0
}

// Alert severities.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityExtreme  = "extreme"
)

// Alert is a time-bounded weather advisory.
type Alert struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Severity    string  `json:"severity,omitempty"`
	Start       string  `json:"start"`
	End         *string `json:"end"`
}

// SeverityClass returns the alert severity, or "moderate" when the severity
// is missing or not one of the known tiers.
func (a Alert) SeverityClass() string {
	sev := strings.ToLower(strings.TrimSpace(a.Severity))
	switch sev {
	case SeverityMinor, SeverityModerate, SeveritySevere, SeverityExtreme:
		return sev
	default:
		return SeverityModerate
	}
}

// HasEnd reports whether the alert has a non-empty end time.
func (a Alert) HasEnd() bool {
	return a.End != nil && *a.End != ""
}

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

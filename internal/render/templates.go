package render

const templates = `
{{define "current"}}<div class="weather-main highlight-weather">
    <div class="location-name">{{.Location}}</div>
    <div class="weather-icon-large">{{icon .Description .Icon}}</div>
    <div class="temperature-display main-stat">{{num .Temperature}}°C</div>
    <div class="weather-stats-row">
        <div class="stat-block humidity-block">
            <span class="stat-label">Humidity</span>
            <span class="stat-value">{{num .Humidity}}%</span>
        </div>
        <div class="stat-block pressure-block">
            <span class="stat-label">Pressure</span>
            <span class="stat-value">{{num .Pressure}} hPa</span>
        </div>
    </div>
    <div class="weather-description">{{.Description}}</div>
</div>{{end}}

{{define "forecast"}}{{range .}}<div class="forecast-card">
    <div class="forecast-day">{{.Day}}</div>
    <div class="forecast-icon">{{icon .Description .Icon}}</div>
    <div class="forecast-temps main-stat">{{num .TempMax}}° / {{num .TempMin}}°</div>
    <div class="forecast-row">
        <span class="forecast-humidity stat-block humidity-block">` + humidityGlyph + ` <span class="stat-label">Humidity</span> <span class="stat-value">{{num .Humidity}}%</span></span>
        <span class="forecast-pressure stat-block pressure-block">` + pressureGlyph + ` <span class="stat-label">Pressure</span> <span class="stat-value">{{pressure .}}</span></span>
    </div>
    <div class="forecast-desc">{{.Description}}</div>
    <div class="forecast-wind">` + windGlyph + ` {{num .WindSpeed}} m/s</div>
</div>
{{end}}{{end}}

{{define "no-alerts"}}<div class="no-alerts">
    <div class="no-alerts-icon">` + noAlertsGlyph + `</div>
    <p>` + NoAlertsText + `</p>
</div>{{end}}

{{define "alerts"}}{{range .}}<div class="alert-item {{.SeverityClass}}">
    <div class="alert-title">{{.Title}}</div>
    <div class="alert-description">{{.Description}}</div>
    <div class="alert-time"><strong>Active:</strong> {{timeText .}}</div>
</div>
{{end}}{{end}}

{{define "error"}}<div class="error-container">
    <div class="error-icon">` + errorGlyph + `</div>
    <p class="error-text">{{.Message}}</p>{{if .Retry}}
    <button class="retry-btn" data-retry="{{.Retry}}">` + RetryLabel + `</button>{{end}}
</div>{{end}}

{{define "loading"}}<div class="loading-container">
    <div class="loading-spinner"></div>
    <p class="loading-text">{{.}}</p>
</div>{{end}}

{{define "placeholder"}}<div class="loading-container">
    <p class="loading-text">{{.}}</p>
</div>{{end}}

{{define "no-results"}}<div class="search-result-item">` + NoLocationsText + `</div>{{end}}

{{define "results"}}{{range .}}<div class="search-result-item" data-lat="{{num .Lat}}" data-lon="{{num .Lon}}" data-name="{{.Name}}">{{.DisplayName}}</div>
{{end}}{{end}}

{{define "refresh"}}{{if .}}<span class="btn-icon spinning">` + refreshGlyph + `</span>` + RefreshBusyLabel +
	`{{else}}<span class="btn-icon">` + refreshGlyph + `</span>` + RefreshIdleLabel + `{{end}}{{end}}
`

package dashboard

import (
	"context"
	"html/template"

	"github.com/swelljoe/wthr.lol/internal/mapview"
	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/render"
	"github.com/swelljoe/wthr.lol/internal/weather"
)

// ActivateTab switches the visible tab and loads its content.
func (c *Controller) ActivateTab(tab Tab) {
	c.state.SetTab(tab)
	c.markActiveTab(tab)

	switch tab {
	case TabForecast:
		c.loadForecast()
	case TabMaps:
		c.initializeMap()
	case TabAlerts:
		c.loadAlerts()
	}
}

func (c *Controller) markActiveTab(tab Tab) {
	for _, t := range Tabs {
		c.surface.SetClass(page.TabButtonID(string(t)), page.ActiveClass, t == tab)
		c.surface.SetClass(page.TabPanelID(string(t)), page.ActiveClass, t == tab)
	}
}

// SelectMapLayer switches the weather overlay.
func (c *Controller) SelectMapLayer(layer mapview.LayerType) {
	c.markActiveLayer(layer)
	c.maps.SetLayer(layer)
}

func (c *Controller) markActiveLayer(layer mapview.LayerType) {
	for _, t := range mapview.LayerTypes {
		c.surface.SetClass(page.LayerButtonID(string(t)), page.ActiveClass, t == layer)
	}
}

func (c *Controller) initializeMap() {
	if pos, ok := c.state.Location(); ok {
		c.maps.Init(&pos)
	} else {
		c.maps.Init(nil)
	}
	c.markActiveLayer(c.maps.Layer())
}

func (c *Controller) loadForecast() {
	c.loadPanel(ViewForecast, page.ForecastPanel, MsgLoadingForecast, MsgForecastFailed, c.loadForecast,
		func(ctx context.Context, loc weather.Coordinates) (template.HTML, error) {
			entries, err := c.fetcher.FetchForecast(ctx, loc.Lat, loc.Lon)
			if err != nil {
				return "", err
			}
			return render.Forecast(entries), nil
		})
}

func (c *Controller) loadAlerts() {
	c.loadPanel(ViewAlerts, page.AlertsPanel, MsgLoadingAlerts, MsgAlertsFailed, c.loadAlerts,
		func(ctx context.Context, loc weather.Coordinates) (template.HTML, error) {
			alerts, err := c.fetcher.FetchAlerts(ctx, loc.Lat, loc.Lon)
			if err != nil {
				return "", err
			}
			return render.Alerts(alerts), nil
		})
}

// loadPanel fills a tab panel for the selected location: a placeholder when
// there is none, otherwise the loading block followed by the fetched content
// or an error block with a retry button. The location is read under the same
// lock that issues the generation, so a concurrent selection cannot pair an
// old location with a newer generation.
func (c *Controller) loadPanel(
	v View,
	panel string,
	loading, failed string,
	retry func(),
	fetch func(ctx context.Context, loc weather.Coordinates) (template.HTML, error),
) {
	var (
		loc weather.Coordinates
		ok  bool
	)
	gen := c.begin(v, func() {
		loc, ok = c.state.Location()
		if !ok {
			c.surface.SetHTML(panel, render.Placeholder(render.SelectFirstText))
			return
		}
		c.setRetry(v, retry)
		c.surface.SetHTML(panel, render.Loading(loading))
	})
	if !ok {
		return
	}

	c.spawn(func(ctx context.Context) {
		content, err := fetch(ctx, loc)
		if ctx.Err() != nil {
			return
		}
		c.apply(v, gen, func() {
			if err != nil {
				c.logger.Warn("panel load failed", "view", v, "lat", loc.Lat, "lon", loc.Lon, "error", err)
				c.surface.SetHTML(panel, render.Error(failureMessage(err, failed), string(v)))
				return
			}
			c.surface.SetHTML(panel, content)
		})
	})
}

// Package mapview manages the weather map widget: its view and tile layers.
package mapview

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/swelljoe/wthr.lol/internal/weather"
)

// LayerType selects the weather overlay drawn over the base map.
type LayerType string

// Overlay types.
const (
	LayerTemp          LayerType = "temp"
	LayerPrecipitation LayerType = "precipitation"
	LayerWind          LayerType = "wind"
	LayerClouds        LayerType = "clouds"
)

// DefaultLayer is the overlay shown when the map is first opened.
const DefaultLayer = LayerTemp

// LayerTypes lists the overlays in button order.
var LayerTypes = []LayerType{LayerTemp, LayerPrecipitation, LayerWind, LayerClouds}

// ParseLayerType validates a layer name.
func ParseLayerType(s string) (LayerType, error) {
	for _, t := range LayerTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown map layer %q", s)
}

// Kind distinguishes the base map from weather overlays.
type Kind string

// Layer kinds.
const (
	KindBase    Kind = "base"
	KindOverlay Kind = "overlay"
)

// LayerID identifies a layer in the registry.
type LayerID string

// BaseLayerID is the id of the always-present base tile layer.
const BaseLayerID LayerID = "base"

// OverlayID returns the registry id of an overlay.
func OverlayID(t LayerType) LayerID {
	return LayerID("overlay:" + string(t))
}

// Layer is a tile layer on the map.
type Layer struct {
	ID          LayerID   `json:"id"`
	Kind        Kind      `json:"kind"`
	Type        LayerType `json:"type,omitempty"`
	URL         string    `json:"url"`
	Attribution string    `json:"attribution"`
	Opacity     float64   `json:"opacity"`
}

// Zoom levels.
const (
	LocalZoom   = 10
	CountryZoom = 4
)

// DefaultCenter is used when no location is known at map creation.
var DefaultCenter = weather.Coordinates{Lat: 39.8283, Lon: -98.5795}

// Tile endpoints.
const (
	DefaultBaseTemplate    = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultOverlayTemplate = "https://tile.openweathermap.org/map/{layer}_new/{z}/{x}/{y}.png?appid={key}"
	BaseAttribution        = "© OpenStreetMap contributors"
	OverlayAttribution     = "© OpenWeatherMap"
	OverlayOpacity         = 0.6
	MarkerLabel            = "Current Location"
)

// Tiles configures the tile providers.
type Tiles struct {
	BaseTemplate    string
	OverlayTemplate string // {layer} and {key} are substituted
	APIKey          string
}

// OverlayURL returns the tile URL template for an overlay type.
func (t Tiles) OverlayURL(layer LayerType) string {
	tmpl := t.OverlayTemplate
	if tmpl == "" {
		tmpl = DefaultOverlayTemplate
	}
	return strings.NewReplacer("{layer}", string(layer), "{key}", t.APIKey).Replace(tmpl)
}

func (t Tiles) baseURL() string {
	if t.BaseTemplate == "" {
		return DefaultBaseTemplate
	}
	return t.BaseTemplate
}

// Marker is a labelled pin.
type Marker struct {
	Position weather.Coordinates `json:"position"`
	Label    string              `json:"label"`
}

// State is the serializable map state mirrored by the browser.
type State struct {
	Initialized bool                `json:"initialized"`
	Center      weather.Coordinates `json:"center"`
	Zoom        int                 `json:"zoom"`
	Layers      []Layer             `json:"layers"`
	Marker      *Marker             `json:"marker,omitempty"`
	Overlay     LayerType           `json:"overlay"`
}

// Controller owns the map widget. The widget is created at most once; layers
// live in a registry keyed by LayerID so removal is exact.
type Controller struct {
	mu          sync.Mutex
	tiles       Tiles
	initialized bool
	center      weather.Coordinates
	zoom        int
	marker      *Marker
	layers      map[LayerID]Layer
	current     LayerType
}

// NewController returns a controller for a map that does not exist yet.
func NewController(tiles Tiles) *Controller {
	return &Controller{
		tiles:   tiles,
		layers:  make(map[LayerID]Layer),
		current: DefaultLayer,
	}
}

// Initialized reports whether the widget has been created.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Init creates the widget. It reports false and changes nothing when the
// widget already exists. A known location centers the map at local zoom with
// a marker; otherwise the continent-wide default view is used.
func (c *Controller) Init(loc *weather.Coordinates) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return false
	}
	c.initialized = true

	if loc != nil {
		c.center, c.zoom = *loc, LocalZoom
		c.marker = &Marker{Position: *loc, Label: MarkerLabel}
	} else {
		c.center, c.zoom = DefaultCenter, CountryZoom
	}

	c.layers[BaseLayerID] = Layer{
		ID:          BaseLayerID,
		Kind:        KindBase,
		URL:         c.tiles.baseURL(),
		Attribution: BaseAttribution,
		Opacity:     1,
	}
	c.addOverlay(c.current)
	return true
}

// addOverlay registers the overlay for t. Caller holds mu.
func (c *Controller) addOverlay(t LayerType) {
	c.layers[OverlayID(t)] = Layer{
		ID:          OverlayID(t),
		Kind:        KindOverlay,
		Type:        t,
		URL:         c.tiles.OverlayURL(t),
		Attribution: OverlayAttribution,
		Opacity:     OverlayOpacity,
	}
}

// Layer returns the selected overlay type.
func (c *Controller) Layer() LayerType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetLayer selects the overlay type. If the widget exists the previous
// overlay is removed and the new one added; the base layer is never touched.
func (c *Controller) SetLayer(t LayerType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.current
	c.current = t
	if !c.initialized {
		return
	}
	delete(c.layers, OverlayID(prev))
	c.addOverlay(t)
}

// Recenter moves an existing map to loc at local zoom. Overlays are kept.
func (c *Controller) Recenter(loc weather.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return
	}
	c.center, c.zoom = loc, LocalZoom
	c.marker = &Marker{Position: loc, Label: MarkerLabel}
}

// Snapshot returns the current map state with layers ordered base first.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Initialized: c.initialized,
		Center:      c.center,
		Zoom:        c.zoom,
		Overlay:     c.current,
		Layers:      make([]Layer, 0, len(c.layers)),
	}
	if c.marker != nil {
		m := *c.marker
		st.Marker = &m
	}
	for _, l := range c.layers {
		st.Layers = append(st.Layers, l)
	}
	sort.Slice(st.Layers, func(i, j int) bool {
		if st.Layers[i].Kind != st.Layers[j].Kind {
			return st.Layers[i].Kind == KindBase
		}
		return st.Layers[i].ID < st.Layers[j].ID
	})
	return st
}

// Package page models the host page the dashboard draws into.
package page

import (
	"html/template"
	"sort"
	"sync"
)

// Element ids of the host page.
const (
	SearchInput    = "location-search"
	SearchButton   = "search-btn"
	SearchResults  = "search-results"
	LocationButton = "location-btn"
	WeatherDisplay = "weather"
	WeatherDetails = "weather-details"
	FeelsLike      = "feels-like"
	Humidity       = "humidity"
	Wind           = "wind"
	Pressure       = "pressure"
	Visibility     = "visibility"
	ForecastPanel  = "forecast-content"
	AlertsPanel    = "alerts-content"
	RefreshButton  = "refresh-btn"
	WeatherMap     = "weather-map"
)

// ActiveClass marks the selected tab, panel and layer button.
const ActiveClass = "active"

// RefreshingClass marks the refresh button while a refresh is running.
const RefreshingClass = "refreshing"

// TabButtonID returns the id of the navigation button for a tab.
func TabButtonID(tab string) string { return "nav-" + tab }

// TabPanelID returns the id of the content panel for a tab.
func TabPanelID(tab string) string { return tab + "-tab" }

// LayerButtonID returns the id of a map layer button.
func LayerButtonID(layer string) string { return "layer-" + layer }

// Surface is the set of DOM mutations the dashboard performs.
type Surface interface {
	SetHTML(id string, html template.HTML)
	SetText(id, text string)
	SetValue(id, value string)
	SetVisible(id string, visible bool)
	SetClass(id, class string, on bool)
	HasClass(id, class string) bool
}

// Element is the state written to one element. Nil fields were never written.
// HTML and Text are mutually exclusive: the last write wins.
type Element struct {
	HTML    *string         `json:"html,omitempty"`
	Text    *string         `json:"text,omitempty"`
	Value   *string         `json:"value,omitempty"`
	Visible *bool           `json:"visible,omitempty"`
	Classes map[string]bool `json:"classes,omitempty"`
}

func (e Element) clone() Element {
	c := Element{HTML: e.HTML, Text: e.Text, Value: e.Value, Visible: e.Visible}
	if e.Classes != nil {
		c.Classes = make(map[string]bool, len(e.Classes))
		for k, v := range e.Classes {
			c.Classes[k] = v
		}
	}
	return c
}

// Snapshot is a point-in-time copy of a Document.
type Snapshot struct {
	Version  uint64             `json:"version"`
	Elements map[string]Element `json:"elements"`
}

// Document is an in-memory Surface, safe for concurrent use.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	version  uint64
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{elements: make(map[string]*Element)}
}

// element returns the element for id, creating it. Caller holds mu.
func (d *Document) element(id string) *Element {
	el, ok := d.elements[id]
	if !ok {
		el = &Element{}
		d.elements[id] = el
	}
	d.version++
	return el
}

// SetHTML replaces the inner markup of id.
func (d *Document) SetHTML(id string, html template.HTML) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := string(html)
	el := d.element(id)
	el.HTML, el.Text = &s, nil
}

// SetText replaces the text content of id.
func (d *Document) SetText(id, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.element(id)
	el.Text, el.HTML = &text, nil
}

// SetValue sets the value of an input element.
func (d *Document) SetValue(id, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Value = &value
}

// SetVisible shows or hides id.
func (d *Document) SetVisible(id string, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Visible = &visible
}

// SetClass adds or removes class on id.
func (d *Document) SetClass(id, class string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.element(id)
	if el.Classes == nil {
		el.Classes = make(map[string]bool)
	}
	el.Classes[class] = on
}

// HasClass reports whether class was last set on id.
func (d *Document) HasClass(id, class string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	return ok && el.Classes[class]
}

// HTML returns the markup last written to id.
func (d *Document) HTML(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok && el.HTML != nil {
		return *el.HTML
	}
	return ""
}

// Text returns the text last written to id.
func (d *Document) Text(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok && el.Text != nil {
		return *el.Text
	}
	return ""
}

// Value returns the value last written to id.
func (d *Document) Value(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok && el.Value != nil {
		return *el.Value
	}
	return ""
}

// Visible reports the visibility last written to id, and whether it was written.
func (d *Document) Visible(id string) (visible, set bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok && el.Visible != nil {
		return *el.Visible, true
	}
	return false, false
}

// Version increases on every mutation.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Snapshot returns a deep copy of the document.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := Snapshot{Version: d.version, Elements: make(map[string]Element, len(d.elements))}
	for id, el := range d.elements {
		snap.Elements[id] = el.clone()
	}
	return snap
}

// IDs returns the ids written so far, sorted.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.elements))
	for id := range d.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

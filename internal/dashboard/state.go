package dashboard

import (
	"fmt"
	"sync"

	"github.com/swelljoe/wthr.lol/internal/weather"
)

// Tab identifies a dashboard tab.
type Tab string

// Tabs.
const (
	TabCurrent  Tab = "current"
	TabForecast Tab = "forecast"
	TabMaps     Tab = "maps"
	TabAlerts   Tab = "alerts"
)

// Tabs lists every tab in navigation order.
var Tabs = []Tab{TabCurrent, TabForecast, TabMaps, TabAlerts}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// View identifies a region of the page that is filled by a fetch.
type View string

// Views.
const (
	ViewCurrent  View = "current"
	ViewForecast View = "forecast"
	ViewAlerts   View = "alerts"
	ViewSearch   View = "search"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewCurrent, ViewForecast, ViewAlerts, ViewSearch:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Retryable reports whether v shows an error block with a retry button.
func (v View) Retryable() bool {
	return v == ViewCurrent || v == ViewForecast || v == ViewAlerts
}

// State is the shared state of one dashboard. It is owned by a Controller
// and safe for concurrent use.
type State struct {
	mu          sync.Mutex
	location    *weather.Coordinates
	tab         Tab
	refreshing  bool
	generations map[View]uint64
}

// NewState returns the initial state: no location, current tab active.
func NewState() *State {
	return &State{
		tab:         TabCurrent,
		generations: make(map[View]uint64),
	}
}

// Location returns the selected location, if any.
func (s *State) Location() (weather.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return weather.Coordinates{}, false
	}
	return *s.location, true
}

// SetLocation replaces the selected location.
func (s *State) SetLocation(loc weather.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = &loc
}

// ActiveTab returns the selected tab.
func (s *State) ActiveTab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// SetTab selects a tab.
func (s *State) SetTab(t Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = t
}

// Refreshing reports whether a manual refresh is running.
func (s *State) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// BeginRefresh sets the refresh guard. It reports false if a refresh is
// already running.
func (s *State) BeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshing {
		return false
	}
	s.refreshing = true
	return true
}

// EndRefresh clears the refresh guard.
func (s *State) EndRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false
}

// NextGeneration issues a new request generation for v. Responses tagged with
// an older generation are stale.
func (s *State) NextGeneration(v View) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[v]++
	return s.generations[v]
}

// IsCurrent reports whether gen is the latest generation issued for v.
func (s *State) IsCurrent(v View, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[v] == gen
}

// Summary is a copy of the state for display and debugging.
type Summary struct {
	Location   *weather.Coordinates `json:"location,omitempty"`
	Tab        Tab                  `json:"tab"`
	Refreshing bool                 `json:"refreshing"`
}

// Summary returns a copy of the state.
func (s *State) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{Tab: s.tab, Refreshing: s.refreshing}
	if s.location != nil {
		loc := *s.location
		sum.Location = &loc
	}
	return sum
}

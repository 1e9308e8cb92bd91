package dashboard

import (
	"context"
	"strings"

	"github.com/swelljoe/wthr.lol/internal/page"
	"github.com/swelljoe/wthr.lol/internal/render"
)

// SearchInput handles a keystroke in the search box. Queries shorter than
// MinSearchLength hide the results; longer ones are searched once typing has
// paused for the debounce interval.
func (c *Controller) SearchInput(text string) {
	query := strings.TrimSpace(text)
	c.surface.SetValue(page.SearchInput, text)

	if len([]rune(query)) < MinSearchLength {
		c.closeSearch()
		return
	}

	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.work.add()
	c.lifeMu.Unlock()

	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	c.stopSearchTimerLocked()
	c.searchTimer = c.afterFunc(c.debounce, func() {
		defer c.work.done()
		c.search(c.ctx, query)
	})
}

// SearchNow searches immediately, as the search button and the Enter key do.
// An empty query is ignored.
func (c *Controller) SearchNow(text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		return
	}
	c.surface.SetValue(page.SearchInput, text)
	c.stopSearchTimer()
	c.spawn(func(ctx context.Context) {
		c.search(ctx, query)
	})
}

// DismissSearch hides the results list, as a click outside the search box does.
func (c *Controller) DismissSearch() {
	c.surface.SetVisible(page.SearchResults, false)
}

// closeSearch stops the debounce timer, invalidates any search in flight so
// its results are never shown, and hides the results list.
func (c *Controller) closeSearch() {
	c.stopSearchTimer()
	c.begin(ViewSearch, func() {
		c.surface.SetVisible(page.SearchResults, false)
	})
}

func (c *Controller) stopSearchTimer() {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	c.stopSearchTimerLocked()
}

// stopSearchTimerLocked stops the armed timer. Caller holds searchMu.
func (c *Controller) stopSearchTimerLocked() {
	if c.searchTimer == nil {
		return
	}
	if c.searchTimer.Stop() {
		c.work.done()
	}
	c.searchTimer = nil
}

func (c *Controller) search(ctx context.Context, query string) {
	gen := c.begin(ViewSearch, nil)
	locs, err := c.searcher.SearchLocations(ctx, query)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.logger.Warn("location search failed", "query", query, "error", err)
		return
	}
	results := render.SearchResults(locs)
	c.apply(ViewSearch, gen, func() {
		c.surface.SetHTML(page.SearchResults, results)
		c.surface.SetVisible(page.SearchResults, true)
	})
}

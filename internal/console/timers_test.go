package console

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/labtrack/internal/render"
	labtest "github.com/HerbHall/labtrack/internal/testutil"
)

// looped runs the session on its own loop, as in production.
func looped(o *Options) { o.Executor = nil }

func TestSearchDebounceCollapsesBurst(t *testing.T) {
	b := labtest.NewBackend(t)
	h := start(t, b, looped, func(o *Options) { o.SearchDebounce = 50 * time.Millisecond })
	require.Eventually(t, func() bool { return len(h.lists()) == 1 }, time.Second, 5*time.Millisecond)

	for _, v := range []string{"1", "10", "10.", "10.0"} {
		h.s.Dispatch(Intent{Action: ActionFilterSearch, Value: v})
	}

	require.Eventually(t, func() bool { return len(h.lists()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	lists := h.lists()
	require.Len(t, lists, 2, "a burst of keystrokes triggers one reload")
	assert.Equal(t, "10.0", lists[1].Query.Get("search"))
	assert.Equal(t, "1", lists[1].Query.Get("page"))
	assert.Equal(t, "10.0", h.s.Store().Get().Filters.Search)
}

func TestClearFiltersDropsPendingSearch(t *testing.T) {
	b := labtest.NewBackend(t)
	h := start(t, b, looped, func(o *Options) { o.SearchDebounce = 50 * time.Millisecond })
	require.Eventually(t, func() bool { return len(h.lists()) == 1 }, time.Second, 5*time.Millisecond)

	h.s.Dispatch(Intent{Action: ActionFilterSearch, Value: "stale"})
	h.s.Dispatch(Intent{Action: ActionClearFilters})

	require.Eventually(t, func() bool { return len(h.lists()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, h.lists(), 2)
	assert.Empty(t, h.s.Store().Get().Filters.Search)
}

func TestAutoRefreshSingleTicker(t *testing.T) {
	b := labtest.NewBackend(t)
	h := start(t, b, looped, func(o *Options) { o.AutoRefreshInterval = 20 * time.Millisecond })
	require.Eventually(t, func() bool { return len(h.lists()) == 1 }, time.Second, 5*time.Millisecond)

	h.s.Dispatch(Intent{Action: ActionAutoRefresh, Checked: true})
	h.s.Dispatch(Intent{Action: ActionAutoRefresh, Checked: true})

	require.Eventually(t, func() bool { return h.s.Store().Get().AutoRefresh }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.s.tickers.Load() == 1 }, time.Second, 5*time.Millisecond,
		"enabling twice replaces the ticker instead of adding one")
	require.Eventually(t, func() bool { return len(h.lists()) >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, strings.Count(h.toasts(), "Auto-refresh enabled ("))

	h.s.Dispatch(Intent{Action: ActionAutoRefresh, Checked: false})
	require.Eventually(t, func() bool { return h.s.tickers.Load() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, h.s.Store().Get().AutoRefresh)
	assert.Contains(t, h.toasts(), "Auto-refresh disabled.")

	time.Sleep(30 * time.Millisecond)
	n := len(h.lists())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, n, len(h.lists()), "no reloads after disabling")
}

func TestCloseStopsTicker(t *testing.T) {
	b := labtest.NewBackend(t)
	h := start(t, b, looped, func(o *Options) { o.AutoRefreshInterval = 20 * time.Millisecond })
	h.s.Dispatch(Intent{Action: ActionAutoRefresh, Checked: true})
	require.Eventually(t, func() bool { return h.s.tickers.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.s.Close()
	require.Eventually(t, func() bool { return h.s.tickers.Load() == 0 }, time.Second, 5*time.Millisecond)
}

func TestToastDismissedAfterTTL(t *testing.T) {
	b := labtest.NewBackend(t)
	h := start(t, b, looped, func(o *Options) { o.ToastTTL = 100 * time.Millisecond })

	h.s.Dispatch(Intent{Action: ActionAutoRefresh, Checked: false})
	require.Eventually(t, func() bool { return len(h.doc.Children(render.RegionToasts)) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(h.doc.Children(render.RegionToasts)) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSeconds(t *testing.T) {
	if got := seconds(DefaultAutoRefreshInterval); got != "30s" {
		t.Errorf("seconds = %q, want 30s", got)
	}
}

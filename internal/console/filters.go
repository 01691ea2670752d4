package console

import (
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/state"
)

// handleFilterSearch restarts the debounce timer on every keystroke; only
// the last value of a burst reaches the backend.
func (s *Session) handleFilterSearch(in Intent) {
	s.stopSearchTimer()
	s.searchSeq++
	seq, value := s.searchSeq, in.Value
	s.searchTimer = time.AfterFunc(s.opts.SearchDebounce, func() {
		s.exec.Post(func() {
			if seq != s.searchSeq {
				return
			}
			s.searchTimer = nil
			f := s.store.Get().Filters
			f.Search = value
			s.store.Set(state.WithFilters(f), state.Page(1))
			s.loadMachines()
		})
	})
}

func (s *Session) stopSearchTimer() {
	if s.searchTimer != nil {
		s.searchTimer.Stop()
		s.searchTimer = nil
	}
}

func (s *Session) handleFilterSelect(in Intent) {
	f := s.store.Get().Filters
	switch in.Action {
	case ActionFilterStatus:
		f.Status = in.Value
	case ActionFilterUsedFor:
		f.UsedFor = in.Value
	case ActionFilterType:
		f.MachineType = in.Value
	}
	s.store.Set(state.WithFilters(f), state.Page(1))
	s.loadMachines()
}

// handleClearFilters resets every filter and the filter controls. A pending
// search is dropped.
func (s *Session) handleClearFilters(Intent) {
	s.stopSearchTimer()
	s.searchSeq++
	s.store.Set(state.WithFilters(state.Filters{}), state.Page(1))
	s.apply(s.r.Filters(state.Filters{}))
	s.loadMachines()
}

// handlePage moves to a page. Pages outside 1..Pages are ignored, as the
// page controls render them disabled.
func (s *Session) handlePage(in Intent) {
	n, err := strconv.Atoi(strings.TrimSpace(in.Page))
	if err != nil {
		return
	}
	if n < 1 || n > s.store.Get().Pages {
		return
	}
	s.store.Set(state.Page(n))
	s.loadMachines()
}

func (s *Session) handleRefresh(Intent) {
	s.loadMachines()
}

// handleAutoRefresh turns the periodic reload on or off. Enabling replaces
// any running ticker, so at most one reloads per session.
func (s *Session) handleAutoRefresh(in Intent) {
	on := in.Checked || in.Value == "true"
	interval := s.opts.AutoRefreshInterval
	if on {
		wasOn := s.autoStop != nil
		s.stopAutoRefresh()
		s.startAutoRefresh(interval)
		s.store.Set(state.AutoRefresh(true))
		if !wasOn {
			s.toast("Auto-refresh enabled ("+seconds(interval)+").", render.ToastInfo)
		}
		return
	}
	s.stopAutoRefresh()
	s.store.Set(state.AutoRefresh(false))
	s.toast("Auto-refresh disabled.", render.ToastInfo)
}

func (s *Session) startAutoRefresh(interval time.Duration) {
	s.autoSeq++
	seq := s.autoSeq
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	ctx := s.ctx
	s.tickers.Add(1)
	go func() {
		defer s.tickers.Add(-1)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.exec.Post(func() {
					if seq == s.autoSeq && s.autoStop != nil {
						s.loadMachines()
					}
				})
			}
		}
	}()
	s.autoStop = func() { close(done) }
}

func (s *Session) stopAutoRefresh() {
	if s.autoStop == nil {
		return
	}
	s.autoStop()
	s.autoStop = nil
	s.autoSeq++
}

package browser

import (
	"sync"
	"time"

	"outreach/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type eventThrottler struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[string]time.Time
	now      func() time.Time
}

func newEventThrottler(interval time.Duration) *eventThrottler {
	if interval <= 0 {
		return nil
	}
	return &eventThrottler{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether an event under key may pass. A nil throttler passes
// everything.
func (t *eventThrottler) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

// startEventStream keeps session metadata in step with the page and surfaces
// page-side errors in the browser log. The stream lives as long as the
// browser connection.
func (m *SessionManager) startEventStream(sessionID string, page *rod.Page) {
	throttler := newEventThrottler(m.cfg.EventThrottle)

	wait := page.EachEvent(
		func(ev *proto.PageFrameNavigated) {
			if ev.Frame.ParentID != "" {
				return
			}
			m.UpdateMetadata(sessionID, func(s Session) Session {
				s.URL = ev.Frame.URL
				s.LastActive = time.Now()
				return s
			})
			logging.BrowserDebug("[session:%s] navigated to %s", sessionID, ev.Frame.URL)
		},
		func(ev *proto.RuntimeExceptionThrown) {
			if !throttler.Allow("exception") {
				return
			}
			logging.BrowserWarn("[session:%s] page exception: %s", sessionID, ev.ExceptionDetails.Text)
		},
	)
	go wait()
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach/internal/adapter"
	"outreach/internal/logging"

	"github.com/go-rod/rod"
)

var (
	// ErrNoActiveTab means no regular web page is open in the browser.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrInstallFailed means the page script could not be installed.
	ErrInstallFailed = errors.New("page adapter install failed")
)

const visibilityCheckTimeout = 2 * time.Second

// Tab is a browser page the engine can drive.
type Tab struct {
	sessionID string
	page      *rod.Page
	url       string
	opts      adapter.Options
}

// SessionID returns the tracked session id of the tab.
func (t *Tab) SessionID() string { return t.sessionID }

// URL returns the tab's address when it was discovered.
func (t *Tab) URL() string { return t.url }

// Install puts the page script into the page and returns an adapter bound
// to it.
func (t *Tab) Install(ctx context.Context) (*adapter.Adapter, error) {
	rt := adapter.NewRodRuntime(t.page)
	if err := rt.Install(ctx); err != nil {
		logging.BrowserError("install adapter in %s: %v", t.url, err)
		return nil, fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	return adapter.New(rt, t.opts), nil
}

// pageState is what a page reports about itself.
type pageState struct {
	URL     string `json:"url"`
	Visible bool   `json:"visible"`
	Focused bool   `json:"focused"`
}

const pageStateJS = `() => ({
	url: location.href,
	visible: document.visibilityState === "visible",
	focused: document.hasFocus(),
})`

// pickForeground returns the index of the foreground page: the first one
// that is visible and focused, else the first visible one, else -1.
// Browser-internal pages never qualify.
func pickForeground(states []pageState) int {
	firstVisible := -1
	for i, s := range states {
		if isInternalURL(s.URL) || !s.Visible {
			continue
		}
		if s.Focused {
			return i
		}
		if firstVisible < 0 {
			firstVisible = i
		}
	}
	return firstVisible
}

// ActiveTab returns the tab the user is looking at.
func (m *SessionManager) ActiveTab(ctx context.Context) (*Tab, error) {
	if err := m.ensureStarted(ctx); err != nil {
		return nil, err
	}
	browser, err := m.currentBrowser()
	if err != nil {
		return nil, err
	}
	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	states := make([]pageState, len(pages))
	for i, page := range pages {
		res, err := page.Context(ctx).Timeout(visibilityCheckTimeout).Evaluate(&rod.EvalOptions{
			JS:      pageStateJS,
			ByValue: true,
		})
		if err != nil || res == nil {
			logging.BrowserDebug("skip page %s: %v", page.TargetID, err)
			continue
		}
		if err := res.Value.Unmarshal(&states[i]); err != nil {
			logging.BrowserDebug("skip page %s: %v", page.TargetID, err)
			states[i] = pageState{}
		}
	}

	idx := pickForeground(states)
	if idx < 0 {
		return nil, ErrNoActiveTab
	}
	page, url := pages[idx], states[idx].URL
	id := m.track(page, url, StatusAttached)
	logging.BrowserDebug("foreground tab %s: %s", id, url)
	return m.newTab(id, page, url), nil
}

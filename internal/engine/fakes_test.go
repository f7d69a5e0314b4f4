package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"outreach/internal/adapter"
	"outreach/internal/operation"
	"outreach/internal/store"
	"outreach/internal/types"

	"github.com/stretchr/testify/require"
)

const searchURL = "https://www.linkedin.com/search/results/people/?keywords=engineer"

// fakeAdapter serves scripted result pages.
type fakeAdapter struct {
	mu         sync.Mutex
	pages      [][]types.Profile
	page       int
	scrapes    int
	scrapeFail string
	panicOn    string
	failIDs    map[string]bool
	invites    []adapter.InviteRequest

	// entered receives a value each time SendInvite starts; release, when
	// set, must be closed before SendInvite returns.
	entered chan string
	release chan struct{}
}

func (f *fakeAdapter) Scrape(context.Context) adapter.ScrapeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrapes++
	if f.panicOn == "scrape" {
		panic("scrape exploded")
	}
	if f.scrapeFail != "" {
		return adapter.ScrapeResult{Reason: f.scrapeFail}
	}
	if f.page >= len(f.pages) {
		return adapter.ScrapeResult{OK: true}
	}
	profiles := f.pages[f.page]
	return adapter.ScrapeResult{OK: true, Profiles: profiles, Count: len(profiles)}
}

func (f *fakeAdapter) SendInvite(_ context.Context, req adapter.InviteRequest) adapter.InviteResult {
	f.mu.Lock()
	f.invites = append(f.invites, req)
	entered, release := f.entered, f.release
	fail := f.failIDs[req.ProfileID]
	f.mu.Unlock()

	if entered != nil {
		entered <- req.ProfileID
	}
	if release != nil {
		<-release
	}
	if fail {
		return adapter.InviteResult{Reason: adapter.ReasonConnectNotFound, ProfileID: req.ProfileID}
	}
	reason := adapter.ReasonSent
	if req.Simulate {
		reason = adapter.ReasonSimulated
	}
	return adapter.InviteResult{OK: true, Reason: reason, ProfileID: req.ProfileID}
}

func (f *fakeAdapter) NextPage(context.Context) adapter.NextResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.page+1 >= len(f.pages) {
		return adapter.NextResult{Reason: adapter.ReasonNextDisabled}
	}
	f.page++
	return adapter.NextResult{OK: true, Reason: adapter.ReasonNavigated, Navigated: true}
}

func (f *fakeAdapter) sentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.invites))
	for _, r := range f.invites {
		ids = append(ids, r.ProfileID)
	}
	return ids
}

func (f *fakeAdapter) scrapeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrapes
}

type fakeTab struct {
	url        string
	adapter    PageAdapter
	installErr error
}

func (t *fakeTab) URL() string { return t.url }

func (t *fakeTab) Install(context.Context) (PageAdapter, error) {
	if t.installErr != nil {
		return nil, t.installErr
	}
	return t.adapter, nil
}

type fakeTabs struct {
	tab *fakeTab
	err error
}

func (f *fakeTabs) ActiveTab(context.Context) (Tab, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.tab == nil {
		return nil, errors.New("no tab")
	}
	return f.tab, nil
}

func prof(id, title string, connect bool) types.Profile {
	return types.Profile{
		ProfileID:        id,
		Name:             "Person " + id,
		Title:            title,
		Location:         "Berlin",
		HasConnectButton: connect,
	}
}

type harness struct {
	engine   *Engine
	store    store.Store
	settings *store.Settings
	tabs     *fakeTabs
	page     *fakeAdapter
}

func newHarness(t *testing.T, pages ...[]types.Profile) *harness {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:", store.DefaultLogCap)
	require.NoError(t, err)

	page := &fakeAdapter{pages: pages}
	h := &harness{
		store:    s,
		settings: store.NewSettings(s),
		tabs:     &fakeTabs{tab: &fakeTab{url: searchURL, adapter: page}},
		page:     page,
	}
	h.engine = New(h.tabs, h.settings, s, Options{
		Simulate: true,
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, h.engine.Shutdown(ctx))
		require.NoError(t, s.Close())
	})
	return h
}

func (h *harness) configure(t *testing.T, values map[string]any) {
	t.Helper()
	require.NoError(t, h.settings.SaveOperationConfig(context.Background(), operation.Connect, values))
}

func connectConfig(dailyLimit int, note string) map[string]any {
	return map[string]any{
		operation.KeyJobTitle:     "engineer",
		operation.KeyLocation:     "",
		operation.KeyMinMutual:    0,
		operation.KeyDailyLimit:   dailyLimit,
		operation.KeyPersonalNote: note,
	}
}

// waitRun blocks until the run loop has fully exited.
func (h *harness) waitRun(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.engine.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("run loop did not exit")
	}
}

// events returns the logged entries oldest first.
func (h *harness) events(t *testing.T) []store.LogEntry {
	t.Helper()
	entries, err := h.store.Recent(context.Background(), 0)
	require.NoError(t, err)
	out := make([]store.LogEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func countEvents(entries []store.LogEntry, event store.EventType) int {
	n := 0
	for _, e := range entries {
		if e.EventType == event {
			n++
		}
	}
	return n
}

func eventTypes(entries []store.LogEntry) []store.EventType {
	out := make([]store.EventType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EventType)
	}
	return out
}

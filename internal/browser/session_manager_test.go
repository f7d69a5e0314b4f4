package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickForeground(t *testing.T) {
	tests := []struct {
		name   string
		states []pageState
		want   int
	}{
		{"no pages", nil, -1},
		{"nothing visible", []pageState{{URL: "https://a.test"}, {URL: "https://b.test"}}, -1},
		{"focused wins over earlier visible", []pageState{
			{URL: "https://a.test", Visible: true},
			{URL: "https://b.test", Visible: true, Focused: true},
		}, 1},
		{"first visible when none focused", []pageState{
			{URL: "https://a.test"},
			{URL: "https://b.test", Visible: true},
			{URL: "https://c.test", Visible: true},
		}, 1},
		{"internal pages skipped", []pageState{
			{URL: "chrome://newtab/", Visible: true, Focused: true},
			{URL: "https://www.linkedin.com/search/results/people/", Visible: true},
		}, 1},
		{"focused but hidden ignored", []pageState{
			{URL: "https://a.test", Focused: true},
			{URL: "https://b.test", Visible: true},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickForeground(tt.states))
		})
	}
}

func TestIsInternalURL(t *testing.T) {
	assert.True(t, isInternalURL("about:blank"))
	assert.True(t, isInternalURL("devtools://devtools/bundled/inspector.html"))
	assert.True(t, isInternalURL("chrome-extension://abc/popup.html"))
	assert.False(t, isInternalURL("https://www.linkedin.com/feed/"))
}

func TestConfigFallbacks(t *testing.T) {
	var c Config
	assert.Equal(t, 1440, c.GetViewportWidth())
	assert.Equal(t, 900, c.GetViewportHeight())
	assert.Equal(t, 30*time.Second, c.GetNavigationTimeout())

	c = Config{ViewportWidth: 800, ViewportHeight: 600, NavigationTimeout: time.Second}
	assert.Equal(t, 800, c.GetViewportWidth())
	assert.Equal(t, 600, c.GetViewportHeight())
	assert.Equal(t, time.Second, c.GetNavigationTimeout())
}

func TestEventThrottler(t *testing.T) {
	var nilThrottler *eventThrottler
	assert.True(t, nilThrottler.Allow("x"))
	assert.Nil(t, newEventThrottler(0))

	now := time.Unix(100, 0)
	th := newEventThrottler(time.Second)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow("exception"))
	assert.False(t, th.Allow("exception"))
	assert.True(t, th.Allow("console"), "keys are throttled independently")

	now = now.Add(time.Second)
	assert.True(t, th.Allow("exception"))
}

func TestSessionBookkeeping(t *testing.T) {
	m := NewSessionManager(DefaultConfig())
	assert.False(t, m.IsConnected())
	assert.Empty(t, m.List())
	assert.Empty(t, m.ControlURL())

	m.sessions["s1"] = &sessionRecord{meta: Session{ID: "s1", Status: StatusAttached}}
	m.UpdateMetadata("s1", func(s Session) Session {
		s.URL = "https://www.linkedin.com/search/results/people/"
		return s
	})
	m.UpdateMetadata("missing", func(s Session) Session {
		s.URL = "about:blank"
		return s
	})

	sessions := m.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "https://www.linkedin.com/search/results/people/", sessions[0].URL)
}

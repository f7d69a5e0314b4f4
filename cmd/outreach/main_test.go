package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"outreach/internal/browser"
	"outreach/internal/config"
	"outreach/internal/control"
	"outreach/internal/decision"
	"outreach/internal/engine"
	"outreach/internal/operation"
	"outreach/internal/store"
	"outreach/internal/types"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedFields(t *testing.T) {
	require.NoError(t, configSetCmd.ParseFlags([]string{"--job-title", "engineer", "--daily-limit=10", "--location", ""}))
	t.Cleanup(func() {
		configSetCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})

	assert.Equal(t, map[string]any{
		operation.KeyJobTitle:   "engineer",
		operation.KeyDailyLimit: "10",
		operation.KeyLocation:   "",
	}, changedFields(configSetCmd.Flags()))
}

func TestEngineOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.InviteDelay = "0s"
	cfg.Engine.PageDelay = "2s"

	opts := engineOptions(cfg, false)
	assert.Equal(t, time.Duration(0), opts.InviteDelay)
	assert.Equal(t, 2*time.Second, opts.PageDelay)
	assert.True(t, opts.Simulate)
	assert.Equal(t, cfg.Engine.TargetPrefix, opts.TargetPrefix)

	assert.False(t, engineOptions(cfg, true).Simulate, "--live overrides the config")

	cfg.Engine.SimulateInvites = false
	assert.False(t, engineOptions(cfg, false).Simulate)
}

func TestBrowserConfigFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.DebuggerURL = "ws://127.0.0.1:9222/devtools/browser/x"
	cfg.Adapter.PollInterval = "250ms"

	bc := browserConfig(cfg)
	assert.Equal(t, cfg.Browser.DebuggerURL, bc.DebuggerURL)
	assert.Equal(t, 250*time.Millisecond, bc.Adapter.PollInterval)
	assert.Equal(t, 6*time.Second, bc.Adapter.WaitTimeout)
	assert.NotNil(t, bc.Adapter.Now)
}

func TestPrintResponse(t *testing.T) {
	var buf bytes.Buffer
	printResponse(&buf, engine.Response{
		OK:      true,
		Message: "Dry run complete.",
		Status:  &engine.Status{State: engine.StateDryRun},
		Result: &engine.Result{
			Timestamp: time.Now().UnixMilli(),
			OpID:      operation.Connect,
			Profiles: []decision.Evaluated{
				{
					Profile: types.Profile{Name: "Alex Smith", Title: "Software Engineer", MutualConnections: 12},
					Result:  decision.Result{Outcome: decision.Invite, ReasonCode: decision.ReasonSuccess, Reason: "Matches filters."},
				},
			},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "DRY_RUN")
	assert.Contains(t, out, "Dry run complete.")
	assert.Contains(t, out, "1 profiles, 1 to invite")
	assert.Contains(t, out, "Alex Smith")
}

func TestPrintLogs(t *testing.T) {
	var buf bytes.Buffer
	printLogs(&buf, nil)
	assert.Contains(t, buf.String(), "No activity yet.")

	buf.Reset()
	used := true
	printLogs(&buf, []store.LogEntry{{
		Timestamp: time.Now().UnixMilli(),
		EventType: store.EventInviteSent,
		Page:      2,
		Profile:   &types.ProfileSummary{Name: "Jamie Lee"},
		Message:   "Invitation simulated.",
		NoteUsed:  &used,
	}})
	out := buf.String()
	assert.Contains(t, out, "invite_sent")
	assert.Contains(t, out, "Jamie Lee")
	assert.Contains(t, out, "with note")
}

func TestPrintOperationsMarksSelected(t *testing.T) {
	var buf bytes.Buffer
	printOperations(&buf, control.OperationsResponse{Selected: operation.Connect, Operations: operation.Registry})
	assert.Contains(t, buf.String(), "*")
	assert.Contains(t, buf.String(), string(operation.Connect))
}

func TestPrintDebug(t *testing.T) {
	var buf bytes.Buffer
	printDebug(&buf, engine.DebugResponse{
		OK:      true,
		Message: "Found 1 profiles.",
		Profiles: []types.Profile{
			{ProfileID: "outreach-1-0", Name: "Alex Smith", Title: "Software Engineer", HasConnectButton: true},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Found 1 profiles.")
	assert.Contains(t, out, "outreach-1-0")
	assert.Contains(t, out, "Alex Smith")

	buf.Reset()
	printDebug(&buf, engine.DebugResponse{Message: "Invite failed: connect_not_found.", ProfileID: "p2"})
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "profile p2")
}

func TestPrintTabs(t *testing.T) {
	var buf bytes.Buffer
	printTabs(&buf, control.TabsResponse{})
	assert.Contains(t, buf.String(), "browser not connected")
	assert.Contains(t, buf.String(), "No tracked tabs.")

	buf.Reset()
	printTabs(&buf, control.TabsResponse{Connected: true, Sessions: []browser.Session{
		{ID: "s1", Status: "active", URL: "https://www.linkedin.com/search/results/people/", LastActive: time.Now()},
	}})
	assert.NotContains(t, buf.String(), "not connected")
	assert.Contains(t, buf.String(), "s1")
}

func TestDebugCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range debugCmd.Commands() {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"scrape": true, "invite": true, "next": true, "tabs": true}, names)
	assert.NotNil(t, debugInviteCmd.Flags().Lookup("profile-id"))
	assert.NotNil(t, debugInviteCmd.Flags().Lookup("note"))
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "outreach.yaml")
	cfg := config.DefaultConfig()
	cfg.Control.Listen = "127.0.0.1:9000"

	require.NoError(t, writeConfig(path, cfg, false))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", loaded.Control.Listen)

	cfg.Control.Listen = "127.0.0.1:9001"
	err = writeConfig(path, cfg, false)
	require.ErrorIs(t, err, errConfigExists)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "127.0.0.1:9000", "existing file is kept")

	require.NoError(t, writeConfig(path, cfg, true))
	loaded, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9001", loaded.Control.Listen)
}

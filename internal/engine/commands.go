package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outreach/internal/decision"
	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/store"
	"outreach/internal/types"

	"github.com/google/uuid"
)

// Messages returned by rejected commands.
const (
	msgAlreadyRunning = "Already running."
	msgEngineRunning  = "Engine is running."
	msgEngineStopping = "Engine is stopping."
	msgNoActiveTab    = "No active tab."
	msgWrongTab       = "Active tab must be LinkedIn People search results."
	msgInstallFailed  = "Unable to install page adapter."
	msgEmptyBatch     = "Batch contained no profiles."
)

func reject(message string) Response {
	return Response{Message: message}
}

func configMessage(err error) string {
	var verr *operation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return fmt.Sprintf("Unable to load configuration: %v", err)
}

// Start validates the active configuration and the foreground tab, then
// launches the run loop and returns without waiting for it.
func (e *Engine) Start(ctx context.Context) Response {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	switch e.State() {
	case StateRunning:
		return Response{OK: true, Message: msgAlreadyRunning, Status: e.statusPtr()}
	case StateStopping:
		return reject(msgEngineStopping)
	}

	opID, cfg, err := e.activeConfig(ctx)
	if err != nil {
		logging.EngineWarn("start rejected: %v", err)
		return reject(configMessage(err))
	}
	opts := e.options()
	pa, msg := e.installOnActiveTab(ctx, opts.TargetPrefix)
	if pa == nil {
		return reject(msg)
	}

	run := &runContext{
		id:      uuid.NewString(),
		opID:    opID,
		config:  *cfg,
		opts:    opts,
		adapter: pa,
		page:    1,
		stop:    make(chan struct{}),
	}
	e.mu.Lock()
	e.run = run
	e.state = StateRunning
	e.activeOp = opID
	e.mu.Unlock()

	logging.Engine("engine started: run %s, op %s, daily limit %d, simulate %v",
		run.id, opID, cfg.DailyLimit, opts.Simulate)
	e.record(store.LogEntry{
		EventType: store.EventEngineState,
		OpID:      string(opID),
		RunID:     run.id,
		Message:   "Engine started.",
	})

	e.wg.Add(1)
	go e.loop(run)

	return Response{OK: true, Message: "Engine started.", Status: e.statusPtr()}
}

// installOnActiveTab gates on the foreground tab address and installs the
// page adapter. On failure it returns the rejection message.
func (e *Engine) installOnActiveTab(ctx context.Context, prefix string) (PageAdapter, string) {
	tab, err := e.tabs.ActiveTab(ctx)
	if err != nil || tab == nil {
		logging.EngineWarn("no active tab: %v", err)
		return nil, msgNoActiveTab
	}
	if !strings.HasPrefix(tab.URL(), prefix) {
		logging.EngineWarn("active tab %q is not a people search page", tab.URL())
		return nil, msgWrongTab
	}
	pa, err := tab.Install(ctx)
	if err != nil || pa == nil {
		logging.EngineError("install page adapter: %v", err)
		return nil, msgInstallFailed
	}
	return pa, ""
}

// Stop asks a running loop to end at its next checkpoint. It never waits for
// the loop.
func (e *Engine) Stop() Response {
	e.mu.Lock()
	var (
		msg   string
		runID string
		opID  string
	)
	switch {
	case e.run != nil && e.state == StateRunning:
		e.run.requestStop()
		e.state = StateStopping
		runID, opID = e.run.id, string(e.run.opID)
		msg = "Stopping."
	case e.state == StateStopping:
		msg = "Stopping."
	default:
		e.state = StateStopped
		msg = "Stopped."
	}
	e.mu.Unlock()

	logging.Engine("stop requested: %s", msg)
	if runID != "" {
		e.record(store.LogEntry{
			EventType: store.EventEngineState,
			OpID:      opID,
			RunID:     runID,
			Message:   "Stop requested.",
		})
	}
	return Response{OK: true, Message: msg}
}

// DryRun evaluates the built-in sample profiles against the active
// configuration and leaves the engine in DRY_RUN.
func (e *Engine) DryRun(ctx context.Context) Response {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	if s := e.State(); s == StateRunning || s == StateStopping {
		return reject(msgEngineRunning)
	}
	opID, cfg, err := e.activeConfig(ctx)
	if err != nil {
		logging.EngineWarn("dry run rejected: %v", err)
		return reject(configMessage(err))
	}

	e.mu.Lock()
	e.state = StateDryRun
	e.activeOp = opID
	e.mu.Unlock()

	batch := decision.EvaluateBatch(SampleProfiles(), cfg)
	e.record(evaluationEntries(batch, store.EventDryRunPreview, opID, "", 0)...)

	res := e.newResult(opID, cfg, batch)
	e.keepResult(ctx, res)
	logging.Engine("dry run evaluated %d sample profiles", len(batch))
	return Response{OK: true, Message: "Dry run complete.", Result: res}
}

// CollectOnce scrapes the foreground tab once and evaluates what it finds
// without sending anything.
func (e *Engine) CollectOnce(ctx context.Context) Response {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	if s := e.State(); s == StateRunning || s == StateStopping {
		return reject(msgEngineRunning)
	}
	pa, msg := e.installOnActiveTab(ctx, e.options().TargetPrefix)
	if pa == nil {
		return reject(msg)
	}

	scraped := pa.Scrape(ctx)
	if !scraped.OK {
		logging.EngineWarn("collect scrape failed: %s", scraped.Reason)
		return reject(fmt.Sprintf("Scrape failed: %s.", scraped.Reason))
	}
	opID, cfg, err := e.activeConfig(ctx)
	if err != nil {
		logging.EngineWarn("collect rejected: %v", err)
		return reject(configMessage(err))
	}

	e.mu.Lock()
	e.state = StateRunning
	e.activeOp = opID
	e.mu.Unlock()

	batch := decision.EvaluateBatch(scraped.Profiles, cfg)
	e.record(evaluationEntries(batch, store.EventProfileEvaluation, opID, "", 0)...)
	res := e.newResult(opID, cfg, batch)
	e.keepResult(ctx, res)

	e.mu.Lock()
	if e.state == StateRunning {
		e.state = StateReady
	}
	e.mu.Unlock()

	logging.Engine("collected %d profiles", len(batch))
	return Response{OK: true, Message: fmt.Sprintf("Collected %d profiles.", len(batch)), Result: res}
}

// ProfileBatch evaluates externally supplied profiles against the active
// configuration and logs each decision.
func (e *Engine) ProfileBatch(ctx context.Context, profiles []types.Profile) Response {
	if len(profiles) == 0 {
		return reject(msgEmptyBatch)
	}
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	opID, cfg, err := e.activeConfig(ctx)
	if err != nil {
		logging.EngineWarn("batch rejected: %v", err)
		return reject(configMessage(err))
	}
	batch := decision.EvaluateBatch(profiles, cfg)
	e.record(evaluationEntries(batch, store.EventProfileEvaluation, opID, "", 0)...)
	res := e.newResult(opID, cfg, batch)
	e.keepResult(ctx, res)
	return Response{OK: true, Message: fmt.Sprintf("Evaluated %d profiles.", len(batch)), Result: res}
}

// FetchLogs returns up to limit entries, newest first. A non-positive limit
// means DefaultLogLimit.
func (e *Engine) FetchLogs(ctx context.Context, limit int) LogsResponse {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	entries, err := e.logs.Recent(ctx, limit)
	if err != nil {
		logging.StoreError("fetch logs: %v", err)
		return LogsResponse{Message: "Log fetch failed.", Logs: []store.LogEntry{}}
	}
	if entries == nil {
		entries = []store.LogEntry{}
	}
	return LogsResponse{OK: true, Logs: entries}
}

// ClearLogs empties the activity log.
func (e *Engine) ClearLogs(ctx context.Context) Response {
	if err := e.logs.Clear(ctx); err != nil {
		logging.StoreError("clear logs: %v", err)
		return reject("Log clear failed.")
	}
	return Response{OK: true}
}

func (e *Engine) newResult(opID operation.ID, cfg *operation.ConnectConfig, batch []decision.Evaluated) *Result {
	snapshot := *cfg
	if batch == nil {
		batch = []decision.Evaluated{}
	}
	return &Result{
		Timestamp: e.options().Now().UnixMilli(),
		OpID:      opID,
		Config:    &snapshot,
		Profiles:  batch,
	}
}

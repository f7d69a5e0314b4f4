// Package engine runs outreach operations against a search results page.
//
// The engine is a single-owner state machine. Commands (start, stop, dry run,
// collect, batch evaluation) are serialized; the run loop is the only
// goroutine that drives the page while RUNNING and it observes stop requests
// at fixed checkpoints. Adapter actions already in flight are never cancelled
// by a stop request.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"outreach/internal/adapter"
	"outreach/internal/decision"
	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/store"
)

// State is the engine lifecycle state.
type State string

const (
	StateReady    State = "READY"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
	StateStopped  State = "STOPPED"
	StateDryRun   State = "DRY_RUN"
)

// DefaultTargetPrefix is the address every driven tab must start with.
const DefaultTargetPrefix = "https://www.linkedin.com/search/results/people"

// DefaultLogLimit is the number of entries FetchLogs returns by default.
const DefaultLogLimit = 20

// PageAdapter performs actions on an installed page.
type PageAdapter interface {
	Scrape(ctx context.Context) adapter.ScrapeResult
	SendInvite(ctx context.Context, req adapter.InviteRequest) adapter.InviteResult
	NextPage(ctx context.Context) adapter.NextResult
}

// Tab is a browser tab that can host a page adapter.
type Tab interface {
	URL() string
	Install(ctx context.Context) (PageAdapter, error)
}

// TabSource finds the foreground tab.
type TabSource interface {
	ActiveTab(ctx context.Context) (Tab, error)
}

// Options tunes a run. They are snapshotted when a run starts.
type Options struct {
	InviteDelay  time.Duration // after a successful invitation
	PageDelay    time.Duration // after advancing to the next page
	Simulate     bool          // stop every invitation short of submitting
	TargetPrefix string
	Now          func() time.Time
}

// DefaultOptions returns the standard run settings.
func DefaultOptions() Options {
	return Options{
		InviteDelay:  3500 * time.Millisecond,
		PageDelay:    3500 * time.Millisecond,
		Simulate:     true,
		TargetPrefix: DefaultTargetPrefix,
		Now:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.InviteDelay < 0 {
		o.InviteDelay = 0
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	}
	if o.TargetPrefix == "" {
		o.TargetPrefix = DefaultTargetPrefix
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result is the snapshot stored by dry runs, collections and batches.
type Result struct {
	Timestamp int64                    `json:"timestamp"`
	OpID      operation.ID             `json:"opId"`
	Config    *operation.ConnectConfig `json:"config"`
	Profiles  []decision.Evaluated     `json:"profiles"`
}

// Status is the engine as seen by callers.
type Status struct {
	State           State        `json:"state"`
	ActiveOperation operation.ID `json:"activeOperation,omitempty"`
	LastResult      *Result      `json:"lastResult,omitempty"`
	InvitesSent     int          `json:"invitesSent"`
	Page            int          `json:"page,omitempty"`
	RunID           string       `json:"runId,omitempty"`
	Simulate        bool         `json:"simulate"`
}

// Response answers an engine command. Rejected commands have OK false and a
// human readable Message.
type Response struct {
	OK      bool    `json:"ok"`
	Message string  `json:"message,omitempty"`
	Status  *Status `json:"status,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

// LogsResponse answers a log fetch.
type LogsResponse struct {
	OK      bool             `json:"ok"`
	Message string           `json:"message,omitempty"`
	Logs    []store.LogEntry `json:"logs"`
}

// Engine owns the run state.
type Engine struct {
	// cmdMu serializes commands that touch the page or the store.
	cmdMu sync.Mutex

	mu         sync.Mutex
	state      State
	activeOp   operation.ID
	run        *runContext
	lastResult *Result
	lastRun    runTotals
	opts       Options

	tabs     TabSource
	settings *store.Settings
	logs     store.LogSink

	// ctx outlives individual commands; run loops and their log writes use it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type runTotals struct {
	invites int
	page    int
}

// New returns an engine in READY state.
func New(tabs TabSource, settings *store.Settings, logs store.LogSink, opts Options) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		state:    StateReady,
		opts:     opts.withDefaults(),
		tabs:     tabs,
		settings: settings,
		logs:     logs,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Restore loads the last stored result so Status survives a restart.
func (e *Engine) Restore(ctx context.Context) error {
	var res Result
	err := e.settings.LastResult(ctx, &res)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.lastResult = &res
	e.activeOp = res.OpID
	e.mu.Unlock()
	return nil
}

// UpdateOptions replaces the run options. A run already in progress keeps the
// options it started with.
func (e *Engine) UpdateOptions(fn func(*Options)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	opts := e.opts
	fn(&opts)
	e.opts = opts.withDefaults()
	logging.EngineDebug("options updated: invite delay %v, page delay %v, simulate %v",
		e.opts.InviteDelay, e.opts.PageDelay, e.opts.Simulate)
}

func (e *Engine) options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status reports the state, the active operation, the last stored result and
// the invitations sent by the current run, or by the last finished run when
// idle.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() Status {
	s := Status{
		State:           e.state,
		ActiveOperation: e.activeOp,
		LastResult:      e.lastResult,
		InvitesSent:     e.lastRun.invites,
		Page:            e.lastRun.page,
		Simulate:        e.opts.Simulate,
	}
	if e.run != nil {
		s.InvitesSent = e.run.invitesSent
		s.Page = e.run.page
		s.RunID = e.run.id
		s.Simulate = e.run.opts.Simulate
	}
	return s
}

func (e *Engine) statusPtr() *Status {
	s := e.Status()
	return &s
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Shutdown stops any run and waits for the loop to exit or ctx to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Stop()
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activeConfig loads and validates the configuration of the selected
// operation.
func (e *Engine) activeConfig(ctx context.Context) (operation.ID, *operation.ConnectConfig, error) {
	opID, err := e.settings.SelectedOperation(ctx)
	if err != nil {
		return "", nil, err
	}
	if opID != operation.Connect {
		return opID, nil, &operation.ValidationError{Message: "Unsupported operation."}
	}
	raw, err := e.settings.OperationConfig(ctx, opID)
	if err != nil {
		return opID, nil, err
	}
	cfg := operation.Normalize(raw)
	if err := operation.Validate(cfg); err != nil {
		return opID, nil, err
	}
	return opID, cfg, nil
}

// record appends entries to the activity log. Failures are logged and
// otherwise ignored; the log never stops a run.
func (e *Engine) record(entries ...store.LogEntry) {
	if len(entries) == 0 {
		return
	}
	if err := e.logs.Append(context.WithoutCancel(e.ctx), entries); err != nil {
		logging.StoreError("append %d log entries: %v", len(entries), err)
	}
}

// keepResult stores res as the latest result.
func (e *Engine) keepResult(ctx context.Context, res *Result) {
	e.mu.Lock()
	e.lastResult = res
	e.activeOp = res.OpID
	e.mu.Unlock()
	if err := e.settings.SaveLastResult(ctx, res); err != nil {
		logging.StoreError("save last result: %v", err)
	}
}

func evaluationEntries(batch []decision.Evaluated, event store.EventType, opID operation.ID, runID string, page int) []store.LogEntry {
	entries := make([]store.LogEntry, 0, len(batch))
	for _, ev := range batch {
		summary := ev.Profile.Summary()
		entries = append(entries, store.LogEntry{
			EventType:  event,
			OpID:       string(opID),
			RunID:      runID,
			Decision:   string(ev.Outcome),
			ReasonCode: ev.ReasonCode,
			Reason:     ev.Reason,
			Profile:    &summary,
			Page:       page,
		})
	}
	return entries
}

package engine

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"outreach/internal/adapter"
	"outreach/internal/decision"
	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/store"
)

// runContext is the state of one run. Counters are guarded by Engine.mu.
type runContext struct {
	id      string
	opID    operation.ID
	config  operation.ConnectConfig
	opts    Options
	adapter PageAdapter

	page        int
	invitesSent int

	stopOnce sync.Once
	stop     chan struct{}
}

func (r *runContext) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *runContext) stopRequested() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Reasons a run ends, recorded in the run_ended entry.
const (
	endStopped       = "Stopped by request."
	endShutdown      = "Engine shut down."
	endNoProfiles    = "No profiles found."
	endScrapeFailed  = "Scrape failed"
	endDailyLimit    = "Daily limit reached."
	endLastPage      = "No further pages"
	endUnexpectedErr = "Unexpected error"
)

// loop drives pages until the run ends, then tears the run down. A panic
// anywhere in the run is recorded as an engine error.
func (e *Engine) loop(run *runContext) {
	defer e.wg.Done()

	timer := logging.StartTimer(logging.CategoryEngine, "run "+run.id)
	defer timer.Stop()

	reason := endUnexpectedErr
	defer func() { e.finish(run, reason) }()
	defer func() {
		if r := recover(); r != nil {
			logging.EngineError("run %s panicked: %v\n%s", run.id, r, debug.Stack())
			e.recordRun(run, store.LogEntry{
				EventType: store.EventEngineError,
				Message:   fmt.Sprintf("%v", r),
			})
			reason = endUnexpectedErr
		}
	}()

	reason = e.runPages(run)
}

// runPages is the body of a run. It returns why the run ended.
func (e *Engine) runPages(run *runContext) string {
	for {
		if end, stop := e.checkpoint(run); stop {
			return end
		}

		page := e.currentPage(run)
		scraped := run.adapter.Scrape(e.ctx)
		if !scraped.OK {
			e.recordRun(run, store.LogEntry{
				EventType:  store.EventEngineError,
				ReasonCode: scraped.Reason,
				Message:    fmt.Sprintf("Scrape failed on page %d.", page),
				Page:       page,
			})
			return fmt.Sprintf("%s: %s.", endScrapeFailed, scraped.Reason)
		}
		if len(scraped.Profiles) == 0 {
			e.recordRun(run, store.LogEntry{
				EventType: store.EventEngineState,
				Message:   fmt.Sprintf("No profiles found on page %d.", page),
				Page:      page,
			})
			return endNoProfiles
		}

		batch := decision.EvaluateBatch(scraped.Profiles, &run.config)
		e.record(evaluationEntries(batch, store.EventProfileEvaluation, run.opID, run.id, page)...)
		logging.Engine("page %d: %d profiles, %d eligible", page, len(batch), len(decision.Eligible(batch)))

		if end, stop := e.checkpoint(run); stop {
			return end
		}
		if end, done := e.inviteAll(run, decision.Eligible(batch), page); done {
			return end
		}
		if end, stop := e.checkpoint(run); stop {
			return end
		}

		next := run.adapter.NextPage(e.ctx)
		if !next.OK || !next.Navigated {
			e.recordRun(run, store.LogEntry{
				EventType:  store.EventEngineState,
				ReasonCode: next.Reason,
				Message:    fmt.Sprintf("Pagination ended on page %d.", page),
				Page:       page,
			})
			return fmt.Sprintf("%s: %s.", endLastPage, next.Reason)
		}
		e.mu.Lock()
		run.page++
		page = run.page
		e.mu.Unlock()
		e.recordRun(run, store.LogEntry{
			EventType: store.EventPageAdvanced,
			Message:   fmt.Sprintf("Advanced to page %d.", page),
			Page:      page,
		})
		if !e.pause(run, run.opts.PageDelay) {
			return e.interruption(run)
		}
	}
}

// inviteAll sends invitations to eligible profiles in order. It reports
// done when the run must end.
func (e *Engine) inviteAll(run *runContext, eligible []decision.Evaluated, page int) (string, bool) {
	for _, ev := range eligible {
		if end, stop := e.checkpoint(run); stop {
			return end, true
		}
		if e.invitesSent(run) >= run.config.DailyLimit {
			e.recordRun(run, store.LogEntry{
				EventType: store.EventDailyLimitReached,
				Message:   fmt.Sprintf("Daily limit of %d invitations reached.", run.config.DailyLimit),
				Page:      page,
			})
			return endDailyLimit, true
		}

		note := run.config.RenderNote(ev.Name)
		noteUsed := note != ""
		summary := ev.Profile.Summary()
		res := run.adapter.SendInvite(e.ctx, adapter.InviteRequest{
			ProfileID: ev.ProfileID,
			Note:      note,
			Simulate:  run.opts.Simulate,
		})

		entry := store.LogEntry{
			ReasonCode: res.Reason,
			Profile:    &summary,
			NoteUsed:   &noteUsed,
			Page:       page,
		}
		if !res.OK {
			entry.EventType = store.EventInviteFailed
			entry.Message = fmt.Sprintf("Invitation to %s failed.", ev.Name)
			e.recordRun(run, entry)
			logging.EngineWarn("invite to %s failed: %s", ev.ProfileID, res.Reason)
			continue
		}

		e.mu.Lock()
		run.invitesSent++
		sent := run.invitesSent
		e.mu.Unlock()
		entry.EventType = store.EventInviteSent
		entry.Message = fmt.Sprintf("Invitation %d/%d sent to %s.", sent, run.config.DailyLimit, ev.Name)
		e.recordRun(run, entry)
		logging.Engine("invite %d/%d to %s (%s)", sent, run.config.DailyLimit, ev.ProfileID, res.Reason)

		if !e.pause(run, run.opts.InviteDelay) {
			return e.interruption(run), true
		}
	}
	return "", false
}

// checkpoint reports whether the run must end before its next action.
func (e *Engine) checkpoint(run *runContext) (string, bool) {
	if run.stopRequested() || e.ctx.Err() != nil {
		return e.interruption(run), true
	}
	return "", false
}

func (e *Engine) interruption(run *runContext) string {
	if e.ctx.Err() != nil && !run.stopRequested() {
		return endShutdown
	}
	return endStopped
}

// pause waits d unless the run is stopped or the engine shuts down first.
func (e *Engine) pause(run *runContext, d time.Duration) bool {
	if d <= 0 {
		return !run.stopRequested() && e.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-run.stop:
		return false
	case <-e.ctx.Done():
		return false
	}
}

func (e *Engine) currentPage(run *runContext) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return run.page
}

func (e *Engine) invitesSent(run *runContext) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return run.invitesSent
}

func (e *Engine) recordRun(run *runContext, entry store.LogEntry) {
	entry.OpID = string(run.opID)
	entry.RunID = run.id
	e.record(entry)
}

// finish clears the run context and returns the engine to READY.
func (e *Engine) finish(run *runContext, reason string) {
	e.mu.Lock()
	sent, page := run.invitesSent, run.page
	if e.run == run {
		e.run = nil
		e.lastRun = runTotals{invites: sent, page: page}
		e.state = StateReady
	}
	e.mu.Unlock()
	run.requestStop()

	logging.Engine("run %s ended after %d invitations on %d pages: %s", run.id, sent, page, reason)
	e.recordRun(run, store.LogEntry{
		EventType: store.EventRunEnded,
		Message:   fmt.Sprintf("%s Invitations sent: %d.", reason, sent),
		Page:      page,
	})
}

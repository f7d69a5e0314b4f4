package engine

import (
	"context"
	"fmt"

	"outreach/internal/adapter"
	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/types"
)

// DebugResponse answers a direct page action. Reason carries the adapter's
// reason code.
type DebugResponse struct {
	OK        bool            `json:"ok"`
	Message   string          `json:"message,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Profiles  []types.Profile `json:"profiles,omitempty"`
	ProfileID string          `json:"profileId,omitempty"`
	Navigated bool            `json:"navigated,omitempty"`
}

const msgNoProfiles = "No profiles on the page."

// debugAdapter gates a direct page action the same way a run is gated.
// Direct actions never run alongside the loop.
func (e *Engine) debugAdapter(ctx context.Context) (PageAdapter, *DebugResponse) {
	if s := e.State(); s == StateRunning || s == StateStopping {
		return nil, &DebugResponse{Message: msgEngineRunning}
	}
	pa, msg := e.installOnActiveTab(ctx, e.options().TargetPrefix)
	if pa == nil {
		return nil, &DebugResponse{Message: msg}
	}
	return pa, nil
}

// DebugScrape scrapes the foreground tab and returns the raw profiles
// without evaluating or logging them.
func (e *Engine) DebugScrape(ctx context.Context) DebugResponse {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	pa, rejected := e.debugAdapter(ctx)
	if rejected != nil {
		return *rejected
	}
	res := pa.Scrape(ctx)
	if !res.OK {
		return DebugResponse{Reason: res.Reason, Message: fmt.Sprintf("Scrape failed: %s.", res.Reason)}
	}
	logging.EngineDebug("debug scrape found %d profiles", len(res.Profiles))
	return DebugResponse{
		OK:       true,
		Message:  fmt.Sprintf("Found %d profiles.", len(res.Profiles)),
		Profiles: res.Profiles,
	}
}

// DebugInvite walks the invitation flow for profileID, or for the first
// profile on the page when profileID is empty. It always simulates: the
// flow stops short of submitting.
func (e *Engine) DebugInvite(ctx context.Context, profileID, note string) DebugResponse {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	pa, rejected := e.debugAdapter(ctx)
	if rejected != nil {
		return *rejected
	}
	if profileID == "" {
		scraped := pa.Scrape(ctx)
		if !scraped.OK {
			return DebugResponse{Reason: scraped.Reason, Message: fmt.Sprintf("Scrape failed: %s.", scraped.Reason)}
		}
		if len(scraped.Profiles) == 0 {
			return DebugResponse{Message: msgNoProfiles}
		}
		profileID = scraped.Profiles[0].ProfileID
	}

	res := pa.SendInvite(ctx, adapter.InviteRequest{
		ProfileID: profileID,
		Note:      operation.TruncateNote(note),
		Simulate:  true,
	})
	logging.EngineDebug("debug invite %s: ok=%v reason=%s", profileID, res.OK, res.Reason)
	if !res.OK {
		return DebugResponse{Reason: res.Reason, ProfileID: profileID, Message: fmt.Sprintf("Invite failed: %s.", res.Reason)}
	}
	return DebugResponse{OK: true, Reason: res.Reason, ProfileID: profileID, Message: "Invite simulated."}
}

// DebugNextPage clicks the pagination control once.
func (e *Engine) DebugNextPage(ctx context.Context) DebugResponse {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	pa, rejected := e.debugAdapter(ctx)
	if rejected != nil {
		return *rejected
	}
	res := pa.NextPage(ctx)
	if !res.OK {
		return DebugResponse{Reason: res.Reason, Message: fmt.Sprintf("Next page failed: %s.", res.Reason)}
	}
	return DebugResponse{OK: true, Reason: res.Reason, Navigated: res.Navigated, Message: "Next page clicked."}
}

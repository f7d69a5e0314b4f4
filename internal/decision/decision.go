// Package decision decides whether a candidate profile gets an invitation
// under a connect configuration. Evaluation is pure: no I/O, no clocks.
package decision

import (
	"fmt"
	"strings"

	"outreach/internal/operation"
	"outreach/internal/types"
)

// Outcome is the verdict for one profile.
type Outcome string

const (
	Invite Outcome = "invite"
	Skip   Outcome = "skip"
)

// Machine-stable reason codes.
const (
	ReasonSuccess                = "success"
	ReasonMissingProfileOrConfig = "missing_profile_or_config"
	ReasonNoConnectButton        = "no_connect_button"
	ReasonJobTitleMismatch       = "job_title_mismatch"
	ReasonLocationMismatch       = "location_mismatch"
	ReasonMutualConnectionsLow   = "mutual_connections_low"
)

// Result is the output of Evaluate.
type Result struct {
	Outcome    Outcome `json:"decision"`
	ReasonCode string  `json:"reasonCode"`
	Reason     string  `json:"reason"`
}

// Evaluated pairs a profile with its decision.
type Evaluated struct {
	types.Profile
	Result
}

// Evaluate applies the connect rules in fixed order; the first failing rule wins.
func Evaluate(p *types.Profile, cfg *operation.ConnectConfig) Result {
	if p == nil || cfg == nil {
		return skip(ReasonMissingProfileOrConfig, "Missing profile/config.")
	}
	if !p.HasConnectButton {
		return skip(ReasonNoConnectButton, "Connect button not available.")
	}
	if !containsFold(p.Title, cfg.JobTitleKeyword) {
		return skip(ReasonJobTitleMismatch, "Job title does not match keyword.")
	}
	if cfg.LocationKeyword != "" && !containsFold(p.Location, cfg.LocationKeyword) {
		return skip(ReasonLocationMismatch, "Location does not match keyword.")
	}
	if p.MutualConnections < cfg.MinMutualConnections {
		return skip(ReasonMutualConnectionsLow,
			fmt.Sprintf("Requires ≥ %d mutual connections", cfg.MinMutualConnections))
	}
	return Result{Outcome: Invite, ReasonCode: ReasonSuccess, Reason: "Meets criteria."}
}

// EvaluateBatch evaluates profiles in input order.
func EvaluateBatch(profiles []types.Profile, cfg *operation.ConnectConfig) []Evaluated {
	out := make([]Evaluated, 0, len(profiles))
	for i := range profiles {
		out = append(out, Evaluated{
			Profile: profiles[i],
			Result:  Evaluate(&profiles[i], cfg),
		})
	}
	return out
}

// Eligible returns the invite-eligible entries of a batch, preserving order.
func Eligible(batch []Evaluated) []Evaluated {
	var out []Evaluated
	for _, e := range batch {
		if e.Outcome == Invite {
			out = append(out, e)
		}
	}
	return out
}

// containsFold reports whether keyword is a case-insensitive substring of text.
// An empty keyword matches anything; an empty text matches nothing else.
func containsFold(text, keyword string) bool {
	if keyword == "" {
		return true
	}
	if text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

func skip(code, message string) Result {
	return Result{Outcome: Skip, ReasonCode: code, Reason: message}
}

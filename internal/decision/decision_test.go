package decision

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"outreach/internal/operation"
	"outreach/internal/types"
)

func baseConfig() *operation.ConnectConfig {
	return &operation.ConnectConfig{JobTitleKeyword: "engineer", DailyLimit: 20}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		profile *types.Profile
		cfg     *operation.ConnectConfig
		outcome Outcome
		code    string
	}{
		{
			name:    "scenario invite",
			profile: &types.Profile{Title: "Senior Software Engineer", HasConnectButton: true, MutualConnections: 12},
			cfg:     baseConfig(),
			outcome: Invite,
			code:    ReasonSuccess,
		},
		{
			name:    "button check precedes title check",
			profile: &types.Profile{Title: "Product Manager", HasConnectButton: false, MutualConnections: 1},
			cfg:     baseConfig(),
			outcome: Skip,
			code:    ReasonNoConnectButton,
		},
		{
			name:    "nil profile",
			cfg:     baseConfig(),
			outcome: Skip,
			code:    ReasonMissingProfileOrConfig,
		},
		{
			name:    "nil config",
			profile: &types.Profile{Title: "Engineer", HasConnectButton: true},
			outcome: Skip,
			code:    ReasonMissingProfileOrConfig,
		},
		{
			name:    "title mismatch",
			profile: &types.Profile{Title: "Designer", HasConnectButton: true, MutualConnections: 50},
			cfg:     baseConfig(),
			outcome: Skip,
			code:    ReasonJobTitleMismatch,
		},
		{
			name:    "empty title",
			profile: &types.Profile{HasConnectButton: true},
			cfg:     baseConfig(),
			outcome: Skip,
			code:    ReasonJobTitleMismatch,
		},
		{
			name:    "case insensitive title",
			profile: &types.Profile{Title: "ENGINEERING Lead", HasConnectButton: true},
			cfg:     baseConfig(),
			outcome: Invite,
			code:    ReasonSuccess,
		},
		{
			name:    "location mismatch",
			profile: &types.Profile{Title: "Engineer", Location: "Paris", HasConnectButton: true},
			cfg:     &operation.ConnectConfig{JobTitleKeyword: "engineer", LocationKeyword: "berlin", DailyLimit: 1},
			outcome: Skip,
			code:    ReasonLocationMismatch,
		},
		{
			name:    "location match unicode",
			profile: &types.Profile{Title: "Engineer", Location: "München, Bayern", HasConnectButton: true},
			cfg:     &operation.ConnectConfig{JobTitleKeyword: "engineer", LocationKeyword: "MÜNCHEN", DailyLimit: 1},
			outcome: Invite,
			code:    ReasonSuccess,
		},
		{
			name:    "mutual below minimum",
			profile: &types.Profile{Title: "Engineer", HasConnectButton: true, MutualConnections: 2},
			cfg:     &operation.ConnectConfig{JobTitleKeyword: "engineer", MinMutualConnections: 3, DailyLimit: 1},
			outcome: Skip,
			code:    ReasonMutualConnectionsLow,
		},
		{
			name:    "mutual at minimum",
			profile: &types.Profile{Title: "Engineer", HasConnectButton: true, MutualConnections: 3},
			cfg:     &operation.ConnectConfig{JobTitleKeyword: "engineer", MinMutualConnections: 3, DailyLimit: 1},
			outcome: Invite,
			code:    ReasonSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.profile, tt.cfg)
			if got.Outcome != tt.outcome || got.ReasonCode != tt.code {
				t.Fatalf("Evaluate() = %+v, want %s/%s", got, tt.outcome, tt.code)
			}
			if got.Reason == "" {
				t.Fatalf("Evaluate() returned empty reason")
			}
		})
	}
}

func TestEvaluateMutualReasonMessage(t *testing.T) {
	got := Evaluate(
		&types.Profile{Title: "Engineer", HasConnectButton: true},
		&operation.ConnectConfig{JobTitleKeyword: "engineer", MinMutualConnections: 5, DailyLimit: 1},
	)
	if got.Reason != "Requires ≥ 5 mutual connections" {
		t.Fatalf("unexpected reason %q", got.Reason)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := &types.Profile{Name: "A", Title: "Staff Engineer", Location: "Remote", MutualConnections: 7, HasConnectButton: true}
	cfg := &operation.ConnectConfig{JobTitleKeyword: "engineer", LocationKeyword: "remote", MinMutualConnections: 2, DailyLimit: 3}
	before := *p
	first := Evaluate(p, cfg)
	second := Evaluate(p, cfg)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Evaluate not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, *p); diff != "" {
		t.Fatalf("Evaluate mutated profile:\n%s", diff)
	}
}

func TestNoConnectButtonDominates(t *testing.T) {
	cfgs := []*operation.ConnectConfig{
		baseConfig(),
		{JobTitleKeyword: "zzz", LocationKeyword: "nowhere", MinMutualConnections: 99, DailyLimit: 1},
	}
	profiles := []types.Profile{
		{Title: "Engineer", MutualConnections: 100},
		{Title: "", Location: "", MutualConnections: 0},
	}
	for _, cfg := range cfgs {
		for i := range profiles {
			got := Evaluate(&profiles[i], cfg)
			if got.ReasonCode != ReasonNoConnectButton {
				t.Fatalf("profile %d cfg %+v: got %s", i, cfg, got.ReasonCode)
			}
		}
	}
}

func TestEvaluateBatchPreservesOrder(t *testing.T) {
	profiles := []types.Profile{
		{ProfileID: "a", Title: "Engineer", HasConnectButton: true},
		{ProfileID: "b", Title: "Manager", HasConnectButton: true},
		{ProfileID: "c", Title: "Engineer II", HasConnectButton: false},
		{ProfileID: "d", Title: "engineer", HasConnectButton: true},
	}
	batch := EvaluateBatch(profiles, baseConfig())
	gotIDs := make([]string, 0, len(batch))
	for _, e := range batch {
		gotIDs = append(gotIDs, e.ProfileID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, gotIDs); diff != "" {
		t.Fatalf("order mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(profiles[1], batch[1].Profile); diff != "" {
		t.Fatalf("batch entry not paired with original record:\n%s", diff)
	}

	eligible := Eligible(batch)
	if len(eligible) != 2 || eligible[0].ProfileID != "a" || eligible[1].ProfileID != "d" {
		t.Fatalf("Eligible() = %+v", eligible)
	}
	if len(EvaluateBatch(nil, baseConfig())) != 0 {
		t.Fatalf("empty batch should evaluate to empty result")
	}
}

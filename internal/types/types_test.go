package types

import "testing"

func TestFirstToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alex Smith", "Alex"},
		{"  Jamie   Lee ", "Jamie"},
		{"Cher", "Cher"},
		{"", ""},
		{"   ", ""},
		{" Ana Ruiz", "Ana"},
		{"Zoë Müller", "Zoë"},
	}
	for _, tt := range tests {
		if got := FirstToken(tt.in); got != tt.want {
			t.Errorf("FirstToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProfileSummary(t *testing.T) {
	p := Profile{
		ProfileID:         "outreach-1-0",
		Name:              "Alex Smith",
		Title:             "Engineer",
		Location:          "Berlin",
		MutualConnections: 4,
		HasConnectButton:  true,
	}
	s := p.Summary()
	if s.ProfileID != p.ProfileID || s.Name != p.Name || s.Title != p.Title || s.Location != p.Location {
		t.Fatalf("Summary() = %+v, want fields copied from %+v", s, p)
	}
}

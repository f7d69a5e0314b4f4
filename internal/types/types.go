// Package types provides shared type definitions used across outreach packages.
// This package exists to break import cycles between adapter, decision, engine and store.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import "strings"

// =============================================================================
// CANDIDATE PROFILES
// =============================================================================

// Profile is one candidate scraped from a People search results page.
// ProfileID is the value of the data-outreach-id marker written onto the
// result container; it stays stable for the lifetime of that DOM element.
type Profile struct {
	ProfileID         string `json:"profileId"`
	Name              string `json:"name"`
	Title             string `json:"title"`
	Location          string `json:"location"`
	MutualConnections int    `json:"mutualConnections"`
	HasConnectButton  bool   `json:"hasConnectButton"`
}

// ProfileSummary is the part of a profile that survives into the log.
type ProfileSummary struct {
	ProfileID string `json:"profileId,omitempty"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Location  string `json:"location"`
}

// Summary returns the loggable summary of the profile.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ProfileID: p.ProfileID,
		Name:      p.Name,
		Title:     p.Title,
		Location:  p.Location,
	}
}

// FirstToken returns the first whitespace separated token of s.
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

package engine

import "outreach/internal/types"

// SampleProfiles returns the fixed profiles evaluated by a dry run.
func SampleProfiles() []types.Profile {
	return []types.Profile{
		{
			ProfileID:         "sample-alex-smith",
			Name:              "Alex Smith",
			Title:             "Senior Software Engineer at ExampleCorp",
			Location:          "San Francisco Bay Area",
			MutualConnections: 12,
			HasConnectButton:  true,
		},
		{
			ProfileID:         "sample-jamie-lee",
			Name:              "Jamie Lee",
			Title:             "Product Manager",
			Location:          "New York",
			MutualConnections: 1,
			HasConnectButton:  false,
		},
	}
}

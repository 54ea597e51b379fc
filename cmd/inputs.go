package main

import (
	"fmt"

	"github.com/cwbudde/mspfilter/internal/profile"
)

// loadProfiles reads a profile file and builds its optimized form.
func loadProfiles(path string) (*profile.Profile, *profile.Optimized, error) {
	gm, err := profile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	om, err := profile.Convert(gm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert profile %s: %w", path, err)
	}
	return gm, om, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/littlehawk93/ihex"
	"github.com/littlehawk93/ihex/ihexfile"
)

func loadGroupFromFile(path string) (*ihex.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	opts := ihexfile.Options{
		ThrowOnInvalidRecord:    cfg.ThrowOnInvalidRecord,
		ThrowOnChecksumMismatch: cfg.ThrowOnChecksumMismatch,
		UnusedFill:              cfg.UnusedFill,
	}

	group, err := ihexfile.LoadGroup(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return group, nil
}

// Package ihexconfig provides configuration management for ihexctl. It
// reads settings from ihexctl.ini using multiple search paths, the way
// foenixmgr.ini is located for the Foenix flashing tool.
package ihexconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Config holds the defaults ihexctl falls back to when a flag is not
// supplied on the command line.
type Config struct {
	// UnusedFill is the byte substituted for addresses not covered by any
	// section's block map.
	UnusedFill byte

	// DefaultBlockSize bounds the size of any single block produced by
	// set_data/fill_data and governs compact.
	DefaultBlockSize uint

	// ThrowOnInvalidRecord and ThrowOnChecksumMismatch mirror
	// ihexfile.Options: whether a malformed line or bad checksum aborts
	// loading or is silently skipped.
	ThrowOnInvalidRecord    bool
	ThrowOnChecksumMismatch bool
}

// Load reads configuration from ihexctl.ini in the following search order:
//  1. Current directory (./ihexctl.ini)
//  2. $IHEXCTL_HOME directory ($IHEXCTL_HOME/ihexctl.ini)
//  3. Home directory (~/ihexctl.ini)
//
// If no file is found in any of these locations, Load returns the built-in
// defaults rather than an error: an ini file is optional, unlike
// foenixmgr's required one.
func Load() (*Config, error) {
	var searchPaths []string

	searchPaths = append(searchPaths, filepath.Join(".", "ihexctl.ini"))

	if homeDir := os.Getenv("IHEXCTL_HOME"); homeDir != "" {
		searchPaths = append(searchPaths, filepath.Join(homeDir, "ihexctl.ini"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "ihexctl.ini"))
	}

	var iniFile *ini.File
	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			loaded, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
			iniFile = loaded
			break
		}
	}

	if iniFile == nil {
		iniFile = ini.Empty()
	}

	section := iniFile.Section("DEFAULT")

	return &Config{
		UnusedFill:              byte(section.Key("unused_fill").MustInt(0xFF)),
		DefaultBlockSize:        uint(section.Key("default_block_size").MustUint(16)),
		ThrowOnInvalidRecord:    section.Key("throw_on_invalid_record").MustBool(true),
		ThrowOnChecksumMismatch: section.Key("throw_on_checksum_mismatch").MustBool(true),
	}, nil
}

// Package ihexfile is the thin file-I/O collaborator around package ihex:
// it reads a stream of HEX text lines into a Group and writes a Group back
// out as a stream of HEX text lines. It carries no CLI or logging concerns
// of its own, matching the "external collaborator" role the core package
// leaves to its caller.
package ihexfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/littlehawk93/ihex"
)

// Options toggles the two load-time policies the core delegates to its
// file-I/O collaborator.
type Options struct {
	// ThrowOnInvalidRecord aborts LoadGroup on the first syntactically
	// malformed line when true; when false, the line is skipped.
	ThrowOnInvalidRecord bool

	// ThrowOnChecksumMismatch aborts LoadGroup on the first record whose
	// checksum disagrees with its computed value when true; when false,
	// the record is skipped.
	ThrowOnChecksumMismatch bool

	// UnusedFill is the byte the resulting Group substitutes for any
	// absolute address not covered by a section's block map.
	UnusedFill byte
}

// DefaultOptions returns the conservative defaults: both policy toggles
// true, unused fill 0xFF.
func DefaultOptions() Options {
	return Options{
		ThrowOnInvalidRecord:    true,
		ThrowOnChecksumMismatch: true,
		UnusedFill:              0xFF,
	}
}

// LoadGroup reads HEX text lines from r and assembles them into a Group,
// starting a new Section each time a non-DATA record arrives (the builder
// path that lets a freshly-started empty section adopt its first record's
// kind, per the core's "implicit kind promotion" contract).
func LoadGroup(r io.Reader, opts Options) (*ihex.Group, error) {
	group := ihex.NewGroup(opts.UnusedFill)
	scanner := bufio.NewScanner(r)

	current := ihex.NewDataSection(opts.UnusedFill)
	started := false
	lineNum := 0

	flush := func() {
		if started {
			group.Push(current)
		}
		current = ihex.NewDataSection(opts.UnusedFill)
		started = false
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}

		rec, err := ihex.ParseRecord(line)
		if err != nil {
			if opts.ThrowOnInvalidRecord {
				return nil, &ihex.IndexedRecordError{RecordError: err, Index: lineNum}
			}
			continue
		}

		merged, err := current.PushRecord(rec)
		if err != nil {
			if opts.ThrowOnChecksumMismatch {
				return nil, &ihex.IndexedRecordError{RecordError: err, Index: lineNum}
			}
			continue
		}
		started = started || merged

		if !merged {
			// The current section refused rec (its kind is already fixed
			// and incompatible): close it out and start a fresh one.
			flush()
			merged, err = current.PushRecord(rec)
			if err != nil {
				if opts.ThrowOnChecksumMismatch {
					return nil, &ihex.IndexedRecordError{RecordError: err, Index: lineNum}
				}
				continue
			}
			started = merged
		}

		if rec.Kind == ihex.KindEndOfFile {
			flush()
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hex stream: %w", err)
	}
	flush()

	return group, nil
}

// SaveGroup writes every record in g, in document order, as a
// newline-terminated uppercase-hex Intel HEX line.
func SaveGroup(w io.Writer, g *ihex.Group) error {
	for _, rec := range g.Records() {
		if _, err := io.WriteString(w, rec.Encode()); err != nil {
			return fmt.Errorf("writing hex record: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("writing hex record: %w", err)
		}
	}
	return nil
}

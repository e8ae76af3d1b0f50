package ihex

import "sort"

// Address-space sizes for the three dialects, expressed as the first address
// past the end of the space (0x10000, 0x100000, 0x100000000 respectively).
const (
	spaceSizeI8HEX  uint64 = 0x10000
	spaceSizeI16HEX uint64 = 0x100000
	spaceSizeI32HEX uint64 = 0x100000000
)

func spaceSize(dialect DialectKind) uint64 {
	switch dialect {
	case I8HEX:
		return spaceSizeI8HEX
	case I16HEX:
		return spaceSizeI16HEX
	case I32HEX:
		return spaceSizeI32HEX
	default:
		return 0
	}
}

// AbsoluteFromRelative translates a relative address within the 64 KiB
// window opened by extended into an absolute address for the given dialect.
// extended is ignored for I8HEX.
func AbsoluteFromRelative(dialect DialectKind, rel RelativeAddress, extended uint16) AbsoluteAddress {
	switch dialect {
	case I16HEX:
		base := (uint32(extended) << 4) % uint32(spaceSizeI16HEX)
		return (base + uint32(rel)) % uint32(spaceSizeI16HEX)
	case I32HEX:
		base := uint32(extended) << 16
		return base + uint32(rel)
	default: // I8HEX
		return uint32(rel)
	}
}

// RelativeFromAbsolute is the inverse of AbsoluteFromRelative. It fails with
// ErrOutOfRange when abs does not lie within the 64 KiB window that extended
// opens for the given dialect.
func RelativeFromAbsolute(dialect DialectKind, abs AbsoluteAddress, extended uint16) (RelativeAddress, error) {
	switch dialect {
	case I16HEX:
		base := (uint32(extended) << 4) % uint32(spaceSizeI16HEX)
		diff := (abs + uint32(spaceSizeI16HEX) - base) % uint32(spaceSizeI16HEX)
		if diff >= 0x10000 {
			return 0, ErrOutOfRange
		}
		return uint16(diff), nil
	case I32HEX:
		base := uint32(extended) << 16
		diff := abs - base
		if diff >= 0x10000 {
			return 0, ErrOutOfRange
		}
		return uint16(diff), nil
	default: // I8HEX
		if abs >= uint32(spaceSizeI8HEX) {
			return 0, ErrOutOfRange
		}
		return uint16(abs), nil
	}
}

// MinAbsolute returns the lowest absolute address in the 64 KiB window that
// extended opens for the given dialect.
func MinAbsolute(dialect DialectKind, extended uint16) AbsoluteAddress {
	switch dialect {
	case I16HEX:
		return (uint32(extended) << 4) % uint32(spaceSizeI16HEX)
	case I32HEX:
		return uint32(extended) << 16
	default: // I8HEX
		return 0
	}
}

// MaxAbsolute returns the highest absolute address in the 64 KiB window that
// extended opens for the given dialect. For I16HEX windows that wrap (see
// HasSegmentWraparound), the returned value is the wrapped-around endpoint,
// numerically lower than MinAbsolute; use AddressMap-based coverage rather
// than a naive [min,max] range when wraparound is possible.
func MaxAbsolute(dialect DialectKind, extended uint16) AbsoluteAddress {
	switch dialect {
	case I16HEX:
		return (MinAbsolute(dialect, extended) + 0xFFFF) % uint32(spaceSizeI16HEX)
	case I32HEX:
		return MinAbsolute(dialect, extended) + 0xFFFF
	default: // I8HEX
		return 0xFFFF
	}
}

// HasSegmentWraparound reports whether the 64 KiB window opened by segment
// crosses the 20-bit I16HEX address boundary and aliases back to low
// addresses.
func HasSegmentWraparound(segment uint16) bool {
	return segment > 0xF000
}

// FindSegment returns the canonical I16HEX segment value whose 64 KiB
// window contains abs. It is only valid for abs <= 0xFFFFF.
func FindSegment(abs AbsoluteAddress) (uint16, error) {
	if abs > 0xFFFFF {
		return 0, ErrOutOfRange
	}
	return uint16((abs >> 16) << 12), nil
}

// FindLinear returns the I32HEX linear (upper 16 bits) of abs.
func FindLinear(abs AbsoluteAddress) uint16 {
	return uint16(abs >> 16)
}

// PreviousSegment returns the segment value one 64 KiB window below s,
// wrapping modulo 2^16.
func PreviousSegment(s uint16) uint16 {
	return s - 0x1000
}

// NextSegment returns the segment value one 64 KiB window above s, wrapping
// modulo 2^16.
func NextSegment(s uint16) uint16 {
	return s + 0x1000
}

// PreviousLinear returns the linear value one window below l, wrapping
// modulo 2^16.
func PreviousLinear(l uint16) uint16 {
	return l - 1
}

// NextLinear returns the linear value one window above l, wrapping modulo
// 2^16.
func NextLinear(l uint16) uint16 {
	return l + 1
}

// SegmentsIntersect reports whether the two 64 KiB windows opened by s1 and
// s2 share any absolute address in the wrapped 20-bit I16HEX space.
func SegmentsIntersect(s1, s2 uint16) bool {
	diff := s1 - s2
	return diff <= 0xFFF || diff >= 0xF001
}

// LinearsIntersect reports whether the two I32HEX linear windows are the
// same window (linear windows are always aligned and either identical or
// disjoint).
func LinearsIntersect(l1, l2 uint16) bool {
	return l1 == l2
}

// IsValidRange reports whether size is nonzero and abs+size fits within the
// given dialect's address space without overflowing it.
func IsValidRange(dialect DialectKind, abs AbsoluteAddress, size DataSize) bool {
	if size < 1 {
		return false
	}
	return uint64(abs)+size <= spaceSize(dialect)
}

// IsValidRelativeRange reports whether size is nonzero and rel+size fits
// within a 64 KiB window.
func IsValidRelativeRange(rel RelativeAddress, size DataSize) bool {
	if size < 1 {
		return false
	}
	return uint64(rel)+size <= 0x10000
}

// AddressRange is a half-open byte range [Start, Start+Size).
type AddressRange struct {
	Start AbsoluteAddress
	Size  DataSize
}

// End returns the address one past the last byte in the range.
func (r AddressRange) End() uint64 {
	return uint64(r.Start) + r.Size
}

// AddressMap is an ordered set of address ranges, as produced by a
// Section's or Group's address_map()/data_map() views.
type AddressMap []AddressRange

// Compact returns a new AddressMap with overlapping and adjacent ranges
// merged, sorted by start address.
func (m AddressMap) Compact() AddressMap {
	if len(m) == 0 {
		return nil
	}
	sorted := make(AddressMap, len(m))
	copy(sorted, m)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make(AddressMap, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if uint64(next.Start) <= cur.End() {
			if next.End() > cur.End() {
				cur.Size = next.End() - uint64(cur.Start)
			}
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out
}

// IntersectAddressMaps reports whether any range in a shares a byte with any
// range in b. Both maps are compacted first so the sweep runs in
// O((|a|+|b|) log) time.
func IntersectAddressMaps(a, b AddressMap) bool {
	ca, cb := a.Compact(), b.Compact()
	i, j := 0, 0
	for i < len(ca) && j < len(cb) {
		ra, rb := ca[i], cb[j]
		if uint64(ra.Start) < rb.End() && uint64(rb.Start) < ra.End() {
			return true
		}
		if ra.End() <= rb.End() {
			i++
		} else {
			j++
		}
	}
	return false
}

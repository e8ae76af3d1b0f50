package ihex

import "fmt"

// Group is a whole HEX document's in-memory model: an ordered sequence of
// Sections obeying dialect-specific composition rules, plus a shared
// unused-fill byte that is propagated to every contained Section.
type Group struct {
	sections   []*Section
	unusedFill byte
}

// NewGroup constructs an empty Group with the given unused-fill byte.
func NewGroup(unusedFill byte) *Group {
	return &Group{unusedFill: unusedFill}
}

// UnusedFill returns the byte substituted for any absolute address not
// covered by any section's block map.
func (g *Group) UnusedFill() byte {
	return g.unusedFill
}

// Dialect derives the group's dialect from the sections it contains:
// I16HEX if any EXTENDED_SEGMENT or START_SEGMENT section is present, else
// I32HEX if any EXTENDED_LINEAR or START_LINEAR section is present, else
// I8HEX.
func (g *Group) Dialect() DialectKind {
	for _, s := range g.sections {
		if s.Kind == KindExtendedSegment || s.Kind == KindStartSegment {
			return I16HEX
		}
	}
	for _, s := range g.sections {
		if s.Kind == KindExtendedLinear || s.Kind == KindStartLinear {
			return I32HEX
		}
	}
	return I8HEX
}

// Len returns the number of sections in the group.
func (g *Group) Len() int {
	return len(g.sections)
}

// Section returns the section at the given document index.
func (g *Group) Section(index int) (*Section, bool) {
	if index < 0 || index >= len(g.sections) {
		return nil, false
	}
	return g.sections[index], true
}

// HasStartSegment reports whether a START_SEGMENT section already exists,
// without creating one.
func (g *Group) HasStartSegment() bool {
	return g.countKind(KindStartSegment) > 0
}

// HasStartLinear reports whether a START_LINEAR section already exists,
// without creating one.
func (g *Group) HasStartLinear() bool {
	return g.countKind(KindStartLinear) > 0
}

func (g *Group) countKind(kind RecordKind) int {
	n := 0
	for _, s := range g.sections {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// CanPush reports whether section may be inserted into the group, and at
// what index it would land by default if so. The rules are keyed by the
// group's current dialect and the incoming section's kind (see §4.4.1):
// DATA sections are only ever accepted into an I8HEX (or empty) group and
// only if no other DATA section exists yet; END_OF_FILE/START_SEGMENT/
// START_LINEAR are singletons; EXTENDED_SEGMENT sections must be disjoint
// from every existing EXTENDED_SEGMENT section; EXTENDED_LINEAR sections
// must be disjoint from every existing EXTENDED_LINEAR section.
func (g *Group) CanPush(section *Section) (index int, ok bool) {
	dialect := g.Dialect()
	empty := len(g.sections) == 0

	switch section.Kind {
	case KindData:
		if empty || dialect == I8HEX {
			if g.countKind(KindData) > 0 {
				return 0, false
			}
			return g.defaultInsertIndex(section.Kind), true
		}
		return 0, false

	case KindEndOfFile:
		if g.countKind(KindEndOfFile) > 0 {
			return 0, false
		}
		return g.defaultInsertIndex(section.Kind), true

	case KindExtendedSegment:
		if !empty && dialect != I16HEX {
			return 0, false
		}
		for _, s := range g.sections {
			if s.Kind != KindExtendedSegment {
				continue
			}
			if intersects, _ := s.CheckIntersect(section); intersects {
				return 0, false
			}
		}
		return g.defaultInsertIndex(section.Kind), true

	case KindStartSegment:
		if !empty && dialect != I16HEX {
			return 0, false
		}
		if g.countKind(KindStartSegment) > 0 {
			return 0, false
		}
		return g.defaultInsertIndex(section.Kind), true

	case KindExtendedLinear:
		if !empty && dialect != I32HEX {
			return 0, false
		}
		for _, s := range g.sections {
			if s.Kind != KindExtendedLinear {
				continue
			}
			if intersects, _ := s.CheckIntersect(section); intersects {
				return 0, false
			}
		}
		return g.defaultInsertIndex(section.Kind), true

	case KindStartLinear:
		if !empty && dialect != I32HEX {
			return 0, false
		}
		if g.countKind(KindStartLinear) > 0 {
			return 0, false
		}
		return g.defaultInsertIndex(section.Kind), true

	default:
		return 0, false
	}
}

// defaultInsertIndex returns the position a newly-pushed section of kind
// lands at: END_OF_FILE always goes last; everything else goes immediately
// before any existing END_OF_FILE section, or last if there is none.
func (g *Group) defaultInsertIndex(kind RecordKind) int {
	if kind == KindEndOfFile {
		return len(g.sections)
	}
	for i, s := range g.sections {
		if s.Kind == KindEndOfFile {
			return i
		}
	}
	return len(g.sections)
}

// Push inserts a copy of section into the group at its default index,
// overwriting the copy's unused_fill to match the group's. It returns false
// without modifying the group if CanPush refuses the section.
func (g *Group) Push(section *Section) bool {
	index, ok := g.CanPush(section)
	if !ok {
		return false
	}
	cp := *section
	cp.blocks = append([]block(nil), section.blocks...)
	cp.UnusedFill = g.unusedFill
	g.sections = append(g.sections, nil)
	copy(g.sections[index+1:], g.sections[index:])
	g.sections[index] = &cp
	return true
}

// CreateSection idempotently ensures that abs is covered by some section in
// the group, creating one if necessary, and returns it.
//
// I8HEX: ensures a single DATA section exists; fails with ErrOutOfRange if
// abs >= 0x10000.
//
// I16HEX: finds an existing EXTENDED_SEGMENT section already covering abs,
// else constructs one whose FindSegment matches abs and pushes it,
// retrying at ±0x1000 segment offsets if it would intersect an existing
// section, failing with ErrSegmentAlignment if no offset fits.
//
// I32HEX: finds or creates an EXTENDED_LINEAR section with linear ==
// FindLinear(abs); this never fails for alignment reasons, since linear
// windows are always disjoint.
func (g *Group) CreateSection(abs AbsoluteAddress) (*Section, error) {
	dialect := g.Dialect()

	switch dialect {
	case I8HEX:
		if abs >= 0x10000 {
			return nil, fmt.Errorf("create_section: %w", ErrOutOfRange)
		}
		for _, s := range g.sections {
			if s.Kind == KindData {
				return s, nil
			}
		}
		candidate := NewDataSection(g.unusedFill)
		index, ok := g.CanPush(candidate)
		if !ok {
			return nil, fmt.Errorf("create_section: %w", ErrInvariantViolation)
		}
		g.insertSectionAt(index, candidate)
		return g.sections[index], nil

	case I32HEX:
		linear := FindLinear(abs)
		for _, s := range g.sections {
			if s.Kind == KindExtendedLinear && s.linear == linear {
				return s, nil
			}
		}
		candidate := NewExtendedLinearSection(linear, g.unusedFill)
		index, ok := g.CanPush(candidate)
		if !ok {
			return nil, fmt.Errorf("create_section: %w", ErrInvariantViolation)
		}
		g.insertSectionAt(index, candidate)
		return g.sections[index], nil

	default: // I16HEX
		for _, s := range g.sections {
			if s.Kind != KindExtendedSegment {
				continue
			}
			if amap, err := s.AddressMap(); err == nil && addressInMap(amap, abs) {
				return s, nil
			}
		}

		// tryCandidate pushes a trial EXTENDED_SEGMENT section at segment
		// only if its window actually contains abs and it does not
		// intersect any existing section.
		tryCandidate := func(segment uint16) (*Section, bool) {
			candidate := NewExtendedSegmentSection(segment, g.unusedFill)
			amap, err := candidate.AddressMap()
			if err != nil || !addressInMap(amap, abs) {
				return nil, false
			}
			index, ok := g.CanPush(candidate)
			if !ok {
				return nil, false
			}
			g.insertSectionAt(index, candidate)
			return g.sections[index], true
		}

		if segment, err := FindSegment(abs); err == nil {
			if s, ok := tryCandidate(segment); ok {
				return s, nil
			}
		}

		// The canonical segment intersects an existing section: walk every
		// existing EXTENDED_SEGMENT section and try the segment one window
		// forward and one window back from it, keeping whichever still
		// covers abs and stays disjoint from everything already present.
		for _, existing := range g.sections {
			if existing.Kind != KindExtendedSegment {
				continue
			}
			if s, ok := tryCandidate(NextSegment(existing.segment)); ok {
				return s, nil
			}
			if s, ok := tryCandidate(PreviousSegment(existing.segment)); ok {
				return s, nil
			}
		}

		return nil, fmt.Errorf("create_section: %w", ErrSegmentAlignment)
	}
}

func (g *Group) insertSectionAt(index int, s *Section) {
	cp := *s
	cp.UnusedFill = g.unusedFill
	g.sections = append(g.sections, nil)
	copy(g.sections[index+1:], g.sections[index:])
	g.sections[index] = &cp
}

func addressInMap(m AddressMap, abs AbsoluteAddress) bool {
	for _, r := range m {
		if uint64(abs) >= uint64(r.Start) && uint64(abs) < r.End() {
			return true
		}
	}
	return false
}

// addressMap returns the union of every section's AddressMap, compacted.
func (g *Group) addressMap() AddressMap {
	var out AddressMap
	for _, s := range g.sections {
		if m, err := s.AddressMap(); err == nil {
			out = append(out, m...)
		}
	}
	return out.Compact()
}

func (g *Group) sectionCoveringAbsolute(abs AbsoluteAddress) (*Section, RelativeAddress, bool) {
	for _, s := range g.sections {
		m, err := s.AddressMap()
		if err != nil {
			continue
		}
		if !addressInMap(m, abs) {
			continue
		}
		rel, err := g.relativeWithinSection(s, abs)
		if err != nil {
			continue
		}
		return s, rel, true
	}
	return nil, 0, false
}

func (g *Group) relativeWithinSection(s *Section, abs AbsoluteAddress) (RelativeAddress, error) {
	switch s.Kind {
	case KindData:
		return RelativeFromAbsolute(I8HEX, abs, 0)
	case KindExtendedSegment:
		return RelativeFromAbsolute(I16HEX, abs, s.segment)
	case KindExtendedLinear:
		return RelativeFromAbsolute(I32HEX, abs, s.linear)
	default:
		return 0, fmt.Errorf("%w", ErrDomainMismatch)
	}
}

// GetData reads size bytes starting at the absolute address abs, reading
// unused_fill for any address not covered by a section.
func (g *Group) GetData(abs AbsoluteAddress, size DataSize) ([]byte, error) {
	dialect := g.Dialect()
	if !IsValidRange(dialect, abs, size) {
		return nil, fmt.Errorf("get_data: %w", ErrOutOfRange)
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = g.unusedFill
	}
	for i := DataSize(0); i < size; {
		cur := abs + AbsoluteAddress(i)
		s, rel, ok := g.sectionCoveringAbsolute(cur)
		if !ok {
			i++
			continue
		}
		remaining := size - i
		b, err := s.GetData(rel, minDataSize(remaining, 0x10000-DataSize(rel)))
		if err != nil {
			i++
			continue
		}
		copy(out[i:], b)
		i += DataSize(len(b))
	}
	return out, nil
}

func minDataSize(a, b DataSize) DataSize {
	if a < b {
		return a
	}
	return b
}

// SetData writes data at the absolute address abs, calling CreateSection
// first to materialize any missing coverage.
func (g *Group) SetData(abs AbsoluteAddress, data []byte) (int, error) {
	dialect := g.Dialect()
	if len(data) == 0 {
		return 0, nil
	}
	if !IsValidRange(dialect, abs, DataSize(len(data))) {
		return 0, fmt.Errorf("set_data: %w", ErrOutOfRange)
	}
	written := 0
	for written < len(data) {
		cur := abs + AbsoluteAddress(written)
		s, err := g.CreateSection(cur)
		if err != nil {
			return written, err
		}
		rel, err := g.relativeWithinSection(s, cur)
		if err != nil {
			return written, err
		}
		chunk := data[written:]
		if room := 0x10000 - int(rel); len(chunk) > room {
			chunk = chunk[:room]
		}
		n, err := s.SetData(rel, chunk)
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
		written += n
	}
	return written, nil
}

// FillData fills size bytes starting at abs with a single repeated byte,
// calling CreateSection first to materialize any missing coverage.
func (g *Group) FillData(abs AbsoluteAddress, size DataSize, b byte) (DataSize, error) {
	if size == 0 {
		return 0, nil
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = b
	}
	n, err := g.SetData(abs, data)
	return DataSize(n), err
}

// ClearData removes size bytes starting at abs from whichever sections
// cover that range.
func (g *Group) ClearData(abs AbsoluteAddress, size DataSize) (DataSize, error) {
	dialect := g.Dialect()
	if size == 0 {
		return 0, nil
	}
	if !IsValidRange(dialect, abs, size) {
		return 0, fmt.Errorf("clear_data: %w", ErrOutOfRange)
	}
	for i := DataSize(0); i < size; {
		cur := abs + AbsoluteAddress(i)
		s, rel, ok := g.sectionCoveringAbsolute(cur)
		if !ok {
			i++
			continue
		}
		remaining := size - i
		n, err := s.ClearData(rel, minDataSize(remaining, 0x10000-DataSize(rel)))
		if err != nil {
			i++
			continue
		}
		if n == 0 {
			i++
			continue
		}
		i += n
	}
	return size, nil
}

// codeSegmentSection lazily creates the group's single START_SEGMENT
// section.
func (g *Group) codeSegmentSection() (*Section, error) {
	if g.Dialect() != I16HEX {
		return nil, fmt.Errorf("code_segment: %w", ErrDomainMismatch)
	}
	for _, s := range g.sections {
		if s.Kind == KindStartSegment {
			return s, nil
		}
	}
	s := NewStartSegmentSection(0, 0, g.unusedFill)
	if !g.Push(s) {
		return nil, fmt.Errorf("code_segment: %w", ErrInvariantViolation)
	}
	for _, existing := range g.sections {
		if existing.Kind == KindStartSegment {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("code_segment: %w", ErrInvariantViolation)
}

// CodeSegment returns the group's CS register value from its START_SEGMENT
// section, lazily creating one if absent. Fails with ErrDomainMismatch on
// any dialect but I16HEX.
func (g *Group) CodeSegment() (uint16, error) {
	s, err := g.codeSegmentSection()
	if err != nil {
		return 0, err
	}
	cs, _, err := s.StartSegmentAddress()
	return cs, err
}

// SetCodeSegment updates the group's CS register value.
func (g *Group) SetCodeSegment(cs uint16) error {
	s, err := g.codeSegmentSection()
	if err != nil {
		return err
	}
	_, ip, _ := s.StartSegmentAddress()
	return s.SetStartSegmentAddress(cs, ip)
}

// InstructionPointer returns the group's IP register value from its
// START_SEGMENT section, lazily creating one if absent. Fails with
// ErrDomainMismatch on any dialect but I16HEX.
func (g *Group) InstructionPointer() (uint16, error) {
	s, err := g.codeSegmentSection()
	if err != nil {
		return 0, err
	}
	_, ip, err := s.StartSegmentAddress()
	return ip, err
}

// SetInstructionPointer updates the group's IP register value.
func (g *Group) SetInstructionPointer(ip uint16) error {
	s, err := g.codeSegmentSection()
	if err != nil {
		return err
	}
	cs, _, _ := s.StartSegmentAddress()
	return s.SetStartSegmentAddress(cs, ip)
}

// ExtendedInstructionPointer returns the group's EIP register value from
// its START_LINEAR section, lazily creating one if absent. Fails with
// ErrDomainMismatch on any dialect but I32HEX.
func (g *Group) ExtendedInstructionPointer() (uint32, error) {
	if g.Dialect() != I32HEX {
		return 0, fmt.Errorf("extended_instruction_pointer: %w", ErrDomainMismatch)
	}
	for _, s := range g.sections {
		if s.Kind == KindStartLinear {
			return s.StartLinearAddress()
		}
	}
	s := NewStartLinearSection(0, g.unusedFill)
	if !g.Push(s) {
		return 0, fmt.Errorf("extended_instruction_pointer: %w", ErrInvariantViolation)
	}
	for _, existing := range g.sections {
		if existing.Kind == KindStartLinear {
			return existing.StartLinearAddress()
		}
	}
	return 0, fmt.Errorf("extended_instruction_pointer: %w", ErrInvariantViolation)
}

// SetExtendedInstructionPointer updates the group's EIP register value.
func (g *Group) SetExtendedInstructionPointer(eip uint32) error {
	if g.Dialect() != I32HEX {
		return fmt.Errorf("extended_instruction_pointer: %w", ErrDomainMismatch)
	}
	for _, s := range g.sections {
		if s.Kind == KindStartLinear {
			return s.SetStartLinearAddress(eip)
		}
	}
	s := NewStartLinearSection(eip, g.unusedFill)
	if !g.Push(s) {
		return fmt.Errorf("extended_instruction_pointer: %w", ErrInvariantViolation)
	}
	return nil
}

// Records returns the full flattened record sequence in document order:
// each section's main record (if any) followed by its data blocks, with
// the END_OF_FILE section's record emitted last.
func (g *Group) Records() []Record {
	var out []Record
	for _, s := range g.sections {
		if s.Kind == KindEndOfFile {
			continue
		}
		out = append(out, s.Records()...)
	}
	for _, s := range g.sections {
		if s.Kind == KindEndOfFile {
			out = append(out, s.Records()...)
		}
	}
	return out
}

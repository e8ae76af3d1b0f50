package ihex

import (
	"fmt"
	"sort"
)

// defaultBlockSize is the traditional HEX record width, used whenever a
// Section is constructed without an explicit override.
const defaultBlockSize DataSize = 16

// block is one contiguous run of bytes at a relative offset within a
// Section's block map. Blocks are kept disjoint and sorted by Offset.
type block struct {
	Offset RelativeAddress
	Data   []byte
}

func (b block) end() uint32 {
	return uint32(b.Offset) + uint32(len(b.Data))
}

// Section is one logical chunk of a HEX document: a main record (whose kind
// is the section's kind) plus, for data-bearing kinds, an ordered map of
// disjoint data blocks. Behavior dispatches on Kind, following the same
// switch-per-operation style the teacher's own Record/RecordType pairing
// uses, rather than a family of per-kind types.
type Section struct {
	Kind             RecordKind
	UnusedFill       byte
	DefaultBlockSize DataSize

	blocks []block

	segment uint16   // EXTENDED_SEGMENT
	csIP    [2]uint16 // START_SEGMENT: cs, ip
	linear  uint16   // EXTENDED_LINEAR
	eip     uint32   // START_LINEAR
}

// NewDataSection constructs an empty DATA section.
func NewDataSection(fill byte) *Section {
	return &Section{Kind: KindData, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// NewEndOfFileSection constructs an END_OF_FILE section.
func NewEndOfFileSection(fill byte) *Section {
	return &Section{Kind: KindEndOfFile, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// NewExtendedSegmentSection constructs an empty EXTENDED_SEGMENT section for
// the given segment value.
func NewExtendedSegmentSection(segment uint16, fill byte) *Section {
	return &Section{Kind: KindExtendedSegment, segment: segment, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// NewStartSegmentSection constructs a START_SEGMENT section.
func NewStartSegmentSection(cs, ip uint16, fill byte) *Section {
	return &Section{Kind: KindStartSegment, csIP: [2]uint16{cs, ip}, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// NewExtendedLinearSection constructs an empty EXTENDED_LINEAR section for
// the given linear value.
func NewExtendedLinearSection(linear uint16, fill byte) *Section {
	return &Section{Kind: KindExtendedLinear, linear: linear, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// NewStartLinearSection constructs a START_LINEAR section.
func NewStartLinearSection(eip uint32, fill byte) *Section {
	return &Section{Kind: KindStartLinear, eip: eip, UnusedFill: fill, DefaultBlockSize: defaultBlockSize}
}

// SetDefaultBlockSize overrides the block-size cap used by SetData/FillData
// and Compact. It fails with ErrOutOfRange for sizes below 2.
func (s *Section) SetDefaultBlockSize(n DataSize) error {
	if n < 2 {
		return fmt.Errorf("default_block_size: %w", ErrOutOfRange)
	}
	s.DefaultBlockSize = n
	return nil
}

// Segment returns the 16-bit segment value of an EXTENDED_SEGMENT section.
// It fails with *InvalidRecordTypeError (an ErrDomainMismatch) on any other
// kind.
func (s *Section) Segment() (uint16, error) {
	if s.Kind != KindExtendedSegment {
		return 0, &InvalidRecordTypeError{InvalidKind: s.Kind, Dialect: I16HEX}
	}
	return s.segment, nil
}

// Linear returns the 16-bit linear value of an EXTENDED_LINEAR section. It
// fails with *InvalidRecordTypeError (an ErrDomainMismatch) on any other
// kind.
func (s *Section) Linear() (uint16, error) {
	if s.Kind != KindExtendedLinear {
		return 0, &InvalidRecordTypeError{InvalidKind: s.Kind, Dialect: I32HEX}
	}
	return s.linear, nil
}

// StartSegmentAddress returns the CS:IP pair of a START_SEGMENT section. It
// fails with *InvalidRecordTypeError (an ErrDomainMismatch) on any other
// kind.
func (s *Section) StartSegmentAddress() (cs, ip uint16, err error) {
	if s.Kind != KindStartSegment {
		return 0, 0, &InvalidRecordTypeError{InvalidKind: s.Kind, Dialect: I16HEX}
	}
	return s.csIP[0], s.csIP[1], nil
}

// SetStartSegmentAddress updates the CS:IP pair of a START_SEGMENT section.
func (s *Section) SetStartSegmentAddress(cs, ip uint16) error {
	if s.Kind != KindStartSegment {
		return fmt.Errorf("start_segment_address: %w", ErrDomainMismatch)
	}
	s.csIP = [2]uint16{cs, ip}
	return nil
}

// StartLinearAddress returns the EIP value of a START_LINEAR section. It
// fails with *InvalidRecordTypeError (an ErrDomainMismatch) on any other
// kind.
func (s *Section) StartLinearAddress() (uint32, error) {
	if s.Kind != KindStartLinear {
		return 0, &InvalidRecordTypeError{InvalidKind: s.Kind, Dialect: I32HEX}
	}
	return s.eip, nil
}

// SetStartLinearAddress updates the EIP value of a START_LINEAR section.
func (s *Section) SetStartLinearAddress(eip uint32) error {
	if s.Kind != KindStartLinear {
		return fmt.Errorf("start_linear_address: %w", ErrDomainMismatch)
	}
	s.eip = eip
	return nil
}

// ConvertToData converts the section in place to a DATA section, preserving
// its block map.
func (s *Section) ConvertToData() {
	s.Kind = KindData
}

// ConvertToEndOfFile converts the section in place to an END_OF_FILE
// section, clearing its block map.
func (s *Section) ConvertToEndOfFile() {
	s.blocks = nil
	s.Kind = KindEndOfFile
}

// ConvertToExtendedSegment converts the section in place to an
// EXTENDED_SEGMENT section with the given segment value, preserving its
// block map.
func (s *Section) ConvertToExtendedSegment(segment uint16) {
	s.Kind = KindExtendedSegment
	s.segment = segment
}

// ConvertToStartSegment converts the section in place to a START_SEGMENT
// section, clearing its block map.
func (s *Section) ConvertToStartSegment(cs, ip uint16) {
	s.blocks = nil
	s.Kind = KindStartSegment
	s.csIP = [2]uint16{cs, ip}
}

// ConvertToExtendedLinear converts the section in place to an
// EXTENDED_LINEAR section with the given linear value, preserving its block
// map.
func (s *Section) ConvertToExtendedLinear(linear uint16) {
	s.Kind = KindExtendedLinear
	s.linear = linear
}

// ConvertToStartLinear converts the section in place to a START_LINEAR
// section, clearing its block map.
func (s *Section) ConvertToStartLinear(eip uint32) {
	s.blocks = nil
	s.Kind = KindStartLinear
	s.eip = eip
}

func (s *Section) mainRecord() Record {
	switch s.Kind {
	case KindEndOfFile:
		return MakeEndOfFile()
	case KindExtendedSegment:
		return MakeExtendedSegment(s.segment)
	case KindStartSegment:
		return MakeStartSegment(s.csIP[0], s.csIP[1])
	case KindExtendedLinear:
		return MakeExtendedLinear(s.linear)
	case KindStartLinear:
		return MakeStartLinear(s.eip)
	default:
		return Record{}
	}
}

func (s *Section) blockRecord(i int) Record {
	b := s.blocks[i]
	r, _ := MakeData(b.Offset, b.Data)
	return r
}

// PushRecord attempts to merge rec into the section. It fails with
// ErrChecksumMismatch if rec's stored checksum is wrong, and with
// ErrOutOfRange if a DATA record's payload would cross the 64 KiB relative
// boundary. Otherwise it returns true if rec was merged, or false if rec's
// kind is not compatible with the section's current state (a refusal, not
// an error).
//
// An empty DATA section receiving a non-DATA record silently adopts that
// record's kind: this is how a freshly constructed section becomes whatever
// its first pushed record says it is.
func (s *Section) PushRecord(rec Record) (bool, error) {
	if !rec.IsValidChecksum() {
		return false, fmt.Errorf("push_record: %w", ErrChecksumMismatch)
	}

	if s.Kind == KindData && len(s.blocks) == 0 && rec.Kind != KindData {
		switch rec.Kind {
		case KindEndOfFile:
			s.ConvertToEndOfFile()
		case KindExtendedSegment:
			segment, err := rec.Segment()
			if err != nil {
				return false, fmt.Errorf("push_record: %w", err)
			}
			s.ConvertToExtendedSegment(segment)
		case KindStartSegment:
			cs, ip, err := rec.StartSegmentAddress()
			if err != nil {
				return false, fmt.Errorf("push_record: %w", err)
			}
			s.ConvertToStartSegment(cs, ip)
		case KindExtendedLinear:
			linear, err := rec.Linear()
			if err != nil {
				return false, fmt.Errorf("push_record: %w", err)
			}
			s.ConvertToExtendedLinear(linear)
		case KindStartLinear:
			eip, err := rec.StartLinearAddress()
			if err != nil {
				return false, fmt.Errorf("push_record: %w", err)
			}
			s.ConvertToStartLinear(eip)
		default:
			return false, nil
		}
		return true, nil
	}

	switch s.Kind {
	case KindData, KindExtendedSegment, KindExtendedLinear:
		if rec.Kind != KindData {
			return false, nil
		}
		if _, err := s.SetData(rec.Offset, rec.Data); err != nil {
			return false, fmt.Errorf("push_record: %w", err)
		}
		return true, nil
	default:
		// END_OF_FILE / START_SEGMENT / START_LINEAR accept no records.
		return false, nil
	}
}

// GetRecord enumerates the section's records in document order. For a
// non-data-bearing kind, index 0 is the main record. For EXTENDED_SEGMENT
// and EXTENDED_LINEAR, index 0 is the main record and indices 1..N are the
// data blocks in ascending-offset order. For a bare DATA section there is
// no main record: index 0 is the first block. An out-of-range index
// returns ok=false.
func (s *Section) GetRecord(index int) (rec Record, ok bool) {
	if index < 0 {
		return Record{}, false
	}
	if !s.Kind.IsDataBearing() {
		if index == 0 {
			return s.mainRecord(), true
		}
		return Record{}, false
	}
	if s.Kind == KindData {
		if index >= len(s.blocks) {
			return Record{}, false
		}
		return s.blockRecord(index), true
	}
	if index == 0 {
		return s.mainRecord(), true
	}
	bi := index - 1
	if bi >= len(s.blocks) {
		return Record{}, false
	}
	return s.blockRecord(bi), true
}

// Records returns every record GetRecord enumerates, in order.
func (s *Section) Records() []Record {
	var out []Record
	for i := 0; ; i++ {
		r, ok := s.GetRecord(i)
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out
}

func (s *Section) findBlockContaining(addr RelativeAddress) int {
	for i, b := range s.blocks {
		if addr >= b.Offset && uint32(addr) < b.end() {
			return i
		}
	}
	return -1
}

func (s *Section) nextBlockStartAfterIndex(bi int) int {
	if bi+1 < len(s.blocks) {
		return int(s.blocks[bi+1].Offset)
	}
	return -1
}

func (s *Section) nextBlockStartAfter(addr RelativeAddress) int {
	for _, b := range s.blocks {
		if b.Offset > addr {
			return int(b.Offset)
		}
	}
	return -1
}

func (s *Section) insertBlock(nb block) {
	i := sort.Search(len(s.blocks), func(i int) bool { return s.blocks[i].Offset > nb.Offset })
	s.blocks = append(s.blocks, block{})
	copy(s.blocks[i+1:], s.blocks[i:])
	s.blocks[i] = nb
}

// SetData merges data into the block map starting at rel. It fails with
// ErrDomainMismatch on a non-data-bearing section and ErrOutOfRange if the
// range would cross the 64 KiB relative boundary. Writes may extend an
// existing block only until it reaches DefaultBlockSize; past that, a new
// block starts. A write that reaches an existing block's start boundary
// stops one byte short of it; the remainder starts a fresh block or merges
// into that next block on a subsequent pass. It returns the number of bytes
// actually written.
func (s *Section) SetData(rel RelativeAddress, data []byte) (int, error) {
	if !s.Kind.IsDataBearing() {
		return 0, fmt.Errorf("set_data: %w", ErrDomainMismatch)
	}
	if len(data) == 0 {
		return 0, nil
	}
	if !IsValidRelativeRange(rel, DataSize(len(data))) {
		return 0, fmt.Errorf("set_data: %w", ErrOutOfRange)
	}

	written := 0
	addr := rel
	idx := 0
	blockCap := int(s.DefaultBlockSize)
	if blockCap < 2 {
		blockCap = 2
	}

	for idx < len(data) {
		if bi := s.findBlockContaining(addr); bi >= 0 {
			blk := &s.blocks[bi]
			nextStart := s.nextBlockStartAfterIndex(bi)
			for idx < len(data) {
				pos := int(addr) - int(blk.Offset)
				if pos < len(blk.Data) {
					blk.Data[pos] = data[idx]
				} else {
					if len(blk.Data) >= blockCap {
						break
					}
					if nextStart >= 0 && int(addr) >= nextStart {
						break
					}
					blk.Data = append(blk.Data, data[idx])
				}
				addr++
				idx++
				written++
			}
			continue
		}

		nextStart := s.nextBlockStartAfter(addr)
		nb := block{Offset: addr}
		for idx < len(data) && len(nb.Data) < blockCap {
			if nextStart >= 0 && int(addr) >= nextStart {
				break
			}
			nb.Data = append(nb.Data, data[idx])
			addr++
			idx++
			written++
		}
		s.insertBlock(nb)
	}

	return written, nil
}

// SetByte is SetData for a single byte.
func (s *Section) SetByte(rel RelativeAddress, b byte) (int, error) {
	return s.SetData(rel, []byte{b})
}

// FillData is SetData with a single repeated byte value.
func (s *Section) FillData(rel RelativeAddress, size DataSize, b byte) (DataSize, error) {
	if !s.Kind.IsDataBearing() {
		return 0, fmt.Errorf("fill_data: %w", ErrDomainMismatch)
	}
	if size == 0 {
		return 0, nil
	}
	if !IsValidRelativeRange(rel, size) {
		return 0, fmt.Errorf("fill_data: %w", ErrOutOfRange)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = b
	}
	n, err := s.SetData(rel, data)
	return DataSize(n), err
}

// ClearData removes bytes in [rel, rel+size) from the block map. A clear
// range that cuts through the middle of a block splits it into a preserved
// prefix and suffix. It returns the count of relative addresses visited,
// which is always size for a valid range, not the count of bytes actually
// removed.
func (s *Section) ClearData(rel RelativeAddress, size DataSize) (DataSize, error) {
	if !s.Kind.IsDataBearing() {
		return 0, fmt.Errorf("clear_data: %w", ErrDomainMismatch)
	}
	if size == 0 {
		return 0, nil
	}
	if !IsValidRelativeRange(rel, size) {
		return 0, fmt.Errorf("clear_data: %w", ErrOutOfRange)
	}

	reqStart := uint32(rel)
	reqEnd := reqStart + uint32(size)
	newBlocks := make([]block, 0, len(s.blocks))
	for _, blk := range s.blocks {
		blkStart := uint32(blk.Offset)
		blkEnd := blk.end()
		if blkEnd <= reqStart || blkStart >= reqEnd {
			newBlocks = append(newBlocks, blk)
			continue
		}
		if blkStart < reqStart {
			prefixLen := reqStart - blkStart
			newBlocks = append(newBlocks, block{Offset: blk.Offset, Data: append([]byte(nil), blk.Data[:prefixLen]...)})
		}
		if blkEnd > reqEnd {
			suffixLen := blkEnd - reqEnd
			newBlocks = append(newBlocks, block{Offset: RelativeAddress(reqEnd), Data: append([]byte(nil), blk.Data[uint32(len(blk.Data))-suffixLen:]...)})
		}
	}
	s.blocks = newBlocks
	return DataSize(size), nil
}

// ClearByte is ClearData for a single byte.
func (s *Section) ClearByte(rel RelativeAddress) (DataSize, error) {
	return s.ClearData(rel, 1)
}

// GetData reads size bytes starting at rel, substituting UnusedFill for any
// relative address not present in any block.
func (s *Section) GetData(rel RelativeAddress, size DataSize) ([]byte, error) {
	if !s.Kind.IsDataBearing() {
		return nil, fmt.Errorf("get_data: %w", ErrDomainMismatch)
	}
	if !IsValidRelativeRange(rel, size) {
		return nil, fmt.Errorf("get_data: %w", ErrOutOfRange)
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = s.UnusedFill
	}
	reqStart := uint32(rel)
	reqEnd := reqStart + uint32(size)
	for _, blk := range s.blocks {
		blkStart := uint32(blk.Offset)
		blkEnd := blk.end()
		lo, hi := blkStart, blkEnd
		if reqStart > lo {
			lo = reqStart
		}
		if reqEnd < hi {
			hi = reqEnd
		}
		for a := lo; a < hi; a++ {
			out[a-reqStart] = blk.Data[a-blkStart]
		}
	}
	return out, nil
}

// GetByte is GetData for a single byte.
func (s *Section) GetByte(rel RelativeAddress) (byte, error) {
	data, err := s.GetData(rel, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// FindAddress returns the block index containing rel, or ok=false if no
// block covers it.
func (s *Section) FindAddress(rel RelativeAddress) (int, bool) {
	idx := s.findBlockContaining(rel)
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// FindPreviousRecord returns the index of the block nearest to, but
// strictly ending before, rel.
func (s *Section) FindPreviousRecord(rel RelativeAddress) (int, bool) {
	best := -1
	for i, b := range s.blocks {
		if b.end() <= uint32(rel) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// FindNextRecord returns the index of the first block starting strictly
// after rel.
func (s *Section) FindNextRecord(rel RelativeAddress) (int, bool) {
	for i, b := range s.blocks {
		if b.Offset > rel {
			return i, true
		}
	}
	return 0, false
}

// Compact walks the block list in order, merging block N+1 into block N
// whenever they are adjacent and N has room below DefaultBlockSize.
func (s *Section) Compact() {
	blockCap := int(s.DefaultBlockSize)
	if blockCap < 2 {
		blockCap = 2
	}
	i := 0
	for i < len(s.blocks)-1 {
		a := &s.blocks[i]
		b := &s.blocks[i+1]
		if a.end() == uint32(b.Offset) && len(a.Data) < blockCap {
			room := blockCap - len(a.Data)
			take := room
			if take > len(b.Data) {
				take = len(b.Data)
			}
			a.Data = append(a.Data, b.Data[:take]...)
			b.Data = b.Data[take:]
			b.Offset += RelativeAddress(take)
			if len(b.Data) == 0 {
				s.blocks = append(s.blocks[:i+1], s.blocks[i+2:]...)
				continue
			}
		}
		i++
	}
}

// CheckIntersect reports whether s and other's windows overlap. It fails
// with ErrDomainMismatch unless both sections share the same kind, and also
// for any non-data-bearing kind (those have no address window to compare).
func (s *Section) CheckIntersect(other *Section) (bool, error) {
	if s.Kind != other.Kind {
		return false, fmt.Errorf("check_intersect: %w", ErrDomainMismatch)
	}
	switch s.Kind {
	case KindData:
		return true, nil
	case KindExtendedSegment:
		return SegmentsIntersect(s.segment, other.segment), nil
	case KindExtendedLinear:
		return LinearsIntersect(s.linear, other.linear), nil
	default:
		return false, fmt.Errorf("check_intersect: %w", ErrDomainMismatch)
	}
}

// AddressMap returns the set of absolute ranges this section's window
// covers: one range for a DATA or EXTENDED_LINEAR section, and one or two
// for an EXTENDED_SEGMENT section depending on whether it wraps the 20-bit
// boundary (see HasSegmentWraparound).
func (s *Section) AddressMap() (AddressMap, error) {
	switch s.Kind {
	case KindData:
		return AddressMap{{Start: 0, Size: 0x10000}}, nil
	case KindExtendedSegment:
		base := MinAbsolute(I16HEX, s.segment)
		if !HasSegmentWraparound(s.segment) {
			return AddressMap{{Start: base, Size: 0x10000}}, nil
		}
		sizeFirst := spaceSizeI16HEX - uint64(base)
		sizeSecond := 0x10000 - sizeFirst
		return AddressMap{{Start: base, Size: sizeFirst}, {Start: 0, Size: sizeSecond}}, nil
	case KindExtendedLinear:
		base := MinAbsolute(I32HEX, s.linear)
		return AddressMap{{Start: base, Size: 0x10000}}, nil
	default:
		return nil, fmt.Errorf("address_map: %w", ErrDomainMismatch)
	}
}

func (s *Section) absoluteForOffset(rel RelativeAddress) (AbsoluteAddress, error) {
	switch s.Kind {
	case KindData:
		return AbsoluteFromRelative(I8HEX, rel, 0), nil
	case KindExtendedSegment:
		return AbsoluteFromRelative(I16HEX, rel, s.segment), nil
	case KindExtendedLinear:
		return AbsoluteFromRelative(I32HEX, rel, s.linear), nil
	default:
		return 0, fmt.Errorf("%w", ErrDomainMismatch)
	}
}

// DataMap returns the set of absolute ranges currently occupied by blocks,
// projected through the section's dialect.
func (s *Section) DataMap() (AddressMap, error) {
	if !s.Kind.IsDataBearing() {
		return nil, fmt.Errorf("data_map: %w", ErrDomainMismatch)
	}
	out := make(AddressMap, 0, len(s.blocks))
	for _, b := range s.blocks {
		abs, err := s.absoluteForOffset(b.Offset)
		if err != nil {
			return nil, err
		}
		out = append(out, AddressRange{Start: abs, Size: DataSize(len(b.Data))})
	}
	return out, nil
}

// LowerAddress returns the relative offset of the first block.
func (s *Section) LowerAddress() (RelativeAddress, error) {
	if !s.Kind.IsDataBearing() {
		return 0, fmt.Errorf("lower_address: %w", ErrDomainMismatch)
	}
	if len(s.blocks) == 0 {
		return 0, fmt.Errorf("lower_address: %w", ErrOutOfRange)
	}
	return s.blocks[0].Offset, nil
}

// UpperAddress returns the relative offset of the last occupied byte.
func (s *Section) UpperAddress() (RelativeAddress, error) {
	if !s.Kind.IsDataBearing() {
		return 0, fmt.Errorf("upper_address: %w", ErrDomainMismatch)
	}
	if len(s.blocks) == 0 {
		return 0, fmt.Errorf("upper_address: %w", ErrOutOfRange)
	}
	last := s.blocks[len(s.blocks)-1]
	return RelativeAddress(last.end() - 1), nil
}

package ihex

import (
	"errors"
	"testing"
)

func TestSectionPushRecordAdoptsFirstKind(t *testing.T) {
	s := NewDataSection(0xFF)
	rec := MakeExtendedLinear(0x0002)
	merged, err := s.PushRecord(rec)
	if err != nil {
		t.Fatalf("PushRecord() error = %v", err)
	}
	if !merged {
		t.Fatal("expected an empty DATA section to adopt the first record's kind")
	}
	if s.Kind != KindExtendedLinear {
		t.Errorf("Kind = %v, want KindExtendedLinear", s.Kind)
	}
	if linear, _ := s.Linear(); linear != 0x0002 {
		t.Errorf("Linear() = 0x%04X, want 0x0002", linear)
	}
}

func TestSectionPushRecordRejectsBadChecksum(t *testing.T) {
	s := NewDataSection(0xFF)
	rec, _ := MakeData(0, []byte{1, 2, 3})
	rec.Checksum ^= 0xFF
	if _, err := s.PushRecord(rec); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("PushRecord() error = %v, want ErrChecksumMismatch", err)
	}
}

func TestSectionPushRecordRefusesIncompatibleKind(t *testing.T) {
	s := NewEndOfFileSection(0xFF)
	rec, _ := MakeData(0, []byte{1})
	merged, err := s.PushRecord(rec)
	if err != nil {
		t.Fatalf("PushRecord() error = %v", err)
	}
	if merged {
		t.Fatal("expected an END_OF_FILE section to refuse a DATA record")
	}
}

func TestSectionSetDataAndGetData(t *testing.T) {
	s := NewDataSection(0xFF)
	if _, err := s.SetData(0x10, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	got, err := s.GetData(0x08, 0x10)
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 1, 2, 3, 4, 0xFF, 0xFF, 0xFF, 0xFF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetData()[%d] = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
}

func TestSectionSetDataRespectsDefaultBlockSize(t *testing.T) {
	s := NewDataSection(0xFF)
	if err := s.SetDefaultBlockSize(4); err != nil {
		t.Fatalf("SetDefaultBlockSize() error = %v", err)
	}
	if _, err := s.SetData(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	if len(s.blocks) != 2 {
		t.Fatalf("expected the write to split into 2 blocks of at most 4 bytes, got %d blocks: %+v", len(s.blocks), s.blocks)
	}
	for _, b := range s.blocks {
		if len(b.Data) > 4 {
			t.Errorf("block %+v exceeds the 4-byte cap", b)
		}
	}
}

func TestSectionClearDataSplitsBlock(t *testing.T) {
	s := NewDataSection(0xFF)
	if _, err := s.SetData(0, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	if _, err := s.ClearData(3, 4); err != nil {
		t.Fatalf("ClearData() error = %v", err)
	}
	if len(s.blocks) != 2 {
		t.Fatalf("expected clearing the middle of a block to split it into 2, got %d: %+v", len(s.blocks), s.blocks)
	}
	got, err := s.GetData(0, 10)
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}
	want := []byte{1, 2, 3, 0xFF, 0xFF, 0xFF, 0xFF, 8, 9, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetData()[%d] = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
}

func TestSectionCompactMergesAdjacentBlocksUpToCap(t *testing.T) {
	s := NewDataSection(0xFF)
	if err := s.SetDefaultBlockSize(8); err != nil {
		t.Fatalf("SetDefaultBlockSize() error = %v", err)
	}
	if _, err := s.SetData(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	if _, err := s.SetData(4, []byte{5, 6, 7, 8, 9, 10}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	s.Compact()
	if len(s.blocks) != 2 {
		t.Fatalf("expected compaction to respect the 8-byte cap (first block full, remainder spills into a second), got %d blocks: %+v", len(s.blocks), s.blocks)
	}
	if len(s.blocks[0].Data) != 8 {
		t.Errorf("first block length = %d, want 8", len(s.blocks[0].Data))
	}
}

func TestSectionCheckIntersectRequiresMatchingKind(t *testing.T) {
	a := NewExtendedSegmentSection(0x1000, 0xFF)
	b := NewExtendedLinearSection(0x0002, 0xFF)
	if _, err := a.CheckIntersect(b); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("CheckIntersect() error = %v, want ErrDomainMismatch", err)
	}
}

func TestSectionCheckIntersectExtendedSegment(t *testing.T) {
	a := NewExtendedSegmentSection(0x1000, 0xFF)
	b := NewExtendedSegmentSection(0x1000, 0xFF)
	c := NewExtendedSegmentSection(0x2000, 0xFF)

	if intersects, err := a.CheckIntersect(b); err != nil || !intersects {
		t.Errorf("CheckIntersect(identical) = (%v, %v), want (true, nil)", intersects, err)
	}
	if intersects, err := a.CheckIntersect(c); err != nil || intersects {
		t.Errorf("CheckIntersect(disjoint) = (%v, %v), want (false, nil)", intersects, err)
	}
}

func TestSectionAddressMapWraparound(t *testing.T) {
	s := NewExtendedSegmentSection(0xF800, 0xFF)
	m, err := s.AddressMap()
	if err != nil {
		t.Fatalf("AddressMap() error = %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("expected a wrapping segment to produce 2 ranges, got %d: %+v", len(m), m)
	}
}

func TestSectionGetRecordBareDataSection(t *testing.T) {
	s := NewDataSection(0xFF)
	if _, err := s.SetData(0x10, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	rec, ok := s.GetRecord(0)
	if !ok {
		t.Fatal("expected a record at index 0")
	}
	if rec.Kind != KindData || rec.Offset != 0x10 {
		t.Errorf("GetRecord(0) = %+v, want offset 0x10 DATA record", rec)
	}
	if _, ok := s.GetRecord(1); ok {
		t.Error("expected only one record in a single-block bare DATA section")
	}
}

func TestSectionGetRecordExtendedSegmentIncludesMainRecord(t *testing.T) {
	s := NewExtendedSegmentSection(0x1000, 0xFF)
	if _, err := s.SetData(0, []byte{1, 2}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	rec, ok := s.GetRecord(0)
	if !ok || rec.Kind != KindExtendedSegment {
		t.Fatalf("GetRecord(0) = (%+v, %v), want the EXTENDED_SEGMENT main record", rec, ok)
	}
	rec, ok = s.GetRecord(1)
	if !ok || rec.Kind != KindData {
		t.Fatalf("GetRecord(1) = (%+v, %v), want the DATA block record", rec, ok)
	}
}

package ihex

import (
	"errors"
	"testing"
)

func TestGroupDialectDerivation(t *testing.T) {
	g := NewGroup(0xFF)
	if g.Dialect() != I8HEX {
		t.Errorf("empty group Dialect() = %v, want I8HEX", g.Dialect())
	}

	g.Push(NewExtendedSegmentSection(0x1000, 0xFF))
	if g.Dialect() != I16HEX {
		t.Errorf("Dialect() after pushing EXTENDED_SEGMENT = %v, want I16HEX", g.Dialect())
	}
}

func TestGroupCanPushDataOnlyOnceForI8HEX(t *testing.T) {
	g := NewGroup(0xFF)
	if ok := g.Push(NewDataSection(0xFF)); !ok {
		t.Fatal("expected the first DATA section to be accepted")
	}
	if ok := g.Push(NewDataSection(0xFF)); ok {
		t.Fatal("expected a second DATA section to be refused")
	}
}

func TestGroupCanPushRejectsMixedDialects(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewExtendedSegmentSection(0x1000, 0xFF))
	if ok := g.Push(NewExtendedLinearSection(0x0002, 0xFF)); ok {
		t.Fatal("expected an I32HEX section to be refused once the group committed to I16HEX")
	}
}

func TestGroupCanPushEndOfFileIsSingleton(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewEndOfFileSection(0xFF))
	if ok := g.Push(NewEndOfFileSection(0xFF)); ok {
		t.Fatal("expected a second END_OF_FILE section to be refused")
	}
}

func TestGroupPushInsertsBeforeEndOfFile(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewEndOfFileSection(0xFF))
	g.Push(NewDataSection(0xFF))

	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	first, _ := g.Section(0)
	if first.Kind != KindData {
		t.Errorf("Section(0).Kind = %v, want KindData (should land before END_OF_FILE)", first.Kind)
	}
}

func TestGroupCreateSectionI8HEX(t *testing.T) {
	g := NewGroup(0xFF)
	s, err := g.CreateSection(0x1000)
	if err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}
	if s.Kind != KindData {
		t.Errorf("CreateSection() kind = %v, want KindData", s.Kind)
	}
	s2, err := g.CreateSection(0x2000)
	if err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}
	if s2 != s {
		t.Error("expected CreateSection to reuse the single I8HEX DATA section")
	}
}

func TestGroupCreateSectionI32HEXNeverFails(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewExtendedLinearSection(0x0000, 0xFF))
	for _, abs := range []AbsoluteAddress{0x00000000, 0x00010000, 0xFFFF0000} {
		if _, err := g.CreateSection(abs); err != nil {
			t.Errorf("CreateSection(0x%08X) error = %v, want nil", abs, err)
		}
	}
}

func TestGroupCreateSectionI16HEXRetriesOnIntersection(t *testing.T) {
	// The canonical segment for abs=0x5 is 0x0000, which intersects the
	// existing non-canonical section at 0x0001. CreateSection must fall
	// back to a segment adjacent to an existing one that both still covers
	// abs and stays disjoint: stepping 0x0001 back by 0x1000 wraps to
	// 0xF001, whose window covers [0xF0010, 0x100000) and [0, 0x10) — which
	// contains abs=0x5 — and does not intersect 0x0001's [0x10, 0x10010).
	g := NewGroup(0xFF)
	g.Push(NewExtendedSegmentSection(0x0001, 0xFF))
	s, err := g.CreateSection(0x5)
	if err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}
	seg, _ := s.Segment()
	if seg != 0xF001 {
		t.Errorf("expected CreateSection to land on the wrapping segment 0xF001, got 0x%04X", seg)
	}

	if _, err := g.SetData(0x5, []byte{0x42}); err != nil {
		t.Fatalf("SetData() error = %v, want the address to now be covered", err)
	}
	got, err := g.GetData(0x5, 1)
	if err != nil || got[0] != 0x42 {
		t.Errorf("GetData() = (%v, %v), want (0x42, nil)", got, err)
	}
}

func TestGroupSetDataAndGetDataAcrossSections(t *testing.T) {
	g := NewGroup(0xFF)
	if _, err := g.SetData(0x1000, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	got, err := g.GetData(0x1000, 4)
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}
	for i, want := range []byte{1, 2, 3, 4} {
		if got[i] != want {
			t.Errorf("GetData()[%d] = 0x%02X, want 0x%02X", i, got[i], want)
		}
	}
}

func TestGroupGetDataUnmappedReturnsUnusedFill(t *testing.T) {
	g := NewGroup(0xAA)
	got, err := g.GetData(0x500, 4)
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}
	for i, b := range got {
		if b != 0xAA {
			t.Errorf("GetData()[%d] = 0x%02X, want unused-fill 0xAA", i, b)
		}
	}
}

func TestGroupStartSegmentLazyCreationAndPresence(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewExtendedSegmentSection(0x0000, 0xFF))
	if g.HasStartSegment() {
		t.Fatal("expected HasStartSegment() to be false before any access")
	}
	if err := g.SetCodeSegment(0x1234); err != nil {
		t.Fatalf("SetCodeSegment() error = %v", err)
	}
	if !g.HasStartSegment() {
		t.Error("expected HasStartSegment() to be true after SetCodeSegment lazily created it")
	}
	cs, err := g.CodeSegment()
	if err != nil || cs != 0x1234 {
		t.Errorf("CodeSegment() = (0x%04X, %v), want (0x1234, nil)", cs, err)
	}
}

func TestGroupExtendedInstructionPointerRejectsWrongDialect(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewExtendedSegmentSection(0x0000, 0xFF))
	if _, err := g.ExtendedInstructionPointer(); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("ExtendedInstructionPointer() on an I16HEX group: error = %v, want ErrDomainMismatch", err)
	}
}

func TestGroupRecordsPlacesEndOfFileLast(t *testing.T) {
	g := NewGroup(0xFF)
	g.Push(NewEndOfFileSection(0xFF))
	g.SetData(0, []byte{1, 2, 3})

	recs := g.Records()
	if len(recs) == 0 {
		t.Fatal("expected at least one record")
	}
	last := recs[len(recs)-1]
	if last.Kind != KindEndOfFile {
		t.Errorf("last record kind = %v, want KindEndOfFile", last.Kind)
	}
}

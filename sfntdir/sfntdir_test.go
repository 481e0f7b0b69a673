package sfntdir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildFont assembles a minimal two-table sfnt file (a 12-byte head table
// and a 4-byte "abcd" table) and returns its bytes.
func buildFont(t *testing.T) []byte {
	t.Helper()

	headBody := make([]byte, 12)
	otherBody := []byte{1, 2, 3, 4}

	d := &Directory{ScalerType: 0x00010000, tables: map[Tag][]byte{}}
	d.SetTable(HeadTag, headBody)
	d.SetTable(MakeTag("abcd"), otherBody)

	out, err := d.Write(false, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return out
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	data := buildFont(t)

	d, err := Read(data, true)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !d.Has(HeadTag) || !d.Has(MakeTag("abcd")) {
		t.Fatalf("Read: missing expected tables")
	}
	other, err := d.TableBytes(MakeTag("abcd"))
	if err != nil {
		t.Fatalf("TableBytes: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, other); diff != "" {
		t.Errorf("abcd content mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteHeadChecksumAdjustmentSatisfiesFileChecksum(t *testing.T) {
	data := buildFont(t)

	sum := sumWords(data)
	if sum != 0xB1B0AFBA {
		t.Errorf("whole-file checksum = %08x, want 0xb1b0afba", sum)
	}
}

func TestAdjustTableRechecksum(t *testing.T) {
	d := &Directory{tables: map[Tag][]byte{}}
	d.SetTable(MakeTag("abcd"), []byte{0, 0, 0, 1})

	if err := d.AdjustTable(MakeTag("abcd"), 100, 4, true); err != nil {
		t.Fatalf("AdjustTable: %v", err)
	}
	rec, err := d.Find(MakeTag("abcd"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Offset != 100 || rec.Length != 4 {
		t.Errorf("record = %+v, want offset=100 length=4", rec)
	}
	if rec.CheckSum != 1 {
		t.Errorf("CheckSum = %d, want 1", rec.CheckSum)
	}
}

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

func putU16(b []byte, v uint16) {
	b[0], b[1] = byte(v>>8), byte(v)
}

func TestReadRejectsOverlappingTables(t *testing.T) {
	const numTables = 2
	const dirLen = 12 + 16*numTables
	const fileLen = 56
	raw := make([]byte, fileLen)
	putU32(raw[0:4], 0x00010000)
	putU16(raw[4:6], numTables)

	rec := raw[12:]
	copy(rec[0:4], "head")
	putU32(rec[8:12], dirLen)  // offset 44
	putU32(rec[12:16], 8)      // length 8, covers 44..52

	copy(rec[16:20], "abcd")
	putU32(rec[24:28], dirLen+4) // offset 48, overlaps 44..52
	putU32(rec[28:32], 8)        // covers 48..56

	if _, err := Read(raw, true); err == nil {
		t.Fatal("Read: expected DirectoryMalformed for overlapping tables, got nil")
	}
}

func TestIsKnownTag(t *testing.T) {
	if !IsKnownTag(HeadTag) {
		t.Error("IsKnownTag(head) = false, want true")
	}
	if !IsKnownTag(IFTBTag) {
		t.Error("IsKnownTag(IFTB) = false, want true")
	}
	if IsKnownTag(MakeTag("zzzz")) {
		t.Error("IsKnownTag(zzzz) = true, want false")
	}
}

func TestFindMissingTable(t *testing.T) {
	d := &Directory{tables: map[Tag][]byte{}}
	if _, err := d.Find(MakeTag("glyf")); err == nil {
		t.Fatal("Find: expected error for missing table")
	}
}

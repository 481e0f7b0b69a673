package fontdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func putU16(b []byte, off int, v uint16) {
	b[off], b[off+1] = byte(v>>8), byte(v)
}

func putU32(b []byte, off int, v uint32) {
	b[off], b[off+1], b[off+2], b[off+3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

// buildFormat4 encodes a single-segment format 4 subtable mapping
// [lo, hi] to consecutive glyph IDs starting at firstGid.
func buildFormat4(lo, hi rune, firstGid uint16) []byte {
	segCount := 2 // one real segment plus the mandatory terminator {0xFFFF,0xFFFF}
	segCountX2 := segCount * 2
	length := 14 + 4*segCountX2 + 2 // header + 4 parallel arrays + reservedPad, no glyphIdArray entries
	data := make([]byte, length)
	putU16(data, 0, 4)
	putU16(data, 2, uint16(length))
	putU16(data, 6, uint16(segCountX2))

	endCodeBase := 14
	startCodeBase := endCodeBase + segCountX2 + 2
	idDeltaBase := startCodeBase + segCountX2
	idRangeOffsetBase := idDeltaBase + segCountX2

	putU16(data, endCodeBase, uint16(hi))
	putU16(data, endCodeBase+2, 0xFFFF)
	putU16(data, startCodeBase, uint16(lo))
	putU16(data, startCodeBase+2, 0xFFFF)
	putU16(data, idDeltaBase, firstGid-uint16(lo))
	putU16(data, idDeltaBase+2, 1)
	putU16(data, idRangeOffsetBase, 0)
	putU16(data, idRangeOffsetBase+2, 0)
	return data
}

func wrapCMap(platformID, encodingID uint16, subtable []byte) []byte {
	header := make([]byte, 4+8)
	putU16(header, 2, 1)
	putU16(header, 4, platformID)
	putU16(header, 6, encodingID)
	putU32(header, 8, uint32(len(header)))
	return append(header, subtable...)
}

func TestDecodeCMapFormat4(t *testing.T) {
	sub := buildFormat4('A', 'D', 5)
	data := wrapCMap(3, 1, sub)

	got, err := DecodeCMap(data)
	if err != nil {
		t.Fatalf("DecodeCMap: %v", err)
	}
	want := map[rune]uint32{'A': 5, 'B': 6, 'C': 7, 'D': 8}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCMapFormat12(t *testing.T) {
	sub := make([]byte, 16+12)
	putU16(sub, 0, 12)
	putU32(sub, 12, 1)
	putU32(sub, 16, 0x1F600)
	putU32(sub, 20, 0x1F600)
	putU32(sub, 24, 100)
	data := wrapCMap(3, 10, sub)

	got, err := DecodeCMap(data)
	if err != nil {
		t.Fatalf("DecodeCMap: %v", err)
	}
	want := map[rune]uint32{0x1F600: 100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSortedRunes(t *testing.T) {
	m := map[rune]uint32{'c': 1, 'a': 2, 'b': 3}
	got := SortedRunes(m)
	want := []rune{'a', 'b', 'c'}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

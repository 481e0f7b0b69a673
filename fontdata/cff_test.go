package fontdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildCFFIndex encodes a CFF INDEX (offSize=1) holding blobs.
func buildCFFIndex(blobs [][]byte) []byte {
	count := len(blobs)
	if count == 0 {
		return []byte{0, 0}
	}
	offSize := 1
	out := make([]byte, 0)
	head := make([]byte, 3)
	putU16(head, 0, uint16(count))
	head[2] = byte(offSize)
	out = append(out, head...)

	offsets := make([]uint32, count+1)
	offsets[0] = 1
	for i, b := range blobs {
		offsets[i+1] = offsets[i] + uint32(len(b))
	}
	for _, o := range offsets {
		out = append(out, byte(o))
	}
	for _, b := range blobs {
		out = append(out, b...)
	}
	return out
}

func TestDecodeCFFIndexRoundTrip(t *testing.T) {
	blobs := [][]byte{{1, 2, 3}, {4}, {}, {5, 6}}
	data := buildCFFIndex(blobs)

	idx, n, err := DecodeCFFIndex(data)
	if err != nil {
		t.Fatalf("DecodeCFFIndex: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d bytes, want %d", n, len(data))
	}
	if diff := cmp.Diff(CFFIndex(blobs), idx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if idx.GlyphSize(0) != 3 || idx.GlyphSize(1) != 1 || idx.GlyphSize(2) != 0 {
		t.Errorf("GlyphSize mismatch: %d %d %d", idx.GlyphSize(0), idx.GlyphSize(1), idx.GlyphSize(2))
	}
	if idx.NumGlyphs() != 4 {
		t.Errorf("NumGlyphs = %d, want 4", idx.NumGlyphs())
	}
}

func TestDecodeCFFIndexEmpty(t *testing.T) {
	idx, n, err := DecodeCFFIndex([]byte{0, 0})
	if err != nil {
		t.Fatalf("DecodeCFFIndex: %v", err)
	}
	if n != 2 || idx != nil {
		t.Errorf("got n=%d idx=%v, want n=2 idx=nil", n, idx)
	}
}

func TestDecodeCFFIndexRejectsTruncated(t *testing.T) {
	data := buildCFFIndex([][]byte{{1, 2, 3}})
	if _, _, err := DecodeCFFIndex(data[:len(data)-1]); err == nil {
		t.Fatal("DecodeCFFIndex: expected error for truncated data")
	}
}

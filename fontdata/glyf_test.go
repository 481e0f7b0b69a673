package fontdata

import (
	"testing"
)

// simpleGlyph builds a minimal simple-glyph record (numberOfContours >= 0)
// with the given tail length.
func simpleGlyph(tailLen int) []byte {
	g := make([]byte, 10+tailLen)
	putU16(g, 0, 1) // numberOfContours
	return g
}

// compositeGlyph builds a composite glyph referencing the given component
// glyph IDs, each with word-args and no scale.
func compositeGlyph(components []uint16, lastHasMore bool) []byte {
	g := make([]byte, 10)
	putU16(g, 0, 0xFFFF) // numberOfContours < 0 marks composite
	for i, comp := range components {
		flags := uint16(glyfFlagArgsAreWords)
		more := i != len(components)-1 || lastHasMore
		if more {
			flags |= glyfFlagMoreComponents
		}
		rec := make([]byte, 8)
		putU16(rec, 0, flags)
		putU16(rec, 2, comp)
		g = append(g, rec...)
	}
	return g
}

func buildLoca(sizes []int) ([]byte, []byte) {
	var glyf []byte
	loca := make([]byte, 4*(len(sizes)+1))
	off := uint32(0)
	putU32(loca, 0, off)
	for i, s := range sizes {
		glyf = append(glyf, make([]byte, s)...)
		off += uint32(s)
		putU32(loca, 4*(i+1), off)
	}
	return glyf, loca
}

func TestGlyfClosureComposite(t *testing.T) {
	notdef := simpleGlyph(4)
	base := simpleGlyph(6)
	accent := simpleGlyph(4)
	composite := compositeGlyph([]uint16{1, 2}, false) // references gid 1 and 2

	var glyf []byte
	loca := make([]byte, 4*5)
	glyphs := [][]byte{notdef, base, accent, composite}
	off := uint32(0)
	putU32(loca, 0, off)
	for i, g := range glyphs {
		glyf = append(glyf, g...)
		off += uint32(len(g))
		putU32(loca, 4*(i+1), off)
	}

	gt, err := DecodeGlyf(glyf, loca, 1)
	if err != nil {
		t.Fatalf("DecodeGlyf: %v", err)
	}
	if gt.NumGlyphs() != 4 {
		t.Fatalf("NumGlyphs = %d, want 4", gt.NumGlyphs())
	}

	closure := gt.Closure([]uint32{3})
	for _, want := range []uint32{0, 1, 2, 3} {
		if !closure.Test(uint(want)) {
			t.Errorf("closure missing glyph %d", want)
		}
	}
	if closure.Count() != 4 {
		t.Errorf("closure.Count() = %d, want 4", closure.Count())
	}
}

func TestGlyfClosureSimpleRootAlwaysIncluded(t *testing.T) {
	sizes := []int{10, 14, 16}
	glyf, loca := buildLoca(sizes)
	// overwrite with valid simple-glyph headers
	for i, s := range sizes {
		g := simpleGlyph(s - 10)
		copy(glyf[sum(sizes[:i]):], g)
	}
	gt, err := DecodeGlyf(glyf, loca, 1)
	if err != nil {
		t.Fatalf("DecodeGlyf: %v", err)
	}
	closure := gt.Closure([]uint32{2})
	if !closure.Test(0) || !closure.Test(2) {
		t.Errorf("closure should contain glyph 0 and root glyph 2")
	}
	if closure.Test(1) {
		t.Errorf("closure should not contain unrelated glyph 1")
	}
}

func sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}

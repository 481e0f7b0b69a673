// github.com/adobe/binned-ift-reference - incremental font transfer chunking
// Copyright (C) 2021  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fontdata

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/adobe/binned-ift-reference/ferror"
)

const glyfFlagMoreComponents = 0x0020
const glyfFlagArgsAreWords = 0x0001
const glyfFlagWeHaveAScale = 0x0008
const glyfFlagWeHaveAnXYScale = 0x0040
const glyfFlagWeHaveA2x2 = 0x0080

// Glyf holds a decoded "glyf"/"loca" pair, indexable by glyph ID.
type Glyf struct {
	data    []byte
	offsets []uint32 // len(offsets) == numGlyphs+1
}

// DecodeGlyf decodes a "glyf"/"loca" pair. locaFormat is the value of the
// "head" table's indexToLocFormat field (0: short, 1: long).
func DecodeGlyf(glyfData, locaData []byte, locaFormat int16) (*Glyf, error) {
	var offsets []uint32
	switch locaFormat {
	case 0:
		if len(locaData) < 4 || len(locaData)%2 != 0 {
			return nil, &ferror.TruncatedTable{Field: "loca"}
		}
		offsets = make([]uint32, len(locaData)/2)
		for i := range offsets {
			offsets[i] = 2 * uint32(be16(locaData, 2*i))
		}
	case 1:
		if len(locaData) < 8 || len(locaData)%4 != 0 {
			return nil, &ferror.TruncatedTable{Field: "loca"}
		}
		offsets = make([]uint32, len(locaData)/4)
		for i := range offsets {
			offsets[i] = be32(locaData, 4*i)
		}
	default:
		return nil, &ferror.DirectoryMalformed{Reason: "unsupported loca format"}
	}
	for i, off := range offsets {
		if int(off) > len(glyfData) {
			return nil, &ferror.DirectoryMalformed{Reason: "loca offset past end of glyf"}
		}
		if i > 0 && off < offsets[i-1] {
			return nil, &ferror.DirectoryMalformed{Reason: "loca offsets not monotone"}
		}
	}
	return &Glyf{data: glyfData, offsets: offsets}, nil
}

// NumGlyphs returns the number of glyphs described by the table.
func (g *Glyf) NumGlyphs() int {
	if len(g.offsets) == 0 {
		return 0
	}
	return len(g.offsets) - 1
}

func (g *Glyf) glyphData(gid uint32) []byte {
	i := int(gid)
	if i < 0 || i+1 >= len(g.offsets) {
		return nil
	}
	start, end := g.offsets[i], g.offsets[i+1]
	if start >= end {
		return nil
	}
	return g.data[start:end]
}

// componentGlyphs returns the glyph IDs directly referenced by a composite
// glyph. It returns nil for simple glyphs (numberOfContours >= 0).
func componentGlyphs(data []byte) []uint32 {
	if len(data) < 10 {
		return nil
	}
	numContours := int16(be16(data, 0))
	if numContours >= 0 {
		return nil
	}
	pos := 10
	var components []uint32
	for {
		if pos+4 > len(data) {
			break
		}
		flags := be16(data, pos)
		gid := uint32(be16(data, pos+2))
		components = append(components, gid)
		pos += 4

		if flags&glyfFlagArgsAreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&glyfFlagWeHaveA2x2 != 0:
			pos += 8
		case flags&glyfFlagWeHaveAnXYScale != 0:
			pos += 4
		case flags&glyfFlagWeHaveAScale != 0:
			pos += 2
		}

		if flags&glyfFlagMoreComponents == 0 {
			break
		}
	}
	return components
}

// Closure computes the set of glyphs reachable from roots by following
// composite-glyph component references, per §4.4 step 2. Glyph 0 (.notdef)
// is always included, matching the convention that it must always be
// resident.
func (g *Glyf) Closure(roots []uint32) *bitset.BitSet {
	seen := bitset.New(uint(g.NumGlyphs()))
	seen.Set(0)
	stack := []uint32{0}
	for _, r := range roots {
		if int(r) < g.NumGlyphs() && !seen.Test(uint(r)) {
			seen.Set(uint(r))
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		gid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, comp := range componentGlyphs(g.glyphData(gid)) {
			if int(comp) >= g.NumGlyphs() {
				continue
			}
			if !seen.Test(uint(comp)) {
				seen.Set(uint(comp))
				stack = append(stack, comp)
			}
		}
	}
	return seen
}

// GlyphSize returns the encoded length, in bytes, of a single glyph's
// outline data, used to estimate chunk sizes against target_chunk_size.
func (g *Glyf) GlyphSize(gid uint32) int {
	return len(g.glyphData(gid))
}

// RawGlyph returns the raw "glyf" table bytes for gid, for inclusion in a
// chunk payload blob.
func (g *Glyf) RawGlyph(gid uint32) []byte {
	return g.glyphData(gid)
}

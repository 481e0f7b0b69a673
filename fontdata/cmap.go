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

// Package fontdata reads the parts of an sfnt font the encoder needs in
// order to walk glyph closures: the "cmap" code-point-to-glyph table, the
// "glyf"/"loca" outline tables (including composite-glyph component
// references), and the CFF CharStrings INDEX.
package fontdata

import (
	"sort"

	"github.com/adobe/binned-ift-reference/ferror"
)

// CMapKey selects one subtable of a "cmap" table.
type CMapKey struct {
	PlatformID uint16
	EncodingID uint16
}

// DecodeCMap parses a "cmap" table and returns the code-point-to-glyph
// mapping of its best available subtable (preferring full-Unicode and BMP
// Windows subtables, as most font-consuming code does).
func DecodeCMap(data []byte) (map[rune]uint32, error) {
	if len(data) < 4 {
		return nil, &ferror.TruncatedTable{Field: "cmap.header"}
	}
	version := be16(data, 0)
	if version != 0 {
		return nil, &ferror.BadVersion{Major: version}
	}
	numTables := int(be16(data, 2))
	if len(data) < 4+8*numTables {
		return nil, &ferror.TruncatedTable{Field: "cmap.encodingRecords"}
	}

	type record struct {
		key    CMapKey
		offset uint32
	}
	var records []record
	for i := 0; i < numTables; i++ {
		base := 4 + 8*i
		rec := record{
			key: CMapKey{
				PlatformID: be16(data, base),
				EncodingID: be16(data, base+2),
			},
			offset: be32(data, base+4),
		}
		records = append(records, rec)
	}

	// Preference order: Windows full-Unicode, Unicode platform
	// full-repertoire then BMP, Windows BMP, Unicode 1.0; failing all of
	// these, the first subtable listed.
	candidates := []CMapKey{
		{3, 10},
		{0, 4},
		{0, 3},
		{3, 1},
		{0, 0},
	}
	byKey := make(map[CMapKey]uint32, len(records))
	for _, r := range records {
		if _, ok := byKey[r.key]; !ok {
			byKey[r.key] = r.offset
		}
	}

	var offset uint32
	var found bool
	for _, c := range candidates {
		if o, ok := byKey[c]; ok {
			offset, found = o, true
			break
		}
	}
	if !found && len(records) > 0 {
		offset, found = records[0].offset, true
	}
	if !found {
		return nil, &ferror.DirectoryMalformed{Reason: "cmap table has no subtables"}
	}
	if int(offset) >= len(data) {
		return nil, &ferror.DirectoryMalformed{Reason: "cmap subtable offset out of range"}
	}

	sub := data[offset:]
	if len(sub) < 2 {
		return nil, &ferror.TruncatedTable{Field: "cmap.subtable"}
	}
	format := be16(sub, 0)
	switch format {
	case 4:
		return decodeCMapFormat4(sub)
	case 12:
		return decodeCMapFormat12(sub)
	case 6:
		return decodeCMapFormat6(sub)
	case 0:
		return decodeCMapFormat0(sub)
	default:
		return nil, &ferror.DirectoryMalformed{Reason: "unsupported cmap subtable format"}
	}
}

func decodeCMapFormat0(data []byte) (map[rune]uint32, error) {
	if len(data) < 6+256 {
		return nil, &ferror.TruncatedTable{Field: "cmap.format0"}
	}
	m := make(map[rune]uint32)
	for code := 0; code < 256; code++ {
		gid := uint32(data[6+code])
		if gid != 0 {
			m[rune(code)] = gid
		}
	}
	return m, nil
}

func decodeCMapFormat4(data []byte) (map[rune]uint32, error) {
	if len(data) < 14 {
		return nil, &ferror.TruncatedTable{Field: "cmap.format4"}
	}
	segCountX2 := int(be16(data, 6))
	if segCountX2 < 2 || segCountX2%2 != 0 || 16+4*segCountX2 > len(data)+2 {
		return nil, &ferror.DirectoryMalformed{Reason: "cmap format 4 segCountX2 out of range"}
	}
	segCount := segCountX2 / 2

	endCodeBase := 14
	startCodeBase := endCodeBase + segCountX2 + 2 // +2 skips reservedPad
	idDeltaBase := startCodeBase + segCountX2
	idRangeOffsetBase := idDeltaBase + segCountX2
	glyphArrayBase := idRangeOffsetBase + segCountX2
	if glyphArrayBase > len(data) {
		return nil, &ferror.TruncatedTable{Field: "cmap.format4.segments"}
	}

	m := make(map[rune]uint32)
	for s := 0; s < segCount; s++ {
		end := uint32(be16(data, endCodeBase+2*s))
		start := uint32(be16(data, startCodeBase+2*s))
		delta := be16(data, idDeltaBase+2*s)
		rangeOffset := int(be16(data, idRangeOffsetBase+2*s))
		if start > end {
			continue
		}
		for code := start; code <= end; code++ {
			var gid uint32
			if rangeOffset == 0 {
				gid = uint32(uint16(code) + delta)
			} else {
				idx := idRangeOffsetBase + 2*s + rangeOffset + 2*int(code-start)
				if idx+2 > len(data) {
					if code == 0xFFFF {
						continue
					}
					return nil, &ferror.TruncatedTable{Field: "cmap.format4.glyphIdArray"}
				}
				g := be16(data, idx)
				if g == 0 {
					continue
				}
				gid = uint32(uint16(g) + delta)
			}
			if gid != 0 {
				m[rune(code)] = gid
			}
			if code == 0xFFFF {
				break
			}
		}
	}
	return m, nil
}

func decodeCMapFormat6(data []byte) (map[rune]uint32, error) {
	if len(data) < 10 {
		return nil, &ferror.TruncatedTable{Field: "cmap.format6"}
	}
	first := rune(be16(data, 6))
	count := int(be16(data, 8))
	if 10+2*count > len(data) {
		return nil, &ferror.TruncatedTable{Field: "cmap.format6.glyphIdArray"}
	}
	m := make(map[rune]uint32)
	for i := 0; i < count; i++ {
		gid := uint32(be16(data, 10+2*i))
		if gid != 0 {
			m[first+rune(i)] = gid
		}
	}
	return m, nil
}

func decodeCMapFormat12(data []byte) (map[rune]uint32, error) {
	if len(data) < 16 {
		return nil, &ferror.TruncatedTable{Field: "cmap.format12"}
	}
	numGroups := int(be32(data, 12))
	if 16+12*numGroups > len(data) {
		return nil, &ferror.TruncatedTable{Field: "cmap.format12.groups"}
	}
	m := make(map[rune]uint32)
	for i := 0; i < numGroups; i++ {
		base := 16 + 12*i
		startChar := be32(data, base)
		endChar := be32(data, base+4)
		startGID := be32(data, base+8)
		if endChar < startChar {
			continue
		}
		for c := startChar; c <= endChar; c++ {
			m[rune(c)] = startGID + (c - startChar)
			if c == ^uint32(0) {
				break
			}
		}
	}
	return m, nil
}

func be16(data []byte, off int) uint16 {
	return uint16(data[off])<<8 | uint16(data[off+1])
}

func be32(data []byte, off int) uint32 {
	return uint32(data[off])<<24 | uint32(data[off+1])<<16 | uint32(data[off+2])<<8 | uint32(data[off+3])
}

// SortedRunes returns the keys of m in ascending order, for deterministic
// iteration (§5's ordering guarantee).
func SortedRunes(m map[rune]uint32) []rune {
	out := make([]rune, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

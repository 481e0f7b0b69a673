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

import "github.com/adobe/binned-ift-reference/ferror"

// CFFIndex is a CFF INDEX: an ordered sequence of binary blobs sharing one
// offset table, as used for the CharStrings INDEX of a CFF/CFF2 "CFF "
// table.
type CFFIndex [][]byte

// DecodeCFFIndex reads a CFF INDEX starting at data[0] and returns the
// blobs plus the number of bytes consumed.
func DecodeCFFIndex(data []byte) (CFFIndex, int, error) {
	if len(data) < 2 {
		return nil, 0, &ferror.TruncatedTable{Field: "CFF.INDEX.count"}
	}
	count := int(be16(data, 0))
	if count == 0 {
		return nil, 2, nil
	}
	if len(data) < 3 {
		return nil, 0, &ferror.TruncatedTable{Field: "CFF.INDEX.offSize"}
	}
	offSize := int(data[2])
	if offSize < 1 || offSize > 4 {
		return nil, 0, &ferror.DirectoryMalformed{Reason: "CFF INDEX offSize out of range"}
	}

	offsetsStart := 3
	offsetsLen := (count + 1) * offSize
	if offsetsStart+offsetsLen > len(data) {
		return nil, 0, &ferror.TruncatedTable{Field: "CFF.INDEX.offsets"}
	}

	offsets := make([]uint32, count+1)
	for i := range offsets {
		base := offsetsStart + i*offSize
		var v uint32
		for b := 0; b < offSize; b++ {
			v = v<<8 | uint32(data[base+b])
		}
		offsets[i] = v
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, 0, &ferror.DirectoryMalformed{Reason: "CFF INDEX offsets not monotone"}
		}
	}

	dataStart := offsetsStart + offsetsLen - 1 // offsets are 1-based
	total := int(offsets[count])
	if dataStart+total > len(data) {
		return nil, 0, &ferror.TruncatedTable{Field: "CFF.INDEX.data"}
	}

	blobs := make(CFFIndex, count)
	for i := 0; i < count; i++ {
		blobs[i] = data[dataStart+int(offsets[i]) : dataStart+int(offsets[i+1])]
	}
	return blobs, dataStart + total, nil
}

// GlyphSize returns the size in bytes of the CharString for gid, or 0 if
// gid is out of range.
func (idx CFFIndex) GlyphSize(gid uint32) int {
	if int(gid) >= len(idx) {
		return 0
	}
	return len(idx[gid])
}

// NumGlyphs returns the number of CharStrings in the INDEX.
func (idx CFFIndex) NumGlyphs() int {
	return len(idx)
}

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

// Package chunkidx computes the table-global chunk-index width used
// uniformly by an IFTB table's gidMap and featureMap ranges. The width is
// a property of chunkCount alone and is never itself serialized; callers
// must compute it once and pass it to every stream.Reader/Writer call
// site that reads or writes a chunk index.
package chunkidx

// Width returns the number of bytes (1, 2, or 3) needed to represent any
// chunk index in a table with the given chunkCount, per spec §3:
// 1 byte if chunkCount < 256, 2 bytes if < 65536, 3 bytes otherwise.
func Width(chunkCount int) int {
	switch {
	case chunkCount < 1<<8:
		return 1
	case chunkCount < 1<<16:
		return 2
	default:
		return 3
	}
}

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

// Package chunkset implements the chunkSet bitset: the per-table record
// of which chunks are locally available, packed LSB-first into bytes on
// the wire (spec §3, §4.3), and a mutable in-memory form clients mutate
// as chunks are fetched.
package chunkset

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/adobe/binned-ift-reference/ferror"
)

// Set is the local availability bitset for a table with a fixed
// chunkCount. The zero value is not usable; construct with New.
//
// Set is the only part of a decoded IFTB table that is mutated after
// construction (spec §3 Lifecycles); the core does not synchronize
// concurrent mutation, callers must serialize it themselves.
type Set struct {
	bits  *bitset.BitSet
	count int
}

// New returns a Set with room for count chunks, all initially absent.
func New(count int) *Set {
	return &Set{bits: bitset.New(uint(count)), count: count}
}

// Len returns the chunkCount this set was constructed with.
func (s *Set) Len() int { return s.count }

// Test reports whether chunk i is marked available. It panics if i is
// out of range, matching the other data-model invariants in this module
// that treat an out-of-range chunk index as a programmer error rather
// than a recoverable condition.
func (s *Set) Test(i int) bool {
	if i < 0 || i >= s.count {
		panic("chunkset: index out of range")
	}
	return s.bits.Test(uint(i))
}

// Mark records chunk i as locally available.
func (s *Set) Mark(i int) {
	if i < 0 || i >= s.count {
		panic("chunkset: index out of range")
	}
	s.bits.Set(uint(i))
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	return &Set{bits: s.bits.Clone(), count: s.count}
}

// Pack serializes s into ceil(count/8) bytes, bit i of the set landing at
// bit (i%8) of byte (i/8) — LSB-first within each byte, per spec §3.
func (s *Set) Pack() []byte {
	out := make([]byte, (s.count+7)/8)
	for i := 0; i < s.count; i++ {
		if s.bits.Test(uint(i)) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Unpack decodes a packed chunkSet of the given chunkCount from b. b must
// contain at least ceil(count/8) bytes.
func Unpack(b []byte, count int) (*Set, error) {
	want := (count + 7) / 8
	if len(b) < want {
		return nil, &ferror.TruncatedTable{Field: "chunkSet"}
	}
	s := New(count)
	for i := 0; i < count; i++ {
		if b[i/8]&(1<<uint(i%8)) != 0 {
			s.bits.Set(uint(i))
		}
	}
	return s, nil
}

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

// Package encode implements the partitioner described in spec §4.4: it
// walks a font's cmap and glyph-closure graph, assigns glyphs to chunks
// under a ChunkingConfig, and assembles the resulting IFTB table.
package encode

import (
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/adobe/binned-ift-reference/config"
	"github.com/adobe/binned-ift-reference/fontdata"
	"github.com/adobe/binned-ift-reference/iftb"
)

// FontData bundles the parts of a font the partitioner walks. Exactly one
// of Glyf or CFF should be set, matching the font's outline flavor.
type FontData struct {
	Glyf *fontdata.Glyf
	CFF  fontdata.CFFIndex
	CMap map[rune]uint32

	// CFFCharStringsOffset is the byte offset of the CFF CharStrings
	// INDEX within the font's "CFF " table; recorded verbatim in the
	// compiled IFTB table for CFF-flavored fonts.
	CFFCharStringsOffset uint32
}

func (fd *FontData) numGlyphs() int {
	if fd.Glyf != nil {
		return fd.Glyf.NumGlyphs()
	}
	return fd.CFF.NumGlyphs()
}

func (fd *FontData) glyphSize(gid uint32) int {
	if fd.Glyf != nil {
		return fd.Glyf.GlyphSize(gid)
	}
	return fd.CFF.GlyphSize(gid)
}

// closure returns the glyphs reachable from roots. CFF-flavored fonts
// have no component graph to walk here (subroutine-level dependency
// closure is not tracked by this package, see DESIGN.md); the closure of
// CFF roots is the roots themselves plus glyph 0 (.notdef).
func (fd *FontData) closure(roots []uint32) []uint32 {
	if fd.Glyf != nil {
		bs := fd.Glyf.Closure(roots)
		out := make([]uint32, 0, bs.Count())
		for i, e := bs.NextSet(0); e; i, e = bs.NextSet(i + 1) {
			out = append(out, uint32(i))
		}
		return out
	}
	out := append([]uint32{0}, roots...)
	return out
}

// FeaturePart is the glyph set a layout feature contributes within one
// span of primary chunks.
type FeaturePart struct {
	// ChunkRange is the inclusive [lo, hi] span of primary-chunk indices
	// whose requesters should also pull the companion feature chunk this
	// part becomes, once the feature is large enough to be split out
	// (spec §4.4 step 5, §8 invariant 4).
	ChunkRange [2]uint32
	Glyphs     []uint32
}

// FeatureRequest is one layout feature's full contribution to the font,
// expressed as the parts tying its glyphs to the primary chunks that
// need them.
type FeatureRequest struct {
	Tag   string // four ASCII bytes, e.g. "liga"
	Parts []FeaturePart
}

func tagToUint32(tag string) uint32 {
	var b [4]byte
	copy(b[:], tag)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Result is the output of Partition: the compiled table plus the opaque
// per-chunk payload blobs, index-aligned with the table's chunk space.
// Chunks[0] is always nil: chunk 0 is the font's own static base layout
// and has no separate blob (spec §4.4 step 2, §4.3 GetChunkRange doc).
type Result struct {
	Table  *iftb.Table
	Chunks [][]byte
}

// Partition assigns glyphs to chunks per spec §4.4 and assembles the
// resulting IFTB table. filesURI and rangeFileURI are the URI templates
// (§4.5) recorded verbatim in the table.
func Partition(fd *FontData, cfg *config.Config, features []FeatureRequest, filesURI, rangeFileURI string) (*Result, error) {
	numGlyphs := fd.numGlyphs()
	assigned := bitset.New(uint(numGlyphs))
	gidChunk := make([]uint32, numGlyphs)
	var chunkBlobs [][]byte // index 0 unused

	assignClosure := func(roots []uint32) []uint32 {
		var fresh []uint32
		for _, gid := range fd.closure(roots) {
			if int(gid) >= numGlyphs || assigned.Test(uint(gid)) {
				continue
			}
			assigned.Set(uint(gid))
			fresh = append(fresh, gid)
		}
		sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })
		return fresh
	}

	// Step 2: base_points closure goes to chunk 0, the font's own static
	// layout.
	var baseRoots []uint32
	for _, cp := range cfg.BasePoints {
		if gid, ok := fd.CMap[rune(cp)]; ok {
			baseRoots = append(baseRoots, gid)
		}
	}
	for _, gid := range assignClosure(baseRoots) {
		gidChunk[gid] = 0
	}

	nextChunk := uint32(1)
	emitGlyphGroup := func(gidsInOrder []uint32) (firstChunk, lastChunk uint32) {
		var curGlyphs []uint32
		curSize := 0
		flush := func() {
			if len(curGlyphs) == 0 {
				return
			}
			id := nextChunk
			nextChunk++
			for _, gid := range curGlyphs {
				gidChunk[gid] = id
			}
			chunkBlobs = append(chunkBlobs, serializeChunk(fd, curGlyphs))
			curGlyphs = nil
			curSize = 0
			lastChunk = id
		}
		firstChunk = nextChunk
		for _, gid := range gidsInOrder {
			if int(gid) >= numGlyphs || assigned.Test(uint(gid)) {
				continue
			}
			fresh := assignClosure([]uint32{gid})
			for _, g := range fresh {
				size := fd.glyphSize(g)
				if curSize > 0 && cfg.TargetChunkSize > 0 && uint32(curSize+size) > cfg.TargetChunkSize {
					flush()
				}
				curGlyphs = append(curGlyphs, g)
				curSize += size
			}
		}
		flush()
		if lastChunk == 0 {
			lastChunk = firstChunk - 1 // empty group contributed no chunk
		}
		return firstChunk, lastChunk
	}

	codePointsToGids := func(codePoints []uint32) []uint32 {
		gids := make([]uint32, 0, len(codePoints))
		for _, cp := range codePoints {
			if gid, ok := fd.CMap[rune(cp)]; ok {
				gids = append(gids, gid)
			}
		}
		return gids
	}

	// Step 3: ordered_point_groups, in declaration order, preserving
	// input order within each group.
	for _, group := range cfg.OrderedPointGroups {
		emitGlyphGroup(codePointsToGids(group))
	}

	// Step 4: unordered_point_groups; config.Load already sorted these
	// ascending by code point for reproducibility.
	for _, group := range cfg.UnorderedPointGroups {
		emitGlyphGroup(codePointsToGids(group))
	}

	// Step 5: features. A feature whose total glyph count is below the
	// cutoff is inlined: its glyphs are folded into the base chunk (no
	// fetch ever required for them, no FeatureMap entry). Otherwise each
	// part becomes its own chunk (or run of chunks bounded by
	// target_chunk_size) and the feature gets a FeatureMap entry.
	featureMap := make(map[uint32]iftb.FeatureMap)
	for _, feat := range features {
		total := 0
		for _, part := range feat.Parts {
			for _, gid := range fd.closure(part.Glyphs) {
				if int(gid) < numGlyphs && !assigned.Test(uint(gid)) {
					total++
				}
			}
		}
		if total < int(cfg.FeatureSubsetCutoff) {
			var all []uint32
			for _, part := range feat.Parts {
				all = append(all, part.Glyphs...)
			}
			for _, gid := range assignClosure(all) {
				gidChunk[gid] = 0
			}
			continue
		}

		var ranges []iftb.FeatureRange
		startIndex := nextChunk
		for _, part := range feat.Parts {
			first, last := emitGlyphGroup(part.Glyphs)
			if last < first {
				continue // this part contributed no new glyphs
			}
			// One range per emitted chunk, so that Ranges[j] keeps
			// naming chunk StartIndex+j when a part spans several chunks.
			for c := first; c <= last; c++ {
				ranges = append(ranges, iftb.FeatureRange{
					Start: part.ChunkRange[0],
					End:   part.ChunkRange[1],
				})
			}
		}
		if len(ranges) > 0 {
			featureMap[tagToUint32(feat.Tag)] = iftb.FeatureMap{
				StartIndex: startIndex,
				Ranges:     ranges,
			}
		}
	}

	chunkCount := int(nextChunk)
	t := iftb.New(chunkCount, numGlyphs)
	t.FilesURI = filesURI
	t.RangeFileURI = rangeFileURI
	t.GidMap = gidChunk
	if len(featureMap) > 0 {
		t.FeatureMap = featureMap
	}

	if fd.CFF != nil {
		t.CFFCharStringsOffset = fd.CFFCharStringsOffset
		offsets := make([]uint32, chunkCount)
		var running uint32
		for i, blob := range chunkBlobs {
			running += uint32(len(blob))
			offsets[i+1] = running
		}
		t.ChunkOffsets = offsets
	}

	return &Result{Table: t, Chunks: append([][]byte{nil}, chunkBlobs...)}, nil
}

// serializeChunk concatenates the raw per-glyph payload for gids, in
// ascending glyph-ID order, into one opaque chunk blob (spec §4.4 step 6).
func serializeChunk(fd *FontData, gids []uint32) []byte {
	var out []byte
	for _, gid := range gids {
		if fd.Glyf != nil {
			out = append(out, fd.Glyf.RawGlyph(gid)...)
		} else {
			if int(gid) < len(fd.CFF) {
				out = append(out, fd.CFF[gid]...)
			}
		}
	}
	return out
}

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

// Package iftb implements the private IFTB sfnt table: the chunked-glyph
// description that drives incremental font transfer. It owns the
// compiled/decompiled table value, the missing-chunk resolver, and the
// client-side uniMap cache.
package iftb

import (
	"sort"

	"github.com/adobe/binned-ift-reference/chunkidx"
	"github.com/adobe/binned-ift-reference/chunkset"
	"github.com/adobe/binned-ift-reference/ferror"
	"github.com/adobe/binned-ift-reference/stream"
	"github.com/adobe/binned-ift-reference/uritemplate"
)

// FeatureRange is one (start, end) chunk-index pair in the primary chunk
// space naming the base chunks that require a companion feature chunk.
type FeatureRange struct {
	Start, End uint32
}

// FeatureMap is one layout feature's entry in the IFTB featureMap table.
type FeatureMap struct {
	// StartIndex is the first chunk holding the feature's split glyphs;
	// Ranges[j] corresponds to chunk StartIndex+j.
	StartIndex uint32
	Ranges     []FeatureRange
}

// Table is the decoded (or not-yet-compiled) contents of an IFTB table.
// It is immutable after construction except for ChunkSet, which client
// code mutates as chunks are fetched (spec §3 Lifecycles); Table itself
// does not synchronize concurrent mutation.
type Table struct {
	MajorVersion, MinorVersion uint16
	ID                         [4]uint32
	Flags                      uint16
	ChunkCount                 uint32
	GlyphCount                 uint32
	CFFCharStringsOffset       uint32

	ChunkSet *chunkset.Set

	FilesURI     string
	RangeFileURI string

	// GidMap maps a glyph ID to its chunk index; GidMap[0] == 0 always
	// (.notdef is always in the base chunk).
	GidMap []uint32

	// ChunkOffsets holds chunkCount end-offsets (exclusive) into the
	// CFF/CFF2 CharStrings INDEX. Nil for glyf-flavored fonts or when
	// chunk offsets are not tracked.
	ChunkOffsets []uint32

	// FeatureMap is keyed by the four-byte feature tag packed as a u32.
	FeatureMap map[uint32]FeatureMap

	// uniMap caches code_point -> chunk_index, built from a font's cmap
	// and this table's GidMap by BuildUniMap; nil until then.
	uniMap map[uint32]uint32
}

// New returns an empty Table with chunkCount chunks, all unavailable, the
// version fixed at the single version (0, 1) this package understands.
func New(chunkCount, glyphCount int) *Table {
	return &Table{
		MajorVersion: 0,
		MinorVersion: 1,
		ChunkCount:   uint32(chunkCount),
		GlyphCount:   uint32(glyphCount),
		ChunkSet:     chunkset.New(chunkCount),
		GidMap:       make([]uint32, glyphCount),
	}
}

// Compile writes t into w starting at baseOffset, in the field order and
// with the back-patched relative offsets of the on-disk format, and
// returns the number of bytes written.
func (t *Table) Compile(w *stream.Writer, baseOffset int) (int, error) {
	if len(t.FilesURI) == 0 || len(t.FilesURI) > 256 {
		return 0, &ferror.BadURI{Reason: "filesURI must be 1..256 bytes"}
	}
	if len(t.RangeFileURI) == 0 || len(t.RangeFileURI) > 256 {
		return 0, &ferror.BadURI{Reason: "rangeFileURI must be 1..256 bytes"}
	}

	w.Seek(baseOffset)
	w.U16(t.MajorVersion)
	w.U16(t.MinorVersion)
	w.U32(0) // reserved
	for _, v := range t.ID {
		w.U32(v)
	}
	w.U16(t.Flags)
	w.U16(uint16(t.ChunkCount))
	w.U16(uint16(t.GlyphCount))
	w.U32(t.CFFCharStringsOffset)

	relOffsetsPos := w.Tell()
	w.U32(0) // gidMapTableOffset
	w.U32(0) // chunkOffsetTableOffset
	w.U32(0) // featureMapTableOffset

	w.WriteBytes(t.ChunkSet.Pack())

	w.U8(uint8(len(t.FilesURI) - 1))
	w.WriteBytes([]byte(t.FilesURI))
	w.U8(uint8(len(t.RangeFileURI) - 1))
	w.WriteBytes([]byte(t.RangeFileURI))

	width := chunkidx.Width(int(t.ChunkCount))

	gidMapTableOffset := uint32(w.Tell() - baseOffset)
	firstMappedGid := 0
	for firstMappedGid < len(t.GidMap) && t.GidMap[firstMappedGid] == 0 {
		firstMappedGid++
	}
	w.U16(uint16(firstMappedGid))
	for i := firstMappedGid; i < len(t.GidMap); i++ {
		if err := w.ChunkIndex(width, t.GidMap[i]); err != nil {
			return 0, err
		}
	}

	var chunkOffsetTableOffset uint32
	if len(t.ChunkOffsets) > 0 {
		if uint32(len(t.ChunkOffsets)) != t.ChunkCount {
			return 0, &ferror.DirectoryMalformed{Reason: "chunkOffsets length must equal chunkCount"}
		}
		chunkOffsetTableOffset = uint32(w.Tell() - baseOffset)
		for _, off := range t.ChunkOffsets {
			w.U32(off)
		}
	}

	var featureMapTableOffset uint32
	if len(t.FeatureMap) > 0 {
		featureMapTableOffset = uint32(w.Tell() - baseOffset)
		tags := make([]uint32, 0, len(t.FeatureMap))
		for tag := range t.FeatureMap {
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

		w.U16(uint16(len(tags)))
		for _, tag := range tags {
			fm := t.FeatureMap[tag]
			w.U32(tag)
			if err := w.ChunkIndex(width, fm.StartIndex); err != nil {
				return 0, err
			}
			if err := w.ChunkIndex(width, uint32(len(fm.Ranges))); err != nil {
				return 0, err
			}
		}
		for _, tag := range tags {
			for _, r := range t.FeatureMap[tag].Ranges {
				if err := w.ChunkIndex(width, r.Start); err != nil {
					return 0, err
				}
				if err := w.ChunkIndex(width, r.End); err != nil {
					return 0, err
				}
			}
		}
	}

	total := w.Tell() - baseOffset
	w.Seek(relOffsetsPos)
	w.U32(gidMapTableOffset)
	w.U32(chunkOffsetTableOffset)
	w.U32(featureMapTableOffset)
	w.Seek(baseOffset + total)

	return total, nil
}

// Decompile reads a Table from r starting at baseOffset.
func Decompile(r *stream.Reader, baseOffset int) (*Table, error) {
	r.Seek(baseOffset)

	major, err := r.U16()
	if err != nil {
		return nil, err
	}
	minor, err := r.U16()
	if err != nil {
		return nil, err
	}
	if major != 0 || minor != 1 {
		return nil, &ferror.BadVersion{Major: major, Minor: minor}
	}
	if _, err := r.U32(); err != nil { // reserved
		return nil, err
	}

	t := &Table{MajorVersion: major, MinorVersion: minor}
	for i := range t.ID {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		t.ID[i] = v
	}
	if t.Flags, err = r.U16(); err != nil {
		return nil, err
	}
	chunkCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	t.ChunkCount = uint32(chunkCount)
	glyphCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	t.GlyphCount = uint32(glyphCount)
	if t.CFFCharStringsOffset, err = r.U32(); err != nil {
		return nil, err
	}
	gidMapTableOffset, err := r.U32()
	if err != nil {
		return nil, err
	}
	chunkOffsetTableOffset, err := r.U32()
	if err != nil {
		return nil, err
	}
	featureMapTableOffset, err := r.U32()
	if err != nil {
		return nil, err
	}

	chunkSetLen := int(t.ChunkCount+7) / 8
	chunkSetBytes, err := r.ReadBytes(chunkSetLen)
	if err != nil {
		return nil, err
	}
	t.ChunkSet, err = chunkset.Unpack(chunkSetBytes, int(t.ChunkCount))
	if err != nil {
		return nil, err
	}

	t.FilesURI, err = readPrefixedString(r)
	if err != nil {
		return nil, err
	}
	t.RangeFileURI, err = readPrefixedString(r)
	if err != nil {
		return nil, err
	}

	width := chunkidx.Width(int(t.ChunkCount))

	r.Seek(baseOffset + int(gidMapTableOffset))
	firstMappedGid, err := r.U16()
	if err != nil {
		return nil, err
	}
	t.GidMap = make([]uint32, t.GlyphCount)
	for i := uint32(firstMappedGid); i < t.GlyphCount; i++ {
		v, err := r.ChunkIndex(width)
		if err != nil {
			return nil, err
		}
		t.GidMap[i] = v
	}

	if chunkOffsetTableOffset != 0 {
		r.Seek(baseOffset + int(chunkOffsetTableOffset))
		t.ChunkOffsets = make([]uint32, t.ChunkCount)
		for i := range t.ChunkOffsets {
			v, err := r.U32()
			if err != nil {
				return nil, err
			}
			t.ChunkOffsets[i] = v
		}
	}

	if featureMapTableOffset != 0 {
		r.Seek(baseOffset + int(featureMapTableOffset))
		count, err := r.U16()
		if err != nil {
			return nil, err
		}
		t.FeatureMap = make(map[uint32]FeatureMap, count)
		tags := make([]uint32, count)
		rangeCounts := make([]uint32, count)
		for i := 0; i < int(count); i++ {
			tag, err := r.U32()
			if err != nil {
				return nil, err
			}
			start, err := r.ChunkIndex(width)
			if err != nil {
				return nil, err
			}
			n, err := r.ChunkIndex(width)
			if err != nil {
				return nil, err
			}
			tags[i] = tag
			rangeCounts[i] = n
			t.FeatureMap[tag] = FeatureMap{StartIndex: start}
		}
		for i, tag := range tags {
			ranges := make([]FeatureRange, rangeCounts[i])
			for j := range ranges {
				start, err := r.ChunkIndex(width)
				if err != nil {
					return nil, err
				}
				end, err := r.ChunkIndex(width)
				if err != nil {
					return nil, err
				}
				ranges[j] = FeatureRange{Start: start, End: end}
			}
			fm := t.FeatureMap[tag]
			fm.Ranges = ranges
			t.FeatureMap[tag] = fm
		}
	}

	return t, nil
}

func readPrefixedString(r *stream.Reader) (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n) + 1)
	if err != nil {
		return "", &ferror.BadURI{Reason: "declared URI length exceeds table bounds"}
	}
	return string(b), nil
}

// GetChunkRange returns (chunkOffsets[idx-1], chunkOffsets[idx]) for
// 1 <= idx < chunkCount. It returns (0, 0) if chunkOffsets is absent or
// idx is out of that range; chunk 0 is the base chunk, implicit in the
// font's own static layout, and has no explicit offset pair.
func (t *Table) GetChunkRange(idx uint32) (uint32, uint32) {
	if t.ChunkOffsets == nil || idx < 1 || idx >= t.ChunkCount {
		return 0, 0
	}
	return t.ChunkOffsets[idx-1], t.ChunkOffsets[idx]
}

// GetChunkOffset returns chunkOffsets[idx-1], or 0 if chunkOffsets is
// absent or idx is out of the valid [1, chunkCount) range.
func (t *Table) GetChunkOffset(idx uint32) uint32 {
	off, _ := t.GetChunkRange(idx)
	return off
}

// GetChunkURI renders FilesURI for chunk idx via uritemplate.Render.
func (t *Table) GetChunkURI(idx uint32) (string, error) {
	return uritemplate.Render(t.FilesURI, idx)
}

// GetRangeFileURI renders RangeFileURI for chunk idx via
// uritemplate.Render.
func (t *Table) GetRangeFileURI(idx uint32) (string, error) {
	return uritemplate.Render(t.RangeFileURI, idx)
}

// BuildUniMap constructs and caches the client-side code_point ->
// chunk_index map from a font's cmap (code_point -> gid) and this
// table's GidMap. It must be rebuilt (by calling BuildUniMap again) if
// the underlying font's cmap changes.
func (t *Table) BuildUniMap(cmap map[rune]uint32) {
	uniMap := make(map[uint32]uint32, len(cmap))
	for cp, gid := range cmap {
		if uint32(gid) >= t.GlyphCount {
			continue
		}
		uniMap[uint32(cp)] = t.GidMap[gid]
	}
	t.uniMap = uniMap
}

// GetMissingChunks computes the set of chunk indices that must be
// fetched to cover unicodes and features against the local chunkSet
// (spec §4.6). It performs a single forward pass: it does not iterate to
// a fixed point, so callers that add fetched chunks to their local set
// and re-query will converge naturally.
func (t *Table) GetMissingChunks(unicodes, features []uint32) (map[uint32]bool, error) {
	if t.uniMap == nil {
		return nil, &ferror.DirectoryMalformed{Reason: "uniMap not built; call BuildUniMap first"}
	}

	needed := make(map[uint32]bool)
	for _, cp := range unicodes {
		ck, ok := t.uniMap[cp]
		if ok && !t.ChunkSet.Test(int(ck)) {
			needed[ck] = true
		}
	}

	for _, feat := range features {
		fm, ok := t.FeatureMap[feat]
		if !ok {
			continue
		}
		ck := fm.StartIndex - 1
		for _, r := range fm.Ranges {
			ck++
			hit := false
			for j := r.Start; j <= r.End; j++ {
				if int(j) < t.ChunkSet.Len() && (t.ChunkSet.Test(int(j)) || needed[j]) {
					hit = true
					break
				}
			}
			if hit {
				needed[ck] = true
			}
		}
	}

	return needed, nil
}

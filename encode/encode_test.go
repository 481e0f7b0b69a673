package encode

import (
	"strings"
	"testing"

	"github.com/adobe/binned-ift-reference/config"
	"github.com/adobe/binned-ift-reference/fontdata"
)

func buildSimpleGlyf(sizes []int) *fontdata.Glyf {
	glyf := make([]byte, 0)
	loca := make([]byte, 4*(len(sizes)+1))
	off := uint32(0)
	for i, s := range sizes {
		g := make([]byte, s)
		g[1] = 1 // numberOfContours = 1 (simple glyph), big-endian low byte
		glyf = append(glyf, g...)
		off += uint32(s)
		loca[4*(i+1)], loca[4*(i+1)+1], loca[4*(i+1)+2], loca[4*(i+1)+3] =
			byte(off>>24), byte(off>>16), byte(off>>8), byte(off)
	}
	gt, err := fontdata.DecodeGlyf(glyf, loca, 1)
	if err != nil {
		panic(err)
	}
	return gt
}

func TestPartitionAssignsBasePointsToChunkZero(t *testing.T) {
	glyf := buildSimpleGlyf([]int{10, 10, 10, 10})
	cmap := map[rune]uint32{'A': 1, 'B': 2, 'C': 3}
	cfg := &config.Config{
		BasePoints:           []uint32{'A'},
		UnorderedPointGroups: [][]uint32{{'B', 'C'}},
		TargetChunkSize:      1000,
	}
	fd := &FontData{Glyf: glyf, CMap: cmap}

	res, err := Partition(fd, cfg, nil, "chunks/$1.bin", "range/$1.bin")
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if res.Table.GidMap[1] != 0 {
		t.Errorf("GidMap[1] = %d, want 0 (base chunk)", res.Table.GidMap[1])
	}
	if res.Table.GidMap[2] == 0 || res.Table.GidMap[3] == 0 {
		t.Errorf("GidMap[2]/[3] should not be in the base chunk: %v", res.Table.GidMap)
	}
	if res.Chunks[0] != nil {
		t.Errorf("Chunks[0] should be nil (no payload for the base chunk)")
	}
}

func TestPartitionSplitsOnTargetChunkSize(t *testing.T) {
	glyf := buildSimpleGlyf([]int{10, 100, 100, 100})
	cmap := map[rune]uint32{'A': 1, 'B': 2, 'C': 3}
	cfg := &config.Config{
		UnorderedPointGroups: [][]uint32{{'A', 'B', 'C'}},
		TargetChunkSize:      150,
	}
	fd := &FontData{Glyf: glyf, CMap: cmap}

	res, err := Partition(fd, cfg, nil, "f", "r")
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if res.Table.ChunkCount < 2 {
		t.Errorf("ChunkCount = %d, want at least 2 given target_chunk_size=150", res.Table.ChunkCount)
	}
}

func TestPartitionFeatureBelowCutoffInlinesIntoBase(t *testing.T) {
	glyf := buildSimpleGlyf([]int{10, 10, 10})
	cmap := map[rune]uint32{'A': 1}
	cfg := &config.Config{
		UnorderedPointGroups: [][]uint32{{'A'}},
		FeatureSubsetCutoff:  5,
		TargetChunkSize:      1000,
	}
	fd := &FontData{Glyf: glyf, CMap: cmap}
	features := []FeatureRequest{
		{Tag: "liga", Parts: []FeaturePart{{ChunkRange: [2]uint32{1, 1}, Glyphs: []uint32{2}}}},
	}

	res, err := Partition(fd, cfg, features, "f", "r")
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if res.Table.GidMap[2] != 0 {
		t.Errorf("GidMap[2] = %d, want 0 (inlined below cutoff)", res.Table.GidMap[2])
	}
	if len(res.Table.FeatureMap) != 0 {
		t.Errorf("FeatureMap should be empty, got %v", res.Table.FeatureMap)
	}
}

func TestPartitionFeatureAboveCutoffGetsOwnChunk(t *testing.T) {
	glyf := buildSimpleGlyf([]int{10, 10, 10, 10, 10, 10, 10})
	cmap := map[rune]uint32{'A': 1}
	cfg := &config.Config{
		UnorderedPointGroups: [][]uint32{{'A'}},
		FeatureSubsetCutoff:  2,
		TargetChunkSize:      1000,
	}
	fd := &FontData{Glyf: glyf, CMap: cmap}
	features := []FeatureRequest{
		{Tag: "liga", Parts: []FeaturePart{{ChunkRange: [2]uint32{1, 1}, Glyphs: []uint32{2, 3, 4, 5, 6}}}},
	}

	res, err := Partition(fd, cfg, features, "f", "r")
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	fm, ok := res.Table.FeatureMap[tagToUint32("liga")]
	if !ok {
		t.Fatalf("FeatureMap missing 'liga' entry: %v", res.Table.FeatureMap)
	}
	if len(fm.Ranges) != 1 || fm.Ranges[0].Start != 1 || fm.Ranges[0].End != 1 {
		t.Errorf("unexpected ranges: %+v", fm.Ranges)
	}
	for _, gid := range []uint32{2, 3, 4, 5, 6} {
		if res.Table.GidMap[gid] != fm.StartIndex {
			t.Errorf("GidMap[%d] = %d, want %d", gid, res.Table.GidMap[gid], fm.StartIndex)
		}
	}
}

func TestTagToUint32(t *testing.T) {
	if got := tagToUint32("liga"); got != 0x6c696761 {
		t.Errorf("tagToUint32(liga) = %#x, want 0x6c696761", got)
	}
}

func TestPartitionURITemplatesRecorded(t *testing.T) {
	glyf := buildSimpleGlyf([]int{10})
	fd := &FontData{Glyf: glyf, CMap: map[rune]uint32{}}
	cfg := &config.Config{TargetChunkSize: 1000}

	res, err := Partition(fd, cfg, nil, strings.Repeat("a", 10), "r")
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if res.Table.FilesURI != strings.Repeat("a", 10) {
		t.Errorf("FilesURI not recorded verbatim")
	}
}

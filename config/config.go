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

// Package config loads the logical ChunkingConfig value (spec §3, §6)
// from a YAML document, following the field names and duplicate-point
// resolution of original_source/config.cc.
package config

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the logical representation of how code points and features
// map to chunks. It is produced by Load and consumed by the encode
// package; it has no on-disk binary form of its own.
type Config struct {
	// BasePoints is the set of code points assigned to chunk 0.
	BasePoints []uint32

	// OrderedPointGroups holds, for each ordered_point_sets entry, the
	// code points in declaration order (duplicates against points used by
	// an earlier group dropped, first occurrence wins).
	OrderedPointGroups [][]uint32

	// UnorderedPointGroups holds, for each unordered_point_sets entry,
	// the remaining code points in ascending order once duplicates
	// against all previously used points have been subtracted.
	UnorderedPointGroups [][]uint32

	// FeatureSubsetCutoff is the reachable-glyph-count threshold below
	// which a feature's glyphs are inlined into the primary chunks.
	FeatureSubsetCutoff uint32

	// TargetChunkSize is the soft target, in bytes, for a chunk's
	// compressed payload.
	TargetChunkSize uint32
}

// document mirrors the on-disk YAML shape; base_points and each
// unordered_point_sets entry admit either scalar code points or
// [lo, hi] range pairs, so those fields are decoded as raw yaml.Node
// values and resolved by loadPointSet.
type document struct {
	BasePoints          []yaml.Node   `yaml:"base_points"`
	OrderedPointSets    [][]yaml.Node `yaml:"ordered_point_sets"`
	UnorderedPointSets  [][]yaml.Node `yaml:"unordered_point_sets"`
	FeatureSubsetCutoff uint32        `yaml:"feature_subset_cutoff"`
	TargetChunkSize     uint32        `yaml:"target_chunk_size"`
}

// Load decodes a ChunkingConfig from r.
//
// Per spec §6, a code point may appear in at most one of base_points, the
// ordered_point_sets, and the unordered_point_sets: this function
// resolves conflicts the way original_source/config.cc's used_points set
// does — silently, first occurrence wins — rather than raising
// ferror.DuplicatePoint, which the documented load algorithm never
// triggers.
func Load(r io.Reader) (*Config, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	used := make(map[uint32]bool)

	baseSet, err := loadPointSet(doc.BasePoints)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		FeatureSubsetCutoff: doc.FeatureSubsetCutoff,
		TargetChunkSize:     doc.TargetChunkSize,
		BasePoints:          sortedKeys(baseSet),
	}
	for p := range baseSet {
		used[p] = true
	}

	for _, group := range doc.OrderedPointSets {
		var ordered []uint32
		for _, n := range group {
			var p uint32
			if err := n.Decode(&p); err != nil {
				return nil, fmt.Errorf("config: ordered point group entry must be an integer: %w", err)
			}
			if used[p] {
				continue
			}
			used[p] = true
			ordered = append(ordered, p)
		}
		cfg.OrderedPointGroups = append(cfg.OrderedPointGroups, ordered)
	}

	for _, group := range doc.UnorderedPointSets {
		set, err := loadPointSet(group)
		if err != nil {
			return nil, err
		}
		var unordered []uint32
		for p := range set {
			if used[p] {
				continue
			}
			used[p] = true
			unordered = append(unordered, p)
		}
		sort.Slice(unordered, func(i, j int) bool { return unordered[i] < unordered[j] })
		cfg.UnorderedPointGroups = append(cfg.UnorderedPointGroups, unordered)
	}

	return cfg, nil
}

// loadPointSet resolves a sequence of YAML nodes, each either a scalar
// code point or a [lo, hi] two-element range, into a set of code points.
func loadPointSet(nodes []yaml.Node) (map[uint32]bool, error) {
	set := make(map[uint32]bool)
	for _, n := range nodes {
		switch n.Kind {
		case yaml.ScalarNode:
			var p uint32
			if err := n.Decode(&p); err != nil {
				return nil, fmt.Errorf("config: point must be an integer: %w", err)
			}
			set[p] = true
		case yaml.SequenceNode:
			var bounds []uint32
			if err := n.Decode(&bounds); err != nil {
				return nil, fmt.Errorf("config: range entry must be integers: %w", err)
			}
			if len(bounds) != 2 {
				return nil, fmt.Errorf("config: unicode ranges must have two values")
			}
			for p := bounds[0]; p <= bounds[1]; p++ {
				set[p] = true
			}
		default:
			return nil, fmt.Errorf("config: point must be an integer or a two-integer range sequence")
		}
	}
	return set, nil
}

func sortedKeys(set map[uint32]bool) []uint32 {
	out := make([]uint32, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

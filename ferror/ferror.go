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

// Package ferror defines the typed error conditions raised while reading,
// writing, or querying an IFTB-augmented font.
package ferror

import "fmt"

// BadVersion indicates that an IFTB table's majorVersion/minorVersion pair
// is not the single version (0, 1) this package understands.
type BadVersion struct {
	Major, Minor uint16
}

func (e *BadVersion) Error() string {
	return fmt.Sprintf("iftb: unsupported table version %d.%d", e.Major, e.Minor)
}

// TruncatedTable indicates a read past the end of the supplied buffer.
type TruncatedTable struct {
	Field string
}

func (e *TruncatedTable) Error() string {
	return fmt.Sprintf("iftb: truncated table reading %s", e.Field)
}

// BadURI indicates a URI length prefix that exceeds the enclosing table's
// bounds, a zero-length URI, or a template referencing an out-of-range
// positional escape.
type BadURI struct {
	Reason string
}

func (e *BadURI) Error() string {
	return "iftb: bad URI: " + e.Reason
}

// ValueOutOfRange indicates a value that does not fit the chunk-index
// width it is being encoded with.
type ValueOutOfRange struct {
	Value uint32
	Width int
}

func (e *ValueOutOfRange) Error() string {
	return fmt.Sprintf("iftb: value %d does not fit in a %d-byte chunk index", e.Value, e.Width)
}

// DirectoryMalformed indicates that an sfnt table directory entry overlaps
// another table or extends past the end of the font.
type DirectoryMalformed struct {
	Reason string
}

func (e *DirectoryMalformed) Error() string {
	return "sfnt: malformed directory: " + e.Reason
}

// ChecksumMismatch indicates that a table's stored checksum disagrees with
// the recomputed value. Only ever returned by an explicit verification
// call, never by the default decode path.
type ChecksumMismatch struct {
	Tag      string
	Stored   uint32
	Computed uint32
}

func (e *ChecksumMismatch) Error() string {
	return fmt.Sprintf("sfnt: checksum mismatch for %q: stored %08x, computed %08x",
		e.Tag, e.Stored, e.Computed)
}

// DuplicatePoint indicates that a configuration assigns a code point to
// more than one point group.
type DuplicatePoint struct {
	CodePoint uint32
}

func (e *DuplicatePoint) Error() string {
	return fmt.Sprintf("config: code point U+%04X assigned to more than one group", e.CodePoint)
}

// WriteError wraps a failure from an underlying byte sink.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "iftb: write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrNoTable indicates that a required sfnt table is missing from the font.
type ErrNoTable struct {
	Tag string
}

func (e *ErrNoTable) Error() string {
	return "sfnt: missing " + e.Tag + " table in font"
}

// IsMissing returns true if err indicates a missing sfnt table.
func IsMissing(err error) bool {
	_, missing := err.(*ErrNoTable)
	return missing
}

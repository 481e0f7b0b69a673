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

// Package uritemplate renders a chunk's URI from the filesURI/rangeFileURI
// template strings stored in an IFTB table (spec §4.5), substituting
// $1..$8 with hex digits of the chunk index and $$ with a literal '$'.
package uritemplate

import (
	"fmt"

	"github.com/adobe/binned-ift-reference/ferror"
)

// Render expands template against idx. The template's escape sequences
// are $$ (literal '$') and $1..$8 (the d-th least-significant hex digit
// of idx, rendered from an 8-digit zero-padded lowercase hex string: $1
// is the last digit, $8 the first). Any other $x is an error.
func Render(template string, idx uint32) (string, error) {
	digits := fmt.Sprintf("%08x", idx)

	out := make([]byte, 0, len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(template) {
			return "", &ferror.BadURI{Reason: "template ends with a bare '$'"}
		}
		switch d := template[i]; {
		case d == '$':
			out = append(out, '$')
		case d >= '1' && d <= '8':
			out = append(out, digits[8-(d-'0')])
		default:
			return "", &ferror.BadURI{Reason: fmt.Sprintf("invalid template escape '$%c'", d)}
		}
	}
	return string(out), nil
}

// Copyright 2025 Florian Zenker (flo@znkr.io)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package seqview provides read-only directional views over residue sequences.
//
// Extensions to the left of a seed walk the sequences backwards. Instead of copying and
// reversing the input, the aligners read residues through a View which maps the i-th residue of
// the extension to the right position of the underlying buffer. A view may also read from a
// buffer that stores four nucleotides per byte (NCBI2na).
package seqview

import "iter"

// Fence is the residue value that marks a guard region in a subject buffer. Aligners stop when
// they read it. Packed views never yield it.
const Fence = 201

// View is a read-only view of n residues of a sequence.
type View struct {
	data    []byte
	origin  int // absolute position of residue 0
	n       int
	reverse bool
	packed  bool
}

// Forward returns a view of data[start:start+n].
func Forward(data []byte, start, n int) View {
	return View{data: data, origin: start, n: n}
}

// Reverse returns a view that reads data[end-1], data[end-2], ... for n residues.
func Reverse(data []byte, end, n int) View {
	return View{data: data, origin: end - 1, n: n, reverse: true}
}

// PackedForward is like Forward for a buffer that stores four residues per byte, the first
// residue in the two most significant bits. Positions are residue positions, not byte offsets.
func PackedForward(data []byte, start, n int) View {
	return View{data: data, origin: start, n: n, packed: true}
}

// PackedReverse is like Reverse for a buffer that stores four residues per byte.
func PackedReverse(data []byte, end, n int) View {
	return View{data: data, origin: end - 1, n: n, reverse: true, packed: true}
}

func (v View) Len() int { return v.n }

// Packed reports whether the view decodes a packed buffer.
func (v View) Packed() bool { return v.packed }

// At returns the i-th residue of the view.
func (v View) At(i int) byte {
	pos := v.origin + i
	if v.reverse {
		pos = v.origin - i
	}
	if !v.packed {
		return v.data[pos]
	}
	return (v.data[pos>>2] >> (6 - 2*(pos&3))) & 3
}

// Residues returns an iterator over all residues in view order.
func (v View) Residues() iter.Seq[byte] {
	return func(yield func(byte) bool) {
		for i := range v.n {
			if !yield(v.At(i)) {
				break
			}
		}
	}
}

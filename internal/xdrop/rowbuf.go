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

package xdrop

// cell is a DP cell of the score row.
type cell struct {
	best    int // best score ending in this column
	bestGap int // best score for a gap in the query sequence that ends in this column
}

// rowBuffer is the score row. It's reused across rows and alignments and only ever grows.
type rowBuffer struct {
	cells []cell
}

// ensure grows the buffer so that at least n cells are available, preserving existing content.
func (r *rowBuffer) ensure(n int) {
	if n < len(r.cells) {
		return
	}
	cells := make([]cell, max(n+100, 2*len(r.cells)))
	copy(cells, r.cells)
	r.cells = cells
}

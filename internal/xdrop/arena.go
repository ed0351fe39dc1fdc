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

// DefaultChunkSize is the minimal number of traceback cells in an arena chunk.
const DefaultChunkSize = 2097152

type chunk struct {
	cells []action
	used  int
}

// Arena stores traceback rows. Memory is organized in chunks that are kept across alignments.
// Rows are addressed by (chunk, offset) handles, which stay valid when more chunks are added.
type Arena struct {
	chunks   []chunk
	minChunk int
	allocs   int
}

// NewArena creates an empty arena. Chunks have at least minChunk cells; minChunk <= 0 selects
// DefaultChunkSize.
func NewArena(minChunk int) *Arena {
	if minChunk <= 0 {
		minChunk = DefaultChunkSize
	}
	return &Arena{minChunk: minChunk}
}

// get returns the index of a chunk that has room for a row of about length cells.
//
// The first chunk with enough free space is used. An empty chunk that is too small is replaced
// by a larger one. If no chunk fits, a new chunk is appended.
func (a *Arena) get(length int) int {
	size := max(a.minChunk, length+length/3)
	length += length / 3 // leave some slack so the end of a chunk can be reused
	for i := range a.chunks {
		c := &a.chunks[i]
		if length < len(c.cells)-c.used {
			return i
		}
		if c.used == 0 {
			c.cells = a.alloc(size)
			return i
		}
	}
	a.chunks = append(a.chunks, chunk{cells: a.alloc(size)})
	return len(a.chunks) - 1
}

func (a *Arena) alloc(n int) []action {
	a.allocs++
	return make([]action, n)
}

// Purge marks all chunks as unused. Their storage is kept and cell contents are not cleared.
func (a *Arena) Purge() {
	for i := range a.chunks {
		a.chunks[i].used = 0
	}
}

// Release drops all chunks.
func (a *Arena) Release() {
	a.chunks = nil
}

// Allocs returns the number of chunk buffers allocated over the lifetime of the arena.
func (a *Arena) Allocs() int { return a.allocs }

// Cap returns the total number of cells in all chunks.
func (a *Arena) Cap() int {
	n := 0
	for _, c := range a.chunks {
		n += len(c.cells)
	}
	return n
}

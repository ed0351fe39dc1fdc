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

package greedy

const spaceChunkSize = 1 << 16

// space hands out slices from a list of chunks. All slices are released at once by reset, the
// chunks are kept for the next alignment.
type space[T any] struct {
	chunks [][]T
	cur    int // chunk to allocate from
	used   int // cells used in the current chunk
}

func (s *space[T]) reset() {
	s.cur, s.used = 0, 0
}

// alloc returns a zeroed slice of n cells.
func (s *space[T]) alloc(n int) []T {
	for s.cur < len(s.chunks) {
		c := s.chunks[s.cur]
		if len(c)-s.used >= n {
			out := c[s.used : s.used+n : s.used+n]
			clear(out)
			s.used += n
			return out
		}
		s.cur++
		s.used = 0
	}
	s.chunks = append(s.chunks, make([]T, max(n, spaceChunkSize)))
	s.used = n
	return s.chunks[s.cur][:n:n]
}

// band is a row of values for the diagonals [lo, lo+len(v)).
type band[T any] struct {
	lo int
	v  []T
}

func (b band[T]) hi() int { return b.lo + len(b.v) - 1 }

func (b band[T]) empty() bool { return len(b.v) == 0 }

// at returns the value for diagonal k and false if k isn't part of the band.
func (b band[T]) at(k int) (T, bool) {
	if k < b.lo || k >= b.lo+len(b.v) {
		var zero T
		return zero, false
	}
	return b.v[k-b.lo], true
}

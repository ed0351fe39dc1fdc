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

import (
	"math"

	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/seqview"
)

// minScore is the score of infeasible cells. It's far enough from math.MinInt32 that
// subtracting gap costs never underflows.
const minScore = math.MinInt32 / 2

// initialRows is the initial capacity of the row index.
const initialRows = 100

// action is the traceback information of a single DP cell.
type action struct {
	op edits.Op

	// extendA is set if a gap in the query (a Del) leaving this cell to the right extends a gap
	// that ends in this cell.
	extendA bool

	// extendB is set if a gap in the subject (an Ins) leaving this cell downwards extends a gap
	// that ends in this cell.
	extendB bool
}

// rowRef locates a traceback row in the arena. The cell for column b is stored at
// chunks[chunk].cells[start+b-col0].
type rowRef struct {
	chunk int
	start int
	col0  int
}

// Params are the parameters of a single extension.
type Params struct {
	GapOpen   int
	GapExtend int
	XDrop     int
}

// Rows returns the substitution scores for the a-th query residue of an extension (1-based),
// indexed by subject residue.
type Rows func(a int) []int

// State owns all memory used by Align. It's reused across alignments and must not be used
// concurrently.
type State struct {
	arena *Arena
	buf   rowBuffer
	index []rowRef
}

// NewState creates a State with a score row of rowCap cells and arena chunks of at least
// chunkSize cells.
func NewState(chunkSize, rowCap int) *State {
	st := &State{arena: NewArena(chunkSize)}
	if rowCap > 0 {
		st.buf.cells = make([]cell, rowCap)
	}
	return st
}

// Arena returns the traceback arena.
func (st *State) Arena() *Arena { return st.arena }

// Release drops all memory held by the state.
func (st *State) Release() {
	st.arena.Release()
	st.buf.cells = nil
	st.index = nil
}

// Align computes the best scoring alignment of m query residues against the subject residues
// in b that starts at the origin and extends into both sequences. Cells that fall more than
// p.XDrop below the best score seen so far are pruned.
//
// It returns the best score and the number of query (a) and subject (b) residues consumed by
// the alignment reaching it. The traceback is appended to block from the end of the alignment
// back to the origin, unless block is nil.
//
// If b contains seqview.Fence, the computation stops, fenceHit is true and the block is left
// untouched. The returned offsets must not be trusted in that case.
func (st *State) Align(m int, rows Rows, b seqview.View, p Params, block *edits.Block) (best, aOff, bOff int, fenceHit bool) {
	n := b.Len()
	gapExtend := p.GapExtend
	gapOpenExtend := p.GapOpen + p.GapExtend
	xdrop := max(p.XDrop, gapOpenExtend)

	if n <= 0 || m <= 0 {
		return 0, 0, 0, false
	}

	st.arena.Purge()
	st.index = st.index[:0]
	if cap(st.index) < initialRows {
		st.index = make([]rowRef, 0, initialRows)
	}

	// Cells in a row are gaps in the query. Starting from the best score, a row can only
	// extend numExtraCells columns past the end of the row before failing the X-drop test.
	var numExtraCells int
	if gapExtend > 0 {
		numExtraCells = xdrop/gapExtend + 3
	} else {
		numExtraCells = n + 3
	}
	st.buf.ensure(numExtraCells)

	// Row 0 only consists of gaps in the query.
	c := st.arena.get(numExtraCells)
	ch := &st.arena.chunks[c]
	start := ch.used
	st.index = append(st.index, rowRef{chunk: c, start: start, col0: 0})

	buf := st.buf.cells
	buf[0] = cell{best: 0, bestGap: -gapOpenExtend}
	score := -gapOpenExtend
	i := 1
	for ; i <= n; i++ {
		if score < -xdrop {
			break
		}
		buf[i] = cell{best: score, bestGap: score - gapOpenExtend}
		score -= gapExtend
		ch.cells[start+i] = action{op: edits.Del}
	}
	ch.used = start + i + 1

	bSize := i // columns [first, bSize) are active
	first := 0
	fenced := !b.Packed()

	for a := 1; a <= m; a++ {
		// It's not known how far to the right this row is going to extend. All that's known is
		// that the previous row failed the X-drop test after bSize columns and that this row
		// can't extend more than numExtraCells past that.
		if gapExtend > 0 {
			c = st.arena.get(bSize - first + numExtraCells)
		} else {
			c = st.arena.get(n + 3 - first)
		}
		ch = &st.arena.chunks[c]
		start = ch.used + 1
		st.index = append(st.index, rowRef{chunk: c, start: start, col0: first})
		base := start - first // cells[base+col] is the cell for column col
		orig := first

		mrow := rows(a)
		buf = st.buf.cells
		score = minScore
		scoreGapRow := minScore
		last := first

		var col int
		for col = first; col < bSize; col++ {
			scoreGapCol := buf[col].bestGap

			// Diagonal score for the next column.
			nextScore := minScore
			if col < n {
				r := b.At(col)
				if fenced && r == seqview.Fence {
					fenceHit = true
					break
				}
				nextScore = buf[col].best + mrow[r]
			}

			act := action{op: edits.Sub}
			if score < scoreGapCol {
				act.op = edits.Ins
				score = scoreGapCol
			}
			if score < scoreGapRow {
				act.op = edits.Del
				score = scoreGapRow
			}

			if best-score > xdrop {
				if first == col {
					first++
				} else {
					buf[col] = cell{best: minScore, bestGap: minScore}
				}
			} else {
				last = col
				if score > best {
					best = score
					aOff = a
					bOff = col
				}

				scoreGapRow -= gapExtend
				scoreGapCol -= gapExtend
				if scoreGapCol < score-gapOpenExtend {
					buf[col].bestGap = score - gapOpenExtend
				} else {
					buf[col].bestGap = scoreGapCol
					act.extendB = true
				}
				if scoreGapRow < score-gapOpenExtend {
					scoreGapRow = score - gapOpenExtend
				} else {
					act.extendA = true
				}
				buf[col].best = score
			}

			score = nextScore
			ch.cells[base+col] = act
		}

		if first == bSize || fenceHit {
			break
		}

		st.buf.ensure(last + numExtraCells + 3)
		buf = st.buf.cells

		if last < bSize-1 {
			bSize = last + 1
		} else {
			// The row survived up to its right end, keep extending it with gaps in the query
			// for as long as it passes the X-drop test.
			for scoreGapRow >= best-xdrop && bSize <= n {
				buf[bSize] = cell{best: scoreGapRow, bestGap: scoreGapRow - gapOpenExtend}
				scoreGapRow -= gapExtend
				ch.cells[base+bSize] = action{op: edits.Del}
				bSize++
			}
		}

		// Only account for the cells this row actually used.
		ch.used += max(col, bSize) - orig + 1

		if bSize <= n {
			buf[bSize] = cell{best: minScore, bestGap: minScore}
			bSize++
		}
	}

	if fenceHit {
		return best, aOff, bOff, true
	}
	if block != nil {
		st.traceback(aOff, bOff, block)
	}
	return best, aOff, bOff, false
}

// traceback walks from (a, b) back to the origin and records one operation per step.
func (st *State) traceback(a, b int, block *edits.Block) {
	op := edits.Sub
	for a > 0 || b > 0 {
		r := st.index[a]
		next := st.arena.chunks[r.chunk].cells[r.start+b-r.col0]

		switch op {
		case edits.Del:
			op = next.op
			if next.extendA {
				op = edits.Del
			}
		case edits.Ins:
			op = next.op
			if next.extendB {
				op = edits.Ins
			}
		default:
			op = next.op
		}

		switch op {
		case edits.Del:
			b--
		case edits.Ins:
			a--
		case edits.Sub:
			a--
			b--
		default:
			panic("never reached")
		}
		block.Add(op, 1)
	}
}

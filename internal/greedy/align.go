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

import (
	"errors"
	"fmt"

	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/seqview"
)

// ErrDistanceExceeded is returned if the search needs a larger distance than the workspace
// supports. The search can be repeated with a grown workspace.
var ErrDistanceExceeded = errors.New("greedy: maximum distance exceeded")

// invalid marks offsets of diagonals that aren't reached or were pruned.
const invalid = -1

// Seed is the longest run of matches found during an extension, in extension coordinates.
type Seed struct {
	Query, Subject int
	Len            int
}

// Extension is the result of Align.
type Extension struct {
	// Score is the number of differences without gap costs and the alignment score with gap
	// costs.
	Score int

	// Number of residues of the query and subject covered by the extension.
	QueryLen, SubjectLen int

	Seed Seed

	// FenceHit is set if the extension ran into a fence in the subject. All other fields except
	// for Seed are zero in that case.
	FenceHit bool
}

// point is the best point of a search: the query offset i on diagonal k = i - j reached with
// cost d.
type point struct {
	d, k, i int
}

// search holds the inputs of an extension and tracks the longest run of matches.
type search struct {
	a, b   seqview.View
	fenced bool
	seed   Seed
}

// slide follows the matches starting at (i, j) and returns the query offset of the first
// mismatch. It reports true if the run ends in a fence.
func (s *search) slide(i, j int) (int, bool) {
	i0 := i
	n1, n2 := s.a.Len(), s.b.Len()
	for i < n1 && j < n2 {
		r := s.b.At(j)
		if s.fenced && r == seqview.Fence {
			return i, true
		}
		if s.a.At(i) != r {
			break
		}
		i++
		j++
	}
	if n := i - i0; n > s.seed.Len {
		s.seed = Seed{Query: i0, Subject: j - n, Len: n}
	}
	return i, false
}

// Align extends an alignment from the origin of a (the query) and b (the subject) with a greedy
// search over diagonals and returns the best point found. The search stops when all diagonals
// fall more than p.XDrop below the best score.
//
// Without gap costs, the score of a point is derived from the number of differences to reach it.
// The returned Score is that number. With gap costs, the returned Score is the alignment score.
//
// If block is non-nil, the operations of the alignment are appended to it, from the best point
// back to the origin. The subject may be packed (see seqview.PackedForward), fences are only
// recognized in unpacked subjects.
func Align(a, b seqview.View, p Params, ws *Workspace, block *edits.Block) (Extension, error) {
	if p.Affine() != ws.Affine() {
		return Extension{}, fmt.Errorf("greedy: workspace layout doesn't match gap costs %d, %d", p.GapOpen, p.GapExtend)
	}
	if p.XDrop > ws.xdrop {
		return Extension{}, fmt.Errorf("greedy: X-drop %d exceeds the workspace X-drop %d", p.XDrop, ws.xdrop)
	}

	s := &search{a: a, b: b, fenced: !b.Packed()}
	c := newCosts(p, p.XDrop)
	dDiff := (c.xdrop+c.reward/2)/c.unit + 1

	// All differences cost the same on the first diagonal, follow it as far as possible.
	n0, fence := s.slide(0, 0)
	if fence {
		return Extension{Seed: s.seed, FenceHit: true}, nil
	}
	if n0 == a.Len() || n0 == b.Len() {
		if block != nil {
			block.Add(edits.Sub, n0)
		}
		score := 0
		if p.Affine() {
			score = n0 * p.Reward
		}
		return Extension{Score: score, QueryLen: n0, SubjectLen: n0, Seed: s.seed}, nil
	}

	if !p.Affine() {
		return s.alignDiff(n0, c, dDiff, ws, block)
	}
	as := &affineSearch{search: s, c: c, ws: ws, traceback: block != nil, origin: ws.maxDist + 2}
	return as.align(n0, dDiff, block)
}

// alignDiff searches without gap costs. A d-path is a path with d differences, the row of d
// stores the furthest reaching d-path on every diagonal.
func (s *search) alignDiff(n0 int, c costs, dDiff int, ws *Workspace, block *edits.Block) (Extension, error) {
	n1, n2 := s.a.Len(), s.b.Len()
	half := c.reward / 2
	origin := ws.maxDist + 2
	traceback := block != nil

	ws.ints.reset()
	ws.intRows = ws.intRows[:0]
	newRow := func(d, lo, hi int) band[int] {
		if traceback {
			return band[int]{lo, ws.ints.alloc(hi - lo + 1)}
		}
		return band[int]{lo, ws.rows[d%2][origin+lo : origin+hi+1]}
	}

	// maxScore[d+dDiff] is the best score with at most d differences.
	ms := ws.maxScore
	clear(ms[:dDiff])
	ms[dDiff] = 2 * n0 * half

	prev := newRow(0, 0, 0)
	prev.v[0] = n0
	if traceback {
		ws.intRows = append(ws.intRows, prev)
	}
	best := point{d: 0, k: 0, i: n0}

	for d := 1; ; d++ {
		if d > ws.maxCost {
			return Extension{}, ErrDistanceExceeded
		}
		lo, hi := prev.lo-1, prev.hi()+1
		row := newRow(d, lo, hi)
		threshold := ms[d] - c.xdrop // best score with d - dDiff differences minus X
		first, last := hi+1, lo-1
		bestExt, bestK, bestI := -1, 0, 0
		for k := lo; k <= hi; k++ {
			start, _ := stepDiff(prev, k, n1, n2)
			if start == invalid {
				row.v[k-lo] = invalid
				continue
			}
			end, fence := s.slide(start, start-k)
			if fence {
				return Extension{Seed: s.seed, FenceHit: true}, nil
			}
			ext := 2*end - k
			if ext*half-d*c.unit < threshold {
				row.v[k-lo] = invalid
				continue
			}
			row.v[k-lo] = end
			first, last = min(first, k), max(last, k)
			if ext > bestExt {
				bestExt, bestK, bestI = ext, k, end
			}
		}
		if first > last {
			break // everything pruned
		}
		row = band[int]{first, row.v[first-lo : last-lo+1]}
		if traceback {
			ws.intRows = append(ws.intRows, row)
		}
		if score := bestExt*half - d*c.unit; score > ms[d-1+dDiff] {
			ms[d+dDiff] = score
			best = point{d: d, k: bestK, i: bestI}
		} else {
			ms[d+dDiff] = ms[d-1+dDiff]
		}
		prev = row
	}

	if traceback {
		tracebackDiff(ws.intRows, best, n1, n2, block)
	}
	return Extension{Score: best.d, QueryLen: best.i, SubjectLen: best.i - best.k, Seed: s.seed}, nil
}

// stepDiff returns the furthest query offset on diagonal k that can be reached with one more
// difference from the paths in prev, before following any matches. It also returns the
// operation of that difference.
func stepDiff(prev band[int], k, n1, n2 int) (int, edits.Op) {
	start, op := invalid, edits.Sub
	if v, ok := prev.at(k); ok && v != invalid && v+1 <= n1 && v-k+1 <= n2 {
		start = v + 1
	}
	if v, ok := prev.at(k - 1); ok && v != invalid && v+1 <= n1 && v+1 > start {
		start, op = v+1, edits.Ins
	}
	if v, ok := prev.at(k + 1); ok && v != invalid && v-k <= n2 && v > start {
		start, op = v, edits.Del
	}
	return start, op
}

func tracebackDiff(rows []band[int], p point, n1, n2 int, block *edits.Block) {
	k, i := p.k, p.i
	for d := p.d; d > 0; d-- {
		start, op := stepDiff(rows[d-1], k, n1, n2)
		block.Add(edits.Sub, i-start)
		block.Add(op, 1)
		switch op {
		case edits.Sub:
			i = start - 1
		case edits.Ins:
			i = start - 1
			k--
		case edits.Del:
			i = start
			k++
		}
	}
	if k != 0 {
		panic("traceback didn't end on the first diagonal")
	}
	block.Add(edits.Sub, i)
}

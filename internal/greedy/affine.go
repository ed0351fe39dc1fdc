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

import "znkr.io/gapalign/internal/edits"

// offset stores the furthest reaching query offsets on a diagonal for a given cost: m for paths
// in any state after following all matches, ins for paths ending in an insertion and del for
// paths ending in a deletion.
type offset struct {
	m, ins, del int
}

var noOffset = offset{m: invalid, ins: invalid, del: invalid}

type affineSearch struct {
	*search
	c         costs
	ws        *Workspace
	traceback bool
	origin    int // index of diagonal 0 in a ring row
}

// row returns the row for cost d.
func (s *affineSearch) row(d int) band[offset] {
	if d < 0 {
		return band[offset]{}
	}
	if s.traceback {
		return s.ws.offsetRows[d]
	}
	lo, hi := s.ws.bounds[2*d], s.ws.bounds[2*d+1]
	if lo > hi {
		return band[offset]{}
	}
	r := s.ws.affineRows[d%len(s.ws.affineRows)]
	return band[offset]{lo, r[s.origin+lo : s.origin+hi+1]}
}

func (s *affineSearch) newRow(d, lo, hi int) band[offset] {
	if s.traceback {
		return band[offset]{lo, s.ws.offsets.alloc(hi - lo + 1)}
	}
	r := s.ws.affineRows[d%len(s.ws.affineRows)]
	return band[offset]{lo, r[s.origin+lo : s.origin+hi+1]}
}

// setRow records the final bounds of the row for cost d.
func (s *affineSearch) setRow(d int, r band[offset]) {
	if s.traceback {
		s.ws.offsetRows = append(s.ws.offsetRows, r)
		return
	}
	if r.empty() {
		s.ws.bounds[2*d], s.ws.bounds[2*d+1] = 1, 0
		return
	}
	s.ws.bounds[2*d], s.ws.bounds[2*d+1] = r.lo, r.hi()
}

// align searches with affine gap costs. The cost d of a path is the sum of the costs of its
// mismatches and gaps in units, the row of d stores the furthest reaching paths of cost d on
// every diagonal. The recurrences are
//
//	ins(d, k) = max(m(d-open-extend, k-1), ins(d-extend, k-1)) + 1
//	del(d, k) = max(m(d-open-extend, k+1), del(d-extend, k+1))
//	m(d, k)   = slide(max(m(d-mismatch, k) + 1, ins(d, k), del(d, k)))
//
// Not every cost is reachable, rows can be empty.
func (s *affineSearch) align(n0, dDiff int, block *edits.Block) (Extension, error) {
	c, ws := s.c, s.ws
	n1, n2 := s.a.Len(), s.b.Len()
	half := c.reward / 2

	ws.offsets.reset()
	ws.offsetRows = ws.offsetRows[:0]

	ms := ws.maxScore
	clear(ms[:dDiff])
	ms[dDiff] = 2 * n0 * half

	row0 := s.newRow(0, 0, 0)
	row0.v[0] = offset{m: n0, ins: invalid, del: invalid}
	s.setRow(0, row0)
	best := point{d: 0, k: 0, i: n0}
	lastNonEmpty := 0

	for d := 1; d-lastNonEmpty <= c.step; d++ {
		if d > ws.maxCost {
			return Extension{}, ErrDistanceExceeded
		}
		rm, ro, re := s.row(d-c.mis), s.row(d-c.open-c.extend), s.row(d-c.extend)
		lo, hi := bounds(rm, ro, re)
		if lo > hi {
			s.setRow(d, band[offset]{})
			ms[d+dDiff] = ms[d-1+dDiff]
			continue
		}

		row := s.newRow(d, lo, hi)
		threshold := ms[d] - c.xdrop
		first, last := hi+1, lo-1
		bestExt, bestK, bestI := -1, 0, 0
		for k := lo; k <= hi; k++ {
			o, start, _ := stepAffine(rm, ro, re, k, n1, n2)
			if start == invalid {
				row.v[k-lo] = noOffset
				continue
			}
			end, fence := s.slide(start, start-k)
			if fence {
				return Extension{Seed: s.seed, FenceHit: true}, nil
			}
			ext := 2*end - k
			if ext*half-d*c.unit < threshold {
				row.v[k-lo] = noOffset
				continue
			}
			o.m = end
			row.v[k-lo] = o
			first, last = min(first, k), max(last, k)
			if ext > bestExt {
				bestExt, bestK, bestI = ext, k, end
			}
		}

		if first > last {
			s.setRow(d, band[offset]{})
			ms[d+dDiff] = ms[d-1+dDiff]
			continue
		}
		s.setRow(d, band[offset]{first, row.v[first-lo : last-lo+1]})
		lastNonEmpty = d
		if score := bestExt*half - d*c.unit; score > ms[d-1+dDiff] {
			ms[d+dDiff] = score
			best = point{d: d, k: bestK, i: bestI}
		} else {
			ms[d+dDiff] = ms[d-1+dDiff]
		}
	}

	if block != nil {
		s.tracebackAffine(best, block)
	}
	score := (2*best.i-best.k)*half - best.d*c.unit
	return Extension{
		Score:      score / c.scale,
		QueryLen:   best.i,
		SubjectLen: best.i - best.k,
		Seed:       s.seed,
	}, nil
}

// bounds returns the range of diagonals reachable from the rows rm (by a mismatch), ro (by
// opening a gap) and re (by extending a gap).
func bounds(rm, ro, re band[offset]) (lo, hi int) {
	lo, hi = 1, 0
	add := func(l, h int) {
		if lo > hi {
			lo, hi = l, h
			return
		}
		lo, hi = min(lo, l), max(hi, h)
	}
	if !rm.empty() {
		add(rm.lo, rm.hi())
	}
	if !ro.empty() {
		add(ro.lo-1, ro.hi()+1)
	}
	if !re.empty() {
		add(re.lo-1, re.hi()+1)
	}
	return lo, hi
}

// stepAffine computes the gap states of diagonal k and the furthest query offset reachable
// before following matches, together with the operation that reaches it.
func stepAffine(rm, ro, re band[offset], k, n1, n2 int) (o offset, start int, op edits.Op) {
	o = noOffset

	// Insertions advance in the query, deletions in the subject.
	if v, ok := ro.at(k - 1); ok && v.m != invalid && v.m+1 <= n1 {
		o.ins = v.m + 1
	}
	if v, ok := re.at(k - 1); ok && v.ins != invalid && v.ins+1 <= n1 {
		o.ins = max(o.ins, v.ins+1)
	}
	if v, ok := ro.at(k + 1); ok && v.m != invalid && v.m-k <= n2 {
		o.del = v.m
	}
	if v, ok := re.at(k + 1); ok && v.del != invalid && v.del-k <= n2 {
		o.del = max(o.del, v.del)
	}

	start, op = invalid, edits.Sub
	if v, ok := rm.at(k); ok && v.m != invalid && v.m+1 <= n1 && v.m-k+1 <= n2 {
		start = v.m + 1
	}
	if o.ins > start {
		start, op = o.ins, edits.Ins
	}
	if o.del > start {
		start, op = o.del, edits.Del
	}
	return o, start, op
}

// tracebackAffine replays the search from p back to the origin.
func (s *affineSearch) tracebackAffine(p point, block *edits.Block) {
	c := s.c
	n1, n2 := s.a.Len(), s.b.Len()
	d, k, i := p.d, p.k, p.i
	state := edits.Sub // Sub stands for the m state
	for {
		switch state {
		case edits.Sub:
			if d == 0 {
				if k != 0 {
					panic("traceback didn't end on the first diagonal")
				}
				block.Add(edits.Sub, i)
				return
			}
			_, start, op := stepAffine(s.row(d-c.mis), s.row(d-c.open-c.extend), s.row(d-c.extend), k, n1, n2)
			block.Add(edits.Sub, i-start)
			if op == edits.Sub {
				block.Add(edits.Sub, 1)
				d -= c.mis
				i = start - 1
				continue
			}
			state, i = op, start
		case edits.Ins:
			block.Add(edits.Ins, 1)
			k--
			i--
			if v, ok := s.row(d - c.extend).at(k); ok && v.ins == i {
				d -= c.extend
				continue
			}
			d -= c.open + c.extend
			state = edits.Sub
		case edits.Del:
			block.Add(edits.Del, 1)
			k++
			if v, ok := s.row(d - c.extend).at(k); ok && v.del == i {
				d -= c.extend
				continue
			}
			d -= c.open + c.extend
			state = edits.Sub
		}
	}
}

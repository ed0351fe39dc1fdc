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

// Package gapreduce normalizes the placement of gaps in an alignment.
//
// Aligners often find several placements of a gap with the same score, e.g., an insertion in a
// homopolymer run can be placed anywhere in the run. The placement an aligner picks depends on
// tie breaking in the inner loop, which makes alignments hard to compare. Reduce moves gaps to
// positions that maximize the matches next to long substitution runs and removes pairs of
// opposing gaps around short substitution runs.
package gapreduce

import (
	"slices"

	"znkr.io/gapalign/internal/edits"
)

// minRun is the minimum length of a substitution run that borrows matches from its neighbors. It
// is also the upper bound of the total length of a gap, substitution, gap pattern that is
// considered for shifting.
const minRun = 12

// Reduce returns a copy of runs with gaps moved to better positions. The query q and subject s
// must hold exactly the residues covered by runs. The result covers the same residues and is a
// fixed point: reducing it again doesn't change it.
func Reduce(runs []edits.Run, q, s []byte) []edits.Run {
	out := rebuild(slices.Clone(runs))
	// Every round that changes the runs either removes gap residues or grows a long substitution
	// run without shrinking another one, so this terminates.
	for {
		next := borrow(slices.Clone(out), q, s)
		next = rebuild(next)
		next = shift(next, q, s)
		next = rebuild(next)
		if slices.Equal(next, out) {
			return out
		}
		out = next
	}
}

// borrow extends every long substitution run by the matches that immediately precede and follow
// it on its diagonal. The adjacent gaps move out of the way. Residues are only taken from gaps and
// short substitution runs, never from another long run.
func borrow(runs []edits.Run, q, s []byte) []edits.Run {
	qi, si := 0, 0
	for i := 0; i < len(runs); i++ {
		r := runs[i]
		if r.Len == 0 {
			continue
		}
		switch r.Op {
		case edits.Ins:
			qi += r.Len
			continue
		case edits.Del:
			si += r.Len
			continue
		}

		qend, send := qi+r.Len, si+r.Len
		if r.Len < minRun {
			qi, si = qend, send
			continue
		}

		// The first residue of the box is never borrowed, such that no leading gap is created.
		before := 0
		if i > 0 {
			for qi-before-1 > 0 && si-before-1 > 0 && q[qi-before-1] == s[si-before-1] {
				before++
			}
		}
		// Same for the last residue.
		after := 0
		if i < len(runs)-1 {
			for qend+after+1 < len(q) && send+after+1 < len(s) && q[qend+after] == s[send+after] {
				after++
			}
		}

		qn, sn := reach(runs, i, -1)
		before = min(before, qn, sn)
		qn, sn = reach(runs, i, 1)
		after = min(after, qn, sn)

		applied := 0
		if before > 0 || after > 0 {
			runs, i, applied = update(runs, i, before, after)
		}
		qi, si = qend+applied, send+applied
	}
	return runs
}

// reach returns the number of query and subject residues covered by the runs next to runs[i] in
// direction dir, up to the closest long substitution run.
func reach(runs []edits.Run, i, dir int) (qn, sn int) {
	for j := i + dir; j >= 0 && j < len(runs); j += dir {
		r := runs[j]
		if r.Op == edits.Sub && r.Len >= minRun {
			break
		}
		qn, sn = consume(r, qn, sn)
	}
	return -qn, -sn
}

// update moves before residues from the runs preceding runs[pos] and after residues from the
// runs following it into runs[pos]. It returns the new runs, the new index of the substitution
// run and how many residues were moved from the following runs.
//
// The preceding (following) runs that provide the residues form a window. After the move, the
// residues that remain in the window are covered by one substitution run and one gap.
func update(runs []edits.Run, pos, before, after int) ([]edits.Run, int, int) {
	if before > 0 {
		op, qd, sd := pos, before, before
		for qd > 0 || sd > 0 {
			op--
			if op < 0 {
				return runs, pos, 0
			}
			qd, sd = consume(runs[op], qd, sd)
		}
		sub, gap := remainder(qd, sd)
		center := runs[pos]
		center.Len += before
		runs = slices.Concat(runs[:op], []edits.Run{sub, gap, center}, runs[pos+1:])
		pos = op + 2
	}

	if after > 0 {
		op, qd, sd := pos, after, after
		for qd > 0 || sd > 0 {
			op++
			if op >= len(runs) {
				return runs, pos, 0
			}
			qd, sd = consume(runs[op], qd, sd)
		}
		sub, gap := remainder(qd, sd)
		center := runs[pos]
		center.Len += after
		runs = slices.Concat(runs[:pos], []edits.Run{center, gap, sub}, runs[op+1:])
		return runs, pos, after
	}
	return runs, pos, 0
}

// consume subtracts the query and subject residues covered by r from qd and sd.
func consume(r edits.Run, qd, sd int) (int, int) {
	switch r.Op {
	case edits.Sub:
		return qd - r.Len, sd - r.Len
	case edits.Ins:
		return qd - r.Len, sd
	default:
		return qd, sd - r.Len
	}
}

// remainder returns the runs that cover -qd query and -sd subject residues.
func remainder(qd, sd int) (sub, gap edits.Run) {
	sub = edits.Run{Op: edits.Sub, Len: -max(qd, sd)}
	if qd > sd {
		gap = edits.Run{Op: edits.Del, Len: qd - sd}
	} else {
		gap = edits.Run{Op: edits.Ins, Len: sd - qd}
	}
	return sub, gap
}

// shift looks for short substitution runs between an insertion and a deletion and moves the
// substitution run to reduce both gaps, if that doesn't lose matches. runs must not contain
// adjacent gaps.
func shift(runs []edits.Run, q, s []byte) []edits.Run {
	qi, si := 0, 0
	for i := range runs {
		if runs[i].Op == edits.Sub {
			qi += runs[i].Len
			si += runs[i].Len
			continue
		}

		if i > 1 && runs[i].Op != runs[i-2].Op && runs[i-2].Len > 0 {
			g1, m, g2 := &runs[i-2], &runs[i-1], &runs[i]
			switch total := g1.Len + m.Len + g2.Len; {
			case total == 3:
				// A single aligned pair between two single gaps.
				g1.Len, m.Len, g2.Len = 0, 2, 0
				if g2.Op == edits.Ins {
					qi++
				} else {
					si++
				}
			case total < minRun:
				d := min(g1.Len, g2.Len)
				q1, s1 := qi-m.Len, si-m.Len
				q2, s2 := q1, s1
				if g2.Op == edits.Ins {
					s2 -= d
				} else {
					q2 -= d
				}
				nm1, nm2 := 0, 0
				for j := range m.Len {
					if q[q1+j] == s[s1+j] {
						nm1++
					}
					if q[q2+j] == s[s2+j] {
						nm2++
					}
				}
				for j := m.Len; j < m.Len+d; j++ {
					if q[q2+j] == s[s2+j] {
						nm2++
					}
				}
				if nm2 >= nm1-d {
					g1.Len -= d
					m.Len += d
					g2.Len -= d
					qi, si = q2+m.Len, s2+m.Len
				}
			}
		}

		if runs[i].Op == edits.Ins {
			qi += runs[i].Len
		} else {
			si += runs[i].Len
		}
	}
	return runs
}

// rebuild returns the runs without empty runs and with adjacent runs of the same type merged.
// Opposing gaps that end up next to each other are netted: The common part becomes aligned pairs
// that are added to the preceding substitution run.
func rebuild(runs []edits.Run) []edits.Run {
	out := make([]edits.Run, 0, len(runs))
	for _, r := range runs {
		if r.Len == 0 {
			continue
		}
		j := len(out) - 1
		switch {
		case j >= 0 && out[j].Op == r.Op:
			out[j].Len += r.Len
		case j < 0 || r.Op == edits.Sub || out[j].Op == edits.Sub:
			out = append(out, r)
		default:
			if j == 0 {
				out = slices.Insert(out, 0, edits.Run{Op: edits.Sub})
				j = 1
			}
			out[j-1].Len += min(out[j].Len, r.Len)
			switch d := out[j].Len - r.Len; {
			case d > 0:
				out[j].Len = d
			case d < 0:
				out[j] = edits.Run{Op: r.Op, Len: -d}
			default:
				out = out[:j]
			}
		}
	}
	return out
}

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

package gapalign

import (
	"go.uber.org/zap"
	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/seqview"
)

// TracebackExtend computes the gapped alignment through the seed at query[qOff] and
// subject[sOff] with banded dynamic programming and returns it with its edit script. The
// extension to the left includes the seed, the extension to the right doesn't. Sequences are
// encoded with blastna, subject bytes outside of blastna panic. The X-drop is configured with
// [WithXDropFinal].
//
// The alignment never starts or ends with a gap. If the best alignment does, the gap is removed
// and its cost is added back to the score. This can happen if the seed was found with a
// different scoring system.
func (al *Aligner) TracebackExtend(query, subject []byte, qOff, sOff int) (Result, error) {
	if err := al.checkSeed(query, qOff, sOff, len(subject)); err != nil {
		return Result{}, err
	}
	al.left.Reset()
	al.right.Reset()

	res, fence := al.extendDP(query, subject, qOff, sOff, al.cfg.XDropFinal, &al.left, &al.right)
	if fence {
		al.log.Debug("extension hit a fence", zap.Int("query", qOff), zap.Int("subject", sOff))
		al.res = res
		return res, nil
	}

	runs := al.trimGaps(edits.Assemble(&al.left, &al.right), &res)
	res.Script = EditScript(runs)
	al.res = res
	return res, nil
}

// trimGaps removes leading and trailing gaps from runs. The boundaries of res are moved
// accordingly and the cost of the gaps is added back to its score.
func (al *Aligner) trimGaps(runs []Run, res *Result) []Run {
	for len(runs) > 0 && runs[0].Op != Sub {
		r := runs[0]
		res.Score += al.scoring.GapOpen + r.Len*al.scoring.GapExtend
		if r.Op == Del {
			res.SubjectStart += r.Len
		} else {
			res.QueryStart += r.Len
		}
		al.log.Debug("trimmed leading gap", zap.Stringer("op", r.Op), zap.Int("len", r.Len))
		runs = runs[1:]
	}
	for len(runs) > 0 && runs[len(runs)-1].Op != Sub {
		r := runs[len(runs)-1]
		res.Score += al.scoring.GapOpen + r.Len*al.scoring.GapExtend
		if r.Op == Del {
			res.SubjectStop -= r.Len
		} else {
			res.QueryStop -= r.Len
		}
		al.log.Debug("trimmed trailing gap", zap.Stringer("op", r.Op), zap.Int("len", r.Len))
		runs = runs[:len(runs)-1]
	}
	return runs
}

// ScoreExtend computes the score and the boundaries of the gapped alignment through the seed at
// query[qOff] and subject[sOff] with banded dynamic programming, like [Aligner.TracebackExtend]
// but without an edit script. Subject bytes outside of blastna panic. The X-drop is configured
// with [WithXDrop].
//
// The seed of the result is the seed of the extension.
func (al *Aligner) ScoreExtend(query, subject []byte, qOff, sOff int) (Result, error) {
	if err := al.checkSeed(query, qOff, sOff, len(subject)); err != nil {
		return Result{}, err
	}
	res, fence := al.extendDP(query, subject, qOff, sOff, al.cfg.XDrop, nil, nil)
	if fence {
		al.log.Debug("extension hit a fence", zap.Int("query", qOff), zap.Int("subject", sOff))
	}
	al.res = res
	return res, nil
}

// extendDP runs the left and the right dynamic programming extension. The traceback of the
// extensions is recorded in left and right if they are non-nil.
func (al *Aligner) extendDP(query, subject []byte, qOff, sOff, x int, left, right *edits.Block) (Result, bool) {
	p := al.scoring.dpParams(x)
	res := Result{SeedQuery: qOff, SeedSubject: sOff}

	leftRows := func(a int) []int { return al.row(query, qOff+1-a) }
	score, qLen, sLen, fence := al.dp.Align(qOff+1, leftRows, seqview.Reverse(subject, sOff+1, sOff+1), p, left)
	res.Score = score
	res.QueryStart = qOff - qLen + 1
	res.SubjectStart = sOff - sLen + 1
	if fence {
		res.QueryStop, res.SubjectStop = qOff-1, sOff-1
		res.FenceHit = true
		return res, true
	}

	rightRows := func(a int) []int { return al.row(query, qOff+a) }
	m, n := len(query)-qOff-1, len(subject)-sOff-1
	score, qLen, sLen, fence = al.dp.Align(m, rightRows, seqview.Forward(subject, sOff+1, n), p, right)
	res.Score += score
	res.QueryStop = qOff + qLen + 1
	res.SubjectStop = sOff + sLen + 1
	res.FenceHit = fence
	return res, fence
}

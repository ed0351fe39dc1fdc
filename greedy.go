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
	"errors"
	"fmt"

	"go.uber.org/zap"
	"znkr.io/gapalign/internal/config"
	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/gapreduce"
	"znkr.io/gapalign/internal/greedy"
	"znkr.io/gapalign/internal/seqview"
)

// GreedyExtend extends the seed at query[qOff] and subject[sOff] to the right and to the left
// with a greedy search for near identical sequences. The extension to the right includes the
// seed, the extension to the left doesn't. Sequences are encoded with blastna.
//
// Without [Traceback], the result has no edit script. Instead, SeedQuery and SeedSubject are
// placed in the middle of the longest run of matches found by the search. With [Traceback], the
// gaps of the edit script are moved to canonical positions.
//
// If the search needs a larger workspace, the workspace is doubled and the search is repeated,
// see [WithMaxRetries].
//
// The following options are supported: [Traceback], [PackedSubject]
func (al *Aligner) GreedyExtend(query, subject []byte, qOff, sOff int, opts ...Option) (Result, error) {
	if al.closed {
		return Result{}, ErrClosed
	}
	if al.cfg.Mode != config.ModeGreedy {
		return Result{}, fmt.Errorf("%w: greedy extension with an aligner in dynamic programming mode", ErrInvalidArgument)
	}
	cfg := config.FromOptions(al.cfg, opts, config.Traceback|config.PackedSubject)

	sLen := len(subject)
	if cfg.PackedSubject {
		if cfg.SubjectLength > 4*len(subject) {
			return Result{}, fmt.Errorf("%w: %d residues in %d packed bytes", ErrInvalidArgument, cfg.SubjectLength, len(subject))
		}
		sLen = cfg.SubjectLength
	}
	if err := al.checkSeed(query, qOff, sOff, sLen); err != nil {
		return Result{}, err
	}

	forward, reverse := seqview.Forward, seqview.Reverse
	if cfg.PackedSubject {
		forward, reverse = seqview.PackedForward, seqview.PackedReverse
	}
	var fwd, rev *edits.Block
	if cfg.Traceback {
		fwd, rev = &al.right, &al.left
	}
	p := al.scoring.greedyParams(cfg.XDrop)

	right, err := al.extend(seqview.Forward(query, qOff, len(query)-qOff), forward(subject, sOff, sLen-sOff), p, fwd)
	if err != nil {
		return Result{}, err
	}
	if right.FenceHit {
		return al.fenceHit(qOff, sOff), nil
	}
	left, err := al.extend(seqview.Reverse(query, qOff, qOff), reverse(subject, sOff, sOff), p, rev)
	if err != nil {
		return Result{}, err
	}
	if left.FenceHit {
		return al.fenceHit(qOff, sOff), nil
	}

	score := right.Score + left.Score
	if !p.Affine() {
		// The score of a unit cost search is its number of differences.
		covered := right.QueryLen + right.SubjectLen + left.QueryLen + left.SubjectLen
		score = covered*p.Reward/2 - score*(p.Reward-p.Penalty)
	}

	res := Result{
		QueryStart:   qOff - left.QueryLen,
		QueryStop:    qOff + right.QueryLen,
		SubjectStart: sOff - left.SubjectLen,
		SubjectStop:  sOff + right.SubjectLen,
		Score:        score,
		SeedQuery:    qOff,
		SeedSubject:  sOff,
	}
	if cfg.Traceback {
		runs := edits.Assemble(rev, fwd)
		runs = gapreduce.Reduce(runs, query[res.QueryStart:res.QueryStop], subject[res.SubjectStart:res.SubjectStop])
		res.Script = EditScript(runs)
	} else {
		res.SeedQuery, res.SeedSubject = estimateSeed(res, qOff, sOff, left.Seed, right.Seed)
	}
	al.res = res
	return res, nil
}

// extend runs a greedy extension and grows the workspace until the search fits.
func (al *Aligner) extend(q, s seqview.View, p greedy.Params, block *edits.Block) (greedy.Extension, error) {
	for retries := 0; ; retries++ {
		if block != nil {
			block.Reset()
		}
		ext, err := greedy.Align(q, s, p, al.ws, block)
		if !errors.Is(err, greedy.ErrDistanceExceeded) {
			return ext, err
		}
		if al.cfg.MaxRetries > 0 && retries >= al.cfg.MaxRetries {
			return greedy.Extension{}, fmt.Errorf("gapalign: giving up after %d retries: %w", retries, err)
		}

		ws, err := al.ws.Grow()
		if err != nil {
			al.log.Debug("growing greedy workspace failed", zap.Error(err))
			al.Close()
			return greedy.Extension{}, fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		al.log.Debug("retrying greedy extension",
			zap.Int("retry", retries+1),
			zap.Int("maxDistance", ws.MaxDist()),
			zap.Int("cells", ws.Cells()))
		al.ws = ws
	}
}

func (al *Aligner) fenceHit(qOff, sOff int) Result {
	al.log.Debug("extension hit a fence", zap.Int("query", qOff), zap.Int("subject", sOff))
	al.res = Result{SeedQuery: qOff, SeedSubject: sOff, FenceHit: true}
	return al.res
}

// estimateSeed returns the middle of the longer of the two longest runs of matches found by the
// left and the right extension. Only the part of a run inside of the alignment counts. The seeds
// are in extension coordinates.
func estimateSeed(res Result, qOff, sOff int, left, right greedy.Seed) (int, int) {
	qr, sr := qOff+right.Query, sOff+right.Subject
	lenR := 0
	if qr < res.QueryStop && sr < res.SubjectStop {
		lenR = min(res.QueryStop-qr, res.SubjectStop-sr, right.Len) / 2
	} else {
		qr, sr = qOff, sOff
	}

	ql, sl := qOff-left.Query, sOff-left.Subject
	lenL := 0
	if ql > res.QueryStart && sl > res.SubjectStart {
		lenL = min(ql-res.QueryStart, sl-res.SubjectStart, left.Len) / 2
	} else {
		ql, sl = qOff, sOff
	}

	if lenR > lenL {
		return qr + lenR, sr + lenR
	}
	return ql - lenL, sl - lenL
}

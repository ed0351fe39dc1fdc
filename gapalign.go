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
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"znkr.io/gapalign/blastna"
	"znkr.io/gapalign/internal/config"
	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/greedy"
	"znkr.io/gapalign/internal/xdrop"
)

var (
	// ErrInvalidArgument is returned for invalid scoring parameters, sequences or seed offsets.
	ErrInvalidArgument = errors.New("gapalign: invalid argument")

	// ErrAllocation is returned if a workspace can't be allocated. If it's returned by an
	// extension, the Aligner has been closed.
	ErrAllocation = errors.New("gapalign: allocation failed")

	// ErrClosed is returned by all methods of a closed Aligner.
	ErrClosed = errors.New("gapalign: aligner is closed")

	// ErrDistanceExceeded is returned by a greedy extension if it needs more retries than
	// configured with [WithMaxRetries].
	ErrDistanceExceeded = greedy.ErrDistanceExceeded
)

// Op describes an alignment operation.
type Op = edits.Op

const (
	Sub = edits.Sub // Aligned pair of residues, either a match or a mismatch
	Del = edits.Del // Gap in the query, consumes one subject residue
	Ins = edits.Ins // Gap in the subject, consumes one query residue
)

// Run is a run of identical operations.
type Run = edits.Run

// EditScript describes an alignment as runs of operations, from left to right.
type EditScript []Run

// QueryLen returns the number of query residues covered by the script.
func (s EditScript) QueryLen() int { return edits.QueryLen(s) }

// SubjectLen returns the number of subject residues covered by the script.
func (s EditScript) SubjectLen() int { return edits.SubjectLen(s) }

// String returns the script in CIGAR notation: M for aligned pairs, I for insertions and D for
// deletions.
func (s EditScript) String() string {
	var sb strings.Builder
	for _, r := range s {
		sb.WriteString(strconv.Itoa(r.Len))
		switch r.Op {
		case Sub:
			sb.WriteByte('M')
		case Ins:
			sb.WriteByte('I')
		case Del:
			sb.WriteByte('D')
		}
	}
	return sb.String()
}

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (s EditScript) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, r := range s {
		if err := enc.AppendObject(logRun(r)); err != nil {
			return err
		}
	}
	return nil
}

type logRun Run

func (r logRun) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("op", r.Op.String())
	enc.AddInt("len", r.Len)
	return nil
}

// Result describes an extended alignment.
type Result struct {
	// Boundaries of the alignment, start inclusive and stop exclusive.
	QueryStart, QueryStop     int
	SubjectStart, SubjectStop int

	Score int

	// Script is the edit script of the alignment. It's nil if no traceback was computed.
	Script EditScript

	// A pair of offsets inside of the alignment that's suitable to seed a traceback.
	SeedQuery, SeedSubject int

	// FenceHit is set if an extension ran into a fence in the subject. The other fields must not
	// be trusted in that case.
	FenceHit bool
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r Result) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("queryStart", r.QueryStart)
	enc.AddInt("queryStop", r.QueryStop)
	enc.AddInt("subjectStart", r.SubjectStart)
	enc.AddInt("subjectStop", r.SubjectStop)
	enc.AddInt("score", r.Score)
	enc.AddInt("seedQuery", r.SeedQuery)
	enc.AddInt("seedSubject", r.SeedSubject)
	if r.FenceHit {
		enc.AddBool("fenceHit", true)
	}
	if r.Script != nil {
		return enc.AddArray("script", r.Script)
	}
	return nil
}

// Scoring describes how alignments are scored.
type Scoring struct {
	// Score of a matching and a mismatching pair of bases. Reward must be positive and Penalty
	// must not be positive. Only used by greedy extensions and to derive the default Matrix.
	Reward, Penalty int

	// Cost to open a gap and to extend it by one residue. A gap of length n costs
	// GapOpen+n*GapExtend. Greedy extensions without gap costs count differences instead.
	GapOpen, GapExtend int

	// Substitution scores indexed by query and subject residue, see blastna. If nil, it's
	// derived from Reward and Penalty with blastna.NucleotideMatrix.
	Matrix [][]int

	// Position specific scores indexed by query position and subject residue. If non-nil, it's
	// used instead of Matrix and must have a row for every query residue.
	PSSM [][]int
}

func (s Scoring) greedyParams(x int) greedy.Params {
	return greedy.Params{
		Reward:    s.Reward,
		Penalty:   s.Penalty,
		GapOpen:   s.GapOpen,
		GapExtend: s.GapExtend,
		XDrop:     x,
	}
}

func (s Scoring) dpParams(x int) xdrop.Params {
	return xdrop.Params{GapOpen: s.GapOpen, GapExtend: s.GapExtend, XDrop: x}
}

// Aligner extends seeds to gapped alignments. It owns all memory needed by the extensions and
// reuses it from one call to the next.
//
// An Aligner must not be used concurrently. Use one Aligner per goroutine instead.
type Aligner struct {
	cfg     config.Config
	scoring Scoring
	matrix  [][]int
	log     *zap.Logger

	dp          *xdrop.State
	ws          *greedy.Workspace
	left, right edits.Block

	res    Result
	closed bool
}

// Default dimensions of the preallocated memory.
const (
	dynProgRow     = 1000
	maxGreedyDist  = 1000
	maxSubjectSpan = 5_000_000
)

// New creates an Aligner for subjects of up to maxSubjectLength residues.
//
// The following options are supported: [WithMode], [WithXDrop], [WithXDropFinal],
// [WithMaxDistance], [WithMaxRetries], [WithWorkspaceLimit], [WithArenaChunkSize],
// [WithLogger].
//
// In [ModeDynProg], New panics if any of the greedy workspace options are used.
func New(scoring Scoring, maxSubjectLength int, opts ...Option) (*Aligner, error) {
	cfg := config.FromOptions(config.Default, opts, config.Session)
	if scoring.Reward <= 0 || scoring.Penalty > 0 || scoring.GapOpen < 0 || scoring.GapExtend < 0 {
		return nil, fmt.Errorf("%w: scoring %+v", ErrInvalidArgument, scoring)
	}
	if maxSubjectLength <= 0 {
		return nil, fmt.Errorf("%w: maximum subject length %d", ErrInvalidArgument, maxSubjectLength)
	}

	al := &Aligner{
		cfg:     cfg,
		scoring: scoring,
		matrix:  scoring.Matrix,
		log:     cfg.Logger,
	}
	if al.matrix == nil {
		al.matrix = blastna.NucleotideMatrix(scoring.Reward, scoring.Penalty)
	}
	if len(al.matrix) < blastna.Size {
		return nil, fmt.Errorf("%w: substitution matrix with %d rows", ErrInvalidArgument, len(al.matrix))
	}
	for i, row := range al.matrix {
		if len(row) < blastna.Size {
			return nil, fmt.Errorf("%w: substitution matrix row %d has %d columns", ErrInvalidArgument, i, len(row))
		}
	}

	switch cfg.Mode {
	case config.ModeDynProg:
		al.dp = xdrop.NewState(cfg.ArenaChunkSize, dynProgRow)
	default:
		al.dp = xdrop.NewState(cfg.ArenaChunkSize, 0)
		maxd := cfg.MaxDistance
		if maxd == 0 {
			maxd = min(maxGreedyDist, min(maxSubjectLength, maxSubjectSpan)/2+1)
		}
		ws, err := greedy.NewWorkspace(scoring.greedyParams(cfg.XDrop), maxd, max(cfg.XDrop, cfg.XDropFinal), cfg.WorkspaceLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		al.ws = ws
		al.log.Debug("allocated greedy workspace", zap.Int("maxDistance", ws.MaxDist()), zap.Int("cells", ws.Cells()))
	}
	return al, nil
}

// Close releases all memory held by the aligner. All later calls fail with [ErrClosed].
func (al *Aligner) Close() {
	if al.closed {
		return
	}
	al.closed = true
	al.dp.Release()
	al.ws = nil
	al.left, al.right = edits.Block{}, edits.Block{}
	al.res = Result{}
}

// Result returns the result of the last successful extension.
func (al *Aligner) Result() Result { return al.res }

// row returns the substitution scores of the query residue at pos.
func (al *Aligner) row(query []byte, pos int) []int {
	if al.scoring.PSSM != nil {
		return al.scoring.PSSM[pos]
	}
	return al.matrix[query[pos]]
}

// checkSeed validates the sequences and the seed of an extension.
func (al *Aligner) checkSeed(query []byte, qOff, sOff, sLen int) error {
	if al.closed {
		return ErrClosed
	}
	if len(query) == 0 || sLen <= 0 {
		return fmt.Errorf("%w: empty sequence", ErrInvalidArgument)
	}
	if qOff < 0 || qOff >= len(query) || sOff < 0 || sOff >= sLen {
		return fmt.Errorf("%w: seed (%d, %d) outside of sequences of length %d, %d", ErrInvalidArgument, qOff, sOff, len(query), sLen)
	}
	if al.scoring.PSSM != nil {
		if len(al.scoring.PSSM) < len(query) {
			return fmt.Errorf("%w: %d position specific scores for %d query residues", ErrInvalidArgument, len(al.scoring.PSSM), len(query))
		}
		for i, row := range al.scoring.PSSM[:len(query)] {
			if len(row) < blastna.Size {
				return fmt.Errorf("%w: position specific scores for query residue %d have %d columns", ErrInvalidArgument, i, len(row))
			}
		}
		return nil
	}
	for i, c := range query {
		if int(c) >= len(al.matrix) {
			return fmt.Errorf("%w: query residue %d at %d isn't encoded with blastna", ErrInvalidArgument, c, i)
		}
	}
	return nil
}

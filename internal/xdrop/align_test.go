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
	"crypto/sha256"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"znkr.io/gapalign/internal/edits"
	"znkr.io/gapalign/internal/seqview"
)

var defaultParams = Params{GapOpen: 5, GapExtend: 2, XDrop: 10}

func TestAlign(t *testing.T) {
	tests := []struct {
		name           string
		query, subject string
		reverse        bool
		params         Params
		wantScore      int
		wantA, wantB   int
		wantRuns       []edits.Run
	}{
		{
			name:      "identical",
			query:     "ACGTACGT",
			subject:   "ACGTACGT",
			params:    defaultParams,
			wantScore: 8,
			wantA:     8,
			wantB:     8,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 8}},
		},
		{
			name:      "mismatch",
			query:     "ACGTACGT",
			subject:   "ACGTTCGT",
			params:    defaultParams,
			wantScore: 6,
			wantA:     8,
			wantB:     8,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 8}},
		},
		{
			name:      "leading-mismatch",
			query:     "TACGTACGT",
			subject:   "GACGTACGT",
			params:    defaultParams,
			wantScore: 7,
			wantA:     9,
			wantB:     9,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 9}},
		},
		{
			name:      "insertion",
			query:     "GATTACAGATTACA" + "T" + "CCGGAACCGGAA",
			subject:   "GATTACAGATTACA" + "CCGGAACCGGAA",
			params:    defaultParams,
			wantScore: 19,
			wantA:     27,
			wantB:     26,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 12}, {Op: edits.Ins, Len: 1}, {Op: edits.Sub, Len: 14}},
		},
		{
			name:      "deletion",
			query:     "GATTACAGATTACA" + "CCGGAACCGGAA",
			subject:   "GATTACAGATTACA" + "T" + "CCGGAACCGGAA",
			params:    defaultParams,
			wantScore: 19,
			wantA:     26,
			wantB:     27,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 12}, {Op: edits.Del, Len: 1}, {Op: edits.Sub, Len: 14}},
		},
		{
			name:      "insertion-reverse",
			query:     "GATTACAGATTACA" + "T" + "CCGGAACCGGAA",
			subject:   "GATTACAGATTACA" + "CCGGAACCGGAA",
			reverse:   true,
			params:    defaultParams,
			wantScore: 19,
			wantA:     27,
			wantB:     26,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 14}, {Op: edits.Ins, Len: 1}, {Op: edits.Sub, Len: 12}},
		},
		{
			name:      "xdrop-stops-extension",
			query:     "ACGTACGT" + "TTTTTTTTTT",
			subject:   "ACGTACGT" + "GGGGGGGGGG",
			params:    Params{GapOpen: 5, GapExtend: 2, XDrop: 5},
			wantScore: 8,
			wantA:     8,
			wantB:     8,
			wantRuns:  []edits.Run{{Op: edits.Sub, Len: 8}},
		},
		{
			name:      "empty-query",
			query:     "",
			subject:   "ACGT",
			params:    defaultParams,
			wantScore: 0,
			wantRuns:  nil,
		},
		{
			name:      "empty-subject",
			query:     "ACGT",
			subject:   "",
			params:    defaultParams,
			wantScore: 0,
			wantRuns:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState(0, 0)
			q, s := []byte(tt.query), []byte(tt.subject)
			var block edits.Block
			score, a, b, fenceHit := st.Align(len(q), rowsFor(q, 1, -1, tt.reverse), view(s, tt.reverse), tt.params, &block)
			if fenceHit {
				t.Fatalf("Align(...) hit a fence")
			}
			if score != tt.wantScore || a != tt.wantA || b != tt.wantB {
				t.Errorf("Align(...) = %d, %d, %d, want %d, %d, %d", score, a, b, tt.wantScore, tt.wantA, tt.wantB)
			}
			if diff := cmp.Diff(tt.wantRuns, block.Runs()); diff != "" {
				t.Errorf("Align(...) traceback differs [-want,+got]:\n%s", diff)
			}
		})
	}
}

func TestAlign_zeroCosts(t *testing.T) {
	// Without mismatch and gap costs, identical sequences align along the diagonal.
	rng := rand.New(rand.NewChaCha8([32]byte{}))
	for n := 1; n < 60; n++ {
		for _, name := range []string{"random", "homopolymer"} {
			seq := make([]byte, n)
			for i := range seq {
				if name == "random" {
					seq[i] = "ACGT"[rng.IntN(4)]
				} else {
					seq[i] = 'A'
				}
			}
			t.Run(fmt.Sprintf("%s-%d", name, n), func(t *testing.T) {
				st := NewState(0, 0)
				var block edits.Block
				score, a, b, _ := st.Align(n, rowsFor(seq, 1, 0, false), view(seq, false), Params{XDrop: 10}, &block)
				if score != n || a != n || b != n {
					t.Errorf("Align(...) = %d, %d, %d, want %d, %d, %d", score, a, b, n, n, n)
				}
				if diff := cmp.Diff([]edits.Run{{Op: edits.Sub, Len: n}}, block.Runs()); diff != "" {
					t.Errorf("Align(...) traceback differs [-want,+got]:\n%s", diff)
				}
			})
		}
	}
}

func TestAlign_fence(t *testing.T) {
	st := NewState(0, 0)
	q := []byte("ACGTACGTAC")
	s := append([]byte("ACGT"), seqview.Fence)
	s = append(s, "ACGTAC"...)
	var block edits.Block
	_, _, _, fenceHit := st.Align(len(q), rowsFor(q, 1, -1, false), view(s, false), defaultParams, &block)
	if !fenceHit {
		t.Errorf("Align(...) didn't report the fence")
	}
	if block.Len() != 0 {
		t.Errorf("Align(...) recorded a traceback after hitting the fence: %v", block.Runs())
	}
}

func TestAlign_arenaReuse(t *testing.T) {
	st := NewState(1024, 0)
	q := []byte("GATTACAGATTACA" + "T" + "CCGGAACCGGAA")
	s := []byte("GATTACAGATTACA" + "CCGGAACCGGAA")

	var block edits.Block
	st.Align(len(q), rowsFor(q, 1, -1, false), view(s, false), defaultParams, &block)
	allocs := st.Arena().Allocs()
	if allocs == 0 {
		t.Fatalf("Align(...) didn't allocate from the arena")
	}
	for range 5 {
		block.Reset()
		st.Align(len(q), rowsFor(q, 1, -1, false), view(s, false), defaultParams, &block)
	}
	if got := st.Arena().Allocs(); got != allocs {
		t.Errorf("repeated Align(...) allocated %d chunks, want %d", got, allocs)
	}
}

// TestAlign_reference compares the score with a full Gotoh DP without X-drop. With a large X,
// nothing relevant is pruned and both have to agree.
func TestAlign_reference(t *testing.T) {
	for i := range 50 {
		seed := sha256.Sum256(fmt.Append(nil, i))
		t.Run(fmt.Sprintf("seed=%x", seed[:8]), func(t *testing.T) {
			rng := rand.New(rand.NewChaCha8(seed))
			q := randomSeq(rng, 20+rng.IntN(60))
			s := mutate(rng, q, 0.1)
			p := Params{GapOpen: 5, GapExtend: 2, XDrop: 1000}

			st := NewState(0, 0)
			var block edits.Block
			got, a, b, _ := st.Align(len(q), rowsFor(q, 1, -1, false), view(s, false), p, &block)
			if want := reference(q, s, 1, -1, p.GapOpen, p.GapExtend); got != want {
				t.Errorf("Align(...) = %d, reference = %d", got, want)
			}

			runs := slices.Clone(block.Runs())
			slices.Reverse(runs)
			if edits.QueryLen(runs) != a || edits.SubjectLen(runs) != b {
				t.Errorf("traceback consumes %d, %d residues, want %d, %d", edits.QueryLen(runs), edits.SubjectLen(runs), a, b)
			}
			if rescored := rescore(runs, q, s, 1, -1, p.GapOpen, p.GapExtend); rescored != got {
				t.Errorf("traceback scores %d, want %d", rescored, got)
			}
		})
	}
}

func TestAlign_xdropMonotonic(t *testing.T) {
	for i := range 20 {
		seed := sha256.Sum256(fmt.Append(nil, "xdrop", i))
		t.Run(fmt.Sprintf("seed=%x", seed[:8]), func(t *testing.T) {
			rng := rand.New(rand.NewChaCha8(seed))
			q := randomSeq(rng, 100)
			s := mutate(rng, q, 0.25)

			st := NewState(0, 0)
			prev := 0
			for _, x := range []int{7, 10, 20, 40, 80} {
				var block edits.Block
				score, _, _, _ := st.Align(len(q), rowsFor(q, 1, -1, false), view(s, false), Params{GapOpen: 5, GapExtend: 2, XDrop: x}, &block)
				if score < prev {
					t.Errorf("Align(...) with X=%d = %d, less than %d with a smaller X", x, score, prev)
				}
				prev = score
			}
		})
	}
}

func view(s []byte, reverse bool) seqview.View {
	if reverse {
		return seqview.Reverse(s, len(s), len(s))
	}
	return seqview.Forward(s, 0, len(s))
}

func rowsFor(q []byte, reward, penalty int, reverse bool) Rows {
	return func(a int) []int {
		c := q[a-1]
		if reverse {
			c = q[len(q)-a]
		}
		row := make([]int, 256)
		for i := range row {
			row[i] = penalty
		}
		row[c] = reward
		return row
	}
}

func randomSeq(rng *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = "ACGT"[rng.IntN(4)]
	}
	return out
}

// mutate returns a copy of seq where each residue is substituted, deleted, or followed by an
// insertion with probability rate.
func mutate(rng *rand.Rand, seq []byte, rate float64) []byte {
	out := make([]byte, 0, len(seq))
	for _, c := range seq {
		if rng.Float64() >= rate {
			out = append(out, c)
			continue
		}
		switch rng.IntN(3) {
		case 0:
			out = append(out, "ACGT"[rng.IntN(4)])
		case 1:
			// deleted
		case 2:
			out = append(out, c, "ACGT"[rng.IntN(4)])
		}
	}
	return out
}

// reference computes the best score of an alignment anchored at the origin with a full DP.
func reference(q, s []byte, reward, penalty, gapOpen, gapExtend int) int {
	const inf = 1 << 40
	n, m := len(q), len(s)
	h := make([][]int, n+1)
	e := make([][]int, n+1)
	f := make([][]int, n+1)
	for i := range h {
		h[i] = make([]int, m+1)
		e[i] = make([]int, m+1)
		f[i] = make([]int, m+1)
	}
	best := 0
	for i := 0; i <= n; i++ {
		for j := 0; j <= m; j++ {
			e[i][j], f[i][j] = -inf, -inf
			switch {
			case i == 0 && j == 0:
				h[i][j] = 0
				continue
			case i == 0:
				h[i][j] = -(gapOpen + j*gapExtend)
				e[i][j] = h[i][j]
			case j == 0:
				h[i][j] = -(gapOpen + i*gapExtend)
				f[i][j] = h[i][j]
			default:
				e[i][j] = max(e[i][j-1]-gapExtend, h[i][j-1]-gapOpen-gapExtend)
				f[i][j] = max(f[i-1][j]-gapExtend, h[i-1][j]-gapOpen-gapExtend)
				sub := penalty
				if q[i-1] == s[j-1] {
					sub = reward
				}
				h[i][j] = max(h[i-1][j-1]+sub, e[i][j], f[i][j])
			}
			best = max(best, h[i][j])
		}
	}
	return best
}

func rescore(runs []edits.Run, q, s []byte, reward, penalty, gapOpen, gapExtend int) int {
	score, i, j := 0, 0, 0
	for _, r := range runs {
		switch r.Op {
		case edits.Sub:
			for range r.Len {
				if q[i] == s[j] {
					score += reward
				} else {
					score += penalty
				}
				i++
				j++
			}
		case edits.Ins:
			score -= gapOpen + r.Len*gapExtend
			i += r.Len
		case edits.Del:
			score -= gapOpen + r.Len*gapExtend
			j += r.Len
		}
	}
	return score
}

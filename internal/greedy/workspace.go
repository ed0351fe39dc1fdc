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
)

// ErrWorkspaceLimit is returned if a workspace would exceed the configured size limit.
var ErrWorkspaceLimit = errors.New("greedy: workspace exceeds size limit")

// Params are the scoring parameters of a greedy extension.
type Params struct {
	Reward    int // score of a match, > 0
	Penalty   int // score of a mismatch, <= 0
	GapOpen   int // cost of opening a gap, >= 0
	GapExtend int // cost of each gap residue, >= 0
	XDrop     int
}

// Affine reports whether the parameters have non-zero gap costs.
func (p Params) Affine() bool { return p.GapOpen != 0 || p.GapExtend != 0 }

// costs are the scoring parameters transformed into the cost model of the greedy search.
//
// An alignment that covers a total of e residues of both sequences has the score
// e*reward/2 - cost, where matches are free, a mismatch costs reward+penalty, a gap costs open
// plus extend per residue, and extend includes half a reward for the residue the gap doesn't
// match. All costs are divided by their greatest common divisor unit.
type costs struct {
	reward  int // reward, doubled if odd
	xdrop   int // X-drop, scaled with reward
	scale   int // 2 if the reward was doubled, 1 otherwise
	mis     int
	open    int
	extend  int
	unit    int
	maxCost int // largest single step cost, before division by unit
	step    int // largest single step cost, in units
}

func newCosts(p Params, xdrop int) costs {
	c := costs{reward: p.Reward, xdrop: xdrop, scale: 1}
	penalty, gapOpen, gapExtend := -p.Penalty, p.GapOpen, p.GapExtend
	if p.Reward%2 == 1 {
		c.scale = 2
		c.reward *= 2
		c.xdrop *= 2
		penalty *= 2
		gapOpen *= 2
		gapExtend *= 2
	}

	if !p.Affine() {
		// Every difference costs the same.
		c.mis, c.open, c.extend = 1, 0, 1
		c.unit = c.reward + penalty
		c.maxCost, c.step = 1, 1
		return c
	}

	c.mis = c.reward + penalty
	c.open = gapOpen
	c.extend = gapExtend + c.reward/2
	c.maxCost = max(c.mis, c.open+c.extend)
	c.unit = gcd(gcd(c.mis, c.open), c.extend)
	c.mis /= c.unit
	c.open /= c.unit
	c.extend /= c.unit
	c.step = max(c.mis, c.open+c.extend)
	return c
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Workspace holds the memory for greedy alignments. It's sized for a maximum distance, i.e.
// the maximum number of differences (without gap costs) or of gap residues (with gap costs).
//
// A Workspace must not be used concurrently.
type Workspace struct {
	maxDist int
	xdrop   int // unscaled X-drop the workspace was sized for
	limit   int
	params  Params
	costs   costs
	maxCost int // maximum cost of the search, in units
	dDiff   int // lag of the X-drop reference score, in units

	// Layout without gap costs: two rows of furthest reaching offsets per diagonal.
	rows [2][]int

	// Layout with gap costs: a ring of rows, one per cost up to the largest step cost, and the
	// diagonal bounds of every cost.
	affineRows [][]offset
	bounds     []int

	maxScore []int

	// Rows of all costs, kept when a traceback is requested.
	ints       space[int]
	offsets    space[offset]
	intRows    []band[int]
	offsetRows []band[offset]
}

// NewWorkspace allocates a workspace for alignments of at most maxDist differences (or gap
// residues) with X-drop values up to xdrop. If limit > 0, workspaces with more than limit cells
// are rejected with ErrWorkspaceLimit.
func NewWorkspace(p Params, maxDist, xdrop, limit int) (*Workspace, error) {
	if maxDist < 1 {
		return nil, fmt.Errorf("greedy: invalid maximum distance %d", maxDist)
	}
	if p.Reward <= 0 || p.Penalty > 0 || p.GapOpen < 0 || p.GapExtend < 0 {
		return nil, fmt.Errorf("greedy: invalid scoring parameters %+v", p)
	}

	c := newCosts(p, xdrop)
	ws := &Workspace{
		maxDist: maxDist,
		xdrop:   xdrop,
		limit:   limit,
		params:  p,
		costs:   c,
	}
	width := 2*maxDist + 6
	ws.dDiff = (c.xdrop+c.reward/2)/c.unit + 1

	if !p.Affine() {
		ws.maxCost = maxDist
		if err := ws.check(2*width + ws.maxCost + 1 + ws.dDiff); err != nil {
			return nil, err
		}
		ws.rows[0] = make([]int, width)
		ws.rows[1] = make([]int, width)
	} else {
		ws.maxCost = maxDist * c.extend
		nrows := c.maxCost + 1
		nbounds := 2 * (ws.maxCost + 1 + c.maxCost)
		if err := ws.check(3*nrows*width + nbounds + ws.maxCost + 1 + ws.dDiff); err != nil {
			return nil, err
		}
		ws.affineRows = make([][]offset, nrows)
		for i := range ws.affineRows {
			ws.affineRows[i] = make([]offset, width)
		}
		ws.bounds = make([]int, nbounds)
	}
	ws.maxScore = make([]int, ws.maxCost+1+ws.dDiff)
	return ws, nil
}

func (ws *Workspace) check(cells int) error {
	if ws.limit > 0 && cells > ws.limit {
		return fmt.Errorf("%w: %d cells for distance %d, limit is %d", ErrWorkspaceLimit, cells, ws.maxDist, ws.limit)
	}
	return nil
}

// Grow returns a new workspace for twice the maximum distance of ws, with the same scoring
// parameters and X-drop.
func (ws *Workspace) Grow() (*Workspace, error) {
	return NewWorkspace(ws.params, 2*ws.maxDist, ws.xdrop, ws.limit)
}

// MaxDist returns the maximum distance the workspace supports.
func (ws *Workspace) MaxDist() int { return ws.maxDist }

// Affine reports whether the workspace uses the layout for non-zero gap costs.
func (ws *Workspace) Affine() bool { return ws.affineRows != nil }

// Cells returns the number of preallocated cells.
func (ws *Workspace) Cells() int {
	n := len(ws.rows[0]) + len(ws.rows[1]) + len(ws.bounds) + len(ws.maxScore)
	for _, r := range ws.affineRows {
		n += 3 * len(r)
	}
	return n
}

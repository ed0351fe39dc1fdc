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

// Package xdrop implements a banded affine gap alignment with X-drop pruning and traceback.
//
// The alignment is anchored at the origin (0,0): residue a of the query sequence (the row) and
// residue b of the subject sequence (the column) are aligned by walking from the origin into
// the DP matrix. With H the best score of a cell, E the best score of a cell that ends in a gap
// in the query and F the best score that ends in a gap in the subject, the recurrence is the
// usual one by Gotoh:
//
//	E(a,b) = max(E(a,b-1) - extend, H(a,b-1) - open - extend)
//	F(a,b) = max(F(a-1,b) - extend, H(a-1,b) - open - extend)
//	H(a,b) = max(H(a-1,b-1) + s(a,b), E(a,b), F(a,b))
//
// # X-Drop
//
// A cell whose score falls more than X below the best score seen so far is pruned. Because
// scores only decrease along gaps, pruning makes the active part of a row a band
// [first, size) that moves to the right as the alignment progresses. Only the active band of
// the previous row is kept in a single score row; the row is updated in place while sweeping
// from left to right.
//
// Beyond the right end of the previous row, a row can only continue with gaps in the query. The
// number of such cells is bounded by X/extend + 3, which bounds the width of each row.
//
// # Traceback
//
// Every computed cell stores an action: the operation that produced H and two flags that tell
// if the gaps leaving the cell extend a gap ending in it. Traceback rows are allocated from an
// Arena, sized for the expected band width plus slack. Rows don't all start at column 0, so
// each row remembers the first column it stores.
//
// The traceback walks from the best cell back to the origin and records one operation per
// step, i.e. the operations are recorded in reverse order of the alignment.
//
// ## References:
//
// Gotoh, O. An improved algorithm for matching biological sequences. Journal of Molecular
// Biology, Volume 162, Issue 3, 705-708 (1982). https://doi.org/10.1016/0022-2836(82)90398-9
//
// Altschul, S.F., Madden, T.L., Schäffer, A.A., Zhang, J., Zhang, Z., Miller, W., Lipman, D.J.
// Gapped BLAST and PSI-BLAST: a new generation of protein database search programs. Nucleic
// Acids Research, Volume 25, Issue 17, 3389-3402 (1997). https://doi.org/10.1093/nar/25.17.3389
package xdrop

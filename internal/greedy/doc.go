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

// Package greedy implements greedy X-drop extensions of nucleotide alignments.
//
// The search is the furthest reaching diagonal search that is also at the heart of Myers'
// algorithm. Instead of searching for the shortest path to a fixed end point, it extends from
// the origin into both sequences until the score of every path drops X below the best score
// seen.
//
// Let e = i+j be the number of residues of both sequences covered by a path ending in (i,j) and
// let d be its cost. With matches being free, mismatches costing reward-penalty and gap
// residues costing extend+reward/2 (plus open for every gap), the score of the path is
//
//	e*reward/2 - d
//
// This relationship makes it possible to maximize the score by searching for the paths that
// cover the most residues for a given cost. Those are exactly the furthest reaching paths of
// Myers' algorithm. A path is pruned if its score falls X below the best score of all paths
// that cost X+reward/2 less, see Zhang et al.
//
// Without gap costs, every difference costs the same and the cost is simply the number of
// differences. With gap costs, the search keeps track of paths ending in a gap to find the
// cheapest way to extend gaps.
//
// Odd rewards are doubled along with all other parameters to keep reward/2 integral. Costs are
// divided by their greatest common divisor.
//
// ## References:
//
// Zhang, Z., Schwartz, S., Wagner, L., Miller, W. A greedy algorithm for aligning DNA
// sequences. Journal of Computational Biology, Volume 7, Issue 1-2, 203-214 (2000).
// https://doi.org/10.1089/10665270050081478
//
// Myers, E.W. An O(ND) difference algorithm and its variations. Algorithmica 1, 251-266 (1986).
// https://doi.org/10.1007/BF01840446
package greedy

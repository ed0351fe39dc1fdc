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

// Package gapalign extends seeds of nucleotide alignments to gapped alignments.
//
// An [Aligner] owns all memory needed to extend seeds and reuses it across calls. It offers a fast
// greedy extension for near identical sequences, [Aligner.GreedyExtend], a score-only dynamic
// programming extension, [Aligner.ScoreExtend], and [Aligner.TracebackExtend], which computes the
// final alignment with its edit script. All extensions stop when the score drops more than a
// threshold below the best score seen (X-drop).
//
// Sequences are encoded with [znkr.io/gapalign/blastna]. Subjects may contain
// [znkr.io/gapalign/blastna.Fence] bytes to mark regions that must not be aligned to. An extension
// that reaches a fence reports it in [Result.FenceHit] instead of returning an alignment.
// Queries and substitution matrices are validated, subject residues aren't: a subject byte that
// is neither a blastna code nor a fence causes a panic.
//
// Performance: The greedy extension runs in O(ND) time where N is the length of the alignment and
// D is its number of differences. The dynamic programming extensions run in O(NW) time where W is
// the width of the band of cells that survive the X-drop.
package gapalign

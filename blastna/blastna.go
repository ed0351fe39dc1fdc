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

// Package blastna provides the nucleotide alphabet used by the aligners.
//
// Residues are encoded in the BLASTNA alphabet: the four bases A, C, G and T are 0 to 3, followed
// by the IUPAC ambiguity codes and a gap. Subjects can also be packed with four bases per byte
// (NCBI2na), which the greedy extension reads directly.
package blastna

import (
	"math"

	"znkr.io/gapalign/internal/seqview"
)

// Size is the number of residue codes in the alphabet.
const Size = 16

// Residue codes.
const (
	A byte = iota
	C
	G
	T
	R // A or G
	Y // C or T
	M // A or C
	K // G or T
	W // A or T
	S // C or G
	B // not A
	V // not T
	H // not G
	D // not C
	N // any base
	Gap
)

// Fence is the residue value that marks a guard region in an unpacked subject. Extensions stop
// when they reach it and report a fence hit.
const Fence byte = seqview.Fence

// Letters maps residue codes to their IUPAC letters.
const Letters = "ACGTRYMKWSBVHDN-"

// bases is the set of bases a residue code stands for, one bit per base.
var bases = [Size]byte{1, 2, 4, 8, 5, 10, 3, 12, 9, 6, 14, 13, 11, 7, 15, 0}

var codes = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = N
	}
	for code, l := range []byte(Letters) {
		t[l] = byte(code)
		t[l|0x20] = byte(code)
	}
	t['U'], t['u'] = T, T
	return t
}()

// Encode returns the residue codes of the IUPAC letters in seq. Unknown letters are encoded as N.
func Encode(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, l := range seq {
		out[i] = codes[l]
	}
	return out
}

// Decode returns the IUPAC letters of the residue codes in seq. Codes outside of the alphabet,
// including Fence, are decoded as '?'.
func Decode(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, r := range seq {
		if int(r) < Size {
			out[i] = Letters[r]
		} else {
			out[i] = '?'
		}
	}
	return out
}

// Pack stores the residues in seq with four residues per byte, the first residue in the two most
// significant bits. Only bases can be represented, ambiguity codes are packed as A.
func Pack(seq []byte) []byte {
	out := make([]byte, (len(seq)+3)/4)
	for i, r := range seq {
		if r > T {
			r = A
		}
		out[i/4] |= r << (6 - 2*(i%4))
	}
	return out
}

// NucleotideMatrix returns a Size x Size substitution matrix for the given reward and penalty.
//
// Two bases score reward if they are equal and penalty otherwise. A pair involving an ambiguity
// code scores the rounded average over all bases the second code stands for, if the two codes
// share a base. Any pair with a gap scores math.MinInt32/2 which stops every extension.
func NucleotideMatrix(reward, penalty int) [][]int {
	var degeneracy [Size]int
	for i := range Size {
		for b := A; b <= T; b++ {
			if bases[i]&bases[b] != 0 {
				degeneracy[i]++
			}
		}
	}

	m := make([][]int, Size)
	for i := range m {
		m[i] = make([]int, Size)
	}
	for i := range Size {
		for j := i; j < Size; j++ {
			score := penalty
			if bases[i]&bases[j] != 0 {
				d := float64(degeneracy[j])
				score = int(math.Round((float64((degeneracy[j]-1)*penalty + reward)) / d))
			}
			m[i][j] = score
			m[j][i] = score
		}
	}
	for i := range Size {
		m[Gap][i] = math.MinInt32 / 2
		m[i][Gap] = math.MinInt32 / 2
	}
	return m
}

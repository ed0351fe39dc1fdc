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

// Package render replays edit scripts against the aligned sequences.
package render

import (
	"bytes"
	"fmt"

	"znkr.io/gapalign/blastna"
	"znkr.io/gapalign/internal/edits"
)

// Rows returns the rows of the alignment of q and s described by runs. Gaps are shown as '-'.
// The middle row marks matches with '|'. The sequences are encoded with blastna.
func Rows(runs []edits.Run, q, s []byte) (top, mid, bottom []byte, err error) {
	if err := check(runs, q, s); err != nil {
		return nil, nil, nil, err
	}
	i, j := 0, 0
	for _, r := range runs {
		for range r.Len {
			switch r.Op {
			case edits.Sub:
				top = append(top, letter(q[i]))
				bottom = append(bottom, letter(s[j]))
				if q[i] == s[j] {
					mid = append(mid, '|')
				} else {
					mid = append(mid, ' ')
				}
				i++
				j++
			case edits.Ins:
				top = append(top, letter(q[i]))
				mid = append(mid, ' ')
				bottom = append(bottom, '-')
				i++
			case edits.Del:
				top = append(top, '-')
				mid = append(mid, ' ')
				bottom = append(bottom, letter(s[j]))
				j++
			}
		}
	}
	return top, mid, bottom, nil
}

// Format returns the rows of the alignment as three lines.
func Format(runs []edits.Run, q, s []byte) ([]byte, error) {
	top, mid, bottom, err := Rows(runs, q, s)
	if err != nil {
		return nil, err
	}
	return bytes.Join([][]byte{top, mid, bottom, nil}, []byte{'\n'}), nil
}

// Score returns the score of the alignment of q and s described by runs. Aligned pairs are scored
// with matrix, a gap of length n costs gapOpen+n*gapExtend.
func Score(runs []edits.Run, q, s []byte, matrix [][]int, gapOpen, gapExtend int) (int, error) {
	if err := check(runs, q, s); err != nil {
		return 0, err
	}
	score, i, j := 0, 0, 0
	for _, r := range runs {
		switch r.Op {
		case edits.Sub:
			for k := range r.Len {
				score += matrix[q[i+k]][s[j+k]]
			}
			i += r.Len
			j += r.Len
		case edits.Ins:
			score -= gapOpen + r.Len*gapExtend
			i += r.Len
		case edits.Del:
			score -= gapOpen + r.Len*gapExtend
			j += r.Len
		}
	}
	return score, nil
}

func check(runs []edits.Run, q, s []byte) error {
	if n := edits.QueryLen(runs); n != len(q) {
		return fmt.Errorf("edit script covers %d query residues, got %d", n, len(q))
	}
	if n := edits.SubjectLen(runs); n != len(s) {
		return fmt.Errorf("edit script covers %d subject residues, got %d", n, len(s))
	}
	return nil
}

func letter(r byte) byte {
	if int(r) < len(blastna.Letters) {
		return blastna.Letters[r]
	}
	return '?'
}

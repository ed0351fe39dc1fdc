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

// Package edits contains the run-length encoded edit representation shared by the aligners and
// the traceback pipeline.
package edits

// Op describes an alignment operation.
//
//go:generate go tool golang.org/x/tools/cmd/stringer -type=Op
type Op int

const (
	Sub Op = iota // Aligned pair of residues, either a match or a mismatch
	Del           // Gap in the query, consumes one subject residue
	Ins           // Gap in the subject, consumes one query residue
)

// Run is a run of identical operations.
type Run struct {
	Op  Op
	Len int
}

// QueryLen returns the number of query residues consumed by runs.
func QueryLen(runs []Run) int {
	n := 0
	for _, r := range runs {
		if r.Op != Del {
			n += r.Len
		}
	}
	return n
}

// SubjectLen returns the number of subject residues consumed by runs.
func SubjectLen(runs []Run) int {
	n := 0
	for _, r := range runs {
		if r.Op != Ins {
			n += r.Len
		}
	}
	return n
}

// Block is an append-only log of runs recorded during traceback. Appending an operation of the
// same type as the last one extends the last run.
//
// The zero value is an empty block ready to use.
type Block struct {
	runs []Run
}

// Add appends n operations of type op.
func (b *Block) Add(op Op, n int) {
	if n == 0 {
		return
	}
	if k := len(b.runs); k > 0 && b.runs[k-1].Op == op {
		b.runs[k-1].Len += n
		return
	}
	b.runs = append(b.runs, Run{op, n})
}

// Reset empties the block, retaining its storage.
func (b *Block) Reset() { b.runs = b.runs[:0] }

// Len returns the number of runs in the block.
func (b *Block) Len() int { return len(b.runs) }

// Runs returns the runs in the order they were recorded. The result is only valid until the
// next call to Add or Reset.
func (b *Block) Runs() []Run { return b.runs }

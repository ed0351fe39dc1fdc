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

package edits

// Assemble joins the tracebacks of a left and a right extension into one script that reads left
// to right.
//
// The left extension runs over reversed sequences, so its traceback (which walks from the end of
// the extension back to the seed) is already in left-to-right order. The right traceback walks
// from its end back to the seed and is reversed here. The last run of both blocks is the one
// adjacent to the seed; if both have the same type they are merged into a single run.
//
// Assemble returns nil if either block is nil.
func Assemble(rev, fwd *Block) []Run {
	if rev == nil || fwd == nil {
		return nil
	}

	merge := len(fwd.runs) > 0 && len(rev.runs) > 0 &&
		fwd.runs[len(fwd.runs)-1].Op == rev.runs[len(rev.runs)-1].Op

	size := len(fwd.runs) + len(rev.runs)
	if merge {
		size--
	}

	out := make([]Run, 0, size)
	out = append(out, rev.runs...)
	if len(fwd.runs) == 0 {
		return out
	}

	i := len(fwd.runs) - 1
	if merge {
		out[len(out)-1].Len += fwd.runs[i].Len
		i--
	}
	for ; i >= 0; i-- {
		out = append(out, fwd.runs[i])
	}
	return out
}

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

package cases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const archive = `A single mismatch.
-- query --
ACGTACGT
-- subject --
ACGTTCGT
-- traceback --
#reward: 1
#penalty: -1
#seed: 2, 3
query: 0-8
-- greedy --
score: 11
`

func TestParseFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mismatch.test")
	if err := os.WriteFile(filename, []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseFile(filename)
	if err != nil {
		t.Fatalf("ParseFile(...) failed: %v", err)
	}

	tb := DefaultParams
	tb.Reward, tb.Penalty = 1, -1
	tb.SeedQuery, tb.SeedSubject = 2, 3
	want := Case{
		Name:     "mismatch",
		Filename: filename,
		Comment:  []byte("A single mismatch.\n"),
		Query:    []byte("ACGTACGT"),
		Subject:  []byte("ACGTTCGT"),
		Extensions: []Extension{
			{
				Kind:    Traceback,
				Params:  tb,
				Pragmas: []byte("#reward: 1\n#penalty: -1\n#seed: 2, 3\n"),
				Want:    []byte("query: 0-8\n"),
			},
			{
				Kind:    Greedy,
				Params:  DefaultParams,
				Pragmas: []byte{},
				Want:    []byte("score: 11\n"),
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFile(...) differs [-want,+got]:\n%s", diff)
	}
	if diff := cmp.Diff(archive, string(got.Marshal())); diff != "" {
		t.Errorf("Marshal() differs [-want,+got]:\n%s", diff)
	}
	if got, want := got.Extensions[0].Name(), "traceback:reward:1:penalty:-1:seed:2,3"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestParseFile_errors(t *testing.T) {
	tests := []struct {
		name    string
		archive string
	}{
		{"unknown-file", "-- foo --\n"},
		{"unknown-pragma", "-- greedy --\n#foo: 1\n"},
		{"invalid-value", "-- greedy --\n#reward: one\n"},
		{"invalid-seed", "-- greedy --\n#seed: 1\n"},
		{"missing-colon", "-- greedy --\n#reward 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), tt.name+".test")
			if err := os.WriteFile(filename, []byte(tt.archive), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ParseFile(filename); err == nil {
				t.Errorf("ParseFile(...) succeeded, want error")
			}
		})
	}
}

func TestOutcome_Format(t *testing.T) {
	o := Outcome{QueryStart: 1, QueryStop: 9, SubjectStart: 2, SubjectStop: 10, Score: 6, SeedQuery: 3, SeedSubject: 4, Rows: []byte("A\n|\nA\n")}
	want := "query: 1-9\nsubject: 2-10\nscore: 6\nseed: 3,4\nA\n|\nA\n"
	if diff := cmp.Diff(want, string(o.Format())); diff != "" {
		t.Errorf("Format() differs [-want,+got]:\n%s", diff)
	}
	if got := string((Outcome{FenceHit: true}).Format()); got != "fence hit\n" {
		t.Errorf("Format() = %q, want %q", got, "fence hit\n")
	}
}

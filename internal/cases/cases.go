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

// Package cases reads alignment test cases from txtar archives.
//
// An archive holds a query and a subject, in IUPAC letters, and any number of extensions to run
// on them. An extension starts with pragma lines that configure it, followed by the expected
// outcome:
//
//	-- query --
//	ACGTACGT
//	-- subject --
//	ACGTTCGT
//	-- traceback --
//	#reward: 1
//	#penalty: -1
//	query: 0-8
//	...
//
// The name of the extension file selects the extension: greedy, greedy-traceback, score or
// traceback.
package cases

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/txtar"
)

// Kinds of extensions.
const (
	Greedy          = "greedy"
	GreedyTraceback = "greedy-traceback"
	Score           = "score"
	Traceback       = "traceback"
)

// Params configures an extension.
type Params struct {
	Reward, Penalty        int
	GapOpen, GapExtend     int
	XDrop, XDropFinal      int
	SeedQuery, SeedSubject int
}

// DefaultParams are the parameters of an extension without pragmas.
var DefaultParams = Params{
	Reward:     2,
	Penalty:    -3,
	GapOpen:    5,
	GapExtend:  2,
	XDrop:      30,
	XDropFinal: 100,
}

// Extension is a single extension of a test case.
type Extension struct {
	Kind    string
	Params  Params
	Pragmas []byte
	Want    []byte
}

// Name returns a name for the extension that's unique within its case, if the case doesn't
// contain the same extension twice.
func (e Extension) Name() string {
	name := e.Kind
	for line := range bytes.Lines(e.Pragmas) {
		name += ":" + strings.ReplaceAll(strings.TrimSpace(string(line[1:])), " ", "")
	}
	return name
}

// Case is a test case.
type Case struct {
	Name       string
	Filename   string
	Comment    []byte
	Query      []byte
	Subject    []byte
	Extensions []Extension
}

// Glob parses all archives matching pattern.
func Glob(pattern string) ([]Case, error) {
	filenames, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var cases []Case
	for _, filename := range filenames {
		c, err := ParseFile(filename)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// ParseFile parses the archive in filename.
func ParseFile(filename string) (Case, error) {
	ar, err := txtar.ParseFile(filename)
	if err != nil {
		return Case{}, err
	}
	c := Case{
		Name:     strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		Filename: filename,
		Comment:  ar.Comment,
	}
	for _, f := range ar.Files {
		switch f.Name {
		case "query":
			c.Query = bytes.TrimSpace(f.Data)
		case "subject":
			c.Subject = bytes.TrimSpace(f.Data)
		case Greedy, GreedyTraceback, Score, Traceback:
			ext, err := parseExtension(f.Name, f.Data)
			if err != nil {
				return Case{}, fmt.Errorf("%s: %v", filename, err)
			}
			c.Extensions = append(c.Extensions, ext)
		default:
			return Case{}, fmt.Errorf("%s: unknown file in archive: %s", filename, f.Name)
		}
	}
	return c, nil
}

func parseExtension(kind string, data []byte) (Extension, error) {
	ext := Extension{Kind: kind, Params: DefaultParams}
	i := 0
	for i < len(data) && data[i] == '#' {
		eol := bytes.IndexByte(data[i:], '\n')
		if eol < 0 {
			return Extension{}, fmt.Errorf("missing newline after pragma line")
		}
		eol += i
		k, v, found := strings.Cut(string(data[i+1:eol]), ":")
		if !found {
			return Extension{}, fmt.Errorf("missing ':' in pragma line %q", data[i:eol])
		}
		if err := ext.Params.set(strings.TrimSpace(k), strings.TrimSpace(v)); err != nil {
			return Extension{}, err
		}
		i = eol + 1
	}
	ext.Pragmas = data[:i]
	ext.Want = data[i:]
	return ext, nil
}

func (p *Params) set(k, v string) error {
	if k == "seed" {
		q, s, found := strings.Cut(v, ",")
		if !found {
			return fmt.Errorf("invalid seed %q, want <query>,<subject>", v)
		}
		var err error
		if p.SeedQuery, err = strconv.Atoi(strings.TrimSpace(q)); err != nil {
			return fmt.Errorf("invalid seed: %v", err)
		}
		if p.SeedSubject, err = strconv.Atoi(strings.TrimSpace(s)); err != nil {
			return fmt.Errorf("invalid seed: %v", err)
		}
		return nil
	}

	var dst *int
	switch k {
	case "reward":
		dst = &p.Reward
	case "penalty":
		dst = &p.Penalty
	case "gap-open":
		dst = &p.GapOpen
	case "gap-extend":
		dst = &p.GapExtend
	case "xdrop":
		dst = &p.XDrop
	case "xdrop-final":
		dst = &p.XDropFinal
	default:
		return fmt.Errorf("unknown pragma: %q", k)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %v", k, err)
	}
	*dst = n
	return nil
}

// Marshal returns the archive of the test case.
func (c Case) Marshal() []byte {
	ar := &txtar.Archive{
		Comment: c.Comment,
		Files: []txtar.File{
			{Name: "query", Data: append(append([]byte(nil), c.Query...), '\n')},
			{Name: "subject", Data: append(append([]byte(nil), c.Subject...), '\n')},
		},
	}
	for _, ext := range c.Extensions {
		data := append(append([]byte(nil), ext.Pragmas...), ext.Want...)
		ar.Files = append(ar.Files, txtar.File{Name: ext.Kind, Data: data})
	}
	return txtar.Format(ar)
}

// Outcome is the result of an extension in the form it's written to an archive.
type Outcome struct {
	QueryStart, QueryStop     int
	SubjectStart, SubjectStop int
	Score                     int
	SeedQuery, SeedSubject    int
	FenceHit                  bool

	// Rows of the alignment, if the extension computed an edit script.
	Rows []byte
}

// Format returns the text representation of the outcome.
func (o Outcome) Format() []byte {
	var b bytes.Buffer
	if o.FenceHit {
		b.WriteString("fence hit\n")
		return b.Bytes()
	}
	fmt.Fprintf(&b, "query: %d-%d\n", o.QueryStart, o.QueryStop)
	fmt.Fprintf(&b, "subject: %d-%d\n", o.SubjectStart, o.SubjectStop)
	fmt.Fprintf(&b, "score: %d\n", o.Score)
	fmt.Fprintf(&b, "seed: %d,%d\n", o.SeedQuery, o.SeedSubject)
	b.Write(o.Rows)
	return b.Bytes()
}

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

// eval provides a way to validate the aligners by extending seeds in random sequences, in txtar
// test cases or in a pair of FASTA sequences, and checking that the resulting edit scripts
// reproduce the reported scores and boundaries.
package main

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/dustin/go-humanize"
	"github.com/pkg/profile"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"znkr.io/gapalign"
	"znkr.io/gapalign/blastna"
	"znkr.io/gapalign/internal/cases"
	"znkr.io/gapalign/internal/render"
)

type config struct {
	cases      string
	query      string
	subject    string
	seedQuery  int
	seedSubj   int
	n          int
	length     int
	rate       float64
	seed       uint64
	parallel   int
	stats      string
	verbose    bool
	cpuprofile bool
	memprofile bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.cases, "cases", "", "if set, glob of txtar test cases to validate")
	flag.StringVar(&cfg.query, "query", "", "if set, FASTA file with the query, requires -subject")
	flag.StringVar(&cfg.subject, "subject", "", "FASTA file with the subject")
	flag.IntVar(&cfg.seedQuery, "seed-query", 0, "seed position in the query")
	flag.IntVar(&cfg.seedSubj, "seed-subject", 0, "seed position in the subject")
	flag.IntVar(&cfg.n, "n", 10000, "number of random alignments")
	flag.IntVar(&cfg.length, "length", 1000, "length of the random sequences on both sides of the seed")
	flag.Float64Var(&cfg.rate, "rate", 0.05, "mutation rate of the random subject")
	flag.Uint64Var(&cfg.seed, "seed", 1, "seed for the random sequences")
	flag.IntVar(&cfg.parallel, "parallel", runtime.GOMAXPROCS(0), "number of evaluations to run in parallel")
	flag.StringVar(&cfg.stats, "stats", "", "file to store stats in")
	flag.BoolVar(&cfg.verbose, "v", false, "log debug events of the aligners")
	flag.BoolVar(&cfg.cpuprofile, "cpuprofile", false, "write a CPU profile to the current directory")
	flag.BoolVar(&cfg.memprofile, "memprofile", false, "write a memory profile to the current directory")
	flag.Parse()

	if len(flag.CommandLine.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "error: unexpected command line arguments: %v\n", flag.CommandLine.Args())
		os.Exit(1)
	}

	// go tool pprof -http=:8080 cpu.pprof
	if cfg.cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if cfg.memprofile {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	logger := zap.NewNop()
	if cfg.verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: creating logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	var err error
	switch {
	case cfg.cases != "":
		err = runCases(&cfg, logger)
	case cfg.query != "" || cfg.subject != "":
		err = runPair(&cfg, logger)
	default:
		err = run(&cfg, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var scorings = map[string]gapalign.Scoring{
	"megablast": {Reward: 1, Penalty: -2},
	"affine":    {Reward: 2, Penalty: -3, GapOpen: 5, GapExtend: 2},
	"odd":       {Reward: 1, Penalty: -1, GapOpen: 5, GapExtend: 2},
}

var kinds = []string{cases.Greedy, cases.GreedyTraceback, cases.Score, cases.Traceback}

type note struct {
	prefix string
	msg    string
}

type result struct {
	id        int
	scoring   string
	extension string
	N, M      int
	score     int
	duration  time.Duration
}

// runCases runs all extensions of the test cases and compares them with the expected outcome.
func runCases(cfg *config, logger *zap.Logger) error {
	tests, err := cases.Glob(cfg.cases)
	if err != nil {
		return fmt.Errorf("reading test cases: %v", err)
	}
	failed := 0
	for _, tt := range tests {
		q, s := blastna.Encode(tt.Query), blastna.Encode(tt.Subject)
		for _, ext := range tt.Extensions {
			p := ext.Params
			scoring := gapalign.Scoring{Reward: p.Reward, Penalty: p.Penalty, GapOpen: p.GapOpen, GapExtend: p.GapExtend}
			al, err := gapalign.New(scoring, len(s), gapalign.WithXDrop(p.XDrop), gapalign.WithXDropFinal(p.XDropFinal), gapalign.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("%s: %v", tt.Name, err)
			}
			res, err := extend(al, ext.Kind, q, s, p.SeedQuery, p.SeedSubject)
			al.Close()
			if err != nil {
				return fmt.Errorf("%s: %s: %v", tt.Name, ext.Name(), err)
			}
			got, err := outcome(res, q, s)
			if err != nil {
				return fmt.Errorf("%s: %s: %v", tt.Name, ext.Name(), err)
			}
			if !bytes.Equal(got, ext.Want) {
				failed++
				fmt.Printf("%s: %s: got:\n%s\nwant:\n%s\n", tt.Name, ext.Name(), got, ext.Want)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d extensions differ", failed)
	}
	fmt.Printf("%d test cases ok\n", len(tests))
	return nil
}

// runPair runs all extensions of the first sequences in two FASTA files and prints them.
func runPair(cfg *config, logger *zap.Logger) error {
	if cfg.query == "" || cfg.subject == "" {
		return errors.New("-query and -subject must be used together")
	}
	q, err := readFasta(cfg.query)
	if err != nil {
		return err
	}
	s, err := readFasta(cfg.subject)
	if err != nil {
		return err
	}

	for _, name := range []string{"megablast", "affine"} {
		scoring := scorings[name]
		al, err := gapalign.New(scoring, len(s), gapalign.WithLogger(logger))
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if skip(name, kind) {
				continue
			}
			res, err := extend(al, kind, q, s, cfg.seedQuery, cfg.seedSubj)
			if err != nil {
				al.Close()
				return fmt.Errorf("%s: %s: %v", name, kind, err)
			}
			out, err := outcome(res, q, s)
			if err != nil {
				al.Close()
				return fmt.Errorf("%s: %s: %v", name, kind, err)
			}
			fmt.Printf("-- %s %s --\n%s", name, kind, out)
			if msg := validate(kind, res, q, s, scoring); msg != "" {
				fmt.Printf("problem: %s\n", msg)
			}
		}
		al.Close()
	}
	return nil
}

// readFasta returns the first sequence of a FASTA file encoded with blastna.
func readFasta(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := fasta.NewReader(bufio.NewReader(f), linear.NewSeq("", nil, alphabet.DNAredundant))
	s, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: no sequence", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	l := s.(*linear.Seq)
	seq := make([]byte, len(l.Seq))
	for i, c := range l.Seq {
		seq[i] = byte(c)
	}
	return blastna.Encode(seq), nil
}

func outcome(res gapalign.Result, q, s []byte) ([]byte, error) {
	o := cases.Outcome{
		QueryStart:   res.QueryStart,
		QueryStop:    res.QueryStop,
		SubjectStart: res.SubjectStart,
		SubjectStop:  res.SubjectStop,
		Score:        res.Score,
		SeedQuery:    res.SeedQuery,
		SeedSubject:  res.SeedSubject,
		FenceHit:     res.FenceHit,
	}
	if res.Script != nil && !res.FenceHit {
		rows, err := render.Format(res.Script, q[res.QueryStart:res.QueryStop], s[res.SubjectStart:res.SubjectStop])
		if err != nil {
			return nil, err
		}
		o.Rows = rows
	}
	return o.Format(), nil
}

// run extends seeds in random sequences.
func run(cfg *config, logger *zap.Logger) error {
	start := time.Now()
	notes := make(chan note)
	done := make(chan struct{})
	var problems atomic.Int64

	var stats *os.File
	if cfg.stats != "" {
		var err error
		stats, err = os.Create(cfg.stats)
		if err != nil {
			return fmt.Errorf("creating stats file: %v", err)
		}
		defer stats.Close()
	}

	jobs := make(chan int)
	go func() {
		for i := range cfg.n {
			jobs <- i
		}
		close(jobs)
	}()

	pbs := mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr))
	bar := pbs.AddBar(int64(cfg.n),
		mpb.PrependDecorators(
			decor.Name("evaluated: ", decor.WC{W: len("evaluated: "), C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Name(" ETA: ", decor.WC{W: len(" ETA: ")}),
			decor.EwmaETA(decor.ET_STYLE_GO, 1024),
			decor.OnComplete(decor.Name(""), ". done"),
		),
	)

	var processWG sync.WaitGroup
	var results chan result
	if cfg.stats != "" {
		results = make(chan result)
	}
	for range cfg.parallel {
		processWG.Add(1)
		go func() {
			defer processWG.Done()

			// Aligners are not safe for concurrent use, every worker owns one per scoring.
			aligners := make(map[string]*gapalign.Aligner, len(scorings))
			for name, scoring := range scorings {
				al, err := gapalign.New(scoring, 2*cfg.length+cfg.length/2, gapalign.WithLogger(logger.With(zap.String("scoring", name))))
				if err != nil {
					notes <- note{prefix: name, msg: fmt.Sprintf("failed to create aligner: %v", err)}
					return
				}
				defer al.Close()
				aligners[name] = al
			}

			for id := range jobs {
				jobStart := time.Now()
				seed := sha256.Sum256(fmt.Appendf(nil, "%d/%d", cfg.seed, id))
				rng := rand.New(rand.NewChaCha8(seed))
				q, s, qOff, sOff := generate(rng, cfg.length, cfg.rate)

				for name, al := range aligners {
					for _, kind := range kinds {
						if skip(name, kind) {
							continue
						}
						prefix := fmt.Sprintf("%d:%s:%s", id, name, kind)
						start := time.Now()
						res, err := extend(al, kind, q, s, qOff, sOff)
						duration := time.Since(start)
						if err != nil {
							notes <- note{prefix: prefix, msg: fmt.Sprintf("extension failed: %v", err)}
							continue
						}
						if msg := validate(kind, res, q, s, scorings[name]); msg != "" {
							notes <- note{prefix: prefix, msg: msg}
						}
						if results != nil {
							results <- result{
								id:        id,
								scoring:   name,
								extension: kind,
								N:         res.QueryStop - res.QueryStart,
								M:         res.SubjectStop - res.SubjectStart,
								score:     res.Score,
								duration:  duration,
							}
						}
					}
				}
				bar.EwmaIncrBy(1, time.Since(jobStart)/time.Duration(max(1, cfg.parallel)))
			}
		}()
	}

	// Notes and stats
	var notesWG, statsWG sync.WaitGroup
	notesWG.Add(1)
	go func() {
		defer notesWG.Done()
		for {
			select {
			case note := <-notes:
				problems.Inc()
				fmt.Printf("%s: %s\n", note.prefix, note.msg)

			case <-done:
				return
			}
		}
	}()
	if results != nil {
		statsWG.Add(1)
		go func() {
			defer statsWG.Done()
			w := bufio.NewWriter(stats)
			w.WriteString("id,scoring,extension,N,M,score,duration_ns\n")
			for result := range results {
				_, err := fmt.Fprintf(w, "%d,%s,%s,%d,%d,%d,%d\n", result.id, result.scoring, result.extension, result.N, result.M, result.score, result.duration.Nanoseconds())
				if err != nil {
					notes <- note{
						prefix: fmt.Sprint(result.id),
						msg:    fmt.Sprintf("failed to write stats: %v", err),
					}
				}
			}
			if err := w.Flush(); err != nil {
				notes <- note{
					prefix: "",
					msg:    fmt.Sprintf("failed to flush stats: %v", err),
				}
			}
		}()
	}

	// Shutdown
	processWG.Wait()
	if results != nil {
		close(results)
	}
	statsWG.Wait()
	if !bar.Completed() {
		// Workers that failed to start left jobs behind.
		bar.Abort(false)
	}
	pbs.Wait()
	close(done)
	notesWG.Wait()

	fmt.Printf("evaluated %s random alignments in %s\n", humanize.Comma(int64(cfg.n)), time.Since(start).Round(time.Millisecond))
	if n := problems.Load(); n > 0 {
		return fmt.Errorf("found %s problems", humanize.Comma(n))
	}
	return nil
}

// skip reports whether an extension kind is skipped for a scoring.
func skip(scoring, kind string) bool {
	// Dynamic programming needs gap costs.
	return scoring == "megablast" && (kind == cases.Score || kind == cases.Traceback)
}

func extend(al *gapalign.Aligner, kind string, q, s []byte, qOff, sOff int) (gapalign.Result, error) {
	switch kind {
	case cases.Greedy:
		return al.GreedyExtend(q, s, qOff, sOff)
	case cases.GreedyTraceback:
		return al.GreedyExtend(q, s, qOff, sOff, gapalign.Traceback())
	case cases.Score:
		return al.ScoreExtend(q, s, qOff, sOff)
	default:
		return al.TracebackExtend(q, s, qOff, sOff)
	}
}

// validate checks that the script of res reproduces its boundaries and, for traceback
// extensions, its score. It returns a description of the first problem found.
func validate(kind string, res gapalign.Result, q, s []byte, scoring gapalign.Scoring) string {
	if res.FenceHit {
		return "unexpected fence hit"
	}
	if res.QueryStart < 0 || res.QueryStop > len(q) || res.SubjectStart < 0 || res.SubjectStop > len(s) {
		return fmt.Sprintf("boundaries out of range: %+v", res)
	}
	if res.SeedQuery < res.QueryStart || res.SeedQuery > res.QueryStop {
		return fmt.Sprintf("seed outside of alignment: %+v", res)
	}
	if res.Script == nil {
		return ""
	}
	if got, want := res.Script.QueryLen(), res.QueryStop-res.QueryStart; got != want {
		return fmt.Sprintf("script covers %d query residues, want %d", got, want)
	}
	if got, want := res.Script.SubjectLen(), res.SubjectStop-res.SubjectStart; got != want {
		return fmt.Sprintf("script covers %d subject residues, want %d", got, want)
	}
	if kind != cases.Traceback {
		// Greedy scores come from the distance, not from the matrix.
		return ""
	}
	m := blastna.NucleotideMatrix(scoring.Reward, scoring.Penalty)
	score, err := render.Score(res.Script, q[res.QueryStart:res.QueryStop], s[res.SubjectStart:res.SubjectStop], m, scoring.GapOpen, scoring.GapExtend)
	if err != nil {
		return err.Error()
	}
	if score != res.Score {
		return fmt.Sprintf("script scores %d, want %d", score, res.Score)
	}
	return ""
}

// generate returns a query and a mutated subject with an identical core around the seed.
func generate(rng *rand.Rand, length int, rate float64) (q, s []byte, qOff, sOff int) {
	seq := func(n int) []byte {
		out := make([]byte, n)
		for i := range out {
			out[i] = byte(rng.IntN(4))
		}
		return out
	}
	mutate := func(in []byte) []byte {
		out := make([]byte, 0, len(in))
		for _, c := range in {
			if rng.Float64() >= rate {
				out = append(out, c)
				continue
			}
			switch rng.IntN(3) {
			case 0:
				out = append(out, byte(rng.IntN(4)))
			case 1:
				// deleted
			case 2:
				out = append(out, c, byte(rng.IntN(4)))
			}
		}
		return out
	}

	prefix, core, suffix := seq(length), seq(16), seq(length)
	mPrefix := mutate(prefix)
	q = bytes.Join([][]byte{prefix, core, suffix}, nil)
	s = bytes.Join([][]byte{mPrefix, core, mutate(suffix)}, nil)
	return q, s, len(prefix) + 8, len(mPrefix) + 8
}

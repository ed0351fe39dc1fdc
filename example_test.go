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

package gapalign_test

import (
	"fmt"
	"log"

	"znkr.io/gapalign"
	"znkr.io/gapalign/blastna"
)

func ExampleAligner_TracebackExtend() {
	query := blastna.Encode([]byte("ACGTACGT"))
	subject := blastna.Encode([]byte("ACGTTCGT"))

	scoring := gapalign.Scoring{Reward: 1, Penalty: -1, GapOpen: 5, GapExtend: 2}
	al, err := gapalign.New(scoring, len(subject), gapalign.WithXDropFinal(10))
	if err != nil {
		log.Fatal(err)
	}
	defer al.Close()

	res, err := al.TracebackExtend(query, subject, 0, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("query %d-%d, subject %d-%d, score %d, %v\n", res.QueryStart, res.QueryStop, res.SubjectStart, res.SubjectStop, res.Score, res.Script)
	// Output:
	// query 0-8, subject 0-8, score 6, 8M
}

func ExampleAligner_GreedyExtend() {
	query := blastna.Encode([]byte("GATTACAGATTACA" + "T" + "CCGGAACCGGAA"))
	subject := blastna.Encode([]byte("GATTACAGATTACA" + "CCGGAACCGGAA"))

	scoring := gapalign.Scoring{Reward: 2, Penalty: -3, GapOpen: 5, GapExtend: 2}
	al, err := gapalign.New(scoring, len(subject))
	if err != nil {
		log.Fatal(err)
	}
	defer al.Close()

	res, err := al.GreedyExtend(query, subject, 0, 0, gapalign.Traceback())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("score %d, %v\n", res.Score, res.Script)
	// Output:
	// score 45, 14M1I12M
}

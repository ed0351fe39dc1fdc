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

package gapalign

import (
	"go.uber.org/zap"
	"znkr.io/gapalign/internal/config"
)

// Option configures an Aligner or a single extension.
type Option = config.Option

// Mode selects the preliminary extension an Aligner is prepared for.
type Mode = config.Mode

const (
	// ModeGreedy prepares the aligner for [Aligner.GreedyExtend]. This is the default.
	ModeGreedy = config.ModeGreedy

	// ModeDynProg prepares the aligner for score-only extensions with [Aligner.ScoreExtend]. No
	// greedy workspace is allocated and [Aligner.GreedyExtend] fails.
	ModeDynProg = config.ModeDynProg
)

// WithMode selects the extension mode. The default is [ModeGreedy].
func WithMode(m Mode) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.Mode = m
		return config.ExtensionMode
	}
}

// WithXDrop sets the X-drop of the preliminary extensions, [Aligner.GreedyExtend] and
// [Aligner.ScoreExtend]. The default is 30.
func WithXDrop(x int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.XDrop = max(0, x)
		return config.XDrop
	}
}

// WithXDropFinal sets the X-drop of [Aligner.TracebackExtend]. The default is 100.
func WithXDropFinal(x int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.XDropFinal = max(0, x)
		return config.XDropFinal
	}
}

// WithMaxDistance sets the maximum distance of the initial greedy workspace. By default, it's
// derived from the maximum subject length. The workspace grows on demand.
func WithMaxDistance(d int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.MaxDistance = max(0, d)
		return config.MaxDistance
	}
}

// WithMaxRetries limits how often a greedy extension is repeated with a grown workspace. If the
// limit is reached, the extension fails with [ErrDistanceExceeded]. By default, the number of
// retries is only limited by memory.
func WithMaxRetries(n int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.MaxRetries = max(0, n)
		return config.MaxRetries
	}
}

// WithWorkspaceLimit limits the size of the greedy workspace to n cells. Allocating a larger
// workspace fails with [ErrAllocation]. If that happens while growing the workspace, the Aligner
// is closed.
func WithWorkspaceLimit(n int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.WorkspaceLimit = max(0, n)
		return config.WorkspaceLimit
	}
}

// WithArenaChunkSize sets the minimum number of cells of a traceback memory chunk. The default is
// 2097152.
func WithArenaChunkSize(n int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.ArenaChunkSize = max(1, n)
		return config.ArenaChunkSize
	}
}

// WithLogger sets the logger for debug events, e.g., workspace growth. By default, nothing is
// logged.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.Logger = l
		return config.Logger
	}
}

// Traceback requests the edit script of a greedy extension.
func Traceback() Option {
	return func(cfg *config.Config) config.Flag {
		cfg.Traceback = true
		return config.Traceback
	}
}

// PackedSubject declares that the subject of a greedy extension holds n residues packed four
// bases per byte, see [znkr.io/gapalign/blastna.Pack]. Packed subjects can't be used with
// [Traceback].
func PackedSubject(n int) Option {
	return func(cfg *config.Config) config.Flag {
		cfg.PackedSubject = true
		cfg.SubjectLength = n
		return config.PackedSubject
	}
}

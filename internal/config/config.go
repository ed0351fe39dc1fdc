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

// Package config provides shared configuration mechanisms for packages in this module.
//
// This package is an implementation detail, the configuration surface for users is provided via
// gapalign.Option. Each entry point accepts a subset of the options, see FromOptions.
package config

import "go.uber.org/zap"

// Mode describes which preliminary extension an aligner is prepared for.
type Mode int

const (
	// Greedy extensions with a furthest reaching diagonal search. The workspace for the search is
	// allocated up front.
	ModeGreedy Mode = iota

	// Score-only extensions with the X-drop dynamic programming aligner.
	ModeDynProg
)

// Config collects all configurable parameters of an aligner and its calls.
type Config struct {
	// Extension mode.
	Mode Mode

	// X-drop of the preliminary (greedy) extension and of the final traceback extension.
	XDrop      int
	XDropFinal int

	// Maximum distance of the first greedy workspace. If zero, it's derived from the maximum
	// subject length.
	MaxDistance int

	// Number of times a greedy extension is retried with a grown workspace. Zero means no limit.
	MaxRetries int

	// Maximum number of cells of a greedy workspace. Zero means no limit.
	WorkspaceLimit int

	// Minimum size of a traceback arena chunk, in cells.
	ArenaChunkSize int

	Logger *zap.Logger

	// Per call: record an edit script.
	Traceback bool

	// Per call: the subject stores four residues per byte. SubjectLength is the number of
	// residues in the packed buffer.
	PackedSubject bool
	SubjectLength int
}

// Default is the default configuration.
var Default = Config{
	Mode:           ModeGreedy,
	XDrop:          30,
	XDropFinal:     100,
	MaxDistance:    0,
	MaxRetries:     0,
	WorkspaceLimit: 0,
	ArenaChunkSize: 2097152,
	Logger:         nil,
	Traceback:      false,
	PackedSubject:  false,
	SubjectLength:  0,
}

// Flag describes a single config entry. This is used to detect if configurations are being set
// that are not allowed in a given context.
type Flag int

const (
	ExtensionMode Flag = 1 << iota
	XDrop
	XDropFinal
	MaxDistance
	MaxRetries
	WorkspaceLimit
	ArenaChunkSize
	Logger
	Traceback
	PackedSubject
)

// Session are all flags of options that configure an aligner.
const Session = ExtensionMode | XDrop | XDropFinal | MaxDistance | MaxRetries | WorkspaceLimit | ArenaChunkSize | Logger

// Option is the mechanism used to expose the configuration to users.
type Option func(*Config) Flag

// FromOptions creates a configuration from a set of options, starting with base.
func FromOptions(base Config, opts []Option, allowed Flag) Config {
	cfg := base
	for _, opt := range opts {
		flag := opt(&cfg)
		if flag & ^allowed != 0 {
			panic("Option " + printFlag(flag) + " not allowed here")
		}
	}
	if cfg.Mode == ModeDynProg && (cfg.MaxDistance != 0 || cfg.MaxRetries != 0 || cfg.WorkspaceLimit != 0) {
		panic("greedy workspace options may only be set for greedy mode")
	}
	if cfg.Traceback && cfg.PackedSubject {
		panic("gapalign.Traceback can't be used with gapalign.PackedSubject")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

func printFlag(flag Flag) string {
	switch flag {
	case ExtensionMode:
		return "gapalign.WithMode"
	case XDrop:
		return "gapalign.WithXDrop"
	case XDropFinal:
		return "gapalign.WithXDropFinal"
	case MaxDistance:
		return "gapalign.WithMaxDistance"
	case MaxRetries:
		return "gapalign.WithMaxRetries"
	case WorkspaceLimit:
		return "gapalign.WithWorkspaceLimit"
	case ArenaChunkSize:
		return "gapalign.WithArenaChunkSize"
	case Logger:
		return "gapalign.WithLogger"
	case Traceback:
		return "gapalign.Traceback"
	case PackedSubject:
		return "gapalign.PackedSubject"
	default:
		panic("never reached")
	}
}

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

package config_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"znkr.io/gapalign"
	"znkr.io/gapalign/internal/config"
)

func TestFromOptions(t *testing.T) {
	logger := zap.NewExample()
	tests := []struct {
		name    string
		base    config.Config
		opts    []config.Option
		allowed config.Flag
		want    config.Config
	}{
		{
			name:    "default",
			base:    config.Default,
			opts:    nil,
			allowed: config.Session,
			want:    config.Default,
		},
		{
			name: "xdrop",
			base: config.Default,
			opts: []config.Option{
				gapalign.WithXDrop(20),
				gapalign.WithXDropFinal(50),
			},
			allowed: config.Session,
			want: func() config.Config {
				cfg := config.Default
				cfg.XDrop, cfg.XDropFinal = 20, 50
				return cfg
			}(),
		},
		{
			name: "negative-values-are-clamped",
			base: config.Default,
			opts: []config.Option{
				gapalign.WithXDrop(-1),
				gapalign.WithMaxRetries(-5),
				gapalign.WithArenaChunkSize(0),
			},
			allowed: config.Session,
			want: func() config.Config {
				cfg := config.Default
				cfg.XDrop, cfg.MaxRetries, cfg.ArenaChunkSize = 0, 0, 1
				return cfg
			}(),
		},
		{
			name: "override",
			base: config.Default,
			opts: []config.Option{
				gapalign.WithMaxDistance(10),
				gapalign.WithWorkspaceLimit(1000),
				gapalign.WithMaxDistance(20),
			},
			allowed: config.Session,
			want: func() config.Config {
				cfg := config.Default
				cfg.MaxDistance, cfg.WorkspaceLimit = 20, 1000
				return cfg
			}(),
		},
		{
			name: "dynprog",
			base: config.Default,
			opts: []config.Option{
				gapalign.WithMode(gapalign.ModeDynProg),
				gapalign.WithLogger(logger),
			},
			allowed: config.Session,
			want: func() config.Config {
				cfg := config.Default
				cfg.Mode = config.ModeDynProg
				return cfg
			}(),
		},
		{
			name: "call",
			base: func() config.Config {
				cfg := config.Default
				cfg.XDrop = 12
				return cfg
			}(),
			opts: []config.Option{
				gapalign.PackedSubject(100),
			},
			allowed: config.Traceback | config.PackedSubject,
			want: func() config.Config {
				cfg := config.Default
				cfg.XDrop = 12
				cfg.PackedSubject, cfg.SubjectLength = true, 100
				return cfg
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.FromOptions(tt.base, tt.opts, tt.allowed)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(config.Config{}, "Logger")); diff != "" {
				t.Errorf("FromOptions(...) result are different [-want,+got]:\n%s", diff)
			}
			if got.Logger == nil {
				t.Errorf("FromOptions(...) returned a nil logger")
			}
		})
	}
}

func TestFromOptions_logger(t *testing.T) {
	logger := zap.NewExample()
	got := config.FromOptions(config.Default, []config.Option{gapalign.WithLogger(logger)}, config.Session)
	if got.Logger != logger {
		t.Errorf("FromOptions(...) didn't keep the logger")
	}
}

func TestFromOptions_panics(t *testing.T) {
	tests := []struct {
		name    string
		opts    []config.Option
		allowed config.Flag
		want    string
	}{
		{
			name:    "not-allowed",
			opts:    []config.Option{gapalign.Traceback()},
			allowed: config.Session,
			want:    "Option gapalign.Traceback not allowed here",
		},
		{
			name:    "greedy-option-in-dynprog",
			opts:    []config.Option{gapalign.WithMaxRetries(3), gapalign.WithMode(gapalign.ModeDynProg)},
			allowed: config.Session,
			want:    "greedy workspace options may only be set for greedy mode",
		},
		{
			name:    "packed-traceback",
			opts:    []config.Option{gapalign.PackedSubject(4), gapalign.Traceback()},
			allowed: config.Traceback | config.PackedSubject,
			want:    "gapalign.Traceback can't be used with gapalign.PackedSubject",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if got := recover(); got != tt.want {
					t.Errorf("FromOptions(...) panicked with %v, want %q", got, tt.want)
				}
			}()
			config.FromOptions(config.Default, tt.opts, tt.allowed)
		})
	}
}

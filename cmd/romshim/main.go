// Romshim
// Copyright (c) 2026 The Romshim Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Romshim.
//
// Romshim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Romshim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Romshim.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/romshim/romshim/pkg/cache"
	"github.com/romshim/romshim/pkg/config"
	"github.com/romshim/romshim/pkg/helpers"
	"github.com/romshim/romshim/pkg/msu"
	"github.com/romshim/romshim/pkg/pipeline"
	"github.com/romshim/romshim/pkg/scummvm"
	"github.com/romshim/romshim/pkg/sevenzip"
	"github.com/romshim/romshim/pkg/texpack"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 1 && args[0] == "-version" {
		fmt.Println(config.AppName + " v" + version) //nolint:forbidigo // CLI output
		return nil
	}
	if len(args) < 2 {
		return errors.New("usage: romshim <emulator-invocation...> <rom-path>")
	}

	cfg, err := config.Load(config.BaseDefaults())
	if err != nil {
		return err
	}

	if err := helpers.InitLogging(cfg.CacheDir, cfg.DebugLogging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	executor := &helpers.RealCommandExecutor{}
	if err := checkTools(executor, &cfg); err != nil {
		return err
	}

	fs := afero.NewOsFs()
	tool := sevenzip.New(cfg.SevenZipBin, executor)
	romCache := cache.New(fs, cfg.CacheDir, tool, cache.NewFlockLocker())

	p := pipeline.New(
		fs,
		executor,
		tool,
		romCache,
		texpack.New(fs, executor, cfg.Mupen.ConfigRoots),
		msu.New(fs, executor, cfg.FfmpegBin, cfg.CacheDir),
		scummvm.New(fs, cfg.ScummVM.ConfigPaths),
	)

	emulatorArgs, romPath := args[:len(args)-1], args[len(args)-1]
	return p.Run(context.Background(), emulatorArgs, romPath)
}

// checkTools probes external binaries once at startup. Only the archive
// tool is a hard requirement; everything else degrades a feature.
func checkTools(executor helpers.CommandExecutor, cfg *config.Values) error {
	statuses := helpers.CheckBinaries(executor, []helpers.Requirement{
		{Name: "7-Zip", Command: cfg.SevenZipBin, Description: "archive listing and extraction"},
		{Name: "FFmpeg", Command: cfg.FfmpegBin, Description: "audio track transcoding", Optional: true},
		{Name: "erofsfuse", Command: "erofsfuse", Description: "userspace texture pack mounting", Optional: true},
		{Name: "sudo", Command: "sudo", Description: "privileged texture pack mounting", Optional: true},
	})

	for _, s := range statuses {
		if s.Available {
			continue
		}
		if !s.Optional {
			return fmt.Errorf("required tool missing: %s (%s)", s.Name, s.Detail)
		}
		log.Warn().
			Str("tool", s.Name).
			Str("needed_for", s.Description).
			Msg("optional tool unavailable, dependent feature will be skipped")
	}
	return nil
}

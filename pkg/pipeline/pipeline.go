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

// Package pipeline classifies a requested ROM path, resolves it into a
// playable file in the cache, prepares auxiliary assets and hands off to
// the target emulator. An error returned from any stage is fatal; every
// other problem is logged and the launch proceeds best-effort.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/romshim/romshim/pkg/cache"
	"github.com/romshim/romshim/pkg/helpers"
	"github.com/romshim/romshim/pkg/msu"
	"github.com/romshim/romshim/pkg/romset"
	"github.com/romshim/romshim/pkg/scummvm"
	"github.com/romshim/romshim/pkg/sevenzip"
	"github.com/romshim/romshim/pkg/texpack"
)

// ResolutionState is the single resolution cursor threaded through each
// stage. Derived once at invocation start; only Resolved changes as the
// pipeline rewrites it to point at the launchable file.
type ResolutionState struct {
	RawInput  string
	SourceDir string
	FileName  string
	Base      string
	Ext       string
	Resolved  string
	Kind      romset.Kind
}

// NewState derives the resolution cursor from the requested path.
func NewState(rawInput string) ResolutionState {
	fileName := filepath.Base(rawInput)
	ext := filepath.Ext(fileName)
	return ResolutionState{
		RawInput:  rawInput,
		SourceDir: filepath.Dir(rawInput),
		FileName:  fileName,
		Base:      strings.TrimSuffix(fileName, ext),
		Ext:       ext,
		Kind:      romset.Classify(rawInput),
	}
}

// Pipeline wires the resolution stages together.
type Pipeline struct {
	fs       afero.Fs
	executor helpers.CommandExecutor
	tool     *sevenzip.Tool
	cache    *cache.Cache
	mounter  *texpack.Mounter
	audio    *msu.Preparer
	merger   *scummvm.Merger
}

func New(
	fs afero.Fs,
	executor helpers.CommandExecutor,
	tool *sevenzip.Tool,
	romCache *cache.Cache,
	mounter *texpack.Mounter,
	audio *msu.Preparer,
	merger *scummvm.Merger,
) *Pipeline {
	return &Pipeline{
		fs:       fs,
		executor: executor,
		tool:     tool,
		cache:    romCache,
		mounter:  mounter,
		audio:    audio,
		merger:   merger,
	}
}

// Run resolves romPath and invokes the emulator command with the resolved
// path appended. A non-nil error means nothing was launched.
func (p *Pipeline) Run(ctx context.Context, emulatorArgs []string, romPath string) error {
	state := NewState(romPath)
	log.Info().
		Str("input", state.RawInput).
		Str("kind", state.Kind.String()).
		Msg("classified rom request")

	if err := p.cache.EnsureDir(); err != nil {
		return err
	}

	// Two simultaneous launches of the same title would otherwise race on
	// the same cache paths. Failing to lock is not worth blocking a launch.
	lock, err := p.cache.LockTitle(state.Base)
	if err != nil {
		log.Warn().Err(err).Msg("could not lock title cache, continuing unlocked")
	}
	defer func() {
		if lock == nil {
			return
		}
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release title lock")
		}
	}()

	switch state.Kind {
	case romset.KindBundle:
		state, err = p.runBundle(ctx, state)
	case romset.KindArchive:
		state, err = p.runArchive(ctx, state)
	case romset.KindPlain:
		state, err = p.runPlain(state)
	}
	if err != nil {
		return err
	}

	return p.launch(ctx, emulatorArgs, state.Resolved)
}

// runArchive resolves the best-matching entry of a merged-set archive,
// extracts it and runs the content-specific preparation chain.
func (p *Pipeline) runArchive(ctx context.Context, state ResolutionState) (ResolutionState, error) {
	entries, err := p.tool.List(ctx, state.RawInput)
	if err != nil {
		return state, err
	}

	entry, err := romset.ResolveEntry(entries, state.Base)
	if err != nil {
		return state, fmt.Errorf("%w: %s in %s", err, state.Base, state.FileName)
	}
	log.Info().Str("entry", entry.Path).Msg("resolved archive entry")

	destPath := p.cache.Path(filepath.Base(entry.Path))
	if err := p.cache.EnsureExtracted(ctx, state.RawInput, entry, destPath); err != nil {
		return state, err
	}

	p.cache.LinkCompanions(state.SourceDir, state.Base, state.FileName)

	switch content := romset.DetectContent(entries); content {
	case romset.ContentSNES:
		if p.audio.HasMarker(state.SourceDir, state.Base) {
			p.audio.Prepare(ctx, state.SourceDir, state.Base)
		}
	case romset.ContentN64:
		p.mounter.Prepare(ctx, state.SourceDir)
	case romset.ContentUnknown:
		log.Debug().Msg("no content-specific preparation required")
	}

	state.Resolved = destPath
	return state, nil
}

// runBundle resolves a ScummVM bundle descriptor: the backing archive is
// structurally required, the settings fragment is optional.
func (p *Pipeline) runBundle(ctx context.Context, state ResolutionState) (ResolutionState, error) {
	archivePath := filepath.Join(state.SourceDir, state.Base+romset.ArchiveExt)
	if !helpers.Exists(p.fs, archivePath) {
		return state, fmt.Errorf("bundle descriptor %s has no backing archive %s",
			state.FileName, filepath.Base(archivePath))
	}

	entries, err := p.tool.List(ctx, archivePath)
	if err != nil {
		return state, err
	}

	folder, err := romset.ResolveDir(entries, state.Base)
	if err != nil {
		return state, fmt.Errorf("%w: folder %s in %s", err, state.Base, filepath.Base(archivePath))
	}
	log.Info().Str("folder", folder).Msg("resolved bundle folder")

	destDir := p.cache.ScummVMDir(folder)
	if helpers.Exists(p.fs, destDir) {
		log.Info().Str("dest", destDir).Msg("bundle folder already extracted, skipping")
	} else {
		if err := p.fs.MkdirAll(filepath.Dir(destDir), 0o750); err != nil {
			return state, fmt.Errorf("failed to create bundle cache directory: %w", err)
		}
		if err := p.tool.ExtractDir(ctx, archivePath, folder, filepath.Dir(destDir)); err != nil {
			return state, err
		}
	}

	resolved := filepath.Join(destDir, state.FileName)
	if err := helpers.CopyFile(p.fs, state.RawInput, resolved); err != nil {
		return state, fmt.Errorf("failed to place bundle descriptor: %w", err)
	}
	state.Resolved = resolved

	p.mergeSettings(state, destDir)
	return state, nil
}

// mergeSettings applies the optional per-title settings fragment. Missing
// or unusable pieces only degrade to the emulator's default settings.
func (p *Pipeline) mergeSettings(state ResolutionState, destDir string) {
	fragmentPath := filepath.Join(state.SourceDir, state.Base+".ini")
	if !helpers.Exists(p.fs, fragmentPath) {
		log.Debug().Msg("no per-title settings fragment")
		return
	}

	gameID, err := scummvm.GameID(p.fs, state.Resolved)
	if err != nil {
		log.Warn().Err(err).Msg("could not determine game id, skipping settings merge")
		return
	}

	if err := p.merger.Merge(fragmentPath, gameID, destDir); err != nil {
		log.Warn().Err(err).Msg("settings merge skipped")
	}
}

// runPlain copies the file verbatim into the cache.
func (p *Pipeline) runPlain(state ResolutionState) (ResolutionState, error) {
	destPath, err := p.cache.CopyIn(state.RawInput)
	if err != nil {
		return state, err
	}

	p.cache.LinkCompanions(state.SourceDir, state.Base, state.FileName)

	state.Resolved = destPath
	return state, nil
}

// launch invokes the emulator command with the resolved path appended.
func (p *Pipeline) launch(ctx context.Context, emulatorArgs []string, resolved string) error {
	args := make([]string, 0, len(emulatorArgs))
	args = append(args, emulatorArgs[1:]...)
	args = append(args, resolved)

	log.Info().
		Str("emulator", emulatorArgs[0]).
		Str("rom", resolved).
		Msg("launching emulator")

	if err := p.executor.RunAttached(ctx, emulatorArgs[0], args...); err != nil {
		return fmt.Errorf("emulator exited with error: %w", err)
	}
	return nil
}

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

// Package msu prepares multi-track enhanced audio for SNES ROMs. Tracks
// are named "<base>-<suffix>.<ext>"; a .pcm track is terminal and never
// reconverted, .wv and .flac tracks are transcode sources.
package msu

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/romshim/romshim/pkg/helpers"
)

const (
	// MarkerExt is the sidecar track-list file that opts a title into
	// audio preparation.
	MarkerExt = ".msu"

	pcmExt = ".pcm"
)

// sourceExts are the compressed source formats, in preference order.
var sourceExts = []string{".wv", ".flac"}

// Preparer converts or links audio tracks into the cache directory.
type Preparer struct {
	fs        afero.Fs
	executor  helpers.CommandExecutor
	ffmpegBin string
	cacheDir  string
}

func New(fs afero.Fs, executor helpers.CommandExecutor, ffmpegBin, cacheDir string) *Preparer {
	return &Preparer{fs: fs, executor: executor, ffmpegBin: ffmpegBin, cacheDir: cacheDir}
}

// HasMarker reports whether a track-list marker exists beside the source
// archive for this title.
func (p *Preparer) HasMarker(sourceDir, base string) bool {
	return helpers.Exists(p.fs, filepath.Join(sourceDir, base+MarkerExt))
}

// Prepare materializes the title's audio tracks in the cache. Pre-rendered
// .pcm tracks always take precedence and are linked as-is; otherwise
// compressed sources are transcoded concurrently, one task per track, and
// Prepare blocks until every task has finished. No failure here is ever
// fatal to the launch.
func (p *Preparer) Prepare(ctx context.Context, sourceDir, base string) {
	if pcms := p.findTracks(sourceDir, base, pcmExt); len(pcms) > 0 {
		for _, track := range pcms {
			dest := filepath.Join(p.cacheDir, filepath.Base(track))
			if helpers.Exists(p.fs, dest) {
				continue
			}
			if err := helpers.LinkFile(p.fs, track, dest); err != nil {
				log.Warn().Err(err).Str("track", track).Msg("failed to link audio track")
			}
		}
		log.Info().Int("tracks", len(pcms)).Msg("using pre-rendered audio tracks")
		return
	}

	var sources []string
	for _, ext := range sourceExts {
		if sources = p.findTracks(sourceDir, base, ext); len(sources) > 0 {
			break
		}
	}
	if len(sources) == 0 {
		log.Info().Str("base", base).Msg("no audio tracks found, nothing to prepare")
		return
	}

	if _, err := p.executor.LookPath(p.ffmpegBin); err != nil {
		log.Warn().Str("bin", p.ffmpegBin).Msg("transcoder unavailable, skipping audio preparation")
		return
	}

	// One independent task per track; conversion failures are contained
	// per task, so the group error is always nil and the Wait call is
	// purely a join barrier.
	var group errgroup.Group
	for _, src := range sources {
		src := src
		group.Go(func() error {
			p.convert(ctx, src)
			return nil
		})
	}
	_ = group.Wait()
}

// convert transcodes one source track to raw PCM (stereo, 16-bit,
// 44.1 kHz) in the cache, skipping when the output already exists.
func (p *Preparer) convert(ctx context.Context, sourcePath string) {
	name := filepath.Base(sourcePath)
	dest := filepath.Join(p.cacheDir,
		strings.TrimSuffix(name, filepath.Ext(name))+pcmExt)

	if helpers.Exists(p.fs, dest) {
		log.Debug().Str("dest", dest).Msg("audio track already converted, skipping")
		return
	}

	err := p.executor.Run(ctx, p.ffmpegBin,
		"-y", "-i", sourcePath,
		"-f", "s16le", "-ac", "2", "-ar", "44100",
		dest)
	if err != nil {
		if helpers.Exists(p.fs, dest) {
			if removeErr := p.fs.Remove(dest); removeErr != nil {
				log.Warn().Err(removeErr).Str("dest", dest).Msg("failed to remove partial conversion output")
			}
		}
		log.Warn().Err(err).Str("track", name).Msg("audio track conversion failed")
		return
	}
	log.Info().Str("track", name).Str("dest", dest).Msg("converted audio track")
}

// findTracks returns the title's "<base>-<suffix>" tracks with the given
// extension, beside the source archive. A plain prefix scan: base names
// routinely carry glob metacharacters like "[USA]" and must match literally.
func (p *Preparer) findTracks(sourceDir, base, ext string) []string {
	infos, err := afero.ReadDir(p.fs, sourceDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", sourceDir).Msg("failed to search for audio tracks")
		return nil
	}

	var tracks []string
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		tracks = append(tracks, filepath.Join(sourceDir, name))
	}
	return tracks
}

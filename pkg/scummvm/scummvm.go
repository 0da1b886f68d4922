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

// Package scummvm merges per-title settings fragments into the global
// scummvm.ini. Every failure here degrades to launching with default
// settings.
package scummvm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	ini "gopkg.in/ini.v1"

	"github.com/romshim/romshim/pkg/helpers"
)

// ErrConfigNotFound means none of the candidate global config locations
// exist.
var ErrConfigNotFound = errors.New("no scummvm configuration file found")

// pathKey is forced to the resolved extraction directory so the target
// application finds the game data where the pipeline put it.
const pathKey = "path"

// Merger merges settings fragments into the first existing candidate
// global configuration file.
type Merger struct {
	fs         afero.Fs
	candidates []string
}

func New(fs afero.Fs, candidates []string) *Merger {
	return &Merger{fs: fs, candidates: candidates}
}

// GameID extracts the game identifier from the first line of a resolved
// bundle descriptor, trimmed of bracket characters.
func GameID(fs afero.Fs, descriptorPath string) (string, error) {
	f, err := fs.Open(descriptorPath)
	if err != nil {
		return "", fmt.Errorf("failed to open bundle descriptor: %w", err)
	}
	defer func(f afero.File) {
		_ = f.Close()
	}(f)

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", errors.New("bundle descriptor is empty")
	}
	id := strings.Trim(strings.TrimSpace(scanner.Text()), "[]")
	if id == "" {
		return "", errors.New("bundle descriptor has no game id")
	}
	return id, nil
}

// Merge copies every key of the fragment's gameID section into the same
// section of the global config, overwriting existing values, with the
// "path" key forced to extractDir first. The first existing candidate
// config wins; none existing is ErrConfigNotFound.
func (m *Merger) Merge(fragmentPath, gameID, extractDir string) error {
	globalPath, ok := helpers.FirstExisting(m.fs, m.candidates)
	if !ok {
		return ErrConfigNotFound
	}

	fragData, err := afero.ReadFile(m.fs, fragmentPath)
	if err != nil {
		return fmt.Errorf("failed to read settings fragment: %w", err)
	}
	fragment, err := ini.Load(fragData)
	if err != nil {
		return fmt.Errorf("failed to parse settings fragment: %w", err)
	}

	fragSection, err := fragment.GetSection(gameID)
	if err != nil {
		return fmt.Errorf("fragment has no section for game %s: %w", gameID, err)
	}
	fragSection.Key(pathKey).SetValue(extractDir)

	globalData, err := afero.ReadFile(m.fs, globalPath)
	if err != nil {
		return fmt.Errorf("failed to read global config: %w", err)
	}
	global, err := ini.Load(globalData)
	if err != nil {
		return fmt.Errorf("failed to parse global config: %w", err)
	}

	globalSection := global.Section(gameID)
	for _, key := range fragSection.Keys() {
		globalSection.Key(key.Name()).SetValue(key.Value())
	}

	var buf bytes.Buffer
	if _, err := global.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to serialize global config: %w", err)
	}
	if err := afero.WriteFile(m.fs, globalPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write global config: %w", err)
	}

	log.Info().
		Str("game", gameID).
		Str("config", globalPath).
		Msg("merged per-title settings into global config")
	return nil
}

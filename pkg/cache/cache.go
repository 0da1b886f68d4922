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

// Package cache materializes archive entries and sibling files in the
// shared cache directory. Entries are keyed by basename; nothing is ever
// deleted except partial output from a failed extraction.
package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/romshim/romshim/pkg/helpers"
	"github.com/romshim/romshim/pkg/sevenzip"
)

// ScummVMSubdir nests bundle-kind extraction folders one level under the
// cache root.
const ScummVMSubdir = "scummvm"

type Cache struct {
	fs     afero.Fs
	tool   *sevenzip.Tool
	locker Locker
	root   string
}

func New(fs afero.Fs, root string, tool *sevenzip.Tool, locker Locker) *Cache {
	return &Cache{fs: fs, root: root, tool: tool, locker: locker}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Path returns the cache location for a basename-keyed file.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.root, name)
}

// ScummVMDir returns the extraction directory for a matched bundle folder.
func (c *Cache) ScummVMDir(folder string) string {
	return filepath.Join(c.root, ScummVMSubdir, folder)
}

// EnsureDir creates the cache root if needed.
func (c *Cache) EnsureDir() error {
	if err := c.fs.MkdirAll(c.root, 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// EnsureExtracted materializes one archive entry at destPath. A file
// already present with a size equal to the entry's declared size is a cache
// hit and left untouched; an unknown declared size forces extraction; a
// size mismatch re-extracts. On failure any partial output is removed.
//
// The size check is a heuristic: two different entries of identical size
// are treated as equivalent.
func (c *Cache) EnsureExtracted(ctx context.Context, archivePath string, entry sevenzip.Entry, destPath string) error {
	if stat, err := c.fs.Stat(destPath); err == nil {
		declared, ok := c.tool.EntrySize(ctx, archivePath, entry.Path)
		if ok && declared == stat.Size() {
			log.Info().
				Str("entry", entry.Path).
				Str("dest", destPath).
				Msg("cache hit, skipping extraction")
			return nil
		}
		if !ok {
			log.Warn().Str("entry", entry.Path).Msg("entry size unknown, forcing extraction")
		}
	}

	out, err := c.fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	err = c.tool.Extract(ctx, archivePath, entry.Path, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := c.fs.Remove(destPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("dest", destPath).Msg("failed to remove partial extraction output")
		}
		return fmt.Errorf("extraction failed for %s: %w", entry.Path, err)
	}

	log.Info().Str("entry", entry.Path).Str("dest", destPath).Msg("extracted archive entry")
	return nil
}

// CopyIn copies a plain file verbatim into the cache, keyed by its own
// name. A file already present with the same size is left untouched.
func (c *Cache) CopyIn(sourcePath string) (string, error) {
	destPath := c.Path(filepath.Base(sourcePath))

	srcSize, err := helpers.GetFileSize(c.fs, sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	if destSize, err := helpers.GetFileSize(c.fs, destPath); err == nil && destSize == srcSize {
		log.Info().Str("dest", destPath).Msg("cache hit, skipping copy")
		return destPath, nil
	}

	if err := helpers.CopyFile(c.fs, sourcePath, destPath); err != nil {
		return "", fmt.Errorf("failed to copy into cache: %w", err)
	}
	return destPath, nil
}

// LinkCompanions reflects sibling files of the resolved ROM into the cache.
// A companion is any file in sourceDir named "base.*" other than
// excludeName. Scanning is one level only; already present cache entries
// are skipped. Best-effort: failures are logged and never fatal.
func (c *Cache) LinkCompanions(sourceDir, base, excludeName string) {
	infos, err := afero.ReadDir(c.fs, sourceDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", sourceDir).Msg("failed to scan for companion files")
		return
	}

	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || name == excludeName || !strings.HasPrefix(name, base+".") {
			continue
		}

		destPath := c.Path(name)
		if helpers.Exists(c.fs, destPath) {
			continue
		}

		if err := helpers.LinkFile(c.fs, filepath.Join(sourceDir, name), destPath); err != nil {
			log.Warn().Err(err).Str("companion", name).Msg("failed to link companion file")
			continue
		}
		log.Info().Str("companion", name).Msg("linked companion file")
	}
}

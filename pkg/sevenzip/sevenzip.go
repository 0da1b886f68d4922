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

// Package sevenzip adapts the external 7z binary's listing and extraction
// modes. All knowledge of the tool's output format lives here.
package sevenzip

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/romshim/romshim/pkg/helpers"
)

// Entry is one item inside an archive, in archive-native order.
type Entry struct {
	Path  string
	Size  int64
	IsDir bool
}

// Tool wraps one configured 7z binary.
type Tool struct {
	executor helpers.CommandExecutor
	bin      string
}

// New returns a Tool that shells out to the given binary name.
func New(bin string, executor helpers.CommandExecutor) *Tool {
	return &Tool{bin: bin, executor: executor}
}

// Bin returns the configured binary name.
func (t *Tool) Bin() string {
	return t.bin
}

// List returns all entries in the archive, in the order the tool reports
// them. Order is archive-native and not guaranteed sorted.
func (t *Tool) List(ctx context.Context, archivePath string) ([]Entry, error) {
	out, err := t.executor.Output(ctx, t.bin, "l", archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive %s: %w", archivePath, err)
	}
	return parseListing(bytes.NewReader(out)), nil
}

// EntrySize returns the declared uncompressed size of the named entry, or
// false if the entry is absent or the size cannot be determined.
func (t *Tool) EntrySize(ctx context.Context, archivePath, entryPath string) (int64, bool) {
	entries, err := t.List(ctx, archivePath)
	if err != nil {
		return 0, false
	}
	for _, e := range entries {
		if e.Path == entryPath {
			return e.Size, true
		}
	}
	return 0, false
}

// Extract streams the single named entry's content to w.
func (t *Tool) Extract(ctx context.Context, archivePath, entryPath string, w io.Writer) error {
	err := t.executor.RunStdout(ctx, w, t.bin, "e", "-so", archivePath, entryPath)
	if err != nil {
		return fmt.Errorf("failed to extract %s from %s: %w", entryPath, archivePath, err)
	}
	return nil
}

// ExtractDir extracts everything under dirName inside the archive into
// destRoot, preserving paths. Existing files are overwritten.
func (t *Tool) ExtractDir(ctx context.Context, archivePath, dirName, destRoot string) error {
	err := t.executor.Run(ctx, t.bin, "x", "-aoa", "-o"+destRoot, archivePath, dirName+"/*")
	if err != nil {
		return fmt.Errorf("failed to extract %s/ from %s: %w", dirName, archivePath, err)
	}
	return nil
}

// Listing line layout of `7z l`:
//
//	   Date      Time    Attr         Size   Compressed  Name
//	------------------- ----- ------------ ------------  ------
//	2024-01-01 10:00:00 ....A       524288       123456  Foo.sfc
//
// Entry names begin at a fixed column; attribute and size fields are read
// from their own fixed-width columns.
const (
	attrStart = 20
	attrEnd   = 25
	sizeStart = 26
	sizeEnd   = 38
	nameStart = 53
)

// parseListing converts the tool's listing output into entries. Lines
// outside the dashed separator pair are metadata and ignored.
func parseListing(r io.Reader) []Entry {
	var entries []Entry
	inTable := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "----") {
			if inTable {
				break
			}
			inTable = true
			continue
		}
		if !inTable || len(line) <= nameStart {
			continue
		}

		name := strings.TrimSpace(line[nameStart:])
		if name == "" {
			continue
		}

		entry := Entry{Path: name}
		if attrEnd <= len(line) {
			entry.IsDir = strings.Contains(line[attrStart:attrEnd], "D")
		}
		if sizeEnd <= len(line) {
			if size, err := strconv.ParseInt(strings.TrimSpace(line[sizeStart:sizeEnd]), 10, 64); err == nil {
				entry.Size = size
			}
		}
		entries = append(entries, entry)
	}

	return entries
}

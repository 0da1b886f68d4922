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

package helpers

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// GetFileSize returns the size in bytes of the file at filePath.
func GetFileSize(fs afero.Fs, filePath string) (int64, error) {
	stat, err := fs.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file for size check: %w", err)
	}
	return stat.Size(), nil
}

// CopyFile copies sourcePath to destPath, replacing any existing file.
func CopyFile(fs afero.Fs, sourcePath, destPath string) error {
	inputFile, err := fs.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourcePath, err)
	}
	defer func(inputFile afero.File) {
		_ = inputFile.Close()
	}(inputFile)

	outputFile, err := fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func(outputFile afero.File) {
		_ = outputFile.Close()
	}(outputFile)

	_, err = io.Copy(outputFile, inputFile)
	if err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	err = outputFile.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// LinkFile reflects sourcePath into destPath, preferring a symlink and
// falling back to a plain copy on filesystems without symlink support.
func LinkFile(fs afero.Fs, sourcePath, destPath string) error {
	if linker, ok := fs.(afero.Linker); ok {
		if err := linker.SymlinkIfPossible(sourcePath, destPath); err == nil {
			return nil
		}
	}
	return CopyFile(fs, sourcePath, destPath)
}

// Exists reports whether a file or directory exists at path.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

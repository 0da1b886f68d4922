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
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandExecutor provides an abstraction over exec.Command for testability.
// This allows external tools to be mocked in tests without executing real
// system commands.
type CommandExecutor interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits with non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its captured standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunStdout executes a command with its standard output streamed to w.
	// Used for tools that emit file content on stdout rather than writing
	// to a path themselves.
	RunStdout(ctx context.Context, w io.Writer, name string, args ...string) error

	// RunAttached executes a command with the current process's stdio
	// attached, for programs the user interacts with directly.
	RunAttached(ctx context.Context, name string, args ...string) error

	// LookPath reports whether the named binary is resolvable on PATH.
	LookPath(name string) (string, error)
}

// RealCommandExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealCommandExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a system command and captures its stdout.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// RunStdout executes a system command with stdout redirected to w.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) RunStdout(ctx context.Context, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	return cmd.Run()
}

// RunAttached executes a system command with inherited stdio.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) RunAttached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// LookPath resolves name against PATH.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

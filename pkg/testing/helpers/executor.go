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

// Package helpers provides test doubles shared across package tests.
package helpers

import (
	"context"
	"io"
	"sync"
)

// Call records one executed command.
type Call struct {
	Name string
	Args []string
}

// FakeCommandExecutor is a configurable CommandExecutor test double. The
// zero value succeeds on every call and resolves every binary.
type FakeCommandExecutor struct {
	RunFunc       func(name string, args []string) error
	OutputFunc    func(name string, args []string) ([]byte, error)
	RunStdoutFunc func(w io.Writer, name string, args []string) error
	LookPathFunc  func(name string) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (f *FakeCommandExecutor) record(name string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Name: name, Args: args})
}

// Calls returns a copy of all recorded calls in execution order.
func (f *FakeCommandExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns recorded calls for one binary name.
func (f *FakeCommandExecutor) CallsFor(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeCommandExecutor) Run(_ context.Context, name string, args ...string) error {
	f.record(name, args)
	if f.RunFunc != nil {
		return f.RunFunc(name, args)
	}
	return nil
}

func (f *FakeCommandExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.record(name, args)
	if f.OutputFunc != nil {
		return f.OutputFunc(name, args)
	}
	return nil, nil
}

func (f *FakeCommandExecutor) RunStdout(_ context.Context, w io.Writer, name string, args ...string) error {
	f.record(name, args)
	if f.RunStdoutFunc != nil {
		return f.RunStdoutFunc(w, name, args)
	}
	return nil
}

func (f *FakeCommandExecutor) RunAttached(_ context.Context, name string, args ...string) error {
	f.record(name, args)
	if f.RunFunc != nil {
		return f.RunFunc(name, args)
	}
	return nil
}

func (f *FakeCommandExecutor) LookPath(name string) (string, error) {
	if f.LookPathFunc != nil {
		return f.LookPathFunc(name)
	}
	return "/usr/bin/" + name, nil
}

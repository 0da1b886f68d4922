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

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romshim/romshim/pkg/sevenzip"
	testhelpers "github.com/romshim/romshim/pkg/testing/helpers"
)

const romContent = "0123456789abcdef"

// listingFor fakes a 7z listing declaring one entry with the given size.
func listingFor(name string, size int64) []byte {
	return fmt.Appendf(nil, ""+
		"   Date      Time    Attr         Size   Compressed  Name\n"+
		"------------------- ----- ------------ ------------  ------------------------\n"+
		"2024-01-01 10:00:00 ....A %12d %12d  %s\n"+
		"------------------- ----- ------------ ------------  ------------------------\n",
		size, size, name)
}

func extractCalls(executor *testhelpers.FakeCommandExecutor) int {
	n := 0
	for _, c := range executor.Calls() {
		if len(c.Args) > 0 && c.Args[0] == "e" {
			n++
		}
	}
	return n
}

// fakeLocker records acquisitions and hands out always-succeeding locks.
type fakeLocker struct {
	acquired []string
	releases int
}

func (f *fakeLocker) Acquire(path string) (Lock, error) {
	f.acquired = append(f.acquired, path)
	return releaseFunc(func() error {
		f.releases++
		return nil
	}), nil
}

type releaseFunc func() error

func (r releaseFunc) Release() error { return r() }

func newTestCache(executor *testhelpers.FakeCommandExecutor) *Cache {
	fs := testhelpers.NewMemoryFS()
	tool := sevenzip.New("7z", executor)
	return New(fs, "/cache", tool, &fakeLocker{})
}

func TestEnsureExtractedIdempotent(t *testing.T) {
	t.Parallel()

	entry := sevenzip.Entry{Path: "Foo.sfc", Size: int64(len(romContent))}
	executor := &testhelpers.FakeCommandExecutor{
		OutputFunc: func(_ string, _ []string) ([]byte, error) {
			return listingFor(entry.Path, entry.Size), nil
		},
		RunStdoutFunc: func(w io.Writer, _ string, _ []string) error {
			_, err := w.Write([]byte(romContent))
			return err
		},
	}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	dest := c.Path("Foo.sfc")
	require.NoError(t, c.EnsureExtracted(context.Background(), "/roms/Foo.7z", entry, dest))
	assert.Equal(t, romContent, testhelpers.ReadFile(t, c.fs, dest))
	assert.Equal(t, 1, extractCalls(executor))

	// Second call is a cache hit and performs no extraction.
	require.NoError(t, c.EnsureExtracted(context.Background(), "/roms/Foo.7z", entry, dest))
	assert.Equal(t, 1, extractCalls(executor))
}

func TestEnsureExtractedSizeMismatchReextracts(t *testing.T) {
	t.Parallel()

	entry := sevenzip.Entry{Path: "Foo.sfc", Size: int64(len(romContent))}
	executor := &testhelpers.FakeCommandExecutor{
		OutputFunc: func(_ string, _ []string) ([]byte, error) {
			return listingFor(entry.Path, entry.Size), nil
		},
		RunStdoutFunc: func(w io.Writer, _ string, _ []string) error {
			_, err := w.Write([]byte(romContent))
			return err
		},
	}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	dest := c.Path("Foo.sfc")
	testhelpers.WriteFile(t, c.fs, dest, "stale")

	require.NoError(t, c.EnsureExtracted(context.Background(), "/roms/Foo.7z", entry, dest))
	assert.Equal(t, 1, extractCalls(executor))
	assert.Equal(t, romContent, testhelpers.ReadFile(t, c.fs, dest))
}

func TestEnsureExtractedUnknownSizeForcesExtraction(t *testing.T) {
	t.Parallel()

	entry := sevenzip.Entry{Path: "Foo.sfc", Size: int64(len(romContent))}
	executor := &testhelpers.FakeCommandExecutor{
		OutputFunc: func(_ string, _ []string) ([]byte, error) {
			// Listing no longer mentions the entry.
			return listingFor("Other.sfc", 1), nil
		},
		RunStdoutFunc: func(w io.Writer, _ string, _ []string) error {
			_, err := w.Write([]byte(romContent))
			return err
		},
	}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	dest := c.Path("Foo.sfc")
	testhelpers.WriteFile(t, c.fs, dest, romContent)

	require.NoError(t, c.EnsureExtracted(context.Background(), "/roms/Foo.7z", entry, dest))
	assert.Equal(t, 1, extractCalls(executor))
}

func TestEnsureExtractedFailureRemovesPartialOutput(t *testing.T) {
	t.Parallel()

	entry := sevenzip.Entry{Path: "Foo.sfc", Size: int64(len(romContent))}
	executor := &testhelpers.FakeCommandExecutor{
		RunStdoutFunc: func(w io.Writer, _ string, _ []string) error {
			_, _ = w.Write([]byte("part"))
			return errors.New("archive is corrupt")
		},
	}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	dest := c.Path("Foo.sfc")
	err := c.EnsureExtracted(context.Background(), "/roms/Foo.7z", entry, dest)
	require.Error(t, err)

	exists, statErr := afero.Exists(c.fs, dest)
	require.NoError(t, statErr)
	assert.False(t, exists, "partial output must be removed")
}

func TestCopyIn(t *testing.T) {
	t.Parallel()

	executor := &testhelpers.FakeCommandExecutor{}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	testhelpers.WriteFile(t, c.fs, "/roms/Foo.sfc", romContent)

	dest, err := c.CopyIn("/roms/Foo.sfc")
	require.NoError(t, err)
	assert.Equal(t, c.Path("Foo.sfc"), dest)
	assert.Equal(t, romContent, testhelpers.ReadFile(t, c.fs, dest))

	// Same size is a cache hit.
	dest2, err := c.CopyIn("/roms/Foo.sfc")
	require.NoError(t, err)
	assert.Equal(t, dest, dest2)
}

func TestLockTitleUsesCacheKeyedPath(t *testing.T) {
	t.Parallel()

	locker := &fakeLocker{}
	tool := sevenzip.New("7z", &testhelpers.FakeCommandExecutor{})
	c := New(testhelpers.NewMemoryFS(), "/cache", tool, locker)

	lock, err := c.LockTitle("Foo")
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	assert.Equal(t, []string{"/cache/Foo.lock"}, locker.acquired)
	assert.Equal(t, 1, locker.releases)
}

func TestFlockLockerAcquireRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Foo.lock")
	lock, err := NewFlockLocker().Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestLinkCompanionsIdempotent(t *testing.T) {
	t.Parallel()

	executor := &testhelpers.FakeCommandExecutor{}
	c := newTestCache(executor)
	require.NoError(t, c.EnsureDir())

	testhelpers.WriteFile(t, c.fs, "/roms/Foo.7z", "archive")
	testhelpers.WriteFile(t, c.fs, "/roms/Foo.srm", "save")
	testhelpers.WriteFile(t, c.fs, "/roms/Foo.msu", "marker")
	testhelpers.WriteFile(t, c.fs, "/roms/Bar.srm", "other title")

	c.LinkCompanions("/roms", "Foo", "Foo.7z")

	assert.Equal(t, "save", testhelpers.ReadFile(t, c.fs, c.Path("Foo.srm")))
	assert.Equal(t, "marker", testhelpers.ReadFile(t, c.fs, c.Path("Foo.msu")))

	// The original and unrelated titles are not reflected.
	for _, name := range []string{"Foo.7z", "Bar.srm"} {
		exists, err := afero.Exists(c.fs, c.Path(name))
		require.NoError(t, err)
		assert.False(t, exists, name)
	}

	// A second pass leaves already-linked companions untouched.
	testhelpers.WriteFile(t, c.fs, c.Path("Foo.srm"), "modified in cache")
	c.LinkCompanions("/roms", "Foo", "Foo.7z")
	assert.Equal(t, "modified in cache", testhelpers.ReadFile(t, c.fs, c.Path("Foo.srm")))
}

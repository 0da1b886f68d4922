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

package sevenzip

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/romshim/romshim/pkg/testing/helpers"
)

const sampleListing = `
7-Zip 23.01 (x64) : Copyright (c) 1999-2023 Igor Pavlov

Listing archive: Foo.7z

--
Path = Foo.7z
Type = 7z

   Date      Time    Attr         Size   Compressed  Name
------------------- ----- ------------ ------------  ------------------------
2024-01-01 10:00:00 ....A       524288       123456  Foo.sfc
2024-01-01 10:00:00 ....A       524799        99999  Foo (Japan).sfc
2024-01-02 11:30:00 D....            0            0  Monkey Island
2024-01-02 11:30:00 ....A         8192         4096  Monkey Island/monkey.000
------------------- ----- ------------ ------------  ------------------------
2024-01-02 11:30:00            1057279       227551  3 files, 1 folders
`

func TestParseListing(t *testing.T) {
	t.Parallel()

	entries := parseListing(strings.NewReader(sampleListing))
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Path: "Foo.sfc", Size: 524288}, entries[0])
	assert.Equal(t, Entry{Path: "Foo (Japan).sfc", Size: 524799}, entries[1])
	assert.Equal(t, Entry{Path: "Monkey Island", Size: 0, IsDir: true}, entries[2])
	assert.Equal(t, Entry{Path: "Monkey Island/monkey.000", Size: 8192}, entries[3])
}

func TestParseListingEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parseListing(strings.NewReader("")))
	assert.Empty(t, parseListing(strings.NewReader("garbage\nwith no table\n")))
}

func TestListInvokesTool(t *testing.T) {
	t.Parallel()

	executor := &testhelpers.FakeCommandExecutor{
		OutputFunc: func(_ string, _ []string) ([]byte, error) {
			return []byte(sampleListing), nil
		},
	}
	tool := New("7z", executor)

	entries, err := tool.List(context.Background(), "/roms/Foo.7z")
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	calls := executor.CallsFor("7z")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"l", "/roms/Foo.7z"}, calls[0].Args)
}

func TestEntrySize(t *testing.T) {
	t.Parallel()

	executor := &testhelpers.FakeCommandExecutor{
		OutputFunc: func(_ string, _ []string) ([]byte, error) {
			return []byte(sampleListing), nil
		},
	}
	tool := New("7z", executor)

	size, ok := tool.EntrySize(context.Background(), "/roms/Foo.7z", "Foo.sfc")
	require.True(t, ok)
	assert.Equal(t, int64(524288), size)

	_, ok = tool.EntrySize(context.Background(), "/roms/Foo.7z", "Missing.sfc")
	assert.False(t, ok)
}

func TestExtractStreamsToWriter(t *testing.T) {
	t.Parallel()

	executor := &testhelpers.FakeCommandExecutor{
		RunStdoutFunc: func(w io.Writer, _ string, _ []string) error {
			_, err := w.Write([]byte("rom content"))
			return err
		},
	}
	tool := New("7z", executor)

	var buf bytes.Buffer
	err := tool.Extract(context.Background(), "/roms/Foo.7z", "Foo.sfc", &buf)
	require.NoError(t, err)
	assert.Equal(t, "rom content", buf.String())

	calls := executor.CallsFor("7z")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"e", "-so", "/roms/Foo.7z", "Foo.sfc"}, calls[0].Args)
}

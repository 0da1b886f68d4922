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

package romset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romshim/romshim/pkg/sevenzip"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected Kind
	}{
		{name: "bundle_descriptor", path: "/roms/Monkey Island.scummvm", expected: KindBundle},
		{name: "archive", path: "/roms/Foo.7z", expected: KindArchive},
		{name: "archive_upper", path: "/roms/Foo.7Z", expected: KindArchive},
		{name: "plain_rom", path: "/roms/Foo.sfc", expected: KindPlain},
		{name: "no_extension", path: "/roms/Foo", expected: KindPlain},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Classify(tt.path))
		})
	}
}

func TestDetectContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		entries  []sevenzip.Entry
		expected Content
	}{
		{
			name:     "snes",
			entries:  []sevenzip.Entry{{Path: "Foo.sfc", Size: 1}},
			expected: ContentSNES,
		},
		{
			name:     "n64",
			entries:  []sevenzip.Entry{{Path: "Bar.z64", Size: 1}},
			expected: ContentN64,
		},
		{
			name: "directory_entries_ignored",
			entries: []sevenzip.Entry{
				{Path: "dir.sfc", IsDir: true},
				{Path: "Bar.n64", Size: 1},
			},
			expected: ContentN64,
		},
		{
			name:     "unknown",
			entries:  []sevenzip.Entry{{Path: "readme.txt", Size: 1}},
			expected: ContentUnknown,
		},
		{
			name:     "empty",
			entries:  nil,
			expected: ContentUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, DetectContent(tt.entries))
		})
	}
}

func TestResolveEntryExactPrecedence(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Foo.sfc", Size: 100},
		{Path: "Foo (Japan).sfc", Size: 200},
	}

	entry, err := ResolveEntry(entries, "Foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo.sfc", entry.Path)
}

func TestResolveEntryListingOrderWins(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Foo.smc", Size: 100},
		{Path: "Foo.sfc", Size: 200},
	}

	entry, err := ResolveEntry(entries, "Foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo.smc", entry.Path)
}

func TestResolveEntryVariantFallback(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Foo.sfc", Size: 100},
	}

	entry, err := ResolveEntry(entries, "Foo__patch1")
	require.NoError(t, err)
	assert.Equal(t, "Foo.sfc", entry.Path)
}

func TestResolveEntryNotFound(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Bar.sfc", Size: 100},
	}

	_, err := ResolveEntry(entries, "Foo")
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = ResolveEntry(nil, "Foo")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestResolveDir(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Monkey Island", IsDir: true},
		{Path: "Monkey Island/monkey.000", Size: 10},
	}

	folder, err := ResolveDir(entries, "Monkey Island")
	require.NoError(t, err)
	assert.Equal(t, "Monkey Island", folder)

	// Archives without explicit directory entries still match by prefix.
	folder, err = ResolveDir(entries[1:], "Monkey Island")
	require.NoError(t, err)
	assert.Equal(t, "Monkey Island", folder)
}

func TestResolveDirVariantFallback(t *testing.T) {
	t.Parallel()

	entries := []sevenzip.Entry{
		{Path: "Monkey Island/monkey.000", Size: 10},
	}

	folder, err := ResolveDir(entries, "Monkey Island__de")
	require.NoError(t, err)
	assert.Equal(t, "Monkey Island", folder)

	_, err = ResolveDir(entries, "Loom")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestVariantBase(t *testing.T) {
	t.Parallel()

	base, ok := VariantBase("Foo__patch1")
	assert.True(t, ok)
	assert.Equal(t, "Foo", base)

	base, ok = VariantBase("Foo")
	assert.False(t, ok)
	assert.Equal(t, "Foo", base)

	// Only the first delimiter splits.
	base, ok = VariantBase("Foo__a__b")
	assert.True(t, ok)
	assert.Equal(t, "Foo", base)
}

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

// Package romset classifies requested ROM paths and resolves entries
// inside merged-set archives.
package romset

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/romshim/romshim/pkg/sevenzip"
)

// ErrEntryNotFound is reported when neither the exact nor the prefix
// fallback strategy matches anything inside an archive.
var ErrEntryNotFound = errors.New("no matching entry in archive")

// Kind is the input classification, decided exactly once per invocation.
type Kind int

const (
	KindPlain Kind = iota
	KindArchive
	KindBundle
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindBundle:
		return "bundle"
	case KindPlain:
		return "plain"
	default:
		return "unknown"
	}
}

const (
	// BundleExt marks a ScummVM bundle descriptor.
	BundleExt = ".scummvm"
	// ArchiveExt is the supported merged-set archive format.
	ArchiveExt = ".7z"

	// variantDelimiter separates a base name from a patched/variant
	// suffix in this ecosystem's file naming scheme.
	variantDelimiter = "__"
)

// Classify places a requested path into exactly one input kind.
func Classify(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case BundleExt:
		return KindBundle
	case ArchiveExt:
		return KindArchive
	default:
		return KindPlain
	}
}

// Content is the detected category of an archive's payload, used to select
// the post-processing chain.
type Content int

const (
	ContentUnknown Content = iota
	ContentSNES
	ContentN64
)

func (c Content) String() string {
	switch c {
	case ContentSNES:
		return "snes"
	case ContentN64:
		return "n64"
	default:
		return "unknown"
	}
}

var snesExts = map[string]bool{
	".sfc": true,
	".smc": true,
}

var n64Exts = map[string]bool{
	".n64": true,
	".z64": true,
	".v64": true,
	".ndd": true,
}

// DetectContent sniffs entry extensions to categorize an archive's payload.
// The first recognized extension wins.
func DetectContent(entries []sevenzip.Entry) Content {
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Path))
		switch {
		case snesExts[ext]:
			return ContentSNES
		case n64Exts[ext]:
			return ContentN64
		}
	}
	return ContentUnknown
}

// VariantBase strips a "__variant" suffix from base, reporting whether one
// was present.
func VariantBase(base string) (string, bool) {
	if i := strings.Index(base, variantDelimiter); i >= 0 {
		return base[:i], true
	}
	return base, false
}

// ResolveEntry finds the single best-matching file entry for targetBase.
// Exact match on the entry name with its own extension stripped wins first,
// in listing order; failing that, a "__variant" target falls back to its
// prefix. No match is ErrEntryNotFound.
func ResolveEntry(entries []sevenzip.Entry, targetBase string) (sevenzip.Entry, error) {
	if e, ok := matchFile(entries, targetBase); ok {
		return e, nil
	}
	if prefix, hasVariant := VariantBase(targetBase); hasVariant {
		if e, ok := matchFile(entries, prefix); ok {
			return e, nil
		}
	}
	return sevenzip.Entry{}, ErrEntryNotFound
}

func matchFile(entries []sevenzip.Entry, base string) (sevenzip.Entry, bool) {
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		stripped := strings.TrimSuffix(e.Path, filepath.Ext(e.Path))
		if stripped == base {
			return e, true
		}
	}
	return sevenzip.Entry{}, false
}

// ResolveDir finds the archive-internal directory backing a bundle
// descriptor, using the same exact-then-prefix strategy but testing entry
// paths for a "name/" prefix. Returns the matched directory name.
func ResolveDir(entries []sevenzip.Entry, targetBase string) (string, error) {
	if name, ok := matchDir(entries, targetBase); ok {
		return name, nil
	}
	if prefix, hasVariant := VariantBase(targetBase); hasVariant {
		if name, ok := matchDir(entries, prefix); ok {
			return name, nil
		}
	}
	return "", ErrEntryNotFound
}

func matchDir(entries []sevenzip.Entry, base string) (string, bool) {
	for _, e := range entries {
		if e.IsDir && e.Path == base {
			return base, true
		}
		if strings.HasPrefix(e.Path, base+"/") {
			return base, true
		}
	}
	return "", false
}

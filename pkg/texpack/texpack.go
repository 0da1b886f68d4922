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

// Package texpack mounts read-only N64 hi-res texture images for the
// consuming emulator. Mount failures never block the ROM launch.
package texpack

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/romshim/romshim/pkg/helpers"
)

// State tracks how (or whether) a texture image ended up mounted.
type State int

const (
	Unmounted State = iota
	MountedKernel
	MountedFuse
	Failed
)

func (s State) String() string {
	switch s {
	case MountedKernel:
		return "kernel"
	case MountedFuse:
		return "fuse"
	case Failed:
		return "failed"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// MountTarget is one per-invocation mount attempt. A prior mount at the
// same point is always torn down before re-mounting; there is no
// "already correctly mounted" fast path.
type MountTarget struct {
	ImagePath  string
	MountPoint string
	State      State
}

const (
	// textureDirName is the subdirectory beside the source archive that
	// holds the texture image, and also the emulator-side mount point name.
	textureDirName = "hires_texture"
	// runtimeCacheName is the emulator's runtime texture cache directory,
	// redirected to temp storage before mounting.
	runtimeCacheName = "cache"

	mountsFile = "/proc/self/mounts"
)

var textureImageExts = map[string]bool{
	".erofs": true,
	".img":   true,
}

// Mounter prepares hi-res texture packs. Sudo availability is probed once
// per instance, non-interactively.
type Mounter struct {
	fs          afero.Fs
	executor    helpers.CommandExecutor
	configRoots []string
	sudoProbed  bool
	sudoOK      bool
}

func New(fs afero.Fs, executor helpers.CommandExecutor, configRoots []string) *Mounter {
	return &Mounter{fs: fs, executor: executor, configRoots: configRoots}
}

// Prepare mounts the texture image accompanying the archive, if one exists.
// Every failure is contained here: the launch proceeds without textures.
func (m *Mounter) Prepare(ctx context.Context, sourceDir string) {
	texDir := filepath.Join(sourceDir, textureDirName)
	if !helpers.Exists(m.fs, texDir) {
		log.Debug().Str("dir", texDir).Msg("no texture pack directory, skipping")
		return
	}

	image, ok := m.findImage(texDir)
	if !ok {
		log.Debug().Str("dir", texDir).Msg("no texture image found, skipping")
		return
	}

	root, ok := helpers.FirstExisting(m.fs, m.configRoots)
	if !ok {
		log.Warn().Msg("no emulator config root found, skipping texture pack")
		return
	}

	// The mount step may itself populate the runtime cache, so the
	// redirect has to be in place first.
	if err := m.redirectRuntimeCache(root); err != nil {
		log.Warn().Err(err).Msg("failed to redirect texture cache directory")
	}

	target := MountTarget{
		ImagePath:  image,
		MountPoint: filepath.Join(root, textureDirName),
	}
	m.mount(ctx, &target)

	if target.State == Failed {
		log.Error().
			Str("image", target.ImagePath).
			Str("mountPoint", target.MountPoint).
			Msg("all mount strategies failed, launching without texture pack")
		return
	}
	log.Info().
		Str("image", target.ImagePath).
		Str("via", target.State.String()).
		Msg("mounted texture pack")
}

// findImage returns the first file in dir with a recognized texture-image
// extension.
func (m *Mounter) findImage(dir string) (string, bool) {
	infos, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("failed to read texture pack directory")
		return "", false
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if textureImageExts[strings.ToLower(filepath.Ext(info.Name()))] {
			return filepath.Join(dir, info.Name()), true
		}
	}
	return "", false
}

// redirectRuntimeCache points the emulator's runtime texture cache at a
// process-temp location via a symlink, replacing a pre-existing real
// directory or a link with the wrong target.
func (m *Mounter) redirectRuntimeCache(root string) error {
	linker, ok := m.fs.(afero.Symlinker)
	if !ok {
		log.Debug().Msg("filesystem does not support symlinks, skipping cache redirect")
		return nil
	}

	cacheDir := filepath.Join(root, runtimeCacheName)
	tmpTarget := filepath.Join(os.TempDir(), "romshim-texcache")

	if err := m.fs.MkdirAll(tmpTarget, 0o750); err != nil {
		return err
	}

	fi, usedLstat, err := linker.LstatIfPossible(cacheDir)
	if err == nil {
		if usedLstat && fi.Mode()&os.ModeSymlink != 0 {
			existing, rerr := linker.ReadlinkIfPossible(cacheDir)
			if rerr == nil && existing == tmpTarget {
				return nil
			}
		}
		// A real directory or a link with the wrong target both have to go.
		if err := m.fs.RemoveAll(cacheDir); err != nil {
			return err
		}
	}

	return linker.SymlinkIfPossible(tmpTarget, cacheDir)
}

// mount tears down any existing mount at the target, then tries the
// privileged kernel driver followed by the user-space FUSE helper. First
// success wins.
func (m *Mounter) mount(ctx context.Context, target *MountTarget) {
	if err := m.fs.MkdirAll(target.MountPoint, 0o750); err != nil {
		log.Warn().Err(err).Str("mountPoint", target.MountPoint).Msg("failed to create mount point")
		target.State = Failed
		return
	}

	if m.isMounted(target.MountPoint) {
		m.unmount(ctx, target.MountPoint)
	}

	var strategies []helpers.Strategy
	if m.sudoAvailable(ctx) {
		strategies = append(strategies, helpers.Strategy{
			Name: "kernel",
			Run: func() error {
				return m.executor.Run(ctx, "sudo", "-n", "mount",
					"-t", "erofs", "-o", "ro,loop", target.ImagePath, target.MountPoint)
			},
		})
	}
	strategies = append(strategies, helpers.Strategy{
		Name: "fuse",
		Run: func() error {
			return m.executor.Run(ctx, "erofsfuse", target.ImagePath, target.MountPoint)
		},
	})

	name, err := helpers.FirstSuccess(strategies...)
	switch {
	case err != nil:
		target.State = Failed
	case name == "kernel":
		target.State = MountedKernel
	default:
		target.State = MountedFuse
	}
}

// unmount tries a privileged unmount then a userspace one. Both failing is
// only a warning.
func (m *Mounter) unmount(ctx context.Context, mountPoint string) {
	var strategies []helpers.Strategy
	if m.sudoAvailable(ctx) {
		strategies = append(strategies, helpers.Strategy{
			Name: "umount",
			Run: func() error {
				return m.executor.Run(ctx, "sudo", "-n", "umount", mountPoint)
			},
		})
	}
	strategies = append(strategies, helpers.Strategy{
		Name: "fusermount",
		Run: func() error {
			return m.executor.Run(ctx, "fusermount", "-u", mountPoint)
		},
	})

	if _, err := helpers.FirstSuccess(strategies...); err != nil {
		log.Warn().Str("mountPoint", mountPoint).Msg("failed to unmount existing texture mount")
	}
}

// isMounted scans the process mount table for the mount point.
func (m *Mounter) isMounted(mountPoint string) bool {
	data, err := afero.ReadFile(m.fs, mountsFile)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == mountPoint {
			return true
		}
	}
	return false
}

// sudoAvailable probes for non-interactive privileged access, once.
func (m *Mounter) sudoAvailable(ctx context.Context) bool {
	if m.sudoProbed {
		return m.sudoOK
	}
	m.sudoProbed = true

	if _, err := m.executor.LookPath("sudo"); err != nil {
		m.sudoOK = false
		return false
	}
	m.sudoOK = m.executor.Run(ctx, "sudo", "-n", "true") == nil
	if !m.sudoOK {
		log.Debug().Msg("privileged access unavailable, will rely on FUSE mounts")
	}
	return m.sudoOK
}

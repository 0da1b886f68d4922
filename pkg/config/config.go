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

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	AppName = "romshim"
	CfgEnv  = "ROMSHIM_CFG"
	CfgFile = "romshim.toml"
)

// Values is the wrapper's own configuration. Every field has a working
// zero-config default; a config file is optional.
type Values struct {
	CacheDir     string  `toml:"cache_dir,omitempty"`
	SevenZipBin  string  `toml:"sevenzip_bin,omitempty"`
	FfmpegBin    string  `toml:"ffmpeg_bin,omitempty"`
	Mupen        Mupen   `toml:"mupen,omitempty"`
	ScummVM      ScummVM `toml:"scummvm,omitempty"`
	DebugLogging bool    `toml:"debug_logging"`
}

// Mupen configures the N64 texture-pack target emulator.
type Mupen struct {
	// ConfigRoots are checked in order for the emulator's data directory.
	ConfigRoots []string `toml:"config_roots,omitempty,multiline"`
}

// ScummVM configures the external config merge target.
type ScummVM struct {
	// ConfigPaths are checked in order for the global scummvm.ini.
	ConfigPaths []string `toml:"config_paths,omitempty,multiline"`
}

// BaseDefaults returns defaults resolved against the current user's home.
// Containerized install layouts are checked before native ones.
func BaseDefaults() Values {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("home directory unavailable, using cwd-relative candidates")
		home = "."
	}

	return Values{
		CacheDir:    filepath.Join(os.TempDir(), AppName),
		SevenZipBin: "7z",
		FfmpegBin:   "ffmpeg",
		Mupen: Mupen{
			ConfigRoots: []string{
				filepath.Join(home, ".var/app/io.github.m64p.m64p/data/mupen64plus"),
				filepath.Join(xdg.DataHome, "mupen64plus"),
			},
		},
		ScummVM: ScummVM{
			ConfigPaths: []string{
				filepath.Join(home, ".var/app/org.scummvm.scummvm/config/scummvm/scummvm.ini"),
				filepath.Join(xdg.ConfigHome, "scummvm/scummvm.ini"),
			},
		},
	}
}

// Load reads the optional config file on top of defaults. The file location
// can be overridden with the ROMSHIM_CFG environment variable; a missing
// file is not an error.
//
//nolint:gocritic // config struct copied for immutability
func Load(defaults Values) (Values, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(xdg.ConfigHome, AppName, CfgFile)
	}

	vals := defaults

	data, err := os.ReadFile(cfgPath) //nolint:gosec // Path is from env or a fixed location
	if os.IsNotExist(err) {
		log.Debug().Str("path", cfgPath).Msg("no config file, using defaults")
		return vals, nil
	} else if err != nil {
		return vals, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top. Fields not
	// present in the file retain their default values.
	err = toml.Unmarshal(data, &vals)
	if err != nil {
		return vals, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	log.Debug().Str("path", cfgPath).Msg("loaded config file")
	return vals, nil
}

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
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrAllStrategiesFailed is returned by FirstSuccess when every strategy in
// the chain has been attempted without success.
var ErrAllStrategiesFailed = errors.New("all strategies failed")

// Strategy is one step in an ordered fallback chain.
type Strategy struct {
	Run  func() error
	Name string
}

// FirstSuccess runs strategies in order and returns the name of the first
// one that succeeds. Failures short of the last are logged at debug level
// only, since falling through is expected behavior.
func FirstSuccess(strategies ...Strategy) (string, error) {
	for _, s := range strategies {
		err := s.Run()
		if err == nil {
			return s.Name, nil
		}
		log.Debug().Err(err).Str("strategy", s.Name).Msg("fallback strategy failed")
	}
	return "", ErrAllStrategiesFailed
}

// FirstExisting returns the first path in candidates that exists, in order.
// No merging across candidates: the first hit wins outright.
func FirstExisting(fs afero.Fs, candidates []string) (string, bool) {
	for _, p := range candidates {
		if Exists(fs, p) {
			return p, true
		}
	}
	return "", false
}

// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"os"

	"github.com/inconshreveable/log15"
)

// newLogger builds the root log15.Logger every command hangs its
// component loggers off of, filtered to level (one of log15's usual
// names: "debug", "info", "warn", "error"; an unrecognised name falls
// back to "info" rather than failing startup over a typo).
func newLogger(level string) log15.Logger {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		lvl = log15.LvlInfo
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
	return logger
}

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

// Package driverfiles manages the scoped, removable working directory a
// LifecycleRequest owns: the externally-rendered playbook tree (scripts/)
// alongside a config/ directory the driver populates itself (inventory
// files, generated kubeconfigs, extracted private keys). It implements
// lifecyclereq.DriverFiles.
package driverfiles

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lifecycledriver/lifecycledriver/internal/fsutil"
)

// Tree is a DriverFiles rooted at a hashed, request-scoped directory under
// a shared base dir, mirroring the source driver's lifecycle_path handed
// to each request (process.py's request['lifecycle_path'].root_path).
type Tree struct {
	root string
}

// New creates a new directory tree for requestID under baseDir. If sourcePath is non-empty its contents are
// copied in as the initial scripts/ payload; otherwise scripts/ is created
// empty for the caller to populate.
func New(baseDir, requestID, sourcePath string) (*Tree, error) {
	root, err := fsutil.MkHashedDir(baseDir, requestID)
	if err != nil {
		return nil, fmt.Errorf("driverfiles: creating tree for %s: %w", requestID, err)
	}
	t := &Tree{root: root}

	if err := os.MkdirAll(t.Path("config"), 0o755); err != nil {
		_ = t.RemoveAll()
		return nil, fmt.Errorf("driverfiles: creating config dir: %w", err)
	}

	if sourcePath != "" {
		if err := fsutil.CopyTree(sourcePath, t.Path("scripts")); err != nil {
			_ = t.RemoveAll()
			return nil, fmt.Errorf("driverfiles: copying scripts from %s: %w", sourcePath, err)
		}
	} else if err := os.MkdirAll(t.Path("scripts"), 0o755); err != nil {
		_ = t.RemoveAll()
		return nil, fmt.Errorf("driverfiles: creating scripts dir: %w", err)
	}

	return t, nil
}

// RootPath is the absolute path to the tree's root.
func (t *Tree) RootPath() string { return t.root }

// HasDirectory reports whether name exists directly under the root.
func (t *Tree) HasDirectory(name string) bool {
	fi, err := os.Stat(t.Path(name))
	return err == nil && fi.IsDir()
}

// Path joins name onto the root without checking existence.
func (t *Tree) Path(name string) string {
	return filepath.Join(t.root, name)
}

// RemoveAll deletes the entire tree. Safe to call more than once; a
// missing directory is not an error.
func (t *Tree) RemoveAll() error {
	if t.root == "" {
		return nil
	}
	if err := os.RemoveAll(t.root); err != nil {
		return fmt.Errorf("driverfiles: removing %s: %w", t.root, err)
	}
	return nil
}

// RemoveAllExceptConfig deletes everything in the tree except the config/
// directory, so generated artifacts (kubeconfigs, extracted keys) remain
// while the scripts are removed. The executor does not call it.
func (t *Tree) RemoveAllExceptConfig() error {
	return fsutil.RemoveAllExcept(t.root, []string{"config"})
}

// DiskUsage reports the tree's total size in bytes.
func (t *Tree) DiskUsage() (int64, error) {
	return DirSize(t.root)
}

// DirSize recursively sums file sizes under path, in bytes. Used directly
// (rather than through a Tree) by lifecycledriverctl to report usage
// across an entire base directory of request trees at once.
func DirSize(path string) (int64, error) {
	var size int64
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		abs := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			sub, err := DirSize(abs)
			if err != nil {
				return 0, err
			}
			size += sub
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		size += info.Size()
	}

	return size, nil
}

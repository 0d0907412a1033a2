// Copyright © 2016-2018 Genome Research Limited
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

// Package fsutil holds the directory-hashing and tree-copy/remove helpers
// used by driverfiles.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	farm "github.com/dgryski/go-farm"
)

// AppName prefixes the top-level hashed-dir bucket, mirroring the
// teacher's AppName convention for its own working directories.
var AppName = "lifecycledriver"

// mkHashedLevels is the number of directory levels created by MkHashedDir.
const mkHashedLevels = 4

// HashKey calculates a unique, fixed-length directory-safe key for an
// arbitrary string (a request ID), used to fan requests out across a
// directory tree instead of piling thousands of siblings into one
// directory.
func HashKey(s string) string {
	l, h := farm.Hash128([]byte(s))
	return fmt.Sprintf("%016x%016x", l, h)
}

// calculateHashedDir returns the hashed directory structure corresponding
// to a given string: dirs rooted at baseDir, and a leaf name.
func calculateHashedDir(baseDir, tohash string) (string, string) {
	dirs := strings.SplitN(tohash, "", mkHashedLevels)
	dirs, leaf := dirs[0:mkHashedLevels-1], dirs[mkHashedLevels-1]
	dirs = append([]string{baseDir}, dirs...)
	return filepath.Join(dirs...), leaf
}

// MkHashedDir creates a directory nested within baseDir, fanned out by a
// hash of requestID so that high request volume doesn't produce one huge
// flat directory, and returns its path. The leaf itself is a MkdirTemp so
// that retried requests sharing a requestID never collide.
func MkHashedDir(baseDir, requestID string) (string, error) {
	key := HashKey(requestID)
	dir, leaf := calculateHashedDir(filepath.Join(baseDir, AppName+"_requests"), key)

	var err error
	tries := 0
	for {
		err = os.MkdirAll(dir, os.ModePerm)
		if err == nil {
			break
		}
		tries++
		if tries > 3 {
			return "", err
		}
	}

	return os.MkdirTemp(dir, leaf)
}

// RmEmptyDirs deletes leafDir and its parent directories if they are
// empty, stopping if it reaches baseDir (leaving that undeleted). It's ok
// if leafDir doesn't exist.
func RmEmptyDirs(leafDir, baseDir string) error {
	err := os.Remove(leafDir)
	if err != nil && !os.IsNotExist(err) {
		if strings.Contains(err.Error(), "directory not empty") {
			return nil
		}
		return err
	}
	current := leafDir
	parent := filepath.Dir(current)
	for ; parent != baseDir; parent = filepath.Dir(current) {
		if thisErr := os.Remove(parent); thisErr != nil {
			break
		}
		current = parent
	}
	return nil
}

// CopyTree recursively copies src onto dst, creating dst if needed.
// Symlinks are copied as files (playbook trees the driver receives never
// legitimately contain symlinks; preserving a malicious one would let a
// rendered playbook escape its own directory).
func CopyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(source, dest string, mode os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer func() {
		if errc := in.Close(); errc != nil && err == nil {
			err = errc
		}
	}()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if errc := out.Close(); errc != nil && err == nil {
			err = errc
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// RemoveAllExcept deletes the contents of path (an absolute directory),
// except for the given exceptions (paths relative to path).
func RemoveAllExcept(path string, exceptions []string) error {
	keepDirs := make(map[string]bool)
	checkDirs := make(map[string]bool)
	path = filepath.Clean(path)
	for _, dir := range exceptions {
		abs := filepath.Join(path, dir)
		keepDirs[abs] = true
		for parent := filepath.Dir(abs); parent != path; parent = filepath.Dir(parent) {
			checkDirs[parent] = true
		}
	}
	return removeWithExceptions(path, keepDirs, checkDirs)
}

func removeWithExceptions(path string, keepDirs, checkDirs map[string]bool) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		abs := filepath.Join(path, entry.Name())
		if !entry.IsDir() {
			if err := os.Remove(abs); err != nil {
				return err
			}
			continue
		}

		if keepDirs[abs] {
			continue
		}

		if checkDirs[abs] {
			if err := removeWithExceptions(abs, keepDirs, checkDirs); err != nil {
				return err
			}
		} else if err := os.RemoveAll(abs); err != nil {
			return err
		}
	}
	return nil
}

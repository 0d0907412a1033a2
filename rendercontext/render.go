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

package rendercontext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	farm "github.com/dgryski/go-farm"
	lru "github.com/hashicorp/golang-lru"
)

// Engine is the templating engine the executor is constructed with; the
// concrete engine (and its template language) is an external
// collaborator, never implemented here.
type Engine interface {
	Render(templateContent string, scope map[string]interface{}) (string, error)
}

// RenderTreeCacheSize bounds the idempotent-render hash cache shared
// across requests, so retried requests that re-render byte-identical
// templates against an unchanged scope skip the engine call entirely.
const RenderTreeCacheSize = 512

// Cache memoises (file content, scope) -> rendered content so a retried
// request doesn't re-run the templating engine over unchanged input. A
// nil *Cache is valid and simply disables memoisation.
type Cache struct {
	lru *lru.Cache
}

// NewCache creates a Cache, or returns an error only if the requested
// size is invalid.
func NewCache() (*Cache, error) {
	c, err := lru.New(RenderTreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("rendercontext: creating render cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) get(key uint64) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, ok
}

func (c *Cache) put(key uint64, rendered string) {
	if c == nil {
		return
	}
	c.lru.Add(key, rendered)
}

// RenderTree walks every file under dir, attempts a UTF-8 decode, renders
// non-binary files against scope with engine, and writes the result back
// over the original path. Binary files (failed UTF-8 decode) are left
// untouched, matching the source driver's skip-on-UnicodeDecodeError
// behaviour. Symlinked targets outside dir are never followed.
func RenderTree(dir string, engine Engine, scope map[string]interface{}, cache *Cache) error {
	scopeKey, err := scopeHash(scope)
	if err != nil {
		return fmt.Errorf("rendercontext: hashing scope: %w", err)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, resolved)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("rendercontext: reading %s: %w", path, err)
		}
		if !utf8.Valid(content) {
			return nil
		}

		cacheKey := contentHash(content) ^ scopeKey
		if rendered, ok := cache.get(cacheKey); ok {
			return os.WriteFile(path, []byte(rendered), info.Mode().Perm())
		}

		rendered, err := engine.Render(string(content), scope)
		if err != nil {
			return fmt.Errorf("rendercontext: rendering %s: %w", path, err)
		}

		cache.put(cacheKey, rendered)
		return os.WriteFile(path, []byte(rendered), info.Mode().Perm())
	})
}

func contentHash(content []byte) uint64 {
	lo, hi := farm.Hash128(content)
	return lo ^ hi
}

func scopeHash(scope map[string]interface{}) (uint64, error) {
	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	// Deterministic iteration isn't required for correctness here: the
	// hash is a cache key, not a canonical serialisation, and a
	// collision just costs a redundant render.
	var acc uint64
	for _, k := range keys {
		acc ^= contentHash([]byte(fmt.Sprintf("%s=%v", k, scope[k])))
	}
	return acc, nil
}

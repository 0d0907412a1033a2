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

// Package inventory selects, or when absent synthesises, the ansible
// inventory file a lifecycle run targets.
package inventory

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

const baseName = "inventory"

const defaultHostLine = `localhost ansible_connection=local ansible_python_interpreter="/usr/bin/env python3" host_key_checking=False`

// buildDefaultInventory renders the synthesised inventory as ansible
// itself would parse it: a [run_hosts] section whose body is a raw
// per-host variable-assignment line, not INI key=value pairs. go-ini
// supports this via a raw section body, which is the only part of its
// API this file-format actually fits.
func buildDefaultInventory() ([]byte, error) {
	cfg := ini.Empty()
	if _, err := cfg.NewRawSection("run_hosts", defaultHostLine); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MissingConfigDirError is returned when the request's driver files have
// no config directory at all — a resource package authoring error, not
// something a retry can fix.
type MissingConfigDirError struct{}

func (MissingConfigDirError) Error() string {
	return "inventory: resource package is missing its config directory"
}

// Path returns the absolute path of the inventory file to use for
// infrastructureType within driverFiles, synthesising a default file in
// configDir when none of the type-specific candidates exist.
//
// Selection order (spec.md §4.4): inventory.<type> exactly, then, only
// when infrastructureType is "Kubernetes", inventory.k8s, then plain
// inventory, synthesised if still absent.
func Path(driverFiles lifecyclereq.DriverFiles, infrastructureType string) (string, error) {
	if !driverFiles.HasDirectory("config") {
		return "", MissingConfigDirError{}
	}
	configDir := driverFiles.Path("config")

	candidates := []string{fmt.Sprintf("%s.%s", baseName, infrastructureType)}
	if infrastructureType == "Kubernetes" {
		candidates = append(candidates, baseName+".k8s")
	}
	candidates = append(candidates, baseName)

	for _, name := range candidates {
		p := filepath.Join(configDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	content, err := buildDefaultInventory()
	if err != nil {
		return "", fmt.Errorf("inventory: building default file: %w", err)
	}

	defaultPath := filepath.Join(configDir, baseName)
	if err := os.WriteFile(defaultPath, content, 0o644); err != nil {
		return "", fmt.Errorf("inventory: writing default file: %w", err)
	}
	return defaultPath, nil
}

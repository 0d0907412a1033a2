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

// Package keys materialises key-typed property values to temporary
// private-key files so they can be referenced from inventory files and
// rendered templates, and guarantees their removal.
package keys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// Processor writes out every key-typed property across the three bags it
// is given, and remembers the files it created so Cleanup can remove
// them. Constructed per request; not safe for concurrent use.
type Processor struct {
	dir       string
	keyFiles  []string
}

// NewProcessor creates a key files directory under workDir (typically
// driverFiles.Path("config")).
func NewProcessor(workDir string) (*Processor, error) {
	dir := filepath.Join(workDir, "keys")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keys: creating key directory: %w", err)
	}
	return &Processor{dir: dir}, nil
}

// ProcessAll writes a private-key file for every key-typed entry found
// across resourceProperties, systemProperties and dlProperties, injecting
// <name>_path and <name>_name into the same bag the entry came from. The
// bags are processed in this order, matching the source driver's
// resource → system → deployment-location precedence.
func (p *Processor) ProcessAll(resourceProperties, systemProperties, dlProperties lifecyclereq.PropertyBag) error {
	for _, bag := range []lifecyclereq.PropertyBag{resourceProperties, systemProperties, dlProperties} {
		if bag == nil {
			continue
		}
		if err := p.processBag(bag); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processBag(bag lifecyclereq.PropertyBag) error {
	for name, prop := range bag {
		if prop.Type != lifecyclereq.PropertyKey {
			continue
		}
		if err := p.writePrivateKey(bag, name, prop.Key()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) writePrivateKey(bag lifecyclereq.PropertyBag, name string, key lifecyclereq.KeyValue) error {
	if key.PrivateKey != "" {
		if _, err := ssh.ParsePrivateKey([]byte(key.PrivateKey)); err != nil {
			return fmt.Errorf("keys: property %q: invalid private key: %w", name, err)
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("keys: generating file name for %q: %w", name, err)
	}
	path := filepath.Join(p.dir, id.String())

	if err := os.WriteFile(path, []byte(key.PrivateKey), 0o600); err != nil {
		return fmt.Errorf("keys: writing private key file for %q: %w", name, err)
	}
	p.keyFiles = append(p.keyFiles, path)

	bag.Set(name+"_path", path)
	bag.Set(name+"_name", key.KeyName)
	return nil
}

// Cleanup removes every private-key file this processor wrote. Safe to
// call more than once.
func (p *Processor) Cleanup() error {
	var result *multierror.Error
	for _, path := range p.keyFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("keys: removing %s: %w", path, err))
		}
	}
	p.keyFiles = nil
	return result.ErrorOrNil()
}

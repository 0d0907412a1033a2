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

// Package location parses a request's deployment location descriptor,
// selects its transport (SSH vs in-cluster kubectl), and when the
// transport is kubectl, materialises a kubeconfig file whose removal it
// guarantees on Release.
package location

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// ConnectionType is how the playbook runner reaches the location's hosts.
type ConnectionType string

// The two transports a deployment location may select.
const (
	ConnectionSSH     ConnectionType = "ssh"
	ConnectionKubectl ConnectionType = "kubectl"
)

const connectionTypeProp = "connection_type"
const kubeconfigPathProp = "kubeconfig_path"

// InvalidError is returned when a deployment location descriptor fails
// validation (spec.md §4.3: non-null, object, has type).
type InvalidError struct{ reason string }

func (e *InvalidError) Error() string { return "invalid deployment location: " + e.reason }

// DeploymentLocation is constructed per request and owns any kubeconfig
// file it writes; Release deletes that file and is safe to call more
// than once (including when nothing was ever written).
type DeploymentLocation struct {
	Name           string
	Type           string
	ConnectionType ConnectionType
	Properties     lifecyclereq.PropertyBag

	kubeconfigPath string
}

// New validates req and, for a kubectl connection, writes a kubeconfig
// file into configDir and injects its path into Properties as
// kubeconfig_path. configDir must already exist; the caller (typically
// driverfiles.Tree.Path("config")) owns its lifecycle.
func New(req lifecyclereq.DeploymentLocationRequest, configDir string) (*DeploymentLocation, error) {
	if req.Type == "" {
		return nil, &InvalidError{"missing 'type' value"}
	}

	props := req.Properties
	if props == nil {
		props = lifecyclereq.PropertyBag{}
	} else {
		props = props.Clone()
	}

	connType := ConnectionType(stringProp(props, connectionTypeProp))
	if connType == "" {
		connType = ConnectionSSH
	}
	if req.Type == "Kubernetes" {
		connType = ConnectionKubectl
	}

	dl := &DeploymentLocation{
		Name:           req.Name,
		Type:           req.Type,
		ConnectionType: connType,
		Properties:     props,
	}

	if connType != ConnectionKubectl {
		return dl, nil
	}

	flat := flattenStrings(props)
	cfg, err := buildKubeconfig(flat)
	if err != nil {
		return nil, fmt.Errorf("deployment location %q: %w", req.Name, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("deployment location %q: generating kubeconfig name: %w", req.Name, err)
	}
	path := filepath.Join(configDir, fmt.Sprintf("kubeconfig_%s.yml", id.String()))

	if err := writeKubeconfig(cfg, path); err != nil {
		return nil, fmt.Errorf("deployment location %q: writing kubeconfig: %w", req.Name, err)
	}

	dl.kubeconfigPath = path
	dl.Properties.Set(kubeconfigPathProp, path)

	return dl, nil
}

// Release deletes the kubeconfig file, if one was written. Called
// unconditionally by the executor's cleanup stage, in both success and
// failure paths.
func (dl *DeploymentLocation) Release() error {
	if dl == nil || dl.kubeconfigPath == "" {
		return nil
	}
	path := dl.kubeconfigPath
	dl.kubeconfigPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deployment location: removing kubeconfig %s: %w", path, err)
	}
	return nil
}

func stringProp(b lifecyclereq.PropertyBag, name string) string {
	v, ok := b[name]
	if !ok {
		return ""
	}
	s, _ := v.Value.(string)
	return s
}

func flattenStrings(b lifecyclereq.PropertyBag) map[string]string {
	out := make(map[string]string, len(b))
	for k, v := range b {
		if s, ok := v.Value.(string); ok {
			out[k] = s
		}
	}
	return out
}

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
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
)

// PassthroughEngine renders every template as itself. It's what
// cmd/lifecycledriver falls back to when no templating engine binary
// is configured, so the rest of the pipeline (inventory, keys, the
// playbook run) can still be exercised against driver files whose
// templates are already fully resolved.
type PassthroughEngine struct{}

// Render implements Engine.
func (PassthroughEngine) Render(templateContent string, _ map[string]interface{}) (string, error) {
	return templateContent, nil
}

// engineRequest/engineResponse are SubprocessEngine's wire protocol,
// mirroring the line-oriented JSON contract playbook.Runner defines
// for its own external collaborator.
type engineRequest struct {
	Template string                 `json:"template"`
	Scope    map[string]interface{} `json:"scope"`
}

type engineResponse struct {
	Rendered string `json:"rendered"`
	Error    string `json:"error,omitempty"`
}

// SubprocessEngine is a templating Engine that defers the actual
// rendering to an external binary: the scope and template content are
// written to the subprocess's stdin as one JSON object, and the
// rendered content is read back as one JSON object from stdout. Binary
// is the contract this driver defines but does not implement the other
// side of, exactly as playbook.Runner does for the playbook engine
// itself.
type SubprocessEngine struct {
	Binary string
}

// Render implements Engine.
func (e SubprocessEngine) Render(templateContent string, scope map[string]interface{}) (string, error) {
	payload, err := json.Marshal(engineRequest{Template: templateContent, Scope: scope})
	if err != nil {
		return "", fmt.Errorf("rendercontext: encoding engine request: %w", err)
	}

	cmd := exec.Command(e.Binary)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("rendercontext: running templating engine: %w: %s", err, stderr.String())
	}

	var resp engineResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("rendercontext: decoding engine response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("rendercontext: templating engine: %s", resp.Error)
	}
	return resp.Rendered, nil
}

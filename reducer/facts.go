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

package reducer

import (
	"strings"

	"github.com/inconshreveable/log15"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/playbook"
)

var logger = log15.New("component", "reducer")

// extractFacts harvests ansible_facts (or, for looped tasks, each
// element of results[*].ansible_facts) from a task-OK result and folds
// matching keys into outputs/topology. Must be called with r.mu held.
func (r *Reducer) extractFacts(result lifecyclereq.TaskResult) {
	if looped, ok := result.Extra["results"].([]interface{}); ok {
		for _, item := range looped {
			itemMap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if facts, ok := itemMap["ansible_facts"].(map[string]interface{}); ok {
				r.foldFacts(facts)
			}
		}
		return
	}

	if facts, ok := result.Extra["ansible_facts"].(map[string]interface{}); ok {
		r.foldFacts(facts)
	}
}

func (r *Reducer) foldFacts(facts map[string]interface{}) {
	for key, value := range facts {
		switch {
		case key == "associated_topology":
			if m, ok := value.(map[string]interface{}); ok {
				r.mergeTopologyMap(m)
			}
		case key == "protocol_audit":
			if fact, ok := playbook.ParseProtocolAuditFact(value); ok {
				logger.Info("protocol audit", "direction", fact.Direction, "externalRequestId", fact.ExternalRequestID,
					"messageType", fact.MessageType, "protocol", fact.Protocol, "metadata", fact.ProtocolMetadata)
			}
		case strings.HasPrefix(key, r.cfg.OutputPrefix):
			r.outputs[key[len(r.cfg.OutputPrefix):]] = value
		case strings.HasPrefix(key, r.cfg.TopologyPrefix):
			r.addTopologyEntry(key[len(r.cfg.TopologyPrefix):], value)
		}
	}
}

func (r *Reducer) mergeTopologyMap(m map[string]interface{}) {
	for name, raw := range m {
		entryMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := entryMap["id"].(string)
		typ, _ := entryMap["type"].(string)
		r.topology[name] = lifecyclereq.TopologyEntry{ID: id, Type: typ}
	}
}

func (r *Reducer) addTopologyEntry(name string, value interface{}) {
	s, ok := value.(string)
	if !ok {
		logger.Warn("topology fact value is not a string, skipping", "name", name)
		return
	}
	idx := strings.LastIndex(s, "__")
	if idx <= 0 || idx+2 >= len(s) {
		logger.Warn("topology fact does not split into exactly two non-empty parts, skipping", "name", name, "value", s)
		return
	}
	r.topology[name] = lifecyclereq.TopologyEntry{ID: s[:idx], Type: s[idx+2:]}
}

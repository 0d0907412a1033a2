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

package playbook

// ProtocolAuditFact is the shape of a task's ansible_facts.protocol_audit
// entry: a structured external-protocol trace line a playbook module may
// emit (mirroring the source driver's custom message-logging module),
// never an output or topology fact in its own right.
type ProtocolAuditFact struct {
	Direction         string                 `json:"direction"`
	ExternalRequestID string                 `json:"externalRequestId"`
	MessageType       string                 `json:"messageType"`
	Protocol          string                 `json:"protocol"`
	ProtocolMetadata  map[string]interface{} `json:"protocolMetadata"`
}

// ParseProtocolAuditFact extracts a ProtocolAuditFact from a raw facts map
// entry, reporting false if value doesn't match the expected shape.
func ParseProtocolAuditFact(value interface{}) (ProtocolAuditFact, bool) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return ProtocolAuditFact{}, false
	}
	fact := ProtocolAuditFact{}
	fact.Direction, _ = m["direction"].(string)
	fact.ExternalRequestID, _ = m["externalRequestId"].(string)
	fact.MessageType, _ = m["messageType"].(string)
	fact.Protocol, _ = m["protocol"].(string)
	if meta, ok := m["protocolMetadata"].(map[string]interface{}); ok {
		fact.ProtocolMetadata = meta
	}
	if fact.Direction == "" && fact.MessageType == "" && fact.Protocol == "" {
		return ProtocolAuditFact{}, false
	}
	return fact, true
}

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

// Package lifecyclereq holds the data model shared by the rest of the
// driver: the request/outcome/event types the orchestrator and the playbook
// executor exchange, and the typed property bag that replaces the source
// driver's dynamic maps.
package lifecyclereq

// PropertyType enumerates the declared type of a PropertyValue. The
// renderer and KeyPropertyProcessor discriminate on this statically instead
// of sniffing a dynamic map at runtime.
type PropertyType string

// The property types a LifecycleRequest's property bags may carry.
const (
	PropertyString    PropertyType = "string"
	PropertyInteger   PropertyType = "integer"
	PropertyFloat     PropertyType = "float"
	PropertyBoolean   PropertyType = "boolean"
	PropertyTimestamp PropertyType = "timestamp"
	PropertyMap       PropertyType = "map"
	PropertyList      PropertyType = "list"
	PropertyKey       PropertyType = "key"
)

// KeyValue is the value carried by a PropertyKey-typed property.
type KeyValue struct {
	KeyName    string `json:"keyName"`
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// PropertyValue is one entry of a PropertyBag: a declared type paired with
// its value. UserType carries the original type name when Type isn't one of
// the built-in PropertyType constants (spec.md's "<userTypeName>").
type PropertyValue struct {
	Type     PropertyType
	UserType string
	Value    interface{}
}

// Key returns the value as a KeyValue. It returns the zero KeyValue when
// Value holds neither a KeyValue nor a *KeyValue; callers are expected to check Type first (mirroring the
// source driver's `properties.get_keys().items_with_types()` pattern, which
// only ever iterates entries already known to be keys).
func (p PropertyValue) Key() KeyValue {
	switch v := p.Value.(type) {
	case KeyValue:
		return v
	case *KeyValue:
		return *v
	default:
		return KeyValue{}
	}
}

// PropertyBag is a typed, ordered-iteration-friendly property map: the Go
// replacement for the source driver's PropValueMap. Map order doesn't
// matter to any invariant in this driver, so a plain map is sufficient.
type PropertyBag map[string]PropertyValue

// Clone returns a shallow copy of the bag, safe to mutate (e.g. to inject
// `<name>_path` / `<name>_name` entries) without affecting the caller's
// original bag.
func (b PropertyBag) Clone() PropertyBag {
	out := make(PropertyBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Keys returns the names of every PropertyKey-typed entry in the bag.
func (b PropertyBag) Keys() []string {
	var names []string
	for name, v := range b {
		if v.Type == PropertyKey {
			names = append(names, name)
		}
	}
	return names
}

// Values returns a plain string-keyed map of the bag's values, for handing
// to a templating engine or a scope merge. `key`-typed entries are
// re-expressed as a KeyValue struct, matching rendercontext's "backward
// compatible" view.
func (b PropertyBag) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(b))
	for k, v := range b {
		if v.Type == PropertyKey {
			out[k] = v.Key()
			continue
		}
		out[k] = v.Value
	}
	return out
}

// Set adds or overwrites a plain string/value entry (used by
// KeyPropertyProcessor to inject `<name>_path` / `<name>_name`, and by
// DeploymentLocation to inject `kubeconfig_path`).
func (b PropertyBag) Set(name string, value interface{}) {
	b[name] = PropertyValue{Type: PropertyString, Value: value}
}

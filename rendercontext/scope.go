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

// Package rendercontext composes the flat variable scope a playbook run
// is rendered against, and walks a directory of externally-rendered
// templates applying an injected templating engine to each file.
package rendercontext

import (
	"github.com/imdario/mergo"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

// propertiesKey is the top-level key resource properties are additionally
// exposed under, for templates written against the source driver's older
// context shape.
const propertiesKey = "properties"

// Build composes a single flat variable scope, later bags winning on key
// collision: system properties, resource properties, request properties,
// deployment-location properties, associated topology. Resource
// properties are additionally exposed under "properties" for backward
// compatibility.
func Build(systemProperties, resourceProperties, requestProperties, dlProperties lifecyclereq.PropertyBag, topology lifecyclereq.AssociatedTopology) (map[string]interface{}, error) {
	scope := map[string]interface{}{}

	for _, bag := range []lifecyclereq.PropertyBag{systemProperties, resourceProperties, requestProperties, dlProperties} {
		if bag == nil {
			continue
		}
		if err := mergo.Merge(&scope, bag.Values(), mergo.WithOverride); err != nil {
			return nil, err
		}
	}

	for name, entry := range topology {
		scope[name] = map[string]string{"id": entry.ID, "type": entry.Type}
	}

	scope[propertiesKey] = resourcePropertiesView(resourceProperties)

	return scope, nil
}

// resourcePropertiesView re-expresses key-typed entries as
// {keyName, publicKey, privateKey} objects, matching the source driver's
// ExtendedResourceTemplateContextService._configure_additional_props.
func resourcePropertiesView(resourceProperties lifecyclereq.PropertyBag) map[string]interface{} {
	view := make(map[string]interface{}, len(resourceProperties))
	for name, prop := range resourceProperties {
		if prop.Type == lifecyclereq.PropertyKey {
			key := prop.Key()
			view[name] = map[string]string{
				"keyName":    key.KeyName,
				"publicKey":  key.PublicKey,
				"privateKey": key.PrivateKey,
			}
			continue
		}
		view[name] = prop.Value
	}
	return view
}

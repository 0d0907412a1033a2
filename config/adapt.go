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

package config

import (
	"github.com/lifecycledriver/lifecycledriver/reducer"
	"github.com/lifecycledriver/lifecycledriver/responsecache"
	"github.com/lifecycledriver/lifecycledriver/retry"
)

// RetryConfig adapts the Ansible group into retry.Config.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxUnreachableRetries: c.Ansible.MaxUnreachableRetries,
		UnreachableSleep:      c.Ansible.UnreachableSleep,
	}
}

// ReducerConfig adapts the Ansible group into reducer.Config.
func (c *Config) ReducerConfig() reducer.Config {
	return reducer.Config{
		OutputPrefix:   c.Ansible.OutputPropPrefix,
		TopologyPrefix: c.Ansible.TopologyPropPrefix,
	}
}

// ResponseCacheConfig adapts the Cache group into responsecache.Config.
func (c *Config) ResponseCacheConfig() responsecache.Config {
	return responsecache.Config{
		Expiry:      c.Cache.Expiry,
		MaxCapacity: c.Cache.MaxCapacity,
	}
}

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

package responsecache

import "github.com/lifecycledriver/lifecycledriver/admin"

// AdminRecentFunc adapts c.Recent to admin.RecentOutcomesFunc.
func (c *Cache) AdminRecentFunc() admin.RecentOutcomesFunc {
	return func(n int) []admin.RecentOutcome {
		outcomes := c.Recent(n)
		out := make([]admin.RecentOutcome, len(outcomes))
		for i, o := range outcomes {
			out[i] = admin.RecentOutcome{RequestID: o.RequestID, Status: string(o.Status)}
		}
		return out
	}
}

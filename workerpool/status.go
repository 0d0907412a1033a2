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

package workerpool

import "github.com/lifecycledriver/lifecycledriver/admin"

// AdminStatusFunc adapts p.Snapshot to admin.PoolStatusFunc, so
// cmd/lifecycledriver can wire a Pool straight into an admin.Server
// without writing its own conversion.
func (p *Pool) AdminStatusFunc() admin.PoolStatusFunc {
	return func() (bool, []admin.WorkerSnapshot) {
		active, workers := p.Snapshot()
		out := make([]admin.WorkerSnapshot, len(workers))
		for i, w := range workers {
			out[i] = admin.WorkerSnapshot{Index: w.Index, Pid: w.Pid, ChildProcesses: w.ChildProcesses}
		}
		return active, out
	}
}

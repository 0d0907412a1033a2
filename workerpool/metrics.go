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

import (
	"time"

	"github.com/VividCortex/ewma"
	"github.com/carbocation/runningvariance"
	"github.com/shirou/gopsutil/process"
)

// runMetrics tracks how long a worker's playbook runs take: an
// exponentially-weighted moving average for a responsive "current
// pace" figure, and a running variance for a stable long-run spread,
// without keeping every sample in memory.
type runMetrics struct {
	avg ewma.MovingAverage
	rs  *runningvariance.RunningStat
}

func newRunMetrics() *runMetrics {
	return &runMetrics{
		avg: ewma.NewMovingAverage(),
		rs:  runningvariance.NewRunningStat(),
	}
}

func (m *runMetrics) start() time.Time { return time.Now() }

func (m *runMetrics) finish(started time.Time) {
	seconds := time.Since(started).Seconds()
	m.avg.Add(seconds)
	m.rs.Push(seconds)
}

func (m *runMetrics) average() float64 { return m.avg.Value() }

func (m *runMetrics) stddev() float64 {
	if m.rs.NumSamples() < 2 {
		return 0
	}
	return m.rs.StandardDeviation()
}

// ChildProcessCount reports how many OS processes a worker's playbook
// subprocess has spawned (ansible-playbook itself plus whatever it
// forks for module execution), used by the admin status surface to
// flag a worker that is leaking grandchildren instead of reaping them
// once its own ansible-playbook subprocess exits.
func ChildProcessCount(pid int32) (int, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return 0, err
	}
	children, err := proc.Children()
	if err != nil {
		return 0, nil //nolint:nilerr // no children is the common case, gopsutil returns an error for it
	}
	return len(children), nil
}

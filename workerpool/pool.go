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

// Package workerpool manages the fixed-size fleet of worker processes
// that actually pull requests off a RequestQueue and run them through
// an executor. Go has no safe analogue of Python's os.fork() once a
// process has goroutines running, so where the original service forked
// AnsibleProcess children from AnsibleProcessorService, this pool
// re-execs its own binary: the parent resolves its executable path and
// launches N copies of itself with a hidden "worker" subcommand, each
// in its own process group so it can be signalled independently of its
// playbook/ansible-playbook grandchildren.
package workerpool

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/kardianos/osext"
	"github.com/sb10/waitgroup"
)

// Config controls the shape and shutdown behaviour of a Pool.
type Config struct {
	Size int
	// GracePeriod is how long Shutdown waits for workers to exit after
	// SIGTERM before escalating to SIGKILL.
	GracePeriod time.Duration
	// ExtraArgs is appended to every spawned child's command line after
	// "worker --index N", so the parent can pass through anything a
	// re-exec'd worker needs to rebuild its own configuration (e.g.
	// "--config /etc/lifecycledriver.yaml").
	ExtraArgs []string
}

// BootstrapFunc builds the WorkerBootstrap for worker index i. Called
// once per worker at Start, and again whenever a worker is respawned.
type BootstrapFunc func(index int) WorkerBootstrap

type child struct {
	index   int
	cmd     *exec.Cmd
	control io.WriteCloser
}

// Pool supervises Config.Size re-exec'd worker processes.
type Pool struct {
	cfg      Config
	binary   string
	workerOf BootstrapFunc
	log      log15.Logger

	mu      sync.Mutex
	workers []*child
	active  bool
}

// WorkerSnapshot is a point-in-time view of one supervised worker,
// for the admin status surface.
type WorkerSnapshot struct {
	Index          int
	Pid            int
	ChildProcesses int
}

// Snapshot reports the pool's current liveness and one WorkerSnapshot
// per running worker. ChildProcesses is best effort: a gopsutil lookup
// failure (the process has just exited, say) yields 0 rather than an
// error, since this is diagnostic-only and must never block a caller.
func (p *Pool) Snapshot() (active bool, workers []WorkerSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workers = make([]WorkerSnapshot, 0, len(p.workers))
	for _, c := range p.workers {
		pid := 0
		children := 0
		if c.cmd.Process != nil {
			pid = c.cmd.Process.Pid
			children, _ = ChildProcessCount(int32(pid))
		}
		workers = append(workers, WorkerSnapshot{Index: c.index, Pid: pid, ChildProcesses: children})
	}
	return p.active, workers
}

// New resolves the current executable's path (so re-exec still finds
// the right binary even if argv[0] was a relative path or the process
// was started via a symlink) and returns a Pool ready for Start.
func New(cfg Config, workerOf BootstrapFunc, logger log15.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("workerpool: size must be positive, got %d", cfg.Size)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Second
	}
	binary, err := osext.Executable()
	if err != nil {
		return nil, fmt.Errorf("workerpool: resolving own executable: %w", err)
	}
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Pool{cfg: cfg, binary: binary, workerOf: workerOf, log: logger}, nil
}

// Start launches every configured worker and hands each its bootstrap
// over a dedicated control pipe.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.cfg.Size; i++ {
		c, err := p.spawn(i)
		if err != nil {
			for _, started := range p.workers {
				p.kill(started, syscall.SIGKILL)
			}
			p.workers = nil
			return fmt.Errorf("workerpool: spawning worker %d: %w", i, err)
		}
		p.workers = append(p.workers, c)
	}
	p.active = true
	return nil
}

func (p *Pool) spawn(index int) (*child, error) {
	args := append([]string{"worker", "--index", fmt.Sprintf("%d", index)}, p.cfg.ExtraArgs...)
	cmd := exec.Command(p.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	control, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening control pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker process: %w", err)
	}

	bootstrap := p.workerOf(index)
	if err := EncodeBootstrap(control, bootstrap); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("sending bootstrap: %w", err)
	}

	p.log.Info("worker started", "index", index, "pid", cmd.Process.Pid)
	return &child{index: index, cmd: cmd, control: control}, nil
}

// Shutdown asks every worker to stop by signalling its process group,
// waits up to Config.GracePeriod for them to exit of their own accord,
// and escalates to SIGKILL for any stragglers.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	workers := p.workers
	p.workers = nil
	p.active = false
	p.mu.Unlock()

	if len(workers) == 0 {
		return nil
	}

	for _, c := range workers {
		p.kill(c, syscall.SIGTERM)
	}

	wg := waitgroup.New(len(workers))
	done := make(chan struct{})
	go func() {
		for _, c := range workers {
			wg.Add(1)
			go func(c *child) {
				defer wg.Done()
				_ = c.cmd.Wait()
			}(c)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(p.cfg.GracePeriod):
		p.log.Warn("grace period exceeded, escalating to SIGKILL", "count", len(workers))
		for _, c := range workers {
			p.kill(c, syscall.SIGKILL)
		}
		<-done
		return nil
	}
}

func (p *Pool) kill(c *child, sig syscall.Signal) {
	if c.cmd.Process == nil {
		return
	}
	// Negative pid targets the whole process group so a worker's own
	// ansible-playbook grandchild goes down with it.
	if err := syscall.Kill(-c.cmd.Process.Pid, sig); err != nil {
		p.log.Debug("signal delivery failed", "index", c.index, "pid", c.cmd.Process.Pid, "signal", sig, "err", err)
	}
}

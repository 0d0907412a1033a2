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

// Package config is this driver's single layered configuration surface:
// built-in defaults, overridden by an optional YAML file, overridden in
// turn by environment variables. Each group mirrors one of the original
// driver's ConfigurationPropertiesGroup subclasses (process, ansible,
// response_cache, resource_driver), regrouped and renamed but keeping the
// same field semantics and the same hardcoded defaults.
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/jinzhu/configor"
)

// Process mirrors process.py's ProcessProperties: how many worker
// processes to run and how long Shutdown waits for them.
type Process struct {
	PoolSize            int           `yaml:"poolSize" default:"2"`
	MaxQueueSize        int           `yaml:"maxQueueSize" default:"100"`
	ShutdownGracePeriod time.Duration `yaml:"shutdownGracePeriod" default:"10s"`

	// UseProcessPool mirrors process.py's flag of the same name: true
	// runs each pool member as its own re-exec'd OS process
	// (workerpool.Pool), false runs them as goroutines sharing this
	// process instead. The in-process mode is the only one that works
	// with Queue.Kind "memory", since a re-exec'd child can't see
	// another process's in-memory channel.
	UseProcessPool bool `yaml:"useProcessPool" default:"false"`

	// MaxConcurrentAnsibleProcesses mirrors process.py's field of the
	// same name: the number of playbook subprocesses one driver process
	// runs at once, independent of PoolSize (in the in-process mode all
	// goroutine workers share this one cap). 0 disables the cap.
	MaxConcurrentAnsibleProcesses int `yaml:"maxConcurrentAnsibleProcesses" default:"10"`
}

// Ansible mirrors ansible.py's AnsibleProperties: playbook retry policy
// and output-fact conventions.
type Ansible struct {
	UnreachableSleep      time.Duration `yaml:"unreachableSleepSeconds" default:"5s"`
	MaxUnreachableRetries int           `yaml:"maxUnreachableRetries" default:"1000"`
	OutputPropPrefix      string        `yaml:"outputPropPrefix" default:"output__"`
	TopologyPropPrefix    string        `yaml:"topologyPropPrefix" default:"associated_topology__"`
	TmpDir                string        `yaml:"tmpDir" default:"."`

	// PlaybookBinary is the external playbook-engine executable
	// playbook.Runner execs per request (SPEC_FULL's named, out-of-scope
	// playbook-executor collaborator).
	PlaybookBinary string `yaml:"playbookBinary" default:"ansible-playbook-driver"`
}

// ResourceDriver mirrors resourcedriver.py's AdditionalResourceDriverProperties.
type ResourceDriver struct {
	KeepScripts bool `yaml:"keepScripts" default:"false"`
}

// TemplateEngine configures the out-of-scope templating collaborator
// RenderTree defers to. An empty Binary means no real engine is
// configured, and rendercontext.PassthroughEngine is used instead.
type TemplateEngine struct {
	Binary string `yaml:"binary" default:""`
}

// Publisher selects which concrete ResponsePublisher transport workers
// use for their primary outcome delivery, independent of the admin
// debug feed (which is always available and fans out separately).
type Publisher struct {
	Kind      string `yaml:"kind" default:"memory"`
	MangosURL string `yaml:"mangosUrl" default:"tcp://127.0.0.1:5560"`
}

// Queue selects which concrete RequestQueue transport workers consume
// from. "memory" only works with Process.UseProcessPool disabled, since
// a re-exec'd worker process can't share the in-memory channel.
type Queue struct {
	Kind      string `yaml:"kind" default:"memory"`
	MangosURL string `yaml:"mangosUrl" default:"tcp://127.0.0.1:5559"`
}

// Cache mirrors cache.py's CacheProperties.
type Cache struct {
	Expiry      time.Duration `yaml:"cacheExpiry" default:"300s"`
	MaxCapacity int           `yaml:"maxCacheCapacity" default:"1000"`
}

// Admin configures the ambient admin HTTP surface (SPEC_FULL §4.12, no
// original-driver equivalent). An empty ListenAddress disables it.
type Admin struct {
	ListenAddress string `yaml:"listenAddress" default:"127.0.0.1:8622"`
}

// Audit configures the ambient audit store (SPEC_FULL §4.13, no
// original-driver equivalent).
type Audit struct {
	DBPath string `yaml:"dbPath" default:"./lifecycledriver-audit.db"`
}

// Logging controls the structured logger's verbosity.
type Logging struct {
	Level string `yaml:"level" default:"info"`
}

// Config is the full layered configuration tree.
type Config struct {
	Process        Process        `yaml:"process"`
	Ansible        Ansible        `yaml:"ansible"`
	ResourceDriver ResourceDriver `yaml:"resourceDriver"`
	TemplateEngine TemplateEngine `yaml:"templateEngine"`
	Publisher      Publisher      `yaml:"publisher"`
	Queue          Queue          `yaml:"queue"`
	Cache          Cache          `yaml:"cache"`
	Admin          Admin          `yaml:"admin"`
	Audit          Audit          `yaml:"audit"`
	Logging        Logging        `yaml:"logging"`
}

// Load builds a Config from its built-in defaults, then an optional YAML
// file at path (skipped if path is empty or doesn't exist), then
// LIFECYCLEDRIVER_-prefixed environment variables, in that order of
// increasing precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: applying defaults: %w", err)
	}

	loader := configor.New(&configor.Config{ENVPrefix: "LIFECYCLEDRIVER", Silent: true})
	var files []string
	if path != "" {
		files = append(files, path)
	}
	if err := loader.Load(cfg, files...); err != nil {
		return nil, fmt.Errorf("config: loading %v: %w", files, err)
	}
	return cfg, nil
}

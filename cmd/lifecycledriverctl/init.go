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

package main

import (
	"fmt"
	"os"
	"strconv"
	"text/template"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively scaffold a config.yaml for lifecycledriver",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "config.yaml", "path to write the generated config file")
	return cmd
}

type initAnswers struct {
	PoolSize       string
	UseProcessPool bool
	QueueKind      string
	PublisherKind  string
	AdminAddr      string
	AuditDBPath    string
	LogLevel       string
}

func runInit(out string) error {
	poolSizePrompt := promptui.Prompt{
		Label:    "Worker pool size",
		Default:  "2",
		Validate: validatePositiveInt,
	}
	poolSize, err := poolSizePrompt.Run()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	modeSelect := promptui.Select{
		Label: "Worker mode",
		Items: []string{"in-process (goroutines, queue.kind=memory)", "process pool (re-exec'd workers, queue.kind=mangos)"},
	}
	modeIdx, _, err := modeSelect.Run()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	usePool := modeIdx == 1

	answers := initAnswers{
		PoolSize:       poolSize,
		UseProcessPool: usePool,
		QueueKind:      "memory",
		PublisherKind:  "memory",
		LogLevel:       "info",
	}
	if usePool {
		answers.QueueKind = "mangos"
		answers.PublisherKind = "mangos"
	}

	adminPrompt := promptui.Prompt{Label: "Admin HTTP listen address (blank disables it)", Default: "127.0.0.1:8622"}
	answers.AdminAddr, err = adminPrompt.Run()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	auditPrompt := promptui.Prompt{Label: "Audit store path (blank disables audit dedupe/warn)", Default: "./lifecycledriver-audit.db"}
	answers.AuditDBPath, err = auditPrompt.Run()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	levelSelect := promptui.Select{Label: "Log level", Items: []string{"debug", "info", "warn", "error"}}
	_, answers.LogLevel, err = levelSelect.Run()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("init: creating %s: %w", out, err)
	}
	defer func() { _ = f.Close() }()

	if err := configTemplate.Execute(f, answers); err != nil {
		return fmt.Errorf("init: writing %s: %w", out, err)
	}

	fmt.Printf("wrote %s\n", out)
	return nil
}

func validatePositiveInt(input string) error {
	n, err := strconv.Atoi(input)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

// configTemplate emits a config.yaml covering only the fields init asked
// about; every other group is left to config.Load's built-in defaults.
var configTemplate = template.Must(template.New("config").Parse(`process:
  poolSize: {{.PoolSize}}
  useProcessPool: {{.UseProcessPool}}
queue:
  kind: {{.QueueKind}}
publisher:
  kind: {{.PublisherKind}}
admin:
  listenAddress: "{{.AdminAddr}}"
audit:
  dbPath: "{{.AuditDBPath}}"
logging:
  level: {{.LogLevel}}
`))

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	Convey("Load with no file falls back entirely to built-in defaults", t, func() {
		cfg, err := Load("")
		So(err, ShouldBeNil)

		So(cfg.Process.PoolSize, ShouldEqual, 2)
		So(cfg.Ansible.MaxUnreachableRetries, ShouldEqual, 1000)
		So(cfg.Ansible.UnreachableSleep, ShouldEqual, 5*time.Second)
		So(cfg.Ansible.OutputPropPrefix, ShouldEqual, "output__")
		So(cfg.ResourceDriver.KeepScripts, ShouldBeFalse)
		So(cfg.Ansible.PlaybookBinary, ShouldEqual, "ansible-playbook-driver")
		So(cfg.TemplateEngine.Binary, ShouldEqual, "")
		So(cfg.Publisher.Kind, ShouldEqual, "memory")
		So(cfg.Queue.Kind, ShouldEqual, "memory")
		So(cfg.Process.UseProcessPool, ShouldBeFalse)
		So(cfg.Process.MaxConcurrentAnsibleProcesses, ShouldEqual, 10)
		So(cfg.Cache.MaxCapacity, ShouldEqual, 1000)
		So(cfg.Admin.ListenAddress, ShouldEqual, "127.0.0.1:8622")
		So(cfg.Audit.DBPath, ShouldEqual, "./lifecycledriver-audit.db")
		So(cfg.Logging.Level, ShouldEqual, "info")
	})
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	Convey("A YAML file overrides the matching defaults and leaves the rest alone", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("process:\n  poolSize: 5\nadmin:\n  listenAddress: \"\"\n"), 0o644), ShouldBeNil)

		cfg, err := Load(path)
		So(err, ShouldBeNil)

		So(cfg.Process.PoolSize, ShouldEqual, 5)
		So(cfg.Admin.ListenAddress, ShouldEqual, "")
		So(cfg.Ansible.MaxUnreachableRetries, ShouldEqual, 1000)
	})
}

func TestAdaptersProduceMatchingSubconfigs(t *testing.T) {
	Convey("The adapter methods carry the right fields into each subsystem's own Config type", t, func() {
		cfg, err := Load("")
		So(err, ShouldBeNil)

		retryCfg := cfg.RetryConfig()
		So(retryCfg.MaxUnreachableRetries, ShouldEqual, cfg.Ansible.MaxUnreachableRetries)
		So(retryCfg.UnreachableSleep, ShouldEqual, cfg.Ansible.UnreachableSleep)

		reducerCfg := cfg.ReducerConfig()
		So(reducerCfg.OutputPrefix, ShouldEqual, cfg.Ansible.OutputPropPrefix)

		cacheCfg := cfg.ResponseCacheConfig()
		So(cacheCfg.MaxCapacity, ShouldEqual, cfg.Cache.MaxCapacity)
	})
}

package inventory

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeDriverFiles struct{ root string }

func (f fakeDriverFiles) RootPath() string { return f.root }
func (f fakeDriverFiles) HasDirectory(name string) bool {
	fi, err := os.Stat(filepath.Join(f.root, name))
	return err == nil && fi.IsDir()
}
func (f fakeDriverFiles) Path(name string) string { return filepath.Join(f.root, name) }
func (f fakeDriverFiles) RemoveAll() error         { return os.RemoveAll(f.root) }

func newFakeDriverFiles(t *testing.T) fakeDriverFiles {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	return fakeDriverFiles{root: root}
}

func TestPathSelectsExactTypeMatch(t *testing.T) {
	Convey("inventory.<type> is preferred over the generic file", t, func() {
		df := newFakeDriverFiles(t)
		exact := filepath.Join(df.Path("config"), "inventory.Openstack")
		So(os.WriteFile(exact, []byte("[a]\n"), 0o644), ShouldBeNil)
		generic := filepath.Join(df.Path("config"), "inventory")
		So(os.WriteFile(generic, []byte("[b]\n"), 0o644), ShouldBeNil)

		p, err := Path(df, "Openstack")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, exact)
	})
}

func TestPathKubernetesFallsBackToK8s(t *testing.T) {
	Convey("Kubernetes falls back to inventory.k8s before the generic file", t, func() {
		df := newFakeDriverFiles(t)
		k8s := filepath.Join(df.Path("config"), "inventory.k8s")
		So(os.WriteFile(k8s, []byte("[a]\n"), 0o644), ShouldBeNil)

		p, err := Path(df, "Kubernetes")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, k8s)
	})
}

func TestPathSynthesisesDefault(t *testing.T) {
	Convey("With no candidate present, a default inventory is written", t, func() {
		df := newFakeDriverFiles(t)
		p, err := Path(df, "Openstack")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, filepath.Join(df.Path("config"), "inventory"))

		content, err := os.ReadFile(p)
		So(err, ShouldBeNil)
		So(string(content), ShouldContainSubstring, "run_hosts")
		So(string(content), ShouldContainSubstring, "localhost ansible_connection=local")
	})
}

func TestPathMissingConfigDir(t *testing.T) {
	Convey("A resource package with no config directory is an error", t, func() {
		df := fakeDriverFiles{root: t.TempDir()}
		_, err := Path(df, "Openstack")
		So(err, ShouldEqual, MissingConfigDirError{})
	})
}

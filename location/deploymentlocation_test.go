package location

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

func propBag(kv map[string]string) lifecyclereq.PropertyBag {
	b := lifecyclereq.PropertyBag{}
	for k, v := range kv {
		b.Set(k, v)
	}
	return b
}

func TestDeploymentLocationSSHDefault(t *testing.T) {
	Convey("A location with no connection_type defaults to ssh and writes nothing", t, func() {
		dl, err := New(lifecyclereq.DeploymentLocationRequest{
			Name: "dl1",
			Type: "Openstack",
		}, t.TempDir())
		So(err, ShouldBeNil)
		So(dl.ConnectionType, ShouldEqual, ConnectionSSH)
		So(dl.Properties[kubeconfigPathProp].Value, ShouldBeNil)
	})
}

func TestDeploymentLocationKubernetesTypeForcesKubectl(t *testing.T) {
	Convey("A type:Kubernetes location is kubectl regardless of connection_type", t, func() {
		dir := t.TempDir()
		dl, err := New(lifecyclereq.DeploymentLocationRequest{
			Name: "dl2",
			Type: "Kubernetes",
			Properties: propBag(map[string]string{
				PropK8sServer: "https://cluster.example:6443",
				PropK8sToken:  "s3cr3t",
			}),
		}, dir)
		So(err, ShouldBeNil)
		So(dl.ConnectionType, ShouldEqual, ConnectionKubectl)

		path, ok := dl.Properties[kubeconfigPathProp].Value.(string)
		So(ok, ShouldBeTrue)
		_, statErr := os.Stat(path)
		So(statErr, ShouldBeNil)
		So(filepath.Dir(path), ShouldEqual, dir)

		So(dl.Release(), ShouldBeNil)
		_, statErr = os.Stat(path)
		So(os.IsNotExist(statErr), ShouldBeTrue)

		So(dl.Release(), ShouldBeNil)
	})
}

func TestDeploymentLocationKubectlMissingCredentials(t *testing.T) {
	Convey("A kubectl location without token or cert data fails", t, func() {
		_, err := New(lifecyclereq.DeploymentLocationRequest{
			Name: "dl3",
			Type: "Kubernetes",
			Properties: propBag(map[string]string{
				PropK8sServer: "https://cluster.example:6443",
			}),
		}, t.TempDir())
		So(err, ShouldNotBeNil)
	})
}

func TestDeploymentLocationMissingType(t *testing.T) {
	Convey("A location missing type is invalid", t, func() {
		_, err := New(lifecyclereq.DeploymentLocationRequest{Name: "dl4"}, t.TempDir())
		So(err, ShouldNotBeNil)
		var invalid *InvalidError
		So(err, ShouldHaveSameTypeAs, invalid)
	})
}

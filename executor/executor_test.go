package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/driverfiles"
	"github.com/lifecycledriver/lifecycledriver/internal/concurrency"
	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/playbook"
	"github.com/lifecycledriver/lifecycledriver/reducer"
	"github.com/lifecycledriver/lifecycledriver/retry"
)

type identityEngine struct{}

func (identityEngine) Render(content string, _ map[string]interface{}) (string, error) {
	return content, nil
}

func writeFakeEngineScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newExecutor(t *testing.T, binary string) *Executor {
	return New(
		&playbook.Runner{Binary: binary},
		identityEngine{},
		nil,
		retry.Config{MaxUnreachableRetries: 1, UnreachableSleep: 0},
		reducer.Config{},
		nil,
		nil,
		nil,
	)
}

func TestExecuteHappyPath(t *testing.T) {
	Convey("A request whose playbook succeeds returns a COMPLETE outcome and removes its driver files", t, func() {
		tree, err := driverfiles.New(t.TempDir(), "req1", "")
		So(err, ShouldBeNil)

		err = os.WriteFile(filepath.Join(tree.Path("scripts"), "Install.yaml"), []byte("---\n"), 0o644)
		So(err, ShouldBeNil)

		engine := writeFakeEngineScript(t, `
echo '{"kind":"PLAY_STARTED","play":"install"}'
echo '{"kind":"TASK_COMPLETED_ON_HOST","task":"set fact","host":"localhost","result":{"extra":{"ansible_facts":{"output__ip":"10.0.0.1"}}}}'
echo '{"kind":"PLAYBOOK_RESULT","status":"ok"}'
exit 0
`)

		e := newExecutor(t, engine)
		req := lifecyclereq.LifecycleRequest{
			RequestID:     "req1",
			LifecycleName: "Install",
			DriverFiles:   tree,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{
				Name: "loc1",
				Type: "Openstack",
			},
		}

		outcome := e.Execute(context.Background(), req)

		So(outcome.Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(outcome.Outputs["ip"], ShouldEqual, "10.0.0.1")

		_, statErr := os.Stat(tree.RootPath())
		So(os.IsNotExist(statErr), ShouldBeTrue)
	})
}

func TestExecuteMissingPlaybookIsInternalError(t *testing.T) {
	Convey("No scripts/<lifecycle>.yaml(.yml) yields FAILED/INTERNAL_ERROR", t, func() {
		tree, err := driverfiles.New(t.TempDir(), "req2", "")
		So(err, ShouldBeNil)

		e := newExecutor(t, "/bin/true")
		req := lifecyclereq.LifecycleRequest{
			RequestID:     "req2",
			LifecycleName: "Start",
			DriverFiles:   tree,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{
				Name: "loc1",
				Type: "Openstack",
			},
		}

		outcome := e.Execute(context.Background(), req)

		So(outcome.Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(outcome.Failure.Code, ShouldEqual, lifecyclereq.FailureInternalError)
		So(outcome.Failure.Description, ShouldContainSubstring, "No playbook to run")
	})
}

func TestExecuteInvalidRequestNeverTouchesDriverFiles(t *testing.T) {
	Convey("A request missing requestId fails validation before any stage runs", t, func() {
		e := newExecutor(t, "/bin/true")
		req := lifecyclereq.LifecycleRequest{
			LifecycleName: "Install",
		}

		outcome := e.Execute(context.Background(), req)

		So(outcome.Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(outcome.Failure.Code, ShouldEqual, lifecyclereq.FailureInternalError)
		So(outcome.Failure.Description, ShouldContainSubstring, "requestId")
	})
}

func TestExecuteUnreachableExhaustsRetriesThenFails(t *testing.T) {
	Convey("Persistent unreachability fails with RESOURCE_NOT_FOUND after the retry ceiling", t, func() {
		tree, err := driverfiles.New(t.TempDir(), "req3", "")
		So(err, ShouldBeNil)

		err = os.WriteFile(filepath.Join(tree.Path("scripts"), "Configure.yml"), []byte("---\n"), 0o644)
		So(err, ShouldBeNil)

		engine := writeFakeEngineScript(t, `
echo '{"kind":"HOST_UNREACHABLE","task":"wait for connection","host":"host1","result":{"msg":"ssh connection failed"}}'
exit 0
`)

		e := New(
			&playbook.Runner{Binary: engine},
			identityEngine{},
			nil,
			retry.Config{MaxUnreachableRetries: 2, UnreachableSleep: 0},
			reducer.Config{},
			nil,
			nil,
			nil,
		)
		req := lifecyclereq.LifecycleRequest{
			RequestID:     "req3",
			LifecycleName: "Configure",
			DriverFiles:   tree,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{
				Name: "loc1",
				Type: "Openstack",
			},
		}

		outcome := e.Execute(context.Background(), req)

		So(outcome.Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(outcome.Failure.Code, ShouldEqual, lifecyclereq.FailureResourceNotFound)
	})
}

func TestExecuteRespectsConcurrencyLimit(t *testing.T) {
	Convey("A Concurrency cap of 1 serialises two Execute calls' playbook runs", t, func() {
		engine := writeFakeEngineScript(t, `
echo '{"kind":"PLAYBOOK_RESULT","status":"ok"}'
exit 0
`)

		limiter, err := concurrency.New(1)
		So(err, ShouldBeNil)
		e := New(
			&playbook.Runner{Binary: engine},
			identityEngine{},
			nil,
			retry.Config{MaxUnreachableRetries: 1, UnreachableSleep: 0},
			reducer.Config{},
			nil,
			limiter,
			nil,
		)

		tree1, err := driverfiles.New(t.TempDir(), "req4", "")
		So(err, ShouldBeNil)
		So(os.WriteFile(filepath.Join(tree1.Path("scripts"), "Install.yaml"), []byte("---\n"), 0o644), ShouldBeNil)

		tree2, err := driverfiles.New(t.TempDir(), "req5", "")
		So(err, ShouldBeNil)
		So(os.WriteFile(filepath.Join(tree2.Path("scripts"), "Install.yaml"), []byte("---\n"), 0o644), ShouldBeNil)

		req1 := lifecyclereq.LifecycleRequest{RequestID: "req4", LifecycleName: "Install", DriverFiles: tree1,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{Name: "loc1", Type: "Openstack"}}
		req2 := lifecyclereq.LifecycleRequest{RequestID: "req5", LifecycleName: "Install", DriverFiles: tree2,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{Name: "loc1", Type: "Openstack"}}

		done := make(chan lifecyclereq.LifecycleOutcome, 2)
		go func() { done <- e.Execute(context.Background(), req1) }()
		go func() { done <- e.Execute(context.Background(), req2) }()

		first := <-done
		second := <-done
		So(first.Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(second.Status, ShouldEqual, lifecyclereq.StatusComplete)
	})
}

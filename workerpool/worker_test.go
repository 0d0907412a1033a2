package workerpool

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/driverfiles"
	"github.com/lifecycledriver/lifecycledriver/executor"
	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/playbook"
	"github.com/lifecycledriver/lifecycledriver/publisher"
	"github.com/lifecycledriver/lifecycledriver/queue"
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

func TestRunWorkerHandlesOneRequestThenExitsOnQueueClose(t *testing.T) {
	Convey("RunWorker pulls a request, executes it, publishes the outcome, and exits when the queue closes", t, func() {
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

		exec := executor.New(
			&playbook.Runner{Binary: engine},
			identityEngine{},
			nil,
			retry.Config{MaxUnreachableRetries: 1, UnreachableSleep: 0},
			reducer.Config{},
			nil,
			nil,
			nil,
		)

		q := queue.NewMemoryQueue(1)
		pub := publisher.NewMemoryPublisher()

		So(q.Enqueue(lifecyclereq.LifecycleRequest{
			RequestID:     "req1",
			LifecycleName: "Install",
			DriverFiles:   tree,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{
				Name: "loc1",
				Type: "Openstack",
			},
		}), ShouldBeTrue)

		var bootstrap bytes.Buffer
		So(EncodeBootstrap(&bootstrap, WorkerBootstrap{WorkerName: "worker-0", QueueKind: QueueKindMemory, PublisherKind: PublisherKindMemory}), ShouldBeNil)

		done := make(chan error, 1)
		go func() {
			done <- RunWorker(context.Background(), &bootstrap,
				MemoryQueueOpeners(q), MemoryPublisherOpeners(pub), exec, nil, nil)
		}()

		// Give the worker time to drain the one enqueued request, then
		// close the queue so RunWorker's loop returns on its own.
		time.Sleep(50 * time.Millisecond)
		So(q.Close(), ShouldBeNil)

		select {
		case err := <-done:
			So(err, ShouldBeNil)
		case <-time.After(2 * time.Second):
			t.Fatal("RunWorker did not exit after queue close")
		}

		So(pub.Outcomes, ShouldHaveLength, 1)
		So(pub.Outcomes[0].Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(pub.Outcomes[0].Outputs["ip"], ShouldEqual, "10.0.0.1")
	})
}

func TestRunWorkerAnswersInFlightRequestWithInsufficientCapacityOnShutdown(t *testing.T) {
	Convey("A request still running when ctx is cancelled gets FAILED/INSUFFICIENT_CAPACITY instead of being dropped", t, func() {
		tree, err := driverfiles.New(t.TempDir(), "req2", "")
		So(err, ShouldBeNil)
		err = os.WriteFile(filepath.Join(tree.Path("scripts"), "Install.yaml"), []byte("---\n"), 0o644)
		So(err, ShouldBeNil)

		engine := writeFakeEngineScript(t, `
sleep 5
echo '{"kind":"PLAYBOOK_RESULT","status":"ok"}'
exit 0
`)

		exec := executor.New(
			&playbook.Runner{Binary: engine},
			identityEngine{},
			nil,
			retry.Config{MaxUnreachableRetries: 1, UnreachableSleep: 0},
			reducer.Config{},
			nil,
			nil,
			nil,
		)

		q := queue.NewMemoryQueue(1)
		pub := publisher.NewMemoryPublisher()

		So(q.Enqueue(lifecyclereq.LifecycleRequest{
			RequestID:     "req2",
			LifecycleName: "Install",
			DriverFiles:   tree,
			DeploymentLocation: lifecyclereq.DeploymentLocationRequest{
				Name: "loc1",
				Type: "Openstack",
			},
		}), ShouldBeTrue)

		var bootstrap bytes.Buffer
		So(EncodeBootstrap(&bootstrap, WorkerBootstrap{WorkerName: "worker-0", QueueKind: QueueKindMemory, PublisherKind: PublisherKindMemory}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- RunWorker(ctx, &bootstrap,
				MemoryQueueOpeners(q), MemoryPublisherOpeners(pub), exec, nil, nil)
		}()

		// Give the worker time to dequeue the request and start the
		// playbook run, then cancel as shutdown would.
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			So(err, ShouldBeNil)
		case <-time.After(2 * time.Second):
			t.Fatal("RunWorker did not exit after ctx cancellation")
		}

		So(pub.Outcomes, ShouldHaveLength, 1)
		So(pub.Outcomes[0].Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(pub.Outcomes[0].Failure.Code, ShouldEqual, lifecyclereq.FailureInsufficientCapacity)
		So(pub.Outcomes[0].Failure.Description, ShouldEqual, "Driver is inactive")
	})
}

func TestHandleRequestSkipsExecutionWhenWorkerInactive(t *testing.T) {
	Convey("A request delivered after shutdown begins is answered with INSUFFICIENT_CAPACITY without running anything", t, func() {
		state := &workerState{active: false}
		pub := publisher.NewMemoryPublisher()
		metrics := newRunMetrics()
		logger := log15.New()
		logger.SetHandler(log15.DiscardHandler())

		handleRequest(context.Background(), state, nil, pub, nil, metrics, logger,
			lifecyclereq.LifecycleRequest{RequestID: "req3"})

		So(pub.Outcomes, ShouldHaveLength, 1)
		So(pub.Outcomes[0].Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(pub.Outcomes[0].Failure.Code, ShouldEqual, lifecyclereq.FailureInsufficientCapacity)
		So(pub.Outcomes[0].Failure.Description, ShouldEqual, "Driver is inactive")
	})
}

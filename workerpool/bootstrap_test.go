package workerpool

import (
	"bytes"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/reducer"
	"github.com/lifecycledriver/lifecycledriver/retry"
)

func TestBootstrapRoundTrips(t *testing.T) {
	Convey("A WorkerBootstrap survives an encode/decode round trip", t, func() {
		want := WorkerBootstrap{
			WorkerName:      "worker-0",
			QueueKind:       QueueKindMemory,
			QueueParams:     map[string]string{"topic": "requests"},
			PublisherKind:   PublisherKindMangos,
			PublisherParams: map[string]string{"url": "tcp://127.0.0.1:9000"},
			RetryConfig:     retry.Config{MaxUnreachableRetries: 3, UnreachableSleep: 2 * time.Second},
			ReducerConfig:   reducer.Config{OutputPrefix: "output__", TopologyPrefix: "topology__"},
			KeepFiles:       true,
		}

		var buf bytes.Buffer
		So(EncodeBootstrap(&buf, want), ShouldBeNil)

		got, err := DecodeBootstrap(&buf)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, want)
	})
}

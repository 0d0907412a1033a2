package responsecache

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
	"github.com/lifecycledriver/lifecycledriver/publisher"
)

func TestCachingPublisherRecordsAndForwards(t *testing.T) {
	Convey("CachingPublisher records the outcome and still forwards to the wrapped publisher", t, func() {
		inner := publisher.NewMemoryPublisher()
		c := New(Config{Expiry: time.Minute, MaxCapacity: 10})
		wrapped := Wrap(inner, c)

		So(wrapped.PublishOutcome(lifecyclereq.NewCompleteOutcome("r1", nil, nil)), ShouldBeNil)
		So(wrapped.PublishEvent("r1", lifecyclereq.ProgressEvent{Kind: lifecyclereq.EventPlayStarted}), ShouldBeNil)

		So(inner.Outcomes, ShouldHaveLength, 1)
		So(inner.Events, ShouldHaveLength, 1)

		outcome, ok := c.Lookup("r1")
		So(ok, ShouldBeTrue)
		So(outcome.RequestID, ShouldEqual, "r1")

		So(wrapped.Close(), ShouldBeNil)
	})
}

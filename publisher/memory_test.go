package publisher

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

func TestMemoryPublisherRecordsOutcomesAndEvents(t *testing.T) {
	Convey("Published outcomes and events are recorded in order", t, func() {
		p := NewMemoryPublisher()

		So(p.PublishEvent("r1", lifecyclereq.ProgressEvent{Kind: lifecyclereq.EventPlayStarted}), ShouldBeNil)
		So(p.PublishOutcome(lifecyclereq.NewCompleteOutcome("r1", nil, nil)), ShouldBeNil)

		So(p.Events, ShouldHaveLength, 1)
		So(p.Outcomes, ShouldHaveLength, 1)
		So(p.Outcomes[0].RequestID, ShouldEqual, "r1")
		So(p.Close(), ShouldBeNil)
	})
}

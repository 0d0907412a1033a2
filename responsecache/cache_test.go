package responsecache

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

func TestRecordOutcomeAndLookup(t *testing.T) {
	Convey("A recorded outcome can be looked up by requestId until it expires", t, func() {
		c := New(Config{Expiry: 50 * time.Millisecond, MaxCapacity: 10})
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r1", nil, nil))

		outcome, ok := c.Lookup("r1")
		So(ok, ShouldBeTrue)
		So(outcome.RequestID, ShouldEqual, "r1")

		time.Sleep(100 * time.Millisecond)
		_, ok = c.Lookup("r1")
		So(ok, ShouldBeFalse)
	})
}

func TestRecordOutcomeEvictsOldestOverCapacity(t *testing.T) {
	Convey("Recording past MaxCapacity evicts the oldest entry", t, func() {
		c := New(Config{Expiry: time.Minute, MaxCapacity: 2})
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r1", nil, nil))
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r2", nil, nil))
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r3", nil, nil))

		_, ok := c.Lookup("r1")
		So(ok, ShouldBeFalse)
		_, ok = c.Lookup("r2")
		So(ok, ShouldBeTrue)
		_, ok = c.Lookup("r3")
		So(ok, ShouldBeTrue)
	})
}

func TestRecentReturnsNewestFirstBounded(t *testing.T) {
	Convey("Recent returns at most n outcomes, newest first", t, func() {
		c := New(Config{Expiry: time.Minute, MaxCapacity: 10})
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r1", nil, nil))
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r2", nil, nil))
		c.RecordOutcome(lifecyclereq.NewCompleteOutcome("r3", nil, nil))

		recent := c.Recent(2)
		So(recent, ShouldHaveLength, 2)
		So(recent[0].RequestID, ShouldEqual, "r3")
		So(recent[1].RequestID, ShouldEqual, "r2")
	})
}

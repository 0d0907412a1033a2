package publisher

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

type recordingPublisher struct {
	outcomes []lifecyclereq.LifecycleOutcome
	closed   bool
	failNext bool
}

func (r *recordingPublisher) PublishOutcome(outcome lifecyclereq.LifecycleOutcome) error {
	if r.failNext {
		return errors.New("boom")
	}
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

func (r *recordingPublisher) PublishEvent(string, lifecyclereq.ProgressEvent) error { return nil }

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestFanoutForwardsToEveryPublisher(t *testing.T) {
	Convey("Fanout delivers one outcome to every wrapped publisher", t, func() {
		a := &recordingPublisher{}
		b := &recordingPublisher{}
		f := Fanout(a, b)

		outcome := lifecyclereq.NewFailedOutcome("req1", lifecyclereq.FailureInternalError, "nope")
		So(f.PublishOutcome(outcome), ShouldBeNil)

		So(a.outcomes, ShouldHaveLength, 1)
		So(b.outcomes, ShouldHaveLength, 1)
	})
}

func TestFanoutCollectsErrorsWithoutStoppingOthers(t *testing.T) {
	Convey("A failing publisher doesn't stop delivery to the others", t, func() {
		a := &recordingPublisher{failNext: true}
		b := &recordingPublisher{}
		f := Fanout(a, b)

		err := f.PublishOutcome(lifecyclereq.NewFailedOutcome("req1", lifecyclereq.FailureInternalError, "nope"))
		So(err, ShouldNotBeNil)
		So(b.outcomes, ShouldHaveLength, 1)
	})
}

func TestFanoutCloseClosesEveryPublisher(t *testing.T) {
	Convey("Close closes every wrapped publisher", t, func() {
		a := &recordingPublisher{}
		b := &recordingPublisher{}
		f := Fanout(a, b)

		So(f.Close(), ShouldBeNil)
		So(a.closed, ShouldBeTrue)
		So(b.closed, ShouldBeTrue)
	})
}

func TestFanoutOfOnePublisherReturnsItUnwrapped(t *testing.T) {
	Convey("Fanout of a single publisher is a no-op passthrough", t, func() {
		a := &recordingPublisher{}
		So(Fanout(a), ShouldEqual, a)
	})
}

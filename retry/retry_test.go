package retry

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRunReturnsOnFirstReachableAttempt(t *testing.T) {
	Convey("A reachable first attempt does not retry", t, func() {
		c := New(Config{MaxUnreachableRetries: 5, UnreachableSleep: time.Second})
		calls := 0
		var slept []time.Duration
		unreachable, err := c.run(func() (bool, error) {
			calls++
			return false, nil
		}, func(d time.Duration) { slept = append(slept, d) })

		So(err, ShouldBeNil)
		So(unreachable, ShouldBeFalse)
		So(calls, ShouldEqual, 1)
		So(slept, ShouldBeEmpty)
	})
}

func TestRunRetriesOnUnreachableUpToMax(t *testing.T) {
	Convey("Unreachable attempts retry until the ceiling, sleeping a floor delay each time", t, func() {
		c := New(Config{MaxUnreachableRetries: 3, UnreachableSleep: 2 * time.Second})
		calls := 0
		var slept []time.Duration
		unreachable, err := c.run(func() (bool, error) {
			calls++
			return true, nil
		}, func(d time.Duration) { slept = append(slept, d) })

		So(err, ShouldBeNil)
		So(unreachable, ShouldBeTrue)
		So(calls, ShouldEqual, 3)
		So(slept, ShouldHaveLength, 2)
		for _, d := range slept {
			So(d, ShouldBeLessThanOrEqualTo, 2*time.Second)
		}
	})
}

func TestRunDoesNotRetryInfrastructureError(t *testing.T) {
	Convey("A non-unreachable error is returned immediately, no retry", t, func() {
		c := New(Config{MaxUnreachableRetries: 5, UnreachableSleep: time.Second})
		calls := 0
		_, err := c.run(func() (bool, error) {
			calls++
			return false, errors.New("boom")
		}, func(time.Duration) {})

		So(err, ShouldNotBeNil)
		So(calls, ShouldEqual, 1)
	})
}

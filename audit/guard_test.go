package audit

import (
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

func TestGuardRecordPublishedThenWarnIfAlreadySeen(t *testing.T) {
	Convey("A Guard records published outcomes and doesn't error on a repeat requestId", t, func() {
		store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		g := NewGuard(store, nil)

		g.WarnIfAlreadySeen("req1") // nothing recorded yet, should be silent

		g.RecordPublished(lifecyclereq.NewCompleteOutcome("req1", nil, nil), time.Now())

		entry, found, err := store.Lookup("req1")
		So(err, ShouldBeNil)
		So(found, ShouldBeTrue)
		So(entry.Status, ShouldEqual, string(lifecyclereq.StatusComplete))

		g.WarnIfAlreadySeen("req1") // now a duplicate; must still not panic or error
	})
}

func TestNilGuardIsANoOp(t *testing.T) {
	Convey("A nil Guard is safe to call", t, func() {
		var g *Guard
		So(func() {
			g.WarnIfAlreadySeen("req1")
			g.RecordPublished(lifecyclereq.NewCompleteOutcome("req1", nil, nil), time.Now())
		}, ShouldNotPanic)
	})
}

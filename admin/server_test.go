package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHealthzReflectsActiveState(t *testing.T) {
	Convey("Healthz is 200 while active and 503 after MarkInactive", t, func() {
		s := New(nil, nil, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		So(rec.Code, ShouldEqual, http.StatusOK)

		s.MarkInactive()

		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
	})
}

func TestStatusReportsPoolAndCacheData(t *testing.T) {
	Convey("Status combines the pool snapshot and recent outcomes when both are wired", t, func() {
		poolFn := func() (bool, []WorkerSnapshot) {
			return true, []WorkerSnapshot{{Index: 0, Pid: 1234, ChildProcesses: 2}}
		}
		cacheFn := func(n int) []RecentOutcome {
			return []RecentOutcome{{RequestID: "r1", Status: "COMPLETE"}}
		}

		s := New(poolFn, cacheFn, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		So(rec.Code, ShouldEqual, http.StatusOK)

		var status Status
		So(json.Unmarshal(rec.Body.Bytes(), &status), ShouldBeNil)
		So(status.Active, ShouldBeTrue)
		So(status.PoolSize, ShouldEqual, 1)
		So(status.Workers[0].Pid, ShouldEqual, 1234)
		So(status.RecentOutcomes[0].RequestID, ShouldEqual, "r1")
	})
}

func TestStatusWithoutProvidersStillResponds(t *testing.T) {
	Convey("Status with no pool or cache wired returns a minimal but valid body", t, func() {
		s := New(nil, nil, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		So(rec.Code, ShouldEqual, http.StatusOK)

		var status Status
		So(json.Unmarshal(rec.Body.Bytes(), &status), ShouldBeNil)
		So(status.Active, ShouldBeTrue)
		So(status.PoolSize, ShouldEqual, 0)
	})
}

package reducer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lifecycledriver/lifecycledriver/lifecyclereq"
)

func TestHappyPathExtractsOutputs(t *testing.T) {
	Convey("A single output fact yields a COMPLETE outcome", t, func() {
		r := New("req-1", Config{})
		r.Apply(lifecyclereq.ProgressEvent{Kind: lifecyclereq.EventPlayStarted, PlayName: "install"})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind: lifecyclereq.EventTaskCompletedOnHost,
			Result: lifecyclereq.TaskResult{Extra: map[string]interface{}{
				"ansible_facts": map[string]interface{}{"output__msg": "hello there!"},
			}},
		})

		outcome := r.Result()
		So(outcome.Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(outcome.Outputs, ShouldResemble, map[string]interface{}{"msg": "hello there!"})
		So(outcome.AssociatedTopology, ShouldResemble, lifecyclereq.AssociatedTopology{})
	})
}

func TestTopologyExtraction(t *testing.T) {
	Convey("Topology facts split on the last __ into id and type", t, func() {
		r := New("req-4", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind: lifecyclereq.EventTaskCompletedOnHost,
			Result: lifecyclereq.TaskResult{Extra: map[string]interface{}{
				"ansible_facts": map[string]interface{}{
					"associated_topology__apache1": "12345678__Openstack",
					"associated_topology__apache2": "910111213__Openstack",
					"output__public_ip":            "10.21.28.94",
				},
			}},
		})

		outcome := r.Result()
		So(outcome.AssociatedTopology, ShouldResemble, lifecyclereq.AssociatedTopology{
			"apache1": {ID: "12345678", Type: "Openstack"},
			"apache2": {ID: "910111213", Type: "Openstack"},
		})
		So(outcome.Outputs, ShouldResemble, map[string]interface{}{"public_ip": "10.21.28.94"})
	})
}

func TestTopologyFactWithoutSeparatorIsSkipped(t *testing.T) {
	Convey("A topology fact with no __ is skipped without failing the run", t, func() {
		r := New("req-skip", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind: lifecyclereq.EventTaskCompletedOnHost,
			Result: lifecyclereq.TaskResult{Extra: map[string]interface{}{
				"ansible_facts": map[string]interface{}{"associated_topology__x": "abc"},
			}},
		})

		outcome := r.Result()
		So(outcome.Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(outcome.AssociatedTopology, ShouldResemble, lifecyclereq.AssociatedTopology{})
	})
}

func TestPrivilegeEscalationTimeoutReclassifiedAsUnreachable(t *testing.T) {
	Convey("A privilege-escalation timeout failure is unreachable, not infrastructure error", t, func() {
		r := New("req-2", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind:     lifecyclereq.EventTaskFailedOnHost,
			TaskName: "gather facts",
			Result: lifecyclereq.TaskResult{
				Msg: "Timeout (12s) waiting for privilege escalation prompt",
			},
		})

		So(r.Unreachable(), ShouldBeTrue)
		outcome := r.Result()
		So(outcome.Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(outcome.Failure.Code, ShouldEqual, lifecyclereq.FailureResourceNotFound)
	})
}

func TestSSHUnreachableStderrReclassified(t *testing.T) {
	Convey("An ssh: Host is unreachable stderr is reclassified as unreachable", t, func() {
		r := New("req-3", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind:     lifecyclereq.EventTaskFailedOnHost,
			TaskName: "ping",
			Result: lifecyclereq.TaskResult{
				ModuleStderr: "ssh: connect to host 10.0.0.1 port 22: Host is unreachable",
			},
		})
		So(r.Unreachable(), ShouldBeTrue)
	})
}

func TestRealFailureIsInfrastructureError(t *testing.T) {
	Convey("A failure that doesn't match the unreachable heuristics is infrastructure error", t, func() {
		r := New("req-5", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind:     lifecyclereq.EventTaskFailedOnHost,
			TaskName: "deploy app",
			Result:   lifecyclereq.TaskResult{Msg: "package not found"},
		})
		outcome := r.Result()
		So(outcome.Status, ShouldEqual, lifecyclereq.StatusFailed)
		So(outcome.Failure.Code, ShouldEqual, lifecyclereq.FailureInfrastructureError)
		So(r.Unreachable(), ShouldBeFalse)
	})
}

func TestProtocolAuditFactIsLoggedNotHarvested(t *testing.T) {
	Convey("A protocol_audit fact never becomes an output or topology entry", t, func() {
		r := New("req-7", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind: lifecyclereq.EventTaskCompletedOnHost,
			Result: lifecyclereq.TaskResult{Extra: map[string]interface{}{
				"ansible_facts": map[string]interface{}{
					"protocol_audit": map[string]interface{}{
						"direction":         "sent",
						"externalRequestId": "ext-1",
						"messageType":       "notify",
						"protocol":          "https",
					},
					"output__ok": "true",
				},
			}},
		})

		outcome := r.Result()
		So(outcome.Status, ShouldEqual, lifecyclereq.StatusComplete)
		So(outcome.Outputs, ShouldResemble, map[string]interface{}{"ok": "true"})
		So(outcome.AssociatedTopology, ShouldResemble, lifecyclereq.AssociatedTopology{})
	})
}

func TestFirstFailureWins(t *testing.T) {
	Convey("A later failure does not overwrite the first classification", t, func() {
		r := New("req-6", Config{})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind:     lifecyclereq.EventTaskFailedOnHost,
			TaskName: "first",
			Result:   lifecyclereq.TaskResult{Msg: "boom"},
		})
		r.Apply(lifecyclereq.ProgressEvent{
			Kind:     lifecyclereq.EventHostUnreachable,
			TaskName: "second",
			Result:   lifecyclereq.TaskResult{Msg: "unreachable too"},
		})

		outcome := r.Result()
		So(outcome.Failure.Description, ShouldContainSubstring, "first failed")
		So(r.Unreachable(), ShouldBeFalse)
	})
}

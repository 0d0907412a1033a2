package rendercontext

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPassthroughEngineRendersContentUnchanged(t *testing.T) {
	Convey("PassthroughEngine returns the input verbatim", t, func() {
		out, err := PassthroughEngine{}.Render("{{ not_a_real_template }}", map[string]interface{}{"x": 1})
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "{{ not_a_real_template }}")
	})
}

func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubprocessEngineRendersViaExternalBinary(t *testing.T) {
	Convey("SubprocessEngine round trips a rendered response from the external binary", t, func() {
		binary := writeFakeEngine(t, `cat <<'EOF'
{"rendered":"hello world"}
EOF
`)
		engine := SubprocessEngine{Binary: binary}

		out, err := engine.Render("hello {{ name }}", map[string]interface{}{"name": "world"})
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "hello world")
	})
}

func TestSubprocessEngineSurfacesEngineReportedError(t *testing.T) {
	Convey("An engine-reported error becomes a Go error", t, func() {
		binary := writeFakeEngine(t, `cat <<'EOF'
{"rendered":"","error":"unresolved variable"}
EOF
`)
		engine := SubprocessEngine{Binary: binary}

		_, err := engine.Render("{{ missing }}", nil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "unresolved variable")
	})
}

func TestSubprocessEngineSurfacesSubprocessFailure(t *testing.T) {
	Convey("A nonzero exit becomes a Go error carrying stderr", t, func() {
		binary := writeFakeEngine(t, `echo "boom" >&2
exit 1
`)
		engine := SubprocessEngine{Binary: binary}

		_, err := engine.Render("x", nil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "boom")
	})
}

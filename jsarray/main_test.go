package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dop251/jsarray"
)

type testState struct {
	*globalState
	stdout, stderr *bytes.Buffer
}

func newTestState(t *testing.T) *testState {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	logger := logrus.New()
	logger.SetOutput(stderr)
	return &testState{
		globalState: &globalState{
			fs:     afero.NewMemMapFs(),
			stdin:  strings.NewReader(""),
			stdout: stdout,
			stderr: stderr,
			env:    map[string]string{},
			logger: logger,
		},
		stdout: stdout,
		stderr: stderr,
	}
}

func (ts *testState) run(args ...string) int {
	return execute(ts.globalState, append(args, "--no-color"))
}

func TestVersion(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.Equal(t, 0, ts.run("version", "--json"))
	out := ts.stdout.String()
	assert.Equal(t, jsarray.Version, gjson.Get(out, "version").String())
	assert.True(t, gjson.Get(out, `methods.#(=="toSorted")`).Exists())
}

func TestRunScript(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.NoError(t, afero.WriteFile(ts.fs, "/script.js", []byte(`
	const a = NativeArray(3, 1, 2);
	a.sort();
	print(a.toArray().join(), a.shape());
	const m = require("jsarray");
	print(m.NativeArray.isNativeArray(a));
	`), 0o644))
	require.Equal(t, 0, ts.run("run", "/script.js"), ts.stderr.String())
	assert.Equal(t, "1,2,3 Int32\ntrue\n", ts.stdout.String())
}

func TestRunFromStdin(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	ts.stdin = strings.NewReader(`print(NativeArray(1.5).shape())`)
	require.Equal(t, 0, ts.run("run", "-"))
	assert.Equal(t, "Double\n", ts.stdout.String())
}

func TestRunScriptError(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	ts.stdin = strings.NewReader(`NativeArray(1).with(3, 0)`)
	assert.Equal(t, exitScriptError, ts.run("run"))
	assert.Contains(t, ts.stderr.String(), "RangeError: Array index out of range")
}

func TestRunTimeLimit(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	ts.stdin = strings.NewReader(`for (;;) { NativeArray(1, 2).sort(); }`)
	assert.Equal(t, exitScriptError, ts.run("run", "--timelimit", "50ms"))
	assert.Contains(t, ts.stderr.String(), "timeout")
}

func TestRunProfileTopNeedsProfile(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	assert.Equal(t, exitFailure, ts.run("run", "--profile-top", "5"))
	assert.Contains(t, ts.stderr.String(), "--profile-top needs --cpuprofile")
}

func TestConfigFile(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.NoError(t, afero.WriteFile(ts.fs, "/jsarray.toml", []byte("min_sparse_index = 8\nlog_level = \"error\"\n"), 0o644))
	ts.stdin = strings.NewReader(`const a = NativeArray(); a.set(20, 1); print(a.shape())`)
	require.Equal(t, 0, ts.run("--config", "/jsarray.toml", "run"), ts.stderr.String())
	assert.Equal(t, "ArrayStorage\n", ts.stdout.String())
	assert.Equal(t, logrus.ErrorLevel, ts.logger.Level)
}

func TestConfigErrors(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.NoError(t, afero.WriteFile(ts.fs, "/bad.toml", []byte("no_such_key = 1\n"), 0o644))
	assert.Equal(t, exitFailure, ts.run("--config", "/bad.toml", "version"))
	assert.Contains(t, ts.stderr.String(), `unknown key "no_such_key"`)

	ts = newTestState(t)
	ts.env["JSARRAY_SORT_RUN_CUTOFF"] = "100"
	ts.stdin = strings.NewReader(`1`)
	assert.Equal(t, exitFailure, ts.run("run"))
	assert.Contains(t, ts.stderr.String(), "sortRunCutoff")
}

func TestLogLevelFlag(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	ts.stdin = strings.NewReader(`const a = NativeArray(1); a.length = 3; a.pop()`)
	require.Equal(t, 0, ts.run("--log-level", "debug", "run"))
	assert.Contains(t, ts.stderr.String(), "fast path declined")

	ts = newTestState(t)
	assert.Equal(t, exitFailure, ts.run("--log-level", "loud", "version"))
}

func TestInspect(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.Equal(t, 0, ts.run("inspect", `NativeArray(1, 2).concat([1.5])`), ts.stderr.String())
	out := ts.stdout.String()
	assert.Contains(t, out, "shape")
	assert.Contains(t, out, "Double")
	assert.Contains(t, out, "[1, 2, 1.5]")
}

func TestInspectJSON(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.Equal(t, 0, ts.run("inspect", "--json", `[1, , "x"]`), ts.stderr.String())
	out := ts.stdout.String()
	require.True(t, gjson.Valid(out), out)
	assert.Equal(t, "Contiguous", gjson.Get(out, "header.shape").String())
	assert.EqualValues(t, 3, gjson.Get(out, "header.length").Int())
	assert.EqualValues(t, 2, gjson.Get(out, "elements.#").Int())
	assert.EqualValues(t, 2, gjson.Get(out, "elements.1.index").Int())
	assert.Equal(t, "x", gjson.Get(out, "elements.1.str").String())
}

func TestInspectCBORRoundTrip(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.Equal(t, 0, ts.run("inspect", "--cbor", "/a.cbor", `const a = NativeArray(1, 2); a.set(200000, 3); a`), ts.stderr.String())
	exists, err := afero.Exists(ts.fs, "/a.cbor")
	require.NoError(t, err)
	require.True(t, exists)

	ts.stdout.Reset()
	require.Equal(t, 0, ts.run("inspect", "--json", "--from", "/a.cbor"), ts.stderr.String())
	out := ts.stdout.String()
	assert.Equal(t, "ArrayStorage", gjson.Get(out, "header.shape").String())
	assert.EqualValues(t, 200001, gjson.Get(out, "header.length").Int())
	assert.EqualValues(t, 200000, gjson.Get(out, "elements.2.index").Int())
}

func TestInspectErrors(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	assert.Equal(t, exitFailure, ts.run("inspect"))
	assert.Equal(t, exitFailure, ts.run("inspect", "42"))
	assert.Contains(t, ts.stderr.String(), "not an array")
	assert.Equal(t, exitScriptError, ts.run("inspect", "nope("))
}

func TestScenariosCommand(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.NoError(t, afero.WriteFile(ts.fs, "/s/ok.yml", []byte(`
cases:
  - name: push
    setup:
      array: [1]
    steps:
      - op: push
        args: [2]
        want: 2
  - name: skipped
    skip: not today
    steps: [{op: pop}]
`), 0o644))
	require.Equal(t, 0, ts.run("scenarios", "-v", "/s"), ts.stdout.String())
	out := ts.stdout.String()
	assert.Contains(t, out, "PASS /s/ok.yml: push [fast]")
	assert.Contains(t, out, "PASS /s/ok.yml: push [generic]")
	assert.Contains(t, out, "2 passed, 0 failed, 2 skipped")

	ts.stdout.Reset()
	require.Equal(t, 0, ts.run("scenarios", "--mode", "generic", "/s/ok.yml"))
	assert.Contains(t, ts.stdout.String(), "1 passed, 0 failed, 1 skipped")
	assert.NotContains(t, ts.stdout.String(), "PASS")
}

func TestScenariosFailure(t *testing.T) {
	t.Parallel()
	ts := newTestState(t)
	require.NoError(t, afero.WriteFile(ts.fs, "/bad.yml", []byte(`
cases:
  - name: wrong
    setup:
      array: [1]
    steps:
      - op: pop
        want: 2
`), 0o644))
	assert.Equal(t, exitFailure, ts.run("scenarios", "/bad.yml"))
	assert.Contains(t, ts.stdout.String(), "FAIL /bad.yml: wrong [fast]")
	assert.Contains(t, ts.stdout.String(), "0 passed, 2 failed, 0 skipped")

	assert.Equal(t, exitFailure, ts.run("scenarios", "--mode", "sideways", "/bad.yml"))
}

func TestFlatProfile(t *testing.T) {
	t.Parallel()
	fnA := &profile.Function{ID: 1, Name: "a"}
	fnB := &profile.Function{ID: 2, Name: "b"}
	locA := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnA}}}
	locB := &profile.Location{ID: 2, Line: []profile.Line{{Function: fnB}}}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}, {Type: "cpu", Unit: "nanoseconds"}},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{locA, locB}, Value: []int64{1, 10}},
			{Location: []*profile.Location{locB}, Value: []int64{2, 30}},
			{Location: []*profile.Location{locA}, Value: []int64{1, 5}},
			{Value: []int64{1, 100}},
		},
	}
	assert.Equal(t, []profileEntry{{"b", 30}, {"a", 15}}, flatProfile(p))
	assert.Empty(t, flatProfile(&profile.Profile{}))
}

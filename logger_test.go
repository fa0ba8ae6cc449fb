package loggery

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Color = false
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out, errOut bytes.Buffer
	l.Console().SetOutput(&out, &errOut)
	return l, &out, &errOut
}

func TestLoggerPublishesToRing(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.Info("boot complete")

	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 1 {
		t.Fatalf("ring has %d records, want 1", len(got))
	}
	if got[0].Level != LevelInfo || got[0].Message != "boot complete" || got[0].Seq != 1 {
		t.Errorf("record = %+v, want Info boot complete seq 1", got[0])
	}
}

func TestLoggerScopePrefix(t *testing.T) {
	l, _, errOut := newTestLogger(t, nil)
	pool := l.Scope("db").Scope("pool")
	pool.Warn("connection slow")

	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 1 {
		t.Fatalf("ring has %d records, want 1", len(got))
	}
	if got[0].Message != "db.pool: connection slow" {
		t.Errorf("published message = %q, want %q", got[0].Message, "db.pool: connection slow")
	}

	line := errOut.String()
	if !strings.Contains(line, "[db.pool]") {
		t.Errorf("console line %q missing scope tag", line)
	}
	if strings.Contains(line, "db.pool: connection slow") {
		t.Errorf("console line %q should not repeat the scope prefix", line)
	}
}

func TestLoggerLevelThreshold(t *testing.T) {
	l, out, _ := newTestLogger(t, nil)
	l.SetLevel(LevelWarn)

	l.Info("dropped")
	if got := l.Publisher().Snapshot(LevelTrace, 0); len(got) != 0 {
		t.Fatalf("Info below threshold was published: %v", got)
	}
	if out.Len() != 0 {
		t.Errorf("Info below threshold reached console: %q", out.String())
	}

	l.Warn("kept")
	if got := l.Publisher().Snapshot(LevelTrace, 0); len(got) != 1 {
		t.Fatalf("Warn at threshold was not published")
	}

	if l.Enabled(LevelInfo) {
		t.Error("Enabled(Info) = true with threshold Warn")
	}
	if !l.Enabled(LevelError) {
		t.Error("Enabled(Error) = false with threshold Warn")
	}
}

func TestLoggerScopeLevelIndependent(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.SetLevel(LevelError)

	child := l.Scope("api")
	if child.Enabled(LevelWarn) {
		t.Error("child should inherit parent's threshold at creation")
	}

	child.SetLevel(LevelTrace)
	if !child.Enabled(LevelTrace) {
		t.Error("child SetLevel did not take effect")
	}
	if l.Enabled(LevelWarn) {
		t.Error("child SetLevel changed the parent")
	}
}

func TestLoggerConsoleRouting(t *testing.T) {
	l, out, errOut := newTestLogger(t, nil)

	l.Trace("t")
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	stdout := out.String()
	stderr := errOut.String()

	for _, want := range []string{"TRACE t", "DEBUG d", "INFO i"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout %q missing %q", stdout, want)
		}
	}
	for _, want := range []string{"WARN w", "ERROR e"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr %q missing %q", stderr, want)
		}
	}
	if strings.Contains(stdout, "WARN") || strings.Contains(stdout, "ERROR") {
		t.Errorf("warnings leaked to stdout: %q", stdout)
	}
}

func TestLoggerFormattedVariants(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.Infof("user %d logged in from %s", 42, "10.0.0.5")

	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 1 || got[0].Message != "user 42 logged in from 10.0.0.5" {
		t.Errorf("Infof published %v", got)
	}
}

func TestLoggerSprintJoinsArguments(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.Info("attempt=", 3)
	l.Debug(3, 2, 1)

	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 2 {
		t.Fatalf("ring has %d records, want 2", len(got))
	}
	if got[0].Message != "attempt=3" {
		t.Errorf("Info joined args to %q, want %q", got[0].Message, "attempt=3")
	}
	if got[1].Message != "3 2 1" {
		t.Errorf("Debug joined args to %q, want %q", got[1].Message, "3 2 1")
	}
}

type stringerSpy struct{ called bool }

func (s *stringerSpy) String() string {
	s.called = true
	return "spy"
}

func TestLoggerDisabledCallSkipsFormatting(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.SetLevel(LevelError)

	spy := &stringerSpy{}
	l.Info("state: ", spy)
	if spy.called {
		t.Error("disabled Info call still formatted its arguments")
	}

	l.Error("state: ", spy)
	if !spy.called {
		t.Error("enabled Error call never formatted its arguments")
	}
}

func TestLoggerJSONConsole(t *testing.T) {
	l, out, _ := newTestLogger(t, func(c *Config) { c.Format = "json" })
	l.Scope("auth").Info("token issued")

	var line struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		Scope string `json:"scope"`
		Seq   uint64 `json:"seq"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &line); err != nil {
		t.Fatalf("console output %q is not JSON: %v", out.String(), err)
	}
	if line.Level != "INFO" || line.Msg != "token issued" || line.Scope != "auth" || line.Seq != 1 {
		t.Errorf("JSON line = %+v", line)
	}
}

func TestLoggerCallerCapture(t *testing.T) {
	l, out, _ := newTestLogger(t, func(c *Config) {
		c.Caller = true
		c.Pattern = "%l %c %m"
	})
	l.Info("here")

	if !strings.Contains(out.String(), "logger_test.go:") {
		t.Errorf("console line %q missing caller", out.String())
	}
}

func TestLoggerClear(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.Info("a")
	l.Info("b")
	l.Clear()

	if got := l.Publisher().Snapshot(LevelTrace, 0); len(got) != 0 {
		t.Fatalf("ring has %d records after Clear", len(got))
	}

	l.Info("c")
	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 1 || got[0].Seq != 3 {
		t.Errorf("record after Clear = %v, want seq 3", got)
	}
}

func TestLoggerLogArbitraryLevel(t *testing.T) {
	l, _, _ := newTestLogger(t, nil)
	l.Log(LevelDebug, "direct")
	l.Logf(LevelError, "count=%d", 7)

	got := l.Publisher().Snapshot(LevelTrace, 0)
	if len(got) != 2 {
		t.Fatalf("ring has %d records, want 2", len(got))
	}
	if got[0].Level != LevelDebug || got[1].Message != "count=7" {
		t.Errorf("records = %+v", got)
	}
}

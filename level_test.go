package loggery

import "testing"

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"Debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{" error ", LevelError},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseLevelUnknown(t *testing.T) {
	if _, err := ParseLevel("fatal"); err == nil {
		t.Error("ParseLevel(\"fatal\") should fail")
	}
	if _, err := ParseLevel(""); err == nil {
		t.Error("ParseLevel(\"\") should fail")
	}
}

func TestParseLevelDefault(t *testing.T) {
	if got := ParseLevelDefault("warn", LevelInfo); got != LevelWarn {
		t.Errorf("ParseLevelDefault(warn) = %v, want %v", got, LevelWarn)
	}
	if got := ParseLevelDefault("bogus", LevelInfo); got != LevelInfo {
		t.Errorf("ParseLevelDefault(bogus) = %v, want fallback %v", got, LevelInfo)
	}
}

func TestLevelString(t *testing.T) {
	if got := LevelWarn.String(); got != "WARN" {
		t.Errorf("LevelWarn.String() = %q, want %q", got, "WARN")
	}
	if got := Level(99).String(); got != "LEVEL(99)" {
		t.Errorf("Level(99).String() = %q, want %q", got, "LEVEL(99)")
	}
}

func TestLevelOrdering(t *testing.T) {
	order := []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%v should sort below %v", order[i-1], order[i])
		}
	}
}

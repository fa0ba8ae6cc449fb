package viewer

import (
	"testing"

	"github.com/valyala/fastjson"

	"github.com/YashSaxena9/loggery"
)

func TestParseControlSetLevel(t *testing.T) {
	var p fastjson.Parser
	c, err := parseControl(&p, []byte(`{"action":"set_level","level":"warn"}`))
	if err != nil {
		t.Fatalf("parseControl returned error: %v", err)
	}
	if c.action != actionSetLevel {
		t.Errorf("action = %q, want %q", c.action, actionSetLevel)
	}
	if c.level != loggery.LevelWarn {
		t.Errorf("level = %v, want %v", c.level, loggery.LevelWarn)
	}
}

func TestParseControlSetRefresh(t *testing.T) {
	var p fastjson.Parser
	c, err := parseControl(&p, []byte(`{"action":"set_refresh","refresh_ms":500}`))
	if err != nil {
		t.Fatalf("parseControl returned error: %v", err)
	}
	if c.refreshMs != 500 {
		t.Errorf("refreshMs = %d, want 500", c.refreshMs)
	}
}

func TestParseControlClear(t *testing.T) {
	var p fastjson.Parser
	c, err := parseControl(&p, []byte(`{"action":"clear"}`))
	if err != nil {
		t.Fatalf("parseControl returned error: %v", err)
	}
	if c.action != actionClear {
		t.Errorf("action = %q, want %q", c.action, actionClear)
	}
}

func TestParseControlRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"invalid JSON", `{"action":`},
		{"unknown action", `{"action":"reboot"}`},
		{"missing action", `{}`},
		{"bad level", `{"action":"set_level","level":"loud"}`},
		{"zero refresh", `{"action":"set_refresh","refresh_ms":0}`},
		{"negative refresh", `{"action":"set_refresh","refresh_ms":-100}`},
	}
	var p fastjson.Parser
	for _, c := range cases {
		if _, err := parseControl(&p, []byte(c.in)); err == nil {
			t.Errorf("%s: parseControl accepted %s", c.name, c.in)
		}
	}
}

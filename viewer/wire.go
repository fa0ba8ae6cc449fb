package viewer

import (
	"fmt"

	"github.com/valyala/fastjson"

	"github.com/YashSaxena9/loggery"
)

// Frame status codes. Every WebSocket message a subscriber receives
// carries exactly one of these.
const (
	StatusData       = 0 // Events holds at least one record
	StatusHeartbeat  = 1 // no new records this tick, connection alive
	StatusTerminated = 2 // server is closing this subscription
)

// Frame is one message on a subscription stream. Next is the cursor
// after this frame: the highest sequence the subscriber has been sent.
type Frame struct {
	Status int              `json:"status"`
	Events []loggery.Record `json:"events,omitempty"`
	Next   uint64           `json:"next"`
	Reason string           `json:"reason,omitempty"`
}

// LogPage is the response body of GET /api/logs. Next is the cursor to
// pass as since on the following request.
type LogPage struct {
	Events []loggery.Record `json:"events"`
	Next   uint64           `json:"next"`
}

// Control actions a client may send on the WebSocket.
const (
	actionSetLevel   = "set_level"
	actionSetRefresh = "set_refresh"
	actionClear      = "clear"
)

type control struct {
	action    string
	level     loggery.Level
	refreshMs int
}

// parseControl decodes a client control message, for example
// {"action":"set_level","level":"warn"}. The parser comes from the
// server's pool; callers own Get and Put.
func parseControl(p *fastjson.Parser, data []byte) (control, error) {
	v, err := p.ParseBytes(data)
	if err != nil {
		return control{}, fmt.Errorf("invalid control message: %w", err)
	}

	c := control{action: string(v.GetStringBytes("action"))}
	switch c.action {
	case actionSetLevel:
		lvl, err := loggery.ParseLevel(string(v.GetStringBytes("level")))
		if err != nil {
			return control{}, err
		}
		c.level = lvl
	case actionSetRefresh:
		c.refreshMs = v.GetInt("refresh_ms")
		if c.refreshMs <= 0 {
			return control{}, fmt.Errorf("refresh_ms must be positive")
		}
	case actionClear:
	default:
		return control{}, fmt.Errorf("unknown action %q", c.action)
	}
	return c, nil
}

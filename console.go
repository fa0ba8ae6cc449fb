package loggery

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[Level]lipgloss.Style{
	LevelTrace: lipgloss.NewStyle().Faint(true),
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// Console renders records as lines on the process's standard streams.
// Trace, Debug and Info go to stdout; Warn and Error go to stderr. A
// mutex serializes writes so concurrent loggers never interleave
// half-lines.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	fmtr   *Formatter
	color  bool
	json   bool
}

// NewConsole builds a console sink from the given rendering options.
func NewConsole(fmtr *Formatter, color, jsonLines bool) *Console {
	if fmtr == nil {
		fmtr = MustCompilePattern(DefaultPattern, DefaultTimeLayout, false)
	}
	return &Console{
		out:    os.Stdout,
		errOut: os.Stderr,
		fmtr:   fmtr,
		color:  color,
		json:   jsonLines,
	}
}

// SetOutput redirects both streams, mainly for tests. A nil writer
// leaves the corresponding stream unchanged.
func (c *Console) SetOutput(out, errOut io.Writer) {
	c.mu.Lock()
	if out != nil {
		c.out = out
	}
	if errOut != nil {
		c.errOut = errOut
	}
	c.mu.Unlock()
}

type consoleJSON struct {
	Level  string `json:"level"`
	TS     int64  `json:"ts"`
	Msg    string `json:"msg"`
	Seq    uint64 `json:"seq"`
	Scope  string `json:"scope,omitempty"`
	Caller string `json:"caller,omitempty"`
}

// Write renders one record. It never returns an error; a console that
// cannot be written to is not worth aborting the program over.
func (c *Console) Write(rec Record, scope, caller string) {
	var line string
	if c.json {
		b, err := json.Marshal(consoleJSON{
			Level:  rec.Level.String(),
			TS:     rec.Time.UnixMilli(),
			Msg:    rec.Message,
			Seq:    rec.Seq,
			Scope:  scope,
			Caller: caller,
		})
		if err != nil {
			return
		}
		line = string(b)
	} else {
		line = c.fmtr.Format(rec, scope, caller)
		if c.color {
			line = levelStyles[rec.Level].Render(line)
		}
	}

	c.mu.Lock()
	w := c.out
	if rec.Level >= LevelWarn {
		w = c.errOut
	}
	io.WriteString(w, line+"\n")
	c.mu.Unlock()
}

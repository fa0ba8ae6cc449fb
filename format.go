package loggery

import (
	"fmt"
	"strings"
)

// DefaultPattern is the console line layout used when no pattern is
// configured.
const DefaultPattern = "%t %l %s %m"

// DefaultTimeLayout is the timestamp layout used when none is
// configured.
const DefaultTimeLayout = "2006-01-02 15:04:05.000"

// Pattern tokens:
//
//	%t  timestamp
//	%l  level name
//	%s  scope path, rendered as [path]
//	%c  caller, rendered as file:line
//	%m  message
//	%%  literal percent
type patternOp uint8

const (
	opText patternOp = iota
	opTime
	opLevel
	opScope
	opCaller
	opMessage
)

type segment struct {
	op   patternOp
	text string
}

// Formatter renders console lines from a compiled pattern. Compiling
// happens once per configuration change, not per line.
type Formatter struct {
	segs       []segment
	timeLayout string
	utc        bool
}

// CompilePattern parses a pattern into a Formatter. Unknown %x pairs
// are an error so typos surface at startup instead of producing
// garbled lines.
func CompilePattern(pattern, timeLayout string, utc bool) (*Formatter, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if timeLayout == "" {
		timeLayout = DefaultTimeLayout
	}

	f := &Formatter{timeLayout: timeLayout, utc: utc}
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			f.segs = append(f.segs, segment{op: opText, text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			text.WriteByte(pattern[i])
			continue
		}
		if i+1 >= len(pattern) {
			return nil, fmt.Errorf("pattern ends with bare %%")
		}
		i++
		switch pattern[i] {
		case 't':
			flush()
			f.segs = append(f.segs, segment{op: opTime})
		case 'l':
			flush()
			f.segs = append(f.segs, segment{op: opLevel})
		case 's':
			flush()
			f.segs = append(f.segs, segment{op: opScope})
		case 'c':
			flush()
			f.segs = append(f.segs, segment{op: opCaller})
		case 'm':
			flush()
			f.segs = append(f.segs, segment{op: opMessage})
		case '%':
			text.WriteByte('%')
		default:
			return nil, fmt.Errorf("unknown pattern token %%%c", pattern[i])
		}
	}
	flush()
	return f, nil
}

// MustCompilePattern is CompilePattern for patterns known good at
// compile time, such as the built-in default.
func MustCompilePattern(pattern, timeLayout string, utc bool) *Formatter {
	f, err := CompilePattern(pattern, timeLayout, utc)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders one line, without a trailing newline. Empty scope and
// caller values also swallow the space before them, so the default
// pattern does not leave double gaps on unscoped loggers.
func (f *Formatter) Format(rec Record, scope, caller string) string {
	var b strings.Builder
	b.Grow(64 + len(rec.Message))

	appendValue := func(v string) {
		if v == "" {
			// Eat the separator that preceded the empty token.
			s := b.String()
			if strings.HasSuffix(s, " ") {
				b.Reset()
				b.WriteString(s[:len(s)-1])
			}
			return
		}
		b.WriteString(v)
	}

	for _, seg := range f.segs {
		switch seg.op {
		case opText:
			b.WriteString(seg.text)
		case opTime:
			t := rec.Time
			if f.utc {
				t = t.UTC()
			}
			b.WriteString(t.Format(f.timeLayout))
		case opLevel:
			b.WriteString(rec.Level.String())
		case opScope:
			if scope != "" {
				appendValue("[" + scope + "]")
			} else {
				appendValue("")
			}
		case opCaller:
			appendValue(caller)
		case opMessage:
			b.WriteString(rec.Message)
		}
	}
	return b.String()
}

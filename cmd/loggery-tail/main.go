package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/YashSaxena9/loggery"
	"github.com/YashSaxena9/loggery/viewer"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	liveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	levelStyles = map[loggery.Level]lipgloss.Style{
		loggery.LevelTrace: lipgloss.NewStyle().Faint(true),
		loggery.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		loggery.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		loggery.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		loggery.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

const maxLines = 5000

type connMsg struct {
	conn   *websocket.Conn
	frames chan viewer.Frame
	err    error
}

type frameMsg viewer.Frame

// closedMsg records which reader channel closed so a stale close from
// a connection replaced by reconnect cannot mark the new one dead.
type closedMsg struct {
	frames chan viewer.Frame
}

type model struct {
	url       string
	level     loggery.Level
	refreshMs int

	conn   *websocket.Conn
	frames chan viewer.Frame

	vp      viewport.Model
	ready   bool
	lines   []string
	follow  bool
	lastSeq uint64
	total   int

	connected bool
	statusMsg string
}

func initialModel(url string, level loggery.Level, refreshMs int) model {
	return model{
		url:       url,
		level:     level,
		refreshMs: refreshMs,
		follow:    true,
		statusMsg: "connecting",
	}
}

// connectCmd dials the viewer and starts a goroutine pumping frames
// into a channel the Update loop drains one message at a time.
func connectCmd(url string, level loggery.Level, refreshMs int) tea.Cmd {
	return func() tea.Msg {
		full := fmt.Sprintf("%s?level=%s&refresh_ms=%d",
			url, strings.ToLower(level.String()), refreshMs)
		conn, _, err := websocket.DefaultDialer.Dial(full, nil)
		if err != nil {
			return connMsg{err: err}
		}

		frames := make(chan viewer.Frame, 16)
		go func() {
			defer close(frames)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var f viewer.Frame
				if err := json.Unmarshal(data, &f); err != nil {
					continue
				}
				frames <- f
			}
		}()
		return connMsg{conn: conn, frames: frames}
	}
}

// waitForFrame delivers the next frame from the reader goroutine.
func waitForFrame(frames chan viewer.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return closedMsg{frames: frames}
		}
		return frameMsg(f)
	}
}

func (m model) Init() tea.Cmd {
	return connectCmd(m.url, m.level, m.refreshMs)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 1
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}
		m.vp.SetContent(strings.Join(m.lines, "\n"))
		if m.follow {
			m.vp.GotoBottom()
		}
		return m, nil

	case connMsg:
		if msg.err != nil {
			m.connected = false
			m.statusMsg = fmt.Sprintf("connect failed: %v", msg.err)
			return m, nil
		}
		m.conn = msg.conn
		m.frames = msg.frames
		m.connected = true
		m.statusMsg = "streaming"
		return m, waitForFrame(m.frames)

	case frameMsg:
		switch msg.Status {
		case viewer.StatusData:
			for _, e := range msg.Events {
				m.lines = append(m.lines, renderLine(e))
			}
			if len(m.lines) > maxLines {
				m.lines = m.lines[len(m.lines)-maxLines:]
			}
			m.total += len(msg.Events)
			m.lastSeq = msg.Next
			if m.ready {
				m.vp.SetContent(strings.Join(m.lines, "\n"))
				if m.follow {
					m.vp.GotoBottom()
				}
			}
		case viewer.StatusHeartbeat:
			m.lastSeq = msg.Next
		case viewer.StatusTerminated:
			m.connected = false
			if msg.Reason != "" {
				m.statusMsg = "terminated: " + msg.Reason
			} else {
				m.statusMsg = "terminated"
			}
			return m, nil
		}
		return m, waitForFrame(m.frames)

	case closedMsg:
		if msg.frames == m.frames && m.connected {
			m.connected = false
			m.statusMsg = "disconnected"
		}
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.conn != nil {
			m.conn.Close()
		}
		return m, tea.Quit

	case "1", "2", "3", "4", "5":
		m.level = loggery.Level(msg.String()[0] - '1')
		m.sendControl(map[string]any{
			"action": "set_level",
			"level":  strings.ToLower(m.level.String()),
		})
		return m, nil

	case "+", "=":
		m.refreshMs = bumpRefresh(m.refreshMs, -1)
		m.sendControl(map[string]any{"action": "set_refresh", "refresh_ms": m.refreshMs})
		return m, nil

	case "-":
		m.refreshMs = bumpRefresh(m.refreshMs, 1)
		m.sendControl(map[string]any{"action": "set_refresh", "refresh_ms": m.refreshMs})
		return m, nil

	case "c":
		m.lines = nil
		m.total = 0
		if m.ready {
			m.vp.SetContent("")
		}
		m.sendControl(map[string]any{"action": "clear"})
		return m, nil

	case "f":
		m.follow = !m.follow
		if m.follow && m.ready {
			m.vp.GotoBottom()
		}
		return m, nil

	case "r":
		if m.conn != nil {
			m.conn.Close()
		}
		m.statusMsg = "reconnecting"
		return m, connectCmd(m.url, m.level, m.refreshMs)
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

// sendControl writes a control message. Update is the only writer, so
// no locking around the connection.
func (m *model) sendControl(obj map[string]any) {
	if m.conn == nil || !m.connected {
		return
	}
	m.conn.WriteJSON(obj)
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	dot := deadStyle.Render("●")
	if m.connected {
		dot = liveStyle.Render("●")
	}
	status := fmt.Sprintf("%s %s  level=%s  refresh=%dms  seq=%d  lines=%d",
		dot, m.statusMsg, strings.ToLower(m.level.String()), m.refreshMs, m.lastSeq, m.total)

	header := titleStyle.Render("loggery-tail") + " " + statusBarStyle.Render(m.url)
	help := helpStyle.Render("1-5 level · +/- refresh · c clear · f follow · r reconnect · q quit")

	return header + "\n" + status + "\n" + m.vp.View() + "\n" + help
}

func renderLine(e loggery.Record) string {
	lvl := levelStyles[e.Level].Render(fmt.Sprintf("%-5s", e.Level))
	ts := timeStyle.Render(e.Time.Format("15:04:05.000"))
	return fmt.Sprintf("%s %s %s", ts, lvl, e.Message)
}

// bumpRefresh steps through the interval ladder in the given
// direction: negative is faster, positive is slower.
func bumpRefresh(current, dir int) int {
	ladder := []int{200, 500, 1000, 2000, 5000}
	idx := 0
	for i, v := range ladder {
		if v <= current {
			idx = i
		}
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(ladder) {
		idx = len(ladder) - 1
	}
	return ladder[idx]
}

func main() {
	url := flag.String("url", "ws://localhost:7717/ws", "Viewer WebSocket URL")
	levelStr := flag.String("level", "trace", "Minimum level to stream")
	refreshMs := flag.Int("refresh", 1000, "Refresh interval in milliseconds")
	flag.Parse()

	level, err := loggery.ParseLevel(*levelStr)
	if err != nil {
		log.Fatalf("Invalid level: %v", err)
	}

	p := tea.NewProgram(
		initialModel(*url, level, *refreshMs),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}

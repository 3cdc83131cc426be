// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"ledviz/internal/effect"
	"ledviz/internal/visualizer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

const (
	labelWidth     = 14
	defaultWidth   = 80
	brightnessStep = 0.05
	cell           = "█"
)

type frameMsg []visualizer.Output

type statsMsg visualizer.Stats

// Model previews every strip as a row of colored cells and offers a few
// controls for the selected device.
type Model struct {
	o      *visualizer.Orchestrator
	frames <-chan []visualizer.Output
	effect []string

	latest   []visualizer.Output
	stats    visualizer.Stats
	selected int
	width    int
	status   error
	keys     keyMap
	help     help.Model
}

// NewModel returns a preview fed by frames.
func NewModel(o *visualizer.Orchestrator, frames <-chan []visualizer.Output) Model {
	return Model{
		o:      o,
		frames: frames,
		effect: effect.Names(),
		width:  defaultWidth,
		keys:   defaultKeys(),
		help:   help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForFrame(m.frames), tickStats(m.o))
}

func waitForFrame(frames <-chan []visualizer.Output) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

func tickStats(o *visualizer.Orchestrator) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return statsMsg(o.Stats())
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case frameMsg:
		m.latest = msg
		return m, waitForFrame(m.frames)

	case statsMsg:
		m.stats = visualizer.Stats(msg)
		return m, tickStats(m.o)

	case tea.KeyMsg:
		devices := m.o.Devices()
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(devices)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Next):
			m.status = m.cycleEffect(devices[m.selected], 1)
		case key.Matches(msg, m.keys.Prev):
			m.status = m.cycleEffect(devices[m.selected], -1)
		case key.Matches(msg, m.keys.Brighter):
			m.status = m.o.SetBrightness(math.Min(1, m.o.Brightness()+brightnessStep))
		case key.Matches(msg, m.keys.Dimmer):
			m.status = m.o.SetBrightness(math.Max(0, m.o.Brightness()-brightnessStep))
		case key.Matches(msg, m.keys.Sync):
			m.o.SetSync(!m.o.Sync())
		}
	}
	return m, nil
}

func (m Model) cycleEffect(d *visualizer.Device, step int) error {
	cur := 0
	for i, name := range m.effect {
		if name == d.Effect() {
			cur = i
			break
		}
	}
	next := (cur + step + len(m.effect)) % len(m.effect)
	return m.o.SetEffect(d.Name(), m.effect[next])
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("LED Strip Preview"))
	sb.WriteString("\n\n")

	frames := make(map[string]visualizer.Output, len(m.latest))
	for _, f := range m.latest {
		frames[f.Device] = f
	}
	for i, d := range m.o.Devices() {
		label := fmt.Sprintf("%-*.*s", labelWidth, labelWidth-1, d.Name())
		info := fmt.Sprintf("  %s, %d px", d.Effect(), d.Pixels())
		if i == m.selected {
			label = highlightStyle.Render(label)
			info = highlightStyle.Render(info)
		}
		sb.WriteString(label)
		sb.WriteString(renderStrip(frames[d.Name()].Pixels, m.width-labelWidth))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", labelWidth))
		sb.WriteString(infoStyle.Render(info))
		sb.WriteString("\n\n")
	}

	sync := "off"
	if m.o.Sync() {
		sync = "on"
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("fps %.1f • brightness %.0f%% • sync %s • overflows %d",
		m.stats.FPS, 100*m.o.Brightness(), sync, m.stats.Overflows)))
	sb.WriteString("\n")
	if m.status != nil {
		sb.WriteString(errorStyle.Render(m.status.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// renderStrip draws up to cols cells, sampling the strip evenly when it is
// longer than the terminal is wide.
func renderStrip(px [3][]uint8, cols int) string {
	n := len(px[0])
	if n == 0 || cols < 1 {
		return ""
	}
	cols = min(cols, n)
	var sb strings.Builder
	for c := 0; c < cols; c++ {
		i := c * n / cols
		hex := colorful.Color{
			R: float64(px[0][i]) / 255,
			G: float64(px[1][i]) / 255,
			B: float64(px[2][i]) / 255,
		}.Hex()
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(cell))
	}
	return sb.String()
}

// Run shows the preview until the user quits or ctx is done. Frames arrive
// every nth pipeline frame; stale frames are dropped rather than queued.
func Run(ctx context.Context, o *visualizer.Orchestrator, every int) error {
	frames := make(chan []visualizer.Output, 1)
	o.Observe(every, func(f []visualizer.Output) {
		select {
		case frames <- f:
		default:
		}
	})

	p := tea.NewProgram(NewModel(o, frames), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

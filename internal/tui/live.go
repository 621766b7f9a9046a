package tui

import (
	"fmt"
	"strings"
	"time"

	"lipsync/internal/lipsync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	shapeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454")).
			Bold(true)

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))
)

// refreshInterval paces the status redraw. The engine is polled, not
// subscribed to, so the UI can tick at its own rate.
const refreshInterval = 33 * time.Millisecond

// rmsMeterWidth is the number of cells in the level meter.
const rmsMeterWidth = 40

type tickMsg time.Time

// LiveModel is the Bubble Tea model for the live mouth-shape view. It reads
// the engine's current shape, state, and counters on every tick.
type LiveModel struct {
	engine *lipsync.Engine

	shape         lipsync.Shape
	state         lipsync.State
	blocksIn      uint64
	blocksSkipped uint64
	lastRMS       float64
}

// NewLiveModel creates a live view backed by the given engine.
func NewLiveModel(engine *lipsync.Engine) LiveModel {
	return LiveModel{
		engine: engine,
		shape:  lipsync.ShapeClosed,
		state:  lipsync.StateIdle,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh loop
func (m LiveModel) Init() tea.Cmd {
	return tick()
}

// Update handles input and refresh ticks
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.shape = m.engine.Poll()
		m.state = m.engine.State()
		m.blocksIn, m.blocksSkipped, m.lastRMS = m.engine.Stats()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
			if m.state == lipsync.StateDegraded {
				// Errors surface through the state line on the next tick.
				_ = m.engine.Restart()
			}
		}
	}

	return m, nil
}

// View renders the status screen
func (m LiveModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Lip Sync"))
	sb.WriteString("\n\n")

	stateLine := fmt.Sprintf("State: %s", m.state)
	if m.state == lipsync.StateDegraded {
		stateLine = degradedStyle.Render(stateLine + "  (capture lost, scripted fallback active)")
	} else {
		stateLine = infoStyle.Render(stateLine)
	}
	sb.WriteString(stateLine)
	sb.WriteString("\n\n")

	sb.WriteString("Mouth: ")
	sb.WriteString(shapeStyle.Render(renderMouth(m.shape)))
	sb.WriteString(fmt.Sprintf("  (%s)\n\n", m.shape))

	sb.WriteString(fmt.Sprintf("Level: %s %.4f\n\n", renderMeter(m.lastRMS), m.lastRMS))

	sb.WriteString(infoStyle.Render(fmt.Sprintf(
		"Blocks: %d processed, %d skipped", m.blocksIn, m.blocksSkipped)))
	sb.WriteString("\n\n")

	help := "q: Quit"
	if m.state == lipsync.StateDegraded {
		help = "r: Restart Capture • " + help
	}
	sb.WriteString(infoStyle.Render(help))

	return sb.String()
}

// renderMouth maps a shape to a small ASCII mouth.
func renderMouth(s lipsync.Shape) string {
	switch s {
	case lipsync.ShapeA:
		return "( O )"
	case lipsync.ShapeO:
		return "( o )"
	case lipsync.ShapeE:
		return "(===)"
	default:
		return "(---)"
	}
}

// renderMeter draws a simple bar for the most recent block's RMS level.
// Speech RMS rarely exceeds ~0.3 so the scale is stretched for visibility.
func renderMeter(rms float64) string {
	filled := int(rms * 3 * rmsMeterWidth)
	if filled > rmsMeterWidth {
		filled = rmsMeterWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", rmsMeterWidth-filled)
	return meterStyle.Render(bar)
}

// StartLiveUI launches the Bubble Tea live view and blocks until it exits.
func StartLiveUI(engine *lipsync.Engine) error {
	p := tea.NewProgram(
		NewLiveModel(engine),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}

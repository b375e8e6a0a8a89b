package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// CallState is the snapshot the call view renders each tick.
type CallState struct {
	RoomID          string
	RoomName        string
	ActiveUsers     int
	SignalingState  string
	ConnectionState string
	IsInitiator     bool
	PeerDevice      string
	Warning         string
}

// CallModel is the Bubble Tea model for a live call.
type CallModel struct {
	state func() CallState
	level func() float64

	spinner  spinner.Model
	meter    progress.Model
	quitting bool
}

// TickMsg is sent periodically to refresh the call view.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// NewCallModel creates a call view fed by the given snapshot providers.
func NewCallModel(state func() CallState, level func() float64) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := progress.New(
		progress.WithGradient("#34d399", "#10b981"),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return &CallModel{
		state:   state,
		level:   level,
		spinner: s,
		meter:   m,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case TickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	st := m.state()

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s voxcall — room %s", IconCall, st.RoomID)))
	b.WriteString("\n")

	if st.Warning != "" {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s %s", IconWarning, st.Warning)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("%s Participants: %s\n", IconPeer, BoldStyle.Render(fmt.Sprintf("%d/2", st.ActiveUsers))))

	switch st.ConnectionState {
	case "connected":
		peer := st.PeerDevice
		if peer == "" {
			peer = "peer"
		}
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s In call with %s", IconSuccess, peer)))
		b.WriteString("\n")
	default:
		waitingFor := "peer to join"
		if st.ActiveUsers >= 2 {
			waitingFor = fmt.Sprintf("connection (%s, %s)", st.SignalingState, st.ConnectionState)
		}
		b.WriteString(fmt.Sprintf("%s Waiting for %s\n", m.spinner.View(), waitingFor))
	}

	b.WriteString(fmt.Sprintf("\n%s %s\n", IconMic, m.meter.ViewAs(m.level())))
	b.WriteString(MutedStyle.Render("\npress q to hang up"))
	b.WriteString("\n")

	return BoxStyle.Render(b.String())
}

// RunCallView blocks until the user hangs up.
func RunCallView(state func() CallState, level func() float64) error {
	p := tea.NewProgram(NewCallModel(state, level))
	_, err := p.Run()
	return err
}

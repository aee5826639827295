package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/vox-core/core"
)

type stateMsg struct{ state orchestration.AssistantState }
type levelMsg struct{ level float64 }
type interimMsg struct{ transcript string }
type userTextMsg struct{ text string }
type replyDeltaMsg struct{ delta string }
type turnDoneMsg struct {
	assistantText string
	errMessage    string
}
type actionPendingMsg struct{}
type actionResolvedMsg struct{ status string }
type statusMsg struct{ status string }

type transcriptLine struct {
	role string
	text string
}

type theme struct {
	header    lipgloss.Style
	userLabel lipgloss.Style
	voxLabel  lipgloss.Style
	errText   lipgloss.Style
	meterOn   lipgloss.Style
	meterOff  lipgloss.Style
	modal     lipgloss.Style
	help      lipgloss.Style
	interim   lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		userLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		voxLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		errText:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		meterOn:   lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
		meterOff:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		interim: lipgloss.NewStyle().Faint(true).Italic(true),
	}
}

type model struct {
	orchestrator *orchestration.Orchestrator

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	theme      theme

	width  int
	height int
	ready  bool

	state   orchestration.AssistantState
	level   float64
	interim string
	status  string

	lines        []transcriptLine
	currentReply string
	replying     bool

	pending *orchestration.PendingAction
}

func newModel(orchestrator *orchestration.Orchestrator) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "type a message, or press tab to talk"
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return model{
		orchestrator: orchestrator,
		input:        input,
		transcript:   viewport.New(0, 0),
		spinner:      spin,
		theme:        defaultTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = msg.Height - 5
		m.input.Width = msg.Width - 4
		m.ready = true
		m.renderTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.state
		return m, nil

	case levelMsg:
		m.level = msg.level
		return m, nil

	case interimMsg:
		m.interim = msg.transcript
		return m, nil

	case userTextMsg:
		m.lines = append(m.lines, transcriptLine{role: "you", text: msg.text})
		m.interim = ""
		m.renderTranscript()
		return m, nil

	case replyDeltaMsg:
		if !m.replying {
			m.replying = true
			m.currentReply = ""
		}
		m.currentReply += msg.delta
		m.renderTranscript()
		return m, nil

	case turnDoneMsg:
		m.replying = false
		m.currentReply = ""
		if msg.assistantText != "" {
			m.lines = append(m.lines, transcriptLine{role: "vox", text: msg.assistantText})
		}
		if msg.errMessage != "" {
			m.lines = append(m.lines, transcriptLine{role: "err", text: msg.errMessage})
		}
		m.renderTranscript()
		return m, nil

	case actionPendingMsg:
		m.pending = m.orchestrator.PendingAction()
		return m, nil

	case actionResolvedMsg:
		m.pending = nil
		m.status = msg.status
		return m, nil

	case statusMsg:
		m.status = msg.status
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.lines = append(m.lines, transcriptLine{role: "you", text: text})
		m.renderTranscript()
		return m, m.sendTurn(text)

	case "tab":
		if m.orchestrator.State() == orchestration.StateSpeaking {
			m.orchestrator.Interrupt()
		}
		if m.orchestrator.IsListening() {
			if err := m.orchestrator.StopListening(); err != nil {
				m.status = err.Error()
			}
		} else {
			if err := m.orchestrator.StartListening(); err != nil {
				m.status = err.Error()
			}
		}
		return m, nil

	case "ctrl+o":
		return m, m.toggleOpenMic()
	}

	if m.pending != nil {
		switch msg.String() {
		case "y":
			return m, m.confirmPending()
		case "n":
			return m, m.cancelPending()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) sendTurn(text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.orchestrator.SendTurn(context.Background(), text); err != nil {
			return statusMsg{status: err.Error()}
		}
		return statusMsg{status: ""}
	}
}

func (m model) confirmPending() tea.Cmd {
	return func() tea.Msg {
		if err := m.orchestrator.ConfirmPendingAction(context.Background()); err != nil {
			return statusMsg{status: "send failed: " + err.Error()}
		}
		return nil
	}
}

func (m model) cancelPending() tea.Cmd {
	return func() tea.Msg {
		if err := m.orchestrator.CancelPendingAction(); err != nil {
			return statusMsg{status: err.Error()}
		}
		return nil
	}
}

func (m model) toggleOpenMic() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.orchestrator.IsOpenMic() {
			if err := m.orchestrator.DisableOpenMic(ctx); err != nil {
				return statusMsg{status: err.Error()}
			}
			return statusMsg{status: "open mic off"}
		}
		if err := m.orchestrator.EnableOpenMic(ctx); err != nil {
			return statusMsg{status: err.Error()}
		}
		return statusMsg{status: "open mic on"}
	}
}

func (m *model) renderTranscript() {
	if !m.ready {
		return
	}

	width := m.transcript.Width - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(m.renderLine(line, width))
		b.WriteString("\n\n")
	}
	if m.replying && m.currentReply != "" {
		b.WriteString(m.renderLine(transcriptLine{role: "vox", text: m.currentReply}, width))
		b.WriteString("\n")
	}

	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m *model) renderLine(line transcriptLine, width int) string {
	text := wordwrap.String(line.text, width)
	switch line.role {
	case "you":
		return m.theme.userLabel.Render("you") + "  " + text
	case "err":
		return m.theme.errText.Render("error: " + text)
	default:
		return m.theme.voxLabel.Render("vox") + "  " + text
	}
}

const meterWidth = 12

func (m model) renderMeter() string {
	filled := int(m.level * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	return m.theme.meterOn.Render(strings.Repeat("▰", filled)) +
		m.theme.meterOff.Render(strings.Repeat("▱", meterWidth-filled))
}

func (m model) renderHeader() string {
	state := string(m.state)
	if m.state == orchestration.StateThinking {
		state = m.spinner.View() + " thinking"
	}
	mic := "mic off"
	if m.orchestrator.IsOpenMic() {
		mic = "open mic"
	} else if m.orchestrator.IsListening() {
		mic = "listening"
	}
	return m.theme.header.Render("vox") +
		fmt.Sprintf("  %s  %s  %s", state, mic, m.renderMeter())
}

func (m model) renderPendingModal() string {
	if m.pending == nil {
		return ""
	}
	body := fmt.Sprintf("Send this draft?\n\nTo: %s\nSubject: %s\n\n%s\n\n[y] send  [n] cancel",
		m.pending.To, m.pending.Subject,
		wordwrap.String(m.pending.Body, 60))
	return m.theme.modal.Render(body)
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.transcript.View())

	if modal := m.renderPendingModal(); modal != "" {
		sections = append(sections, modal)
	}
	if m.interim != "" {
		sections = append(sections, m.theme.interim.Render("… "+m.interim))
	}
	if m.status != "" {
		sections = append(sections, m.theme.help.Render(m.status))
	}

	sections = append(sections, m.input.View())
	sections = append(sections, m.theme.help.Render("enter send · tab talk · ctrl+o open mic · esc quit"))

	return strings.Join(sections, "\n")
}

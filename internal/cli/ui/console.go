package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"craftbridge/pkg/sdk"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

type consoleModel struct {
	sub       chan sdk.Event
	conn      *websocket.Conn
	viewport  viewport.Model
	textInput textinput.Model
	err       error
	ready     bool
	status    *sdk.Status
	lines     []string
	quitting  bool
	client    *sdk.Client
	width     int
	height    int
}

func initialConsoleModel(conn *websocket.Conn, sub chan sdk.Event, client *sdk.Client) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "Type a command..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 40

	return consoleModel{
		sub:       sub,
		conn:      conn,
		textInput: ti,
		client:    client,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForEvent(m.sub),
		fetchStatus(m.client),
		tickCmd(),
	)
}

type eventMsg sdk.Event
type streamClosedMsg struct{}
type statusMsg *sdk.Status
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(sub chan sdk.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func fetchStatus(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		status, err := client.Status(ctx)
		if err != nil {
			return statusMsg(nil)
		}
		return statusMsg(status)
	}
}

// FormatEvent renders one stream message as a console line.
func FormatEvent(ev sdk.Event) string {
	stamp := ""
	if !ev.Time.IsZero() {
		stamp = timeStyle.Render(ev.Time.Local().Format("15:04:05")) + " "
	}

	switch ev.Type {
	case "player-joined":
		return stamp + joinStyle.Render(fmt.Sprintf("+ %s joined the game", ev.Player))
	case "player-left":
		return stamp + leaveStyle.Render(fmt.Sprintf("- %s left the game", ev.Player))
	case "error":
		return stamp + errorStyle.Render("! "+ev.Message)
	case "close":
		return stamp + noticeStyle.Render(fmt.Sprintf("server process exited with code %d", ev.ExitCode))
	case "started":
		return stamp + joinStyle.Render(fmt.Sprintf("server is up (boot took %s)", ev.Message))
	case "stopped":
		return stamp + noticeStyle.Render("server stopped")
	case "command-result":
		if ev.Error != "" {
			return errorStyle.Render(fmt.Sprintf("> %s: %s", ev.Command, ev.Error))
		}
		out := "> " + ev.Command
		if ev.Response != "" {
			out += "\n" + ev.Response
		}
		return out
	default:
		return stamp + ev.Type + " " + ev.Message
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if cmd := strings.TrimSpace(m.textInput.Value()); cmd != "" {
				m.textInput.SetValue("")
				if m.conn != nil {
					data, _ := json.Marshal(sdk.CommandRequest{Command: cmd})
					_ = m.conn.WriteMessage(websocket.TextMessage, data)
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 10
		contentWidth := msg.Width - 6

		if !m.ready {
			m.viewport = viewport.New(contentWidth, msg.Height-headerHeight)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = msg.Height - headerHeight
		}

	case eventMsg:
		m.lines = append(m.lines, FormatEvent(sdk.Event(msg)))
		if m.ready {
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
		}
		return m, waitForEvent(m.sub)

	case streamClosedMsg:
		m.err = fmt.Errorf("event stream closed")
		return m, tea.Quit

	case statusMsg:
		m.status = msg

	case tickMsg:
		return m, tea.Batch(fetchStatus(m.client), tickCmd())
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func statusLine(status *sdk.Status) string {
	if status == nil {
		return "Bridge unreachable"
	}

	statusColor := "160"
	statusIcon := "🔴"
	switch status.State {
	case "RUNNING":
		statusColor = "42"
		statusIcon = "🟢"
	case "STARTING", "STOPPING":
		statusColor = "220"
		statusIcon = "🟡"
	}
	stateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(statusColor))

	players := "?"
	if status.Reachable {
		players = fmt.Sprintf("%d", status.Online)
	}
	maxPlayers := "?"
	if status.Max > 0 {
		maxPlayers = fmt.Sprintf("%d", status.Max)
	}
	return fmt.Sprintf("%s %s  •  Players: %s / %s", statusIcon, stateStyle.Render(status.State), players, maxPlayers)
}

func (m consoleModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	title := headerStyle.Width(m.width).Render("SERVER CONSOLE")

	headerBox := baseStyle.
		Width(m.width-4).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(statusLine(m.status))

	console := baseStyle.
		Width(m.width - 4).
		Render(m.viewport.View())

	keys := []string{
		keyStyle.Render("enter") + descStyle.Render(": run command"),
		keyStyle.Render("esc/ctrl+c") + descStyle.Render(": quit"),
	}
	helpText := strings.Join(keys, lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(" • "))

	footerContent := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("→ %s", m.textInput.View()),
		lipgloss.NewStyle().Width(m.width-6).Align(lipgloss.Center).Render(helpText),
	)

	footerBox := footerStyle.
		Width(m.width - 4).
		Align(lipgloss.Left).
		Render(footerContent)

	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		headerBox,
		console,
		footerBox,
	)
}

// RunConsole attaches to the event stream and lets the operator type
// console commands until they quit.
func RunConsole(client *sdk.Client) error {
	wsURL, err := client.EventsURL()
	if err != nil {
		return fmt.Errorf("error parsing base URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("error connecting to event stream: %w", err)
	}
	defer conn.Close()

	sub := make(chan sdk.Event)
	go func() {
		defer close(sub)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev sdk.Event
			if err := json.Unmarshal(message, &ev); err != nil {
				continue
			}
			sub <- ev
		}
	}()

	p := tea.NewProgram(
		initialConsoleModel(conn, sub, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running console UI: %w", err)
	}
	if cm, ok := m.(consoleModel); ok && !cm.quitting && cm.err != nil {
		return cm.err
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/config"
	"github.com/joebot/botchat/internal/picker"
)

const sidebarWidth = 22

// --- message types ---

type connectedMsg struct {
	state chat.State
}

// --- chat config ---

// ChatConfig holds what the chat TUI needs besides the session.
type ChatConfig struct {
	Server       string
	Roster       []picker.Bot
	InitialBot   chat.BotID
	ScrollPolicy string
	// Session configures the session; its Display is set by RunChat.
	Session chat.Options
}

// --- chat entry ---

type chatEntry struct {
	sender  chat.Sender
	content string
	at      string
}

// --- interactive chat model ---

type chatModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	session *chat.Session
	display *tuiDisplay
	ctx     context.Context

	entries   []chatEntry
	roster    []picker.Bot
	active    chat.BotID
	hasActive bool
	locked    bool
	state     chat.State
	sticky    bool

	ready  bool
	width  int
	height int
	server string
}

func newChatModel(ctx context.Context, session *chat.Session, display *tuiDisplay, cfg ChatConfig) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 0
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(Accent)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	return chatModel{
		input:   ti,
		spinner: sp,
		session: session,
		display: display,
		ctx:     ctx,
		roster:  cfg.Roster,
		sticky:  cfg.ScrollPolicy == config.ScrollSticky,
		server:  cfg.Server,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(waitForDisplay(m.display), m.connect())
}

func (m chatModel) connect() tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{state: m.session.Connect(m.ctx)}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Layout: header(1) + divider(1) + viewport + divider(1) + input(1) + status(1) = 5 fixed
		vpHeight := msg.Height - 5
		if vpHeight < 1 {
			vpHeight = 1
		}
		vpWidth := msg.Width - sidebarWidth - 2
		if vpWidth < 10 {
			vpWidth = 10
		}
		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyTab:
			m.cycleBot(1)
			return m, nil
		case tea.KeyShiftTab:
			m.cycleBot(-1)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case connectedMsg:
		m.state = msg.state
		return m, nil

	case displayMsg:
		cmd := m.apply(msg)
		m.state = m.session.State()
		return m, tea.Batch(cmd, waitForDisplay(m.display))

	case spinner.TickMsg:
		if m.locked {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// Route remaining events to input when not locked
	if !m.locked {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// submit handles enter: local commands first, then a send to the active bot.
func (m chatModel) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}
	if isExitCmd(input) {
		return m, tea.Quit
	}
	if id, ok := parseBotCmd(input); ok {
		m.input.SetValue("")
		m.session.SwitchActiveBot(id)
		return m, nil
	}
	if m.locked || !m.hasActive {
		return m, nil
	}
	if m.session.Send(input, m.active) {
		m.input.SetValue("")
	}
	return m, nil
}

// cycleBot switches to the next or previous roster entry.
func (m *chatModel) cycleBot(step int) {
	if len(m.roster) == 0 {
		return
	}
	idx := -1
	for i, b := range m.roster {
		if m.hasActive && b.ID == m.active {
			idx = i
			break
		}
	}
	n := len(m.roster)
	next := ((idx+step)%n + n) % n
	if idx < 0 && step < 0 {
		next = n - 1
	}
	m.session.SwitchActiveBot(m.roster[next].ID)
}

// apply folds display events into the model in order.
func (m *chatModel) apply(events []displayEvent) tea.Cmd {
	var cmds []tea.Cmd
	appended := false
	for _, ev := range events {
		switch ev.kind {
		case evAppend:
			m.entries = append(m.entries, chatEntry{
				sender:  ev.sender,
				content: terminalText(ev.text),
				at:      chat.FormatTime(ev.at),
			})
			appended = true
		case evClear:
			m.entries = nil
			m.refresh(true)
		case evActive:
			m.active, m.hasActive = ev.next, true
		case evLock:
			m.locked = ev.locked
			if ev.locked {
				m.input.Blur()
				cmds = append(cmds, m.spinner.Tick)
			} else {
				cmds = append(cmds, m.input.Focus())
			}
		}
	}
	if appended {
		m.refresh(!m.sticky)
	}
	return tea.Batch(cmds...)
}

// refresh re-renders the log. With force the view jumps to the bottom;
// otherwise it only follows when it was already there.
func (m *chatModel) refresh(force bool) {
	if !m.ready {
		return
	}
	follow := force || m.viewport.AtBottom()
	m.viewport.SetContent(m.renderHistory())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := TitleStyle.Render(fmt.Sprintf(" %s botchat", Logo))
	if name := m.activeLabel(); name != "" {
		header += DimStyle.Render(" · ") + BotLabel.Render(name)
	}
	divider := DimStyle.Render(strings.Repeat("─", m.width))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		SidebarStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(m.renderSidebar()),
		" "+m.viewport.View(),
	)

	var inputLine string
	switch {
	case m.state.Terminal():
		inputLine = " " + DimStyle.Render("Disconnected. Tab to browse history, ctrl+c to quit.")
	case m.locked:
		inputLine = fmt.Sprintf(" %s Waiting for reply...", m.spinner.View())
	case !m.hasActive:
		inputLine = " " + DimStyle.Render("Select a bot with tab or /bot ID.")
	default:
		inputLine = " " + m.input.View()
	}

	return header + "\n" +
		divider + "\n" +
		body + "\n" +
		divider + "\n" +
		inputLine + "\n" +
		m.renderStatusBar()
}

func (m chatModel) activeLabel() string {
	if !m.hasActive {
		return ""
	}
	for _, b := range m.roster {
		if b.ID == m.active {
			return b.Label()
		}
	}
	return picker.Bot{ID: m.active}.Label()
}

func (m chatModel) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(BoldStyle.Render("Bots") + "\n")
	if len(m.roster) == 0 {
		sb.WriteString(DimStyle.Render("none") + "\n")
	}
	for _, b := range m.roster {
		label := truncate(b.Label(), sidebarWidth-3)
		if m.hasActive && b.ID == m.active {
			sb.WriteString(ActiveBotStyle.Render("❯ "+label) + "\n")
		} else {
			sb.WriteString("  " + label + "\n")
		}
	}
	return sb.String()
}

func (m chatModel) renderHistory() string {
	if len(m.entries) == 0 {
		return "\n" + RenderBanner()
	}

	botName := m.activeLabel()
	var sb strings.Builder
	for _, entry := range m.entries {
		sb.WriteString("\n")
		switch entry.sender {
		case chat.SenderUser:
			sb.WriteString("  " + UserLabel.Render("You") + " " + DimStyle.Render(entry.at) + "\n")
			for _, line := range strings.Split(entry.content, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		case chat.SenderBot:
			sb.WriteString("  " + BotLabel.Render(botName) + " " + DimStyle.Render(entry.at) + "\n")
			sb.WriteString("  " + entry.content + "\n")
		default:
			sb.WriteString("  " + NoticeStyle.Render(entry.content) + "\n")
		}
	}
	return sb.String()
}

func (m chatModel) renderStatusBar() string {
	left := " " + stateBadge(m.state.String(), m.state == chat.StateOpen) + DimStyle.Render(" "+m.server)
	right := DimStyle.Render("tab switch bot · /bot ID · ctrl+c quit ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}

func isExitCmd(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "quit" || s == "/exit" || s == "/quit" || s == ":q"
}

// parseBotCmd recognizes "/bot ID".
func parseBotCmd(s string) (chat.BotID, bool) {
	rest, ok := strings.CutPrefix(s, "/bot ")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || id < 0 {
		return 0, false
	}
	return chat.BotID(id), true
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// initialBot picks the bot to open with: the requested one, else the first
// roster entry.
func initialBot(requested chat.BotID, roster []picker.Bot) (chat.BotID, bool) {
	if requested > 0 {
		return requested, true
	}
	if len(roster) > 0 {
		return roster[0].ID, true
	}
	return 0, false
}

// RunChat starts the interactive chat TUI.
func RunChat(ctx context.Context, cfg ChatConfig) error {
	display := newTUIDisplay()
	opts := cfg.Session
	opts.Display = display
	session := chat.NewSession(opts)
	defer session.Close()

	if id, ok := initialBot(cfg.InitialBot, cfg.Roster); ok {
		session.SwitchActiveBot(id)
	}

	m := newChatModel(ctx, session, display, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

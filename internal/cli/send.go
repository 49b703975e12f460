package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/picker"
)

var (
	errNotSent = errors.New("message not sent")
	errNoReply = errors.New("no reply received")
)

type sentMsg struct {
	err error
}

// replyCollector picks the reply to one send out of the display events: the
// bot lines between the lock being taken and released.
type replyCollector struct {
	sent    bool
	lines   []string
	notices []string
	done    bool
}

func (c *replyCollector) apply(events []displayEvent) {
	for _, ev := range events {
		switch ev.kind {
		case evLock:
			if ev.locked {
				c.sent = true
			} else if c.sent {
				c.done = true
			}
		case evAppend:
			switch {
			case ev.sender == chat.SenderSystem:
				c.notices = append(c.notices, terminalText(ev.text))
			case c.sent && ev.sender == chat.SenderBot:
				c.lines = append(c.lines, terminalText(ev.text))
			}
		}
	}
}

// result returns the reply lines, or an error when none arrived.
func (c *replyCollector) result() ([]string, error) {
	if len(c.lines) > 0 {
		return c.lines, nil
	}
	if len(c.notices) > 0 {
		return nil, fmt.Errorf("%w: %s", errNoReply, c.notices[len(c.notices)-1])
	}
	return nil, errNoReply
}

// --- single message model ---

type singleModel struct {
	spinner   spinner.Model
	session   *chat.Session
	display   *tuiDisplay
	ctx       context.Context
	bot       chat.BotID
	message   string
	collector replyCollector
	err       error
	done      bool
}

func (m singleModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForDisplay(m.display),
		func() tea.Msg {
			if st := m.session.Connect(m.ctx); st != chat.StateOpen {
				return sentMsg{err: fmt.Errorf("connect: %s", st)}
			}
			m.session.SwitchActiveBot(m.bot)
			if !m.session.Send(m.message, m.bot) {
				return sentMsg{err: errNotSent}
			}
			return sentMsg{}
		},
	)
}

func (m singleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case sentMsg:
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
	case displayMsg:
		m.collector.apply(msg)
		if m.collector.done || m.session.State().Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForDisplay(m.display)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m singleModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n %s Waiting for reply...\n", m.spinner.View())
}

// RunSingleMessage sends one message to bot with a spinner, then prints the
// reply.
func RunSingleMessage(ctx context.Context, opts chat.Options, bot picker.Bot, message string) error {
	display := newTUIDisplay()
	opts.Display = display
	session := chat.NewSession(opts)
	defer session.Close()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	m := singleModel{
		spinner: sp,
		session: session,
		display: display,
		ctx:     ctx,
		bot:     bot.ID,
		message: message,
	}

	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}

	fm := final.(singleModel)
	lines, rerr := fm.collector.result()
	if fm.err != nil {
		rerr = fm.err
	}
	if rerr != nil {
		fmt.Println(ErrStyle.Render("\n  Error: " + rerr.Error()))
		return rerr
	}

	fmt.Println()
	fmt.Println("  " + BotLabel.Render(bot.Label()))
	for _, line := range lines {
		fmt.Println("  " + line)
	}
	fmt.Println()
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joebot/botchat/internal/picker"
)

// flowDoneMsg reports the end of a network step of the creation flow.
type flowDoneMsg struct {
	submitted bool
	err       error
}

// createModel is the bot creation dialog. The flow is only touched from
// Update and View while no step is running.
type createModel struct {
	spinner spinner.Model
	flow    *picker.CreationFlow
	ctx     context.Context

	sexCursor int
	busy      bool
	err       error
	created   bool
	cancelled bool
}

func newCreateModel(ctx context.Context, flow *picker.CreationFlow) createModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)
	return createModel{spinner: sp, flow: flow, ctx: ctx}
}

func (m createModel) Init() tea.Cmd { return nil }

func (m createModel) step(fn func(ctx context.Context) error, submit bool) (createModel, tea.Cmd) {
	m.busy = true
	m.err = nil
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return flowDoneMsg{submitted: submit, err: fn(ctx)}
	})
}

func (m createModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if _, ok := m.flow.Sex(); !ok {
			return m.updateSexChoice(msg)
		}
		return m.updateChoices(msg)

	case flowDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.submitted && msg.err == nil {
			m.created = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m createModel) updateSexChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp, tea.KeyShiftTab:
		m.sexCursor = 0
	case tea.KeyDown, tea.KeyTab:
		m.sexCursor = 1
	case tea.KeyEnter:
		sex := picker.Sex(m.sexCursor)
		return m.step(func(ctx context.Context) error { return m.flow.SetSex(ctx, sex) }, false)
	}
	return m, nil
}

func (m createModel) updateChoices(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.flow.Prev()
	case "right", "l":
		m.flow.Next()
	case "s":
		m.flow.Shuffle()
	case "n":
		return m.step(m.flow.RerollName, false)
	case "m", "f":
		sex := picker.Male
		if msg.String() == "f" {
			sex = picker.Female
		}
		return m.step(func(ctx context.Context) error { return m.flow.SetSex(ctx, sex) }, false)
	case "enter":
		return m.step(m.flow.Submit, true)
	}
	return m, nil
}

func (m createModel) View() string {
	if m.created || m.cancelled {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("  %s Create a bot", Logo)) + "\n\n")

	if m.busy {
		sb.WriteString(fmt.Sprintf("  %s Talking to the server...\n", m.spinner.View()))
		return sb.String()
	}

	if _, ok := m.flow.Sex(); !ok {
		for i, label := range []string{"Male", "Female"} {
			cursor := "  "
			if i == m.sexCursor {
				cursor = BotLabel.Render("❯ ")
			}
			sb.WriteString("  " + cursor + label + "\n")
		}
		sb.WriteString(m.renderErr())
		sb.WriteString("\n" + DimStyle.Render("  ↑/↓ navigate · enter select · esc cancel") + "\n")
		return sb.String()
	}

	sex, _ := m.flow.Sex()
	name, _ := m.flow.Name()
	sb.WriteString(fmt.Sprintf("  %-8s %s\n", "Sex", sex))
	sb.WriteString(fmt.Sprintf("  %-8s %s\n", "Name", BoldStyle.Render(name.Text)))
	sb.WriteString(fmt.Sprintf("  %-8s\n", "Portrait"))

	selected, _ := m.flow.Image()
	for _, img := range m.flow.Images() {
		line := fmt.Sprintf("#%d %s", img.ID, img.URL)
		if img.ID == selected.ID {
			sb.WriteString("    " + ActiveBotStyle.Render("❯ "+line) + "\n")
		} else {
			sb.WriteString("      " + DimStyle.Render(line) + "\n")
		}
	}
	sb.WriteString(m.renderErr())
	sb.WriteString("\n" + DimStyle.Render("  ←/→ portrait · s shuffle · n new name · m/f sex · enter create · esc cancel") + "\n")
	return sb.String()
}

func (m createModel) renderErr() string {
	if m.err == nil {
		return ""
	}
	return "\n  " + ErrStyle.Render("Error: "+m.err.Error()) + "\n"
}

// RunCreate runs the creation dialog. A preset sex skips the first step.
func RunCreate(ctx context.Context, client *picker.Client, preset *picker.Sex) error {
	flow := picker.NewCreationFlow(client, nil)

	fmt.Println()
	if preset != nil {
		if err := flow.SetSex(ctx, *preset); err != nil {
			fmt.Println("  " + ErrStyle.Render("Error: "+err.Error()))
			return err
		}
	}

	p := tea.NewProgram(newCreateModel(ctx, flow))
	final, err := p.Run()
	if err != nil {
		return err
	}
	fm := final.(createModel)
	if fm.cancelled {
		fmt.Println("  " + DimStyle.Render("Cancelled"))
		return nil
	}
	if !fm.created {
		if fm.err != nil {
			return fm.err
		}
		return errors.New("bot not created")
	}

	name, _ := flow.Name()
	fmt.Println("  " + OkStyle.Render("✓") + " Created " + BoldStyle.Render(name.Text))
	fmt.Println(DimStyle.Render("  Chat with it: botchat chat"))
	fmt.Println()
	return nil
}

package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/botchat/internal/config"
)

// --- init selection model ---

type initChoice int

const (
	choiceUpgrade initChoice = iota
	choiceOverwrite
	choiceSkip
)

type initModel struct {
	path    string
	choices []string
	cursor  int
	chosen  bool
	choice  initChoice
}

func (m initModel) Init() tea.Cmd { return nil }

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.choice = choiceSkip
			m.chosen = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyShiftTab:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown, tea.KeyTab:
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			m.choice = initChoice(m.cursor)
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m initModel) View() string {
	if m.chosen {
		return ""
	}

	s := "\n"
	s += fmt.Sprintf("  Config already exists at %s\n\n", DimStyle.Render(m.path))

	for i, choice := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = BotLabel.Render("❯ ")
		}
		s += "  " + cursor + choice + "\n"
	}

	s += "\n" + DimStyle.Render("  ↑/↓ navigate · enter select · ctrl+c cancel") + "\n"
	return s
}

// RunInit writes a fresh config to cfgPath, or upgrades an existing one.
func RunInit(cfgPath string) error {
	var cfg *config.Config

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s botchat Init", Logo)))

	if _, err := os.Stat(cfgPath); err == nil {
		m := initModel{
			path: cfgPath,
			choices: []string{
				"Upgrade: add new fields, keep existing values",
				"Overwrite: replace with fresh defaults",
				"Skip: do not modify config",
			},
		}
		p := tea.NewProgram(m)
		final, err := p.Run()
		if err != nil {
			return err
		}
		fm := final.(initModel)

		fmt.Println()
		switch fm.choice {
		case choiceUpgrade:
			upgraded, err := config.Upgrade(cfgPath)
			if err != nil {
				return err
			}
			cfg = upgraded
			fmt.Println("  " + OkStyle.Render("✓") + " Upgraded config")
		case choiceOverwrite:
			cfg = config.DefaultConfig()
			if err := config.SaveTo(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Println("  " + OkStyle.Render("✓") + " Overwritten config")
		default:
			fmt.Println("  " + DimStyle.Render("Config unchanged"))
			cfg, _ = config.LoadFrom(cfgPath)
		}
	} else {
		cfg = config.DefaultConfig()
		if err := config.SaveTo(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("  " + OkStyle.Render("✓") + " Created config at " + DimStyle.Render(cfgPath))
	}

	if dir := cfg.HistoryPath(); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			fmt.Println("  " + OkStyle.Render("✓") + " History at " + DimStyle.Render(dir))
		}
	}

	fmt.Println()
	fmt.Println(OkStyle.Render("  botchat is ready!"))
	fmt.Println()
	fmt.Println(DimStyle.Render("  Next steps:"))
	fmt.Println(DimStyle.Render("  1. Point server.url in " + cfgPath + " at your chat server"))
	fmt.Println(DimStyle.Render("     (or run a local one: botchat serve)"))
	fmt.Println(DimStyle.Render("  2. Chat: botchat chat"))
	fmt.Println()
	return nil
}

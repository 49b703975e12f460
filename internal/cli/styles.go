package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const Logo = "💬"
const Version = "0.1.0"

var (
	Accent = lipgloss.Color("#00D4FF")
	Subtle = lipgloss.Color("#555555")
	Green  = lipgloss.Color("#04B575")
	Red    = lipgloss.Color("#FF4444")
	Amber  = lipgloss.Color("#FFB000")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	BoldStyle   = lipgloss.NewStyle().Bold(true)
	BotLabel    = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	UserLabel   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	NoticeStyle = lipgloss.NewStyle().Italic(true).Foreground(Amber)
	ErrStyle    = lipgloss.NewStyle().Foreground(Red)
	OkStyle     = lipgloss.NewStyle().Foreground(Green).Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(Subtle)

	SidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Subtle).
			PaddingRight(1)
	ActiveBotStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
)

func StatusBadge(ok bool) string {
	if ok {
		return OkStyle.Render("✓")
	}
	return DimStyle.Render("✗")
}

// RenderBanner returns the welcome banner shown in an empty chat log.
func RenderBanner() string {
	lines := []string{
		TitleStyle.Render("  " + Logo + " botchat"),
		DimStyle.Render("  Talk to your bots from the terminal."),
	}
	return strings.Join(lines, "\n") + "\n"
}

// stateBadge renders the connection state for the status bar.
func stateBadge(state string, ok bool) string {
	if ok {
		return OkStyle.Render("● " + state)
	}
	return ErrStyle.Render("● " + state)
}

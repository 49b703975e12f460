package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/config"
	"github.com/joebot/botchat/internal/picker"
)

// ConfiguredBots converts the fallback roster of the config.
func ConfiguredBots(cfg *config.Config) []picker.Bot {
	out := make([]picker.Bot, 0, len(cfg.Bots))
	for _, b := range cfg.Bots {
		out = append(out, picker.Bot{ID: chat.BotID(b.ID), Name: b.Name, Image: b.Image})
	}
	return out
}

// LoadRoster fetches the server roster and merges the configured bots into
// it. When the server cannot be reached the configured bots are returned
// together with the error.
func LoadRoster(ctx context.Context, client *picker.Client, cfg *config.Config) ([]picker.Bot, error) {
	configured := ConfiguredBots(cfg)
	server, err := client.Bots(ctx)
	if err != nil {
		slog.Warn("roster unavailable", "server", client.BaseURL(), "err", err)
		return picker.MergeRoster(nil, configured), fmt.Errorf("load roster: %w", err)
	}
	return picker.MergeRoster(server, configured), nil
}

// RunBots prints the roster.
func RunBots(ctx context.Context, client *picker.Client, cfg *config.Config) error {
	bots, err := LoadRoster(ctx, client, cfg)

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s Bots", Logo)) + DimStyle.Render(" "+client.BaseURL()))
	fmt.Println()
	if err != nil {
		fmt.Println("  " + ErrStyle.Render("Server roster unavailable: "+err.Error()))
		if len(bots) > 0 {
			fmt.Println("  " + DimStyle.Render("Showing configured bots"))
		}
		fmt.Println()
	}
	if len(bots) == 0 {
		fmt.Println("  " + DimStyle.Render("No bots. Create one with: botchat create"))
		fmt.Println()
		return err
	}
	for _, b := range bots {
		fmt.Printf("  %-6d %s", b.ID, BoldStyle.Render(b.Label()))
		if b.Image != "" {
			fmt.Print("  " + DimStyle.Render(b.Image))
		}
		fmt.Println()
	}
	fmt.Println()
	return nil
}

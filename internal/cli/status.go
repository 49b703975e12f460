package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/config"
)

// RunStatus displays the current configuration status with styled output.
func RunStatus(cfg *config.Config, cfgPath string) {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s botchat Status", Logo)))
	fmt.Println()

	fmt.Printf("  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))
	if unknown := unknownFields(cfgPath); len(unknown) > 0 {
		for _, f := range unknown {
			fmt.Printf("  %-12s %s  %s\n", "", ErrStyle.Render("?"), DimStyle.Render("unknown field "+f))
		}
	}

	endpoint, err := chat.Endpoint(cfg.Server.URL, cfg.Server.WSPath)
	if err != nil {
		endpoint = err.Error()
	}
	fmt.Printf("  %-12s %s\n", "Server", cfg.Server.URL)
	fmt.Printf("  %-12s %s\n", "WebSocket", endpoint)

	if dir := cfg.HistoryPath(); dir != "" {
		fmt.Printf("  %-12s %s  %s\n", "History", StatusBadge(fileExists(dir)), DimStyle.Render(dir))
	} else {
		fmt.Printf("  %-12s %s  %s\n", "History", StatusBadge(false), DimStyle.Render("disabled"))
	}
	fmt.Printf("  %-12s %s  %s\n", "Log", StatusBadge(fileExists(cfg.LogPath())), DimStyle.Render(cfg.LogPath()))
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Chat"))
	lock := "none"
	if d := cfg.LockTimeout(); d > 0 {
		lock = d.String()
	}
	fmt.Printf("    %-12s %s\n", "Lock timeout", lock)
	fmt.Printf("    %-12s %s\n", "Scroll", cfg.Chat.ScrollPolicy)
	fmt.Printf("    %-12s %d\n", "Bots", len(cfg.Bots))
	fmt.Println()
}

func unknownFields(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var raw map[string]any
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	return config.CheckUnknownFields(raw)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

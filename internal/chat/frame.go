package chat

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DefaultPath is the conventional websocket path on the chat server.
const DefaultPath = "/ws"

// Request is the outgoing frame: one user message addressed to one bot.
type Request struct {
	Message string `json:"message"`
	Bot     BotID  `json:"bot"`
}

// EncodeRequest builds the JSON payload for a text frame.
func EncodeRequest(text string, bot BotID) ([]byte, error) {
	return json.Marshal(Request{Message: text, Bot: bot})
}

// SplitFrame splits an incoming frame into its logical messages.
// Every segment counts, empty ones included.
func SplitFrame(frame string) []string {
	return strings.Split(frame, "\n")
}

// Endpoint derives the websocket URL from the server base URL:
// http becomes ws, https becomes wss, and path is appended to the base path.
func Endpoint(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", base)
	}
	if path == "" {
		path = DefaultPath
	}
	u = u.JoinPath(path)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

package chat

import (
	"fmt"
	"html"
	"time"
)

// BotID identifies a bot. The core knows nothing else about bots.
type BotID int

// Sender tags who produced a message.
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
	// SenderSystem marks session notices. They are shown but never cached.
	SenderSystem
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderBot:
		return "bot"
	default:
		return "system"
	}
}

func (s Sender) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sender) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*s = SenderUser
	case "bot":
		*s = SenderBot
	case "system":
		*s = SenderSystem
	default:
		return fmt.Errorf("unknown sender %q", b)
	}
	return nil
}

// Message is one entry of a bot conversation.
type Message struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTime renders a message timestamp as h:mm.
func FormatTime(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}

// Escape neutralizes markup-significant characters so the text is rendered
// inert by any display.
func Escape(text string) string {
	return html.EscapeString(text)
}

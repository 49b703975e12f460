// Package picker talks to the chat server's auxiliary endpoints: random
// names and portraits for new bots, bot creation and the bot roster.
package picker

import (
	"fmt"
	"strings"

	"github.com/joebot/botchat/internal/chat"
)

// Sex selects the name and portrait pools. The numeric values are the wire
// values of the sex query parameter.
type Sex int

const (
	Male Sex = iota
	Female
)

func (s Sex) String() string {
	if s == Female {
		return "female"
	}
	return "male"
}

// ParseSex accepts "male"/"female", "m"/"f" and the wire values "0"/"1".
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "0":
		return Male, nil
	case "female", "f", "1":
		return Female, nil
	}
	return Male, fmt.Errorf("invalid sex %q (want male or female)", s)
}

// Name is a candidate bot name.
type Name struct {
	ID   int
	Text string
}

// Image is a candidate bot portrait. URL is relative to the server unless
// the server returned an absolute one.
type Image struct {
	ID  int
	URL string
}

// Bot is one entry of the roster shown next to the chat.
type Bot struct {
	ID    chat.BotID `json:"id"`
	Name  string     `json:"name"`
	Image string     `json:"image,omitempty"`
}

// Label returns the name to show for b.
func (b Bot) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("Bot %d", b.ID)
}

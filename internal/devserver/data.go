package devserver

import (
	"fmt"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/picker"
)

type name struct {
	ID   int
	Text string
	Sex  picker.Sex
}

type image struct {
	ID   int
	Path string
	Sex  picker.Sex
}

func seedNames() []name {
	male := []string{"Adam", "Ben", "Carl", "David", "Elias"}
	female := []string{"Anna", "Clara", "Emma", "Lena", "Mia"}

	var out []name
	for _, n := range male {
		out = append(out, name{ID: len(out) + 1, Text: n, Sex: picker.Male})
	}
	for _, n := range female {
		out = append(out, name{ID: len(out) + 1, Text: n, Sex: picker.Female})
	}
	return out
}

func seedImages() []image {
	var out []image
	for i := 1; i <= 8; i++ {
		sex := picker.Male
		if i > 4 {
			sex = picker.Female
		}
		out = append(out, image{ID: i, Path: fmt.Sprintf("/static/img/%d.svg", i), Sex: sex})
	}
	return out
}

func seedBots() []picker.Bot {
	return []picker.Bot{
		{ID: chat.BotID(1), Name: "Emma", Image: "/static/img/5.svg"},
		{ID: chat.BotID(2), Name: "Ben", Image: "/static/img/1.svg"},
	}
}

package picker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joebot/botchat/internal/chat"
)

// Bots scrapes the roster from the server's index page.
func (c *Client) Bots(ctx context.Context) ([]Bot, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint("/", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET /: HTTP %d", ErrStatus, resp.StatusCode)
	}
	bots, err := ParseRoster(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	for i := range bots {
		if bots[i].Image != "" {
			bots[i].Image = c.Resolve(bots[i].Image)
		}
	}
	return bots, nil
}

// ParseRoster extracts the bots from an index page. Each bot is an element
// with class "bot" and a botID attribute; the name comes from a ".name"
// child or the element text, the portrait from the first img. Elements
// without a numeric id are skipped and duplicate ids keep the first entry.
func ParseRoster(r io.Reader) ([]Bot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	seen := make(map[chat.BotID]bool)
	var bots []Bot
	doc.Find(".bot").Each(func(_ int, s *goquery.Selection) {
		// The HTML parser lowercases attribute names.
		raw, ok := s.Attr("botid")
		if !ok {
			return
		}
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		bid := chat.BotID(id)
		if seen[bid] {
			return
		}
		seen[bid] = true

		name := strings.TrimSpace(s.Find(".name").First().Text())
		if name == "" {
			name = strings.Join(strings.Fields(s.Text()), " ")
		}
		image, _ := s.Find("img[src]").First().Attr("src")

		bots = append(bots, Bot{ID: bid, Name: name, Image: image})
	})
	return bots, nil
}

// MergeRoster combines the server roster with configured fallback bots.
// Server entries win; configured names fill in missing ones. The result is
// sorted by id.
func MergeRoster(server, configured []Bot) []Bot {
	byID := make(map[chat.BotID]Bot, len(server)+len(configured))
	for _, b := range configured {
		byID[b.ID] = b
	}
	for _, b := range server {
		if prev, ok := byID[b.ID]; ok {
			if b.Name == "" {
				b.Name = prev.Name
			}
			if b.Image == "" {
				b.Image = prev.Image
			}
		}
		byID[b.ID] = b
	}

	out := make([]Bot, 0, len(byID))
	for _, b := range byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

package cli

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/config"
	"github.com/joebot/botchat/internal/devserver"
	"github.com/joebot/botchat/internal/picker"
)

func pump(t *testing.T, d *tuiDisplay) displayMsg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- waitForDisplay(d)() }()
	select {
	case msg := <-ch:
		return msg.(displayMsg)
	case <-time.After(2 * time.Second):
		t.Fatal("no display events")
		return nil
	}
}

func newTestChat(t *testing.T, policy string) (chatModel, *chat.Session) {
	t.Helper()
	srv := httptest.NewServer(devserver.New(devserver.Options{}).Handler())
	t.Cleanup(srv.Close)

	endpoint, err := chat.Endpoint(srv.URL, chat.DefaultPath)
	if err != nil {
		t.Fatal(err)
	}
	display := newTUIDisplay()
	session := chat.NewSession(chat.Options{
		Endpoint: endpoint,
		Dialer:   &chat.WebSocketDialer{HandshakeTimeout: time.Second},
		Display:  display,
	})
	t.Cleanup(session.Close)

	cfg := ChatConfig{
		Server:       srv.URL,
		Roster:       []picker.Bot{{ID: 1, Name: "Emma"}, {ID: 2, Name: "Ben"}},
		ScrollPolicy: policy,
	}
	m := newChatModel(context.Background(), session, display, cfg)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return next.(chatModel), session
}

func update(m chatModel, msg tea.Msg) chatModel {
	next, _ := m.Update(msg)
	return next.(chatModel)
}

func TestChatSendAndReply(t *testing.T) {
	m, session := newTestChat(t, config.ScrollAlways)

	m = update(m, m.connect()())
	if m.state != chat.StateOpen {
		t.Fatalf("state = %s", m.state)
	}
	session.SwitchActiveBot(2)
	m = update(m, pump(t, m.display))
	if !m.hasActive || m.active != 2 {
		t.Fatalf("active = %d, %v", m.active, m.hasActive)
	}

	m.input.SetValue("hello")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(m.entries) < 2 || m.locked {
		if time.Now().After(deadline) {
			t.Fatalf("no reply, entries = %+v", m.entries)
		}
		m = update(m, pump(t, m.display))
	}

	if m.entries[0].sender != chat.SenderUser || m.entries[0].content != "hello" {
		t.Errorf("entries[0] = %+v", m.entries[0])
	}
	if m.entries[1].sender != chat.SenderBot || m.entries[1].content != "Ben: hello" {
		t.Errorf("entries[1] = %+v", m.entries[1])
	}
}

func TestChatEnterWhileLockedIsIgnored(t *testing.T) {
	m, _ := newTestChat(t, config.ScrollAlways)
	m.hasActive, m.active = true, 1
	m.locked = true
	m.input.SetValue("queued")

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.input.Value() != "queued" {
		t.Fatalf("locked enter changed the input to %q", m.input.Value())
	}
}

func TestChatTabCyclesRoster(t *testing.T) {
	m, session := newTestChat(t, config.ScrollAlways)
	session.SwitchActiveBot(1)
	m = update(m, pump(t, m.display))

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(m, pump(t, m.display))
	if m.active != 2 {
		t.Fatalf("after tab active = %d, want 2", m.active)
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(m, pump(t, m.display))
	if m.active != 1 {
		t.Fatalf("tab should wrap, active = %d", m.active)
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(m, pump(t, m.display))
	if m.active != 2 {
		t.Fatalf("after shift+tab active = %d, want 2", m.active)
	}
}

func TestChatBotCommand(t *testing.T) {
	m, _ := newTestChat(t, config.ScrollAlways)
	m.input.SetValue("/bot 42")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = update(m, pump(t, m.display))

	if m.active != 42 {
		t.Fatalf("active = %d, want 42", m.active)
	}
	if got := m.activeLabel(); got != "Bot 42" {
		t.Fatalf("activeLabel() = %q", got)
	}
}

func appendEvents(n int) []displayEvent {
	evs := make([]displayEvent, n)
	for i := range evs {
		evs[i] = displayEvent{kind: evAppend, text: fmt.Sprintf("line %d", i), sender: chat.SenderBot, at: time.Now()}
	}
	return evs
}

func TestScrollPolicy(t *testing.T) {
	for _, tt := range []struct {
		policy     string
		wantBottom bool
	}{
		{config.ScrollAlways, true},
		{config.ScrollSticky, false},
	} {
		t.Run(tt.policy, func(t *testing.T) {
			m, _ := newTestChat(t, tt.policy)
			m.apply(appendEvents(40))
			if !m.viewport.AtBottom() {
				t.Fatal("first page should follow the log")
			}

			m.viewport.GotoTop()
			m.apply(appendEvents(1))
			if got := m.viewport.AtBottom(); got != tt.wantBottom {
				t.Fatalf("AtBottom() = %v, want %v", got, tt.wantBottom)
			}
		})
	}
}

func TestApplyClearAndLock(t *testing.T) {
	m, _ := newTestChat(t, config.ScrollAlways)
	m.apply(appendEvents(3))
	m.apply([]displayEvent{
		{kind: evActive, next: 5},
		{kind: evClear},
		{kind: evAppend, text: "&lt;b&gt;hi&lt;/b&gt;", sender: chat.SenderUser},
		{kind: evLock, locked: true},
	})

	if len(m.entries) != 1 || m.entries[0].content != "<b>hi</b>" {
		t.Fatalf("entries = %+v", m.entries)
	}
	if !m.locked || m.active != 5 {
		t.Fatalf("locked = %v, active = %d", m.locked, m.active)
	}
	if m.input.Focused() {
		t.Fatal("input should be blurred while locked")
	}

	m.apply([]displayEvent{{kind: evLock, locked: false}})
	if m.locked || !m.input.Focused() {
		t.Fatal("unlock should refocus the input")
	}
}

func TestParseBotCmd(t *testing.T) {
	tests := []struct {
		in   string
		want chat.BotID
		ok   bool
	}{
		{"/bot 3", 3, true},
		{"/bot  12 ", 12, true},
		{"/bot x", 0, false},
		{"/bot -1", 0, false},
		{"/bots", 0, false},
		{"hello", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseBotCmd(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseBotCmd(%q) = %d, %v", tt.in, got, ok)
		}
	}
}

func TestInitialBot(t *testing.T) {
	roster := []picker.Bot{{ID: 4}, {ID: 9}}
	if id, ok := initialBot(9, roster); !ok || id != 9 {
		t.Errorf("requested bot = %d, %v", id, ok)
	}
	if id, ok := initialBot(0, roster); !ok || id != 4 {
		t.Errorf("default bot = %d, %v", id, ok)
	}
	if _, ok := initialBot(0, nil); ok {
		t.Error("empty roster should have no initial bot")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Alexandria", 5); got != "Alex…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Ann", 5); got != "Ann" {
		t.Errorf("truncate = %q", got)
	}
}

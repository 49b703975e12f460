package cli

import (
	"html"
	"strings"
	"sync"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/joebot/botchat/internal/chat"
)

type displayKind int

const (
	evAppend displayKind = iota
	evClear
	evActive
	evLock
)

type displayEvent struct {
	kind    displayKind
	text    string
	sender  chat.Sender
	at      time.Time
	prev    chat.BotID
	hadPrev bool
	next    chat.BotID
	locked  bool
}

// displayMsg carries every event queued since the last delivery, in order.
type displayMsg []displayEvent

// tuiDisplay implements chat.Display for bubbletea. The session calls it
// while holding its own lock, so calls only queue events; the program picks
// them up through waitForDisplay.
type tuiDisplay struct {
	mu     sync.Mutex
	events []displayEvent
	notify chan struct{}
	now    func() time.Time
}

func newTUIDisplay() *tuiDisplay {
	return &tuiDisplay{notify: make(chan struct{}, 1), now: time.Now}
}

func (d *tuiDisplay) push(ev displayEvent) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *tuiDisplay) AppendMessage(escaped string, sender chat.Sender) {
	d.push(displayEvent{kind: evAppend, text: escaped, sender: sender, at: d.now()})
}

func (d *tuiDisplay) ClearLog() {
	d.push(displayEvent{kind: evClear})
}

func (d *tuiDisplay) ActiveBotChanged(prev chat.BotID, hadPrev bool, next chat.BotID) {
	d.push(displayEvent{kind: evActive, prev: prev, hadPrev: hadPrev, next: next})
}

func (d *tuiDisplay) LockChanged(locked bool) {
	d.push(displayEvent{kind: evLock, locked: locked})
}

// drain returns and clears the queued events.
func (d *tuiDisplay) drain() []displayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.events
	d.events = nil
	return out
}

// waitForDisplay blocks until events are queued and delivers them as one
// displayMsg. The model re-issues it after every delivery.
func waitForDisplay(d *tuiDisplay) tea.Cmd {
	return func() tea.Msg {
		for {
			if evs := d.drain(); len(evs) > 0 {
				return displayMsg(evs)
			}
			<-d.notify
		}
	}
}

// terminalText turns escaped message text back into plain text and removes
// terminal escape sequences so received text cannot drive the terminal.
func terminalText(escaped string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, ansi.Strip(html.UnescapeString(escaped)))
}

package history

import (
	"testing"
	"time"

	"github.com/joebot/botchat/internal/chat"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func msg(content string, sender chat.Sender) chat.Message {
	return chat.Message{Content: content, Sender: sender, Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestAppendLoadOrderPerBot(t *testing.T) {
	s, _ := openTemp(t)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.Append(1, msg("hi one", chat.SenderUser)))
	must(s.Append(2, msg("hi two", chat.SenderUser)))
	must(s.Append(1, msg("reply one", chat.SenderBot)))
	must(s.Append(2, msg("reply two", chat.SenderBot)))
	must(s.Append(1, msg("again", chat.SenderUser)))

	got, err := s.Load(1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"hi one", "reply one", "again"}
	if len(got) != len(want) {
		t.Fatalf("Load(1) returned %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("Load(1)[%d] = %q, want %q", i, got[i].Content, w)
		}
	}
	if got[1].Sender != chat.SenderBot {
		t.Errorf("sender = %v, want bot", got[1].Sender)
	}
	if !got[0].Timestamp.Equal(msg("", 0).Timestamp) {
		t.Errorf("timestamp = %v", got[0].Timestamp)
	}

	two, err := s.Load(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(two) != 2 || two[0].Content != "hi two" {
		t.Fatalf("Load(2) = %+v", two)
	}
}

func TestNoticesAreNotStored(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Append(1, msg(chat.NoticeClosed, chat.SenderSystem)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("notice was stored: %+v", got)
	}
}

func TestSequenceContinuesAfterReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Append(5, msg("first", chat.SenderUser))
	s.Append(5, msg("second", chat.SenderBot))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.Append(5, msg("third", chat.SenderUser))

	got, err := s.Load(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Content != "first" || got[2].Content != "third" {
		t.Fatalf("Load after reopen = %+v", got)
	}
}

func TestBotsAndDelete(t *testing.T) {
	s, _ := openTemp(t)
	for _, b := range []chat.BotID{3, 1, 2} {
		s.Append(b, msg("x", chat.SenderUser))
		s.Append(b, msg("y", chat.SenderBot))
	}

	bots, err := s.Bots()
	if err != nil {
		t.Fatal(err)
	}
	if len(bots) != 3 || bots[0] != 1 || bots[1] != 2 || bots[2] != 3 {
		t.Fatalf("Bots() = %v, want [1 2 3]", bots)
	}

	if err := s.Delete(2); err != nil {
		t.Fatal(err)
	}
	bots, _ = s.Bots()
	if len(bots) != 2 || bots[0] != 1 || bots[1] != 3 {
		t.Fatalf("Bots() after delete = %v, want [1 3]", bots)
	}
	if got, _ := s.Load(2); len(got) != 0 {
		t.Fatalf("Load(2) after delete = %+v", got)
	}
	s.Append(2, msg("fresh", chat.SenderUser))
	if got, _ := s.Load(2); len(got) != 1 || got[0].Content != "fresh" {
		t.Fatalf("Load(2) after re-append = %+v", got)
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Append(1, msg("late", chat.SenderUser)); err != ErrClosed {
		t.Fatalf("Append after close = %v, want ErrClosed", err)
	}
	if _, err := s.Load(1); err != ErrClosed {
		t.Fatalf("Load after close = %v, want ErrClosed", err)
	}
}

func TestSessionReplaysStoredTranscript(t *testing.T) {
	s, _ := openTemp(t)
	s.Append(4, msg("stored question", chat.SenderUser))
	s.Append(4, msg("stored answer", chat.SenderBot))

	sess := chat.NewSession(chat.Options{Store: s})
	sess.SwitchActiveBot(4)
	got := sess.Transcript(4)
	if len(got) != 2 || got[1].Content != "stored answer" {
		t.Fatalf("session transcript = %+v", got)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, bot := range []chat.BotID{0, 1, 42, -3} {
		k := messageKey(bot, 17)
		gotBot, seq, ok := parseKey(k)
		if !ok || gotBot != bot || seq != 17 {
			t.Errorf("parseKey(messageKey(%d, 17)) = %d, %d, %v", bot, gotBot, seq, ok)
		}
	}
	if _, _, ok := parseKey([]byte("other")); ok {
		t.Error("parseKey accepted a foreign key")
	}
}

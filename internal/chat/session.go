package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Notices appended to the log on terminal and timeout transitions.
const (
	NoticeClosed      = "Connection closed."
	NoticeUnsupported = "Your client does not support WebSockets."
	NoticeNoReply     = "No reply received; sending re-enabled."
)

// State is the connection lifecycle of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateUnsupported
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateUnsupported
}

// Store persists transcripts across runs. It backs the in-memory cache and is
// never treated as the source of truth.
type Store interface {
	Append(bot BotID, msg Message) error
	Load(bot BotID) ([]Message, error)
}

// Options configures a Session.
type Options struct {
	// Endpoint is the websocket URL, see Endpoint.
	Endpoint string
	// Dialer opens the connection. A nil Dialer means the transport is
	// unavailable and Connect ends in StateUnsupported.
	Dialer  Dialer
	Display Display
	Store   Store
	// LockTimeout releases the send lock when no reply arrives in time.
	// Zero waits forever.
	LockTimeout time.Duration
}

// Session owns one websocket connection, the send lock and the active bot.
type Session struct {
	id          string
	endpoint    string
	dialer      Dialer
	display     Display
	store       Store
	lockTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	state     State
	conn      Conn
	locked    bool
	lockGen   uint64
	lockTimer *time.Timer
	active    BotID
	hasActive bool
	cache     map[BotID][]Message
}

// NewSession creates a disconnected session.
func NewSession(opts Options) *Session {
	display := opts.Display
	if display == nil {
		display = nopDisplay{}
	}
	return &Session{
		id:          uuid.NewString(),
		endpoint:    opts.Endpoint,
		dialer:      opts.Dialer,
		display:     display,
		store:       opts.Store,
		lockTimeout: opts.LockTimeout,
		now:         time.Now,
		cache:       make(map[BotID][]Message),
	}
}

// ID returns the session's log correlation id.
func (s *Session) ID() string { return s.id }

// Connect opens the connection and starts delivering frames. It returns the
// resulting state; failures never escape as errors.
func (s *Session) Connect(ctx context.Context) State {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return st
	}
	if s.dialer == nil {
		s.state = StateUnsupported
		slog.Warn("websocket transport unavailable", "session", s.id)
		s.notice(NoticeUnsupported)
		s.mu.Unlock()
		return StateUnsupported
	}
	s.state = StateConnecting
	s.mu.Unlock()

	slog.Info("connecting", "session", s.id, "endpoint", s.endpoint)
	conn, err := s.dialer.Dial(ctx, s.endpoint)
	if err != nil {
		slog.Warn("connect failed", "session", s.id, "err", err)
		s.OnClose()
		return s.State()
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Closed while dialing.
		s.mu.Unlock()
		conn.Close()
		return s.State()
	}
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()

	slog.Info("connected", "session", s.id)
	go s.readLoop(ctx, conn)
	return StateOpen
}

func (s *Session) readLoop(ctx context.Context, conn Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("read failed", "session", s.id, "err", err)
			}
			s.OnClose()
			return
		}
		s.OnFrame(string(data))
	}
}

// Send writes text to bot. It is a silent no-op, returning false, unless the
// session is open and unlocked, bot is the active bot and the trimmed text is
// not empty.
func (s *Session) Send(text string, bot BotID) bool {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.locked || !s.hasActive || bot != s.active || text == "" {
		return false
	}
	payload, err := EncodeRequest(text, bot)
	if err != nil {
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		slog.Warn("write failed", "session", s.id, "err", err)
		s.closeLocked()
		return false
	}
	slog.Debug("sent", "session", s.id, "bot", int(bot), "content", text)

	s.append(bot, Message{Content: text, Sender: SenderUser, Timestamp: s.now()})
	s.setLocked(true)
	return true
}

// OnFrame handles one incoming transport frame. Each newline-separated
// segment is shown as a bot message, in order. Any frame releases the lock.
func (s *Session) OnFrame(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seg := range SplitFrame(frame) {
		msg := Message{Content: seg, Sender: SenderBot, Timestamp: s.now()}
		if s.hasActive {
			s.append(s.active, msg)
		} else {
			s.display.AppendMessage(Escape(seg), SenderBot)
		}
	}
	if s.locked {
		s.setLocked(false)
	}
}

// OnClose moves the session to StateClosed. Only the first call has an
// effect.
func (s *Session) OnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Close shuts the connection down from the client side.
func (s *Session) Close() {
	s.OnClose()
}

// SwitchActiveBot makes id the active bot, clears the log and replays the
// cached conversation of id. It returns false when id is already active.
func (s *Session) SwitchActiveBot(id BotID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasActive && s.active == id {
		return false
	}
	prev, hadPrev := s.active, s.hasActive
	s.active, s.hasActive = id, true

	s.display.ActiveBotChanged(prev, hadPrev, id)
	s.display.ClearLog()
	for _, m := range s.transcript(id) {
		s.display.AppendMessage(Escape(m.Content), m.Sender)
	}
	return true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Locked reports whether a reply is awaited.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// ActiveBot returns the active bot, if any.
func (s *Session) ActiveBot() (BotID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.hasActive
}

// Transcript returns a copy of the cached conversation with id.
func (s *Session) Transcript(id BotID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.transcript(id)
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// transcript returns the cached messages of id, consulting the store once.
func (s *Session) transcript(id BotID) []Message {
	if msgs, ok := s.cache[id]; ok {
		return msgs
	}
	var msgs []Message
	if s.store != nil {
		loaded, err := s.store.Load(id)
		if err != nil {
			slog.Warn("load transcript failed", "session", s.id, "bot", int(id), "err", err)
		}
		msgs = loaded
	}
	s.cache[id] = msgs
	return msgs
}

func (s *Session) append(bot BotID, msg Message) {
	s.cache[bot] = append(s.transcript(bot), msg)
	if s.store != nil {
		if err := s.store.Append(bot, msg); err != nil {
			slog.Warn("store message failed", "session", s.id, "bot", int(bot), "err", err)
		}
	}
	s.display.AppendMessage(Escape(msg.Content), msg.Sender)
}

func (s *Session) notice(text string) {
	s.display.AppendMessage(Escape(text), SenderSystem)
}

func (s *Session) setLocked(locked bool) {
	s.locked = locked
	s.lockGen++
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	if locked && s.lockTimeout > 0 {
		gen := s.lockGen
		s.lockTimer = time.AfterFunc(s.lockTimeout, func() { s.lockExpired(gen) })
	}
	s.display.LockChanged(locked)
}

func (s *Session) lockExpired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.locked || s.lockGen != gen || s.state != StateOpen {
		return
	}
	slog.Warn("no reply within lock timeout", "session", s.id, "timeout", s.lockTimeout)
	s.setLocked(false)
	s.notice(NoticeNoReply)
}

func (s *Session) closeLocked() {
	if s.state.Terminal() {
		return
	}
	s.state = StateClosed
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	slog.Info("connection closed", "session", s.id)
	s.notice(NoticeClosed)
}

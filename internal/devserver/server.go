// Package devserver is a stand-in chat server for local runs and tests. It
// speaks the same wire contract as the real server but has no bot logic:
// every message is answered by a canned reply.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/picker"
)

// Replier produces the reply frame for one request. Lines of the reply are
// joined with "\n" and shown as separate messages by the client.
type Replier func(bot picker.Bot, known bool, message string) string

// EchoReplier answers every line of the message with the bot's name in
// front of it.
func EchoReplier(bot picker.Bot, known bool, message string) string {
	if !known {
		return fmt.Sprintf("There is no bot with id %d.", bot.ID)
	}
	lines := strings.Split(message, "\n")
	for i, l := range lines {
		lines[i] = bot.Label() + ": " + l
	}
	return strings.Join(lines, "\n")
}

// Options configures a Server. Zero values pick the defaults.
type Options struct {
	Replier Replier
	// ReplyDelay postpones every reply, to make the send lock visible.
	ReplyDelay time.Duration
	// Bots replaces the seeded roster.
	Bots []picker.Bot
	Rand *rand.Rand
}

// Server holds the in-memory roster and the name and portrait pools.
type Server struct {
	replier  Replier
	delay    time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	rng     *rand.Rand
	names   []name
	images  []image
	bots    []picker.Bot
	nextBot chat.BotID
}

// New creates a server with seeded names, portraits and bots.
func New(opts Options) *Server {
	s := &Server{
		replier: opts.Replier,
		delay:   opts.ReplyDelay,
		rng:     opts.Rand,
		names:   seedNames(),
		images:  seedImages(),
		bots:    opts.Bots,
		nextBot: 1,
	}
	if s.replier == nil {
		s.replier = EchoReplier
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>32))
	}
	if s.bots == nil {
		s.bots = seedBots()
	}
	for _, b := range s.bots {
		if b.ID >= s.nextBot {
			s.nextBot = b.ID + 1
		}
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/getRandomName", s.handleRandomName)
	r.Get("/getRandomImage", s.handleRandomImage)
	r.Get("/getImages", s.handleImages)
	r.Post("/createBot", s.handleCreateBot)
	r.Get("/static/img/{file}", s.handlePortrait)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Bots returns a copy of the roster.
func (s *Server) Bots() []picker.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]picker.Bot(nil), s.bots...)
}

func (s *Server) bot(id chat.BotID) (picker.Bot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bots {
		if b.ID == id {
			return b, true
		}
	}
	return picker.Bot{ID: id}, false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}
		var req chat.Request
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Warn("invalid request frame", "err", err, "preview", string(data))
			continue
		}
		bot, known := s.bot(req.Bot)
		reply := s.replier(bot, known, req.Message)

		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				return
			}
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			slog.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func parseSex(w http.ResponseWriter, r *http.Request) (picker.Sex, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get("sex"))
	if err != nil || (v != int(picker.Male) && v != int(picker.Female)) {
		http.Error(w, "invalid sex", http.StatusBadRequest)
		return 0, false
	}
	return picker.Sex(v), true
}

// The picker endpoints answer 201 like the production server.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) namesFor(sex picker.Sex) []name {
	var out []name
	for _, n := range s.names {
		if n.Sex == sex {
			out = append(out, n)
		}
	}
	return out
}

func (s *Server) imagesFor(sex picker.Sex) []image {
	var out []image
	for _, img := range s.images {
		if img.Sex == sex {
			out = append(out, img)
		}
	}
	return out
}

func (s *Server) handleRandomName(w http.ResponseWriter, r *http.Request) {
	sex, ok := parseSex(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	names := s.namesFor(sex)
	n := names[s.rng.IntN(len(names))]
	s.mu.Unlock()
	writeCreated(w, map[string]any{"Name": n.Text, "ID": n.ID})
}

func (s *Server) handleRandomImage(w http.ResponseWriter, r *http.Request) {
	sex, ok := parseSex(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	images := s.imagesFor(sex)
	img := images[s.rng.IntN(len(images))]
	s.mu.Unlock()
	writeCreated(w, map[string]any{"ImageID": img.ID, "Path": img.Path})
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	sex, ok := parseSex(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	images := s.imagesFor(sex)
	s.mu.Unlock()

	type entry struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	}
	out := make([]entry, 0, len(images))
	for _, img := range images {
		out = append(out, entry{ID: img.ID, URL: img.Path})
	}
	writeCreated(w, map[string]any{"images": out})
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	nameID, err1 := strconv.Atoi(r.PostForm.Get("nameID"))
	imageID, err2 := strconv.Atoi(r.PostForm.Get("imageID"))
	sexVal, err3 := strconv.Atoi(r.PostForm.Get("sex"))
	if err := errors.Join(err1, err2, err3); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var n *name
	for i := range s.names {
		if s.names[i].ID == nameID {
			n = &s.names[i]
		}
	}
	var img *image
	for i := range s.images {
		if s.images[i].ID == imageID {
			img = &s.images[i]
		}
	}
	if n == nil || img == nil || (sexVal != int(picker.Male) && sexVal != int(picker.Female)) {
		s.mu.Unlock()
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	bot := picker.Bot{ID: s.nextBot, Name: n.Text, Image: img.Path}
	s.nextBot++
	s.bots = append(s.bots, bot)
	s.mu.Unlock()

	slog.Info("bot created", "bot", int(bot.ID), "name", bot.Name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

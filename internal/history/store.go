// Package history keeps per-bot transcripts on disk so a restarted client can
// show earlier conversations. It is a cache; the chat server stays the source
// of truth.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/joebot/botchat/internal/chat"
)

// Keys are "t/" + bot (8 bytes BE) + "/" + seq (8 bytes BE), so a prefix scan
// returns one bot's messages in append order.
const (
	keyPrefix = "t/"
	keyLen    = len(keyPrefix) + 8 + 1 + 8
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history store closed")

// Store is a pebble-backed transcript store.
type Store struct {
	mu   sync.Mutex
	db   *pebble.DB
	next map[chat.BotID]uint64
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db, next: make(map[chat.BotID]uint64)}, nil
}

func botPrefix(bot chat.BotID) []byte {
	b := make([]byte, 0, keyLen)
	b = append(b, keyPrefix...)
	b = binary.BigEndian.AppendUint64(b, uint64(bot))
	return append(b, '/')
}

func messageKey(bot chat.BotID, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(botPrefix(bot), seq)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func parseKey(k []byte) (chat.BotID, uint64, bool) {
	if len(k) != keyLen || string(k[:len(keyPrefix)]) != keyPrefix {
		return 0, 0, false
	}
	off := len(keyPrefix)
	bot := chat.BotID(int64(binary.BigEndian.Uint64(k[off : off+8])))
	return bot, binary.BigEndian.Uint64(k[off+9:]), true
}

// nextSeq returns the sequence for the next message of bot, continuing from
// the last stored key. Caller holds s.mu.
func (s *Store) nextSeq(bot chat.BotID) (uint64, error) {
	if seq, ok := s.next[bot]; ok {
		return seq, nil
	}
	prefix := botPrefix(bot)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	var seq uint64
	if it.Last() {
		if _, last, ok := parseKey(it.Key()); ok {
			seq = last + 1
		}
	}
	return seq, nil
}

// Append stores msg at the end of bot's transcript. Notices are skipped.
func (s *Store) Append(bot chat.BotID, msg chat.Message) error {
	if msg.Sender == chat.SenderSystem {
		return nil
	}
	val, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	seq, err := s.nextSeq(bot)
	if err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}
	if err := s.db.Set(messageKey(bot, seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	s.next[bot] = seq + 1
	return nil
}

// Load returns bot's transcript in append order. Undecodable entries are
// skipped.
func (s *Store) Load(bot chat.BotID) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	prefix := botPrefix(bot)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer func() { _ = it.Close() }()

	var out []chat.Message
	for it.First(); it.Valid(); it.Next() {
		var m chat.Message
		if err := json.Unmarshal(it.Value(), &m); err == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// Bots lists the bots that have a stored transcript, in key order.
func (s *Store) Bots() ([]chat.BotID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	lower := []byte(keyPrefix)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upperBound(lower)})
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer func() { _ = it.Close() }()

	var bots []chat.BotID
	for valid := it.First(); valid; {
		bot, _, ok := parseKey(it.Key())
		if !ok {
			valid = it.Next()
			continue
		}
		bots = append(bots, bot)
		next := upperBound(botPrefix(bot))
		if next == nil {
			break
		}
		valid = it.SeekGE(next)
	}
	return bots, nil
}

// Delete drops bot's transcript.
func (s *Store) Delete(bot chat.BotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	prefix := botPrefix(bot)
	if err := s.db.DeleteRange(prefix, upperBound(prefix), pebble.Sync); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	delete(s.next, bot)
	return nil
}

// Close flushes and closes the database. Further calls are no-ops.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

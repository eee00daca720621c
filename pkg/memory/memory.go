// Package memory keeps the recent turns of each conversation so a chat turn
// only ever sees its own history.
package memory

import (
	"strconv"
	"time"

	"FitCoachAI/models"
	"FitCoachAI/pkg/cache"
)

// Store maps a conversation id to its recent messages.
type Store struct {
	turns  *cache.Cache[[]models.Message]
	window int
}

// New returns a Store keeping at most window messages for each of up to
// maxConversations conversations. Idle conversations are dropped after ttl
// and rebuilt from their transcript on next use.
func New(maxConversations int, ttl time.Duration, window int) *Store {
	if window <= 0 {
		window = 20
	}
	janitor := time.Minute
	if ttl <= 0 {
		janitor = 0
	}
	return &Store{
		turns:  cache.New[[]models.Message](maxConversations, ttl, janitor),
		window: window,
	}
}

// History returns the remembered messages of conversation id. On a miss the
// memory is rebuilt from transcript.
func (s *Store) History(id uint, transcript []models.Message) []models.Message {
	if msgs, ok := s.turns.Get(key(id)); ok {
		return clone(msgs)
	}
	msgs := s.trim(transcript)
	s.turns.Set(key(id), msgs)
	return clone(msgs)
}

// Set replaces the memory of conversation id with the tail of msgs, the
// full persisted message sequence.
func (s *Store) Set(id uint, msgs []models.Message) {
	s.turns.Set(key(id), s.trim(msgs))
}

// Forget drops the memory of conversation id.
func (s *Store) Forget(id uint) {
	s.turns.Delete(key(id))
}

// Close stops background expiry.
func (s *Store) Close() {
	s.turns.Close()
}

func (s *Store) trim(msgs []models.Message) []models.Message {
	if len(msgs) > s.window {
		msgs = msgs[len(msgs)-s.window:]
	}
	return clone(msgs)
}

func key(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func clone(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mumsspace/mumsspace-chat/persistence"
	"github.com/mumsspace/mumsspace-chat/types"
)

const (
	// DefaultHistoryLimit is used when a caller passes limit <= 0.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps the history page size.
	MaxHistoryLimit = 200
)

// SnapshotSource resolves a user id to the display snapshot frozen onto
// messages at append time.
type SnapshotSource interface {
	Snapshot(userId int64) types.UserSnapshot
}

// MessageStore keeps the ordered per-room message history. Ids are assigned
// from a single sequence under the store lock, so id order is append order and
// a reader never observes a partially written message. When a persister is
// configured, appends are written through before they become visible; a
// persister failure aborts the append without consuming an id.
type MessageStore struct {
	mu sync.RWMutex

	persister persistence.Persister // may be nil
	users     SnapshotSource

	byRoom map[int64][]*types.MessageWithUser
	nextId int64
}

// New creates a MessageStore, hydrating history from the persister if one is
// given.
func New(persister persistence.Persister, users SnapshotSource) (*MessageStore, error) {
	s := &MessageStore{
		persister: persister,
		users:     users,
		byRoom:    make(map[int64][]*types.MessageWithUser),
	}
	if persister == nil {
		return s, nil
	}
	messages, err := persister.GetMessages()
	if err != nil {
		return nil, fmt.Errorf("%w: could not load messages: %s", types.ErrUpstream, err)
	}
	for _, message := range messages {
		s.byRoom[message.RoomId] = append(s.byRoom[message.RoomId], message)
		if message.Id > s.nextId {
			s.nextId = message.Id
		}
	}
	return s, nil
}

// Append validates content, assigns the next message id and the server
// timestamp, freezes the sender's display snapshot and stores the message.
// Validation failures happen before any mutation and do not consume an id.
func (s *MessageStore) Append(roomId, userId int64, content string) (*types.MessageWithUser, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", types.ErrInvalidContent)
	}
	if len(content) > types.MaxMessageSize {
		return nil, fmt.Errorf("%w: message exceeds %d bytes", types.ErrInvalidContent, types.MaxMessageSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	message := &types.MessageWithUser{
		Message: types.Message{
			Id:        s.nextId + 1,
			RoomId:    roomId,
			UserId:    userId,
			Content:   content,
			CreatedAt: time.Now(),
		},
		User: s.users.Snapshot(userId),
	}
	if s.persister != nil {
		if err := s.persister.StoreMessage(*message); err != nil {
			return nil, fmt.Errorf("%w: could not store message: %s", types.ErrUpstream, err)
		}
	}
	s.nextId = message.Id
	s.byRoom[roomId] = append(s.byRoom[roomId], message)
	out := *message
	return &out, nil
}

// History returns up to limit most recent messages of the room in
// chronological (oldest-first) order. limit <= 0 selects the default.
func (s *MessageStore) History(roomId int64, limit int) []*types.MessageWithUser {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := s.byRoom[roomId]
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	history := make([]*types.MessageWithUser, len(messages))
	for i, message := range messages {
		out := *message
		history[i] = &out
	}
	return history
}

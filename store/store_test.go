package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/stretchr/testify/assert"
)

// fakeSnapshots is a mutable snapshot source, so tests can change a user's
// attributes between appends.
type fakeSnapshots struct {
	byId map[int64]types.UserSnapshot
}

func (f *fakeSnapshots) Snapshot(userId int64) types.UserSnapshot {
	if snapshot, ok := f.byId[userId]; ok {
		return snapshot
	}
	return types.UnknownUserSnapshot
}

func newTestStore(t *testing.T) (*MessageStore, *fakeSnapshots) {
	users := &fakeSnapshots{byId: map[int64]types.UserSnapshot{
		7: {Username: "Emma L.", AgeGroup: "0-1", Initials: "EL", AvatarColor: "purple"},
	}}
	s, err := New(nil, users)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	return s, users
}

func TestAppendAssignsSequentialIds(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Append(1, 7, "hello")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first.Id)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.Append(2, 7, "different room")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), second.Id)

	// ids are global, history is per room
	assert.Len(t, s.History(1, 0), 1)
	assert.Len(t, s.History(2, 0), 1)
	assert.Len(t, s.History(3, 0), 0)
}

func TestAppendValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Append(1, 7, "   ")
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	_, err = s.Append(1, 7, strings.Repeat("x", types.MaxMessageSize+1))
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	// rejected appends must not consume an id
	message, err := s.Append(1, 7, "first real message")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), message.Id)

	// content is trimmed before the length check
	message, err = s.Append(1, 7, "  trimmed  ")
	assert.NoError(t, err)
	assert.Equal(t, "trimmed", message.Content)
}

func TestSnapshotFrozenAtAppendTime(t *testing.T) {
	s, users := newTestStore(t)

	before, err := s.Append(1, 7, "before the update")
	assert.NoError(t, err)
	assert.Equal(t, "purple", before.User.AvatarColor)

	users.byId[7] = types.UserSnapshot{Username: "Emma L.", AgeGroup: "2-5", Initials: "EL", AvatarColor: "green"}

	after, err := s.Append(1, 7, "after the update")
	assert.NoError(t, err)
	assert.Equal(t, "green", after.User.AvatarColor)

	history := s.History(1, 0)
	assert.Equal(t, "purple", history[0].User.AvatarColor)
	assert.Equal(t, "green", history[1].User.AvatarColor)
}

func TestAppendUnknownUser(t *testing.T) {
	s, _ := newTestStore(t)
	message, err := s.Append(1, 999, "who am i")
	assert.NoError(t, err)
	assert.Equal(t, types.UnknownUserSnapshot, message.User)
}

func TestHistoryLimits(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		if _, err := s.Append(1, 7, "message"); err != nil {
			t.Fatalf("error: %s", err)
		}
	}

	// limit <= 0 selects the default, most recent messages win
	history := s.History(1, 0)
	assert.Len(t, history, DefaultHistoryLimit)
	assert.Equal(t, int64(11), history[0].Id)
	assert.Equal(t, int64(DefaultHistoryLimit+10), history[len(history)-1].Id)

	assert.Len(t, s.History(1, 5), 5)
	assert.Len(t, s.History(1, MaxHistoryLimit+1000), DefaultHistoryLimit+10)

	// oldest first
	history = s.History(1, 3)
	assert.True(t, history[0].Id < history[1].Id)
	assert.True(t, history[1].Id < history[2].Id)
}

func TestHistoryReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Append(1, 7, "original")
	assert.NoError(t, err)

	history := s.History(1, 0)
	history[0].Content = "mutated"

	assert.Equal(t, "original", s.History(1, 0)[0].Content)
}

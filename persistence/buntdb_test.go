package persistence

import (
	"testing"
	"time"

	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/stretchr/testify/assert"
)

func newMemoryPersister(t *testing.T) Persister {
	cfg := &config.Config{}
	cfg.PersistenceConfig.Type = "buntdb"
	cfg.PersistenceConfig.DSN = ":memory:"
	persister, err := NewPersister(cfg)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	t.Cleanup(func() { _ = persister.Close() })
	return persister
}

func TestBuntDBRoundTrip(t *testing.T) {
	persister := newMemoryPersister(t)

	user := types.User{Id: 1, Username: "Emma L.", AgeGroup: "0-1", Initials: "EL", AvatarColor: "purple", CreatedAt: time.Now()}
	assert.NoError(t, persister.StoreUser(user))
	users, err := persister.GetUsers()
	assert.NoError(t, err)
	if assert.Len(t, users, 1) {
		assert.Equal(t, "Emma L.", users[0].Username)
	}

	room := types.Room{Id: 1, Name: "0-1 Years", AgeGroup: "0-1", CreatedAt: time.Now()}
	assert.NoError(t, persister.StoreRoom(room))
	rooms, err := persister.GetRooms()
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)

	membership := types.Membership{Id: 1, UserId: 1, RoomId: 1, JoinedAt: time.Now()}
	assert.NoError(t, persister.StoreMembership(membership))
	memberships, err := persister.GetMemberships()
	assert.NoError(t, err)
	assert.Len(t, memberships, 1)

	assert.NoError(t, persister.DeleteMembership(1, 1))
	memberships, err = persister.GetMemberships()
	assert.NoError(t, err)
	assert.Empty(t, memberships)

	// deleting a missing membership is not an error
	assert.NoError(t, persister.DeleteMembership(1, 1))

	report := types.Report{Id: 1, ReporterId: 1, ReportedUsername: "Spammy Sam", Reason: types.ReportReasonSpam, CreatedAt: time.Now()}
	assert.NoError(t, persister.StoreReport(report))
	reports, err := persister.GetReports()
	assert.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestBuntDBMessageOrder(t *testing.T) {
	persister := newMemoryPersister(t)

	// store out of id order, read back in id order
	for _, id := range []int64{3, 1, 100, 2} {
		message := types.MessageWithUser{
			Message: types.Message{Id: id, RoomId: 1, UserId: 1, Content: "hello", CreatedAt: time.Now()},
			User:    types.UserSnapshot{Username: "Emma L.", AgeGroup: "0-1", Initials: "EL", AvatarColor: "purple"},
		}
		assert.NoError(t, persister.StoreMessage(message))
	}
	messages, err := persister.GetMessages()
	assert.NoError(t, err)
	if assert.Len(t, messages, 4) {
		assert.Equal(t, int64(1), messages[0].Id)
		assert.Equal(t, int64(2), messages[1].Id)
		assert.Equal(t, int64(3), messages[2].Id)
		assert.Equal(t, int64(100), messages[3].Id)
		assert.Equal(t, "Emma L.", messages[0].User.Username)
	}
}

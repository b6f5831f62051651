package registry

import (
	"errors"
	"testing"

	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/stretchr/testify/assert"
)

func newTestRegistry(t *testing.T) *Registry {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	if err := r.SeedDefaultRooms(); err != nil {
		t.Fatalf("error: %s", err)
	}
	return r
}

func TestSeedDefaultRooms(t *testing.T) {
	r := newTestRegistry(t)
	rooms := r.ListRooms()
	assert.Len(t, rooms, 3)
	assert.Equal(t, "Mums-to-Be", rooms[0].Name)
	assert.Equal(t, "0-1 Years", rooms[1].Name)
	assert.Equal(t, "2-5 Years", rooms[2].Name)

	// seeding again must not duplicate rooms
	err := r.SeedDefaultRooms()
	assert.NoError(t, err)
	assert.Len(t, r.ListRooms(), 3)
}

func TestCreateGroup(t *testing.T) {
	r := newTestRegistry(t)
	user, err := r.CreateUser("Sarah M.", "0-1", "SM", "pink")
	if err != nil {
		t.Fatalf("error: %s", err)
	}

	group, err := r.CreateGroup("NICU mums", "Support for NICU parents", user.Id)
	assert.NoError(t, err)
	assert.True(t, group.IsPrivateGroup)
	assert.Equal(t, types.AgeGroupPrivate, group.AgeGroup)
	assert.Equal(t, user.Id, *group.CreatedBy)

	// the creator is enrolled automatically
	member, err := r.IsMember(user.Id, group.Id)
	assert.NoError(t, err)
	assert.True(t, member)

	// private groups do not show up in the public listing
	for _, room := range r.ListRooms() {
		assert.NotEqual(t, group.Id, room.Id)
	}

	// but in the per-user listing
	rooms := r.ListRoomsFor(user.Id)
	assert.Len(t, rooms, 4)
	assert.Equal(t, group.Id, rooms[3].Id)

	_, err = r.CreateGroup("orphan group", "", 999)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestIsMember(t *testing.T) {
	r := newTestRegistry(t)
	owner, _ := r.CreateUser("Emma L.", "0-1", "EL", "purple")
	other, _ := r.CreateUser("Jessica K.", "2-5", "JK", "green")
	group, _ := r.CreateGroup("Twins club", "", owner.Id)

	// everyone is a member of every public room
	member, err := r.IsMember(other.Id, r.ListRooms()[0].Id)
	assert.NoError(t, err)
	assert.True(t, member)

	member, err = r.IsMember(other.Id, group.Id)
	assert.NoError(t, err)
	assert.False(t, member)

	_, err = r.IsMember(owner.Id, 999)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestAddRemoveMember(t *testing.T) {
	r := newTestRegistry(t)
	owner, _ := r.CreateUser("Emma L.", "0-1", "EL", "purple")
	other, _ := r.CreateUser("Jessica K.", "2-5", "JK", "green")
	group, _ := r.CreateGroup("Twins club", "", owner.Id)

	assert.NoError(t, r.AddMember(other.Id, group.Id))
	member, _ := r.IsMember(other.Id, group.Id)
	assert.True(t, member)

	// idempotent
	assert.NoError(t, r.AddMember(other.Id, group.Id))
	members, err := r.GroupMembers(group.Id)
	assert.NoError(t, err)
	assert.Len(t, members, 2)

	// adding to a public room is a no-op success
	assert.NoError(t, r.AddMember(other.Id, r.ListRooms()[0].Id))

	assert.NoError(t, r.RemoveMember(other.Id, group.Id))
	member, _ = r.IsMember(other.Id, group.Id)
	assert.False(t, member)

	// removing again is a no-op
	assert.NoError(t, r.RemoveMember(other.Id, group.Id))

	assert.True(t, errors.Is(r.AddMember(other.Id, 999), types.ErrNotFound))
	assert.True(t, errors.Is(r.AddMember(999, group.Id), types.ErrNotFound))
}

func TestCreateUser(t *testing.T) {
	r := newTestRegistry(t)
	user, err := r.CreateUser("  Sarah M. ", "mums-to-be", "SM", "")
	assert.NoError(t, err)
	assert.Equal(t, "Sarah M.", user.Username)
	assert.Equal(t, "blue", user.AvatarColor)

	_, err = r.CreateUser("Sarah M.", "0-1", "SM", "pink")
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	_, err = r.CreateUser("   ", "0-1", "", "")
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	byName, err := r.GetUserByUsername("Sarah M.")
	assert.NoError(t, err)
	assert.Equal(t, user.Id, byName.Id)
}

func TestSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	user, _ := r.CreateUser("Emma L.", "0-1", "EL", "purple")

	snapshot := r.Snapshot(user.Id)
	assert.Equal(t, "Emma L.", snapshot.Username)
	assert.Equal(t, "purple", snapshot.AvatarColor)

	// unknown users fall back to the rendered placeholder
	assert.Equal(t, types.UnknownUserSnapshot, r.Snapshot(999))

	_, err := r.UpdateUser(user.Id, "2-5", "EL", "green")
	assert.NoError(t, err)
	snapshot = r.Snapshot(user.Id)
	assert.Equal(t, "2-5", snapshot.AgeGroup)
	assert.Equal(t, "green", snapshot.AvatarColor)

	_, err = r.UpdateUser(999, "2-5", "", "")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestCreateReport(t *testing.T) {
	r := newTestRegistry(t)
	reporter, _ := r.CreateUser("Emma L.", "0-1", "EL", "purple")

	report, err := r.CreateReport(reporter.Id, "Spammy Sam", types.ReportReasonSpam, "keeps posting links")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), report.Id)

	_, err = r.CreateReport(reporter.Id, "Spammy Sam", "because", "")
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	_, err = r.CreateReport(reporter.Id, "  ", types.ReportReasonSpam, "")
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	long := make([]byte, types.MaxReportDescriptionSize+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = r.CreateReport(reporter.Id, "Spammy Sam", types.ReportReasonSpam, string(long))
	assert.True(t, errors.Is(err, types.ErrInvalidContent))

	assert.Len(t, r.ListReports(), 1)
}

package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mumsspace/mumsspace-chat/persistence"
	"github.com/mumsspace/mumsspace-chat/types"
)

// Registry holds the room table, the private-group membership table and the
// user directory. All state lives in memory; when a persister is configured,
// mutations are written through and the tables are hydrated at startup.
//
// Visibility rules: public rooms are visible to everyone, private groups only
// to their members. Membership of a public room is implicit.
type Registry struct {
	mu sync.RWMutex

	persister persistence.Persister // may be nil

	rooms     map[int64]*types.Room
	roomOrder []int64

	users       map[int64]*types.User
	userByName  map[string]*types.User
	memberships map[int64]map[int64]time.Time // roomId -> userId -> joinedAt

	reports []*types.Report

	nextRoomId       int64
	nextUserId       int64
	nextMembershipId int64
	nextReportId     int64
}

// New creates a Registry, hydrating it from the persister if one is given.
func New(persister persistence.Persister) (*Registry, error) {
	r := &Registry{
		persister:   persister,
		rooms:       make(map[int64]*types.Room),
		roomOrder:   make([]int64, 0),
		users:       make(map[int64]*types.User),
		userByName:  make(map[string]*types.User),
		memberships: make(map[int64]map[int64]time.Time),
		reports:     make([]*types.Report, 0),
	}
	if persister == nil {
		return r, nil
	}
	rooms, err := persister.GetRooms()
	if err != nil {
		return nil, fmt.Errorf("%w: could not load rooms: %s", types.ErrUpstream, err)
	}
	for _, room := range rooms {
		r.rooms[room.Id] = room
		r.roomOrder = append(r.roomOrder, room.Id)
		if room.Id > r.nextRoomId {
			r.nextRoomId = room.Id
		}
	}
	users, err := persister.GetUsers()
	if err != nil {
		return nil, fmt.Errorf("%w: could not load users: %s", types.ErrUpstream, err)
	}
	for _, user := range users {
		r.users[user.Id] = user
		r.userByName[user.Username] = user
		if user.Id > r.nextUserId {
			r.nextUserId = user.Id
		}
	}
	memberships, err := persister.GetMemberships()
	if err != nil {
		return nil, fmt.Errorf("%w: could not load memberships: %s", types.ErrUpstream, err)
	}
	for _, m := range memberships {
		if _, ok := r.memberships[m.RoomId]; !ok {
			r.memberships[m.RoomId] = make(map[int64]time.Time)
		}
		r.memberships[m.RoomId][m.UserId] = m.JoinedAt
		if m.Id > r.nextMembershipId {
			r.nextMembershipId = m.Id
		}
	}
	reports, err := persister.GetReports()
	if err != nil {
		return nil, fmt.Errorf("%w: could not load reports: %s", types.ErrUpstream, err)
	}
	for _, report := range reports {
		r.reports = append(r.reports, report)
		if report.Id > r.nextReportId {
			r.nextReportId = report.Id
		}
	}
	return r, nil
}

// defaultRooms are the three public age-group rooms seeded at first start.
var defaultRooms = []types.Room{
	{
		Name:        "Mums-to-Be",
		AgeGroup:    "mums-to-be",
		Description: "Connect with other expectant mothers. Share your pregnancy journey, ask questions, and prepare for motherhood together.",
	},
	{
		Name:        "0-1 Years",
		AgeGroup:    "0-1",
		Description: "Connect with other parents navigating the early months. Share experiences, ask questions, and find support.",
	},
	{
		Name:        "2-5 Years",
		AgeGroup:    "2-5",
		Description: "Discuss toddler challenges, development milestones, and parenting strategies for growing children.",
	},
}

// SeedDefaultRooms creates the public age-group rooms that do not exist yet.
// Idempotent: at most one public room per age group.
func (r *Registry) SeedDefaultRooms() error {
	for _, seed := range defaultRooms {
		r.mu.RLock()
		exists := false
		for _, room := range r.rooms {
			if !room.IsPrivateGroup && room.AgeGroup == seed.AgeGroup {
				exists = true
				break
			}
		}
		r.mu.RUnlock()
		if exists {
			continue
		}
		if _, err := r.CreateRoom(seed.Name, seed.AgeGroup, seed.Description, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateRoom assigns the next room id and stores the room. For private groups
// use CreateGroup, which also enrolls the creator.
func (r *Registry) CreateRoom(name, ageGroup, description string, isPrivateGroup bool, createdBy *int64) (*types.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: room name must not be empty", types.ErrInvalidContent)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	room := &types.Room{
		Id:             r.nextRoomId + 1,
		Name:           name,
		AgeGroup:       ageGroup,
		Description:    description,
		IsPrivateGroup: isPrivateGroup,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	if r.persister != nil {
		if err := r.persister.StoreRoom(*room); err != nil {
			return nil, fmt.Errorf("%w: could not store room: %s", types.ErrUpstream, err)
		}
	}
	r.nextRoomId = room.Id
	r.rooms[room.Id] = room
	r.roomOrder = append(r.roomOrder, room.Id)
	out := *room
	return &out, nil
}

// CreateGroup creates a private room and enrolls the creator as its first
// member.
func (r *Registry) CreateGroup(name, description string, createdBy int64) (*types.Room, error) {
	r.mu.RLock()
	_, ok := r.users[createdBy]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %d", types.ErrNotFound, createdBy)
	}
	room, err := r.CreateRoom(name, types.AgeGroupPrivate, description, true, &createdBy)
	if err != nil {
		return nil, err
	}
	if err := r.AddMember(createdBy, room.Id); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns all public rooms in insertion order.
func (r *Registry) ListRooms() []*types.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*types.Room, 0, len(r.roomOrder))
	for _, id := range r.roomOrder {
		room := r.rooms[id]
		if room.IsPrivateGroup {
			continue
		}
		out := *room
		rooms = append(rooms, &out)
	}
	return rooms
}

// ListRoomsFor returns all public rooms plus the private groups the user is a
// member of, in insertion order.
func (r *Registry) ListRoomsFor(userId int64) []*types.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*types.Room, 0, len(r.roomOrder))
	for _, id := range r.roomOrder {
		room := r.rooms[id]
		if room.IsPrivateGroup {
			if _, ok := r.memberships[room.Id][userId]; !ok {
				continue
			}
		}
		out := *room
		rooms = append(rooms, &out)
	}
	return rooms
}

func (r *Registry) GetRoom(roomId int64) (*types.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomId]
	if !ok {
		return nil, fmt.Errorf("%w: room %d", types.ErrNotFound, roomId)
	}
	out := *room
	return &out, nil
}

// IsMember reports whether the user may read and post in the room. Every user
// is a member of every public room.
func (r *Registry) IsMember(userId, roomId int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomId]
	if !ok {
		return false, fmt.Errorf("%w: room %d", types.ErrNotFound, roomId)
	}
	if !room.IsPrivateGroup {
		return true, nil
	}
	_, ok = r.memberships[roomId][userId]
	return ok, nil
}

// AddMember adds a membership; idempotent. Adding a member to a public room is
// a no-op success, since membership there is implicit.
func (r *Registry) AddMember(userId, roomId int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomId]
	if !ok {
		return fmt.Errorf("%w: room %d", types.ErrNotFound, roomId)
	}
	if _, ok := r.users[userId]; !ok {
		return fmt.Errorf("%w: user %d", types.ErrNotFound, userId)
	}
	if !room.IsPrivateGroup {
		return nil
	}
	if _, ok := r.memberships[roomId][userId]; ok {
		return nil
	}
	membership := types.Membership{
		Id:       r.nextMembershipId + 1,
		UserId:   userId,
		RoomId:   roomId,
		JoinedAt: time.Now(),
	}
	if r.persister != nil {
		if err := r.persister.StoreMembership(membership); err != nil {
			return fmt.Errorf("%w: could not store membership: %s", types.ErrUpstream, err)
		}
	}
	r.nextMembershipId = membership.Id
	if _, ok := r.memberships[roomId]; !ok {
		r.memberships[roomId] = make(map[int64]time.Time)
	}
	r.memberships[roomId][userId] = membership.JoinedAt
	return nil
}

// RemoveMember removes a membership; idempotent.
func (r *Registry) RemoveMember(userId, roomId int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomId]; !ok {
		return fmt.Errorf("%w: room %d", types.ErrNotFound, roomId)
	}
	if _, ok := r.memberships[roomId][userId]; !ok {
		return nil
	}
	if r.persister != nil {
		if err := r.persister.DeleteMembership(userId, roomId); err != nil {
			return fmt.Errorf("%w: could not delete membership: %s", types.ErrUpstream, err)
		}
	}
	delete(r.memberships[roomId], userId)
	return nil
}

// GroupMembers returns the users enrolled in a private room.
func (r *Registry) GroupMembers(roomId int64) ([]*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.rooms[roomId]; !ok {
		return nil, fmt.Errorf("%w: room %d", types.ErrNotFound, roomId)
	}
	members := make([]*types.User, 0)
	for userId := range r.memberships[roomId] {
		if user, ok := r.users[userId]; ok {
			out := *user
			members = append(members, &out)
		}
	}
	return members, nil
}

package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/mumsspace/mumsspace-chat/types"
)

// CreateUser adds a user to the directory. Usernames are unique.
func (r *Registry) CreateUser(username, ageGroup, initials, avatarColor string) (*types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", types.ErrInvalidContent)
	}
	if avatarColor == "" {
		avatarColor = "blue"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.userByName[username]; ok {
		return nil, fmt.Errorf("%w: username %q is taken", types.ErrInvalidContent, username)
	}
	user := &types.User{
		Id:          r.nextUserId + 1,
		Username:    username,
		AgeGroup:    ageGroup,
		Initials:    initials,
		AvatarColor: avatarColor,
		CreatedAt:   time.Now(),
	}
	if r.persister != nil {
		if err := r.persister.StoreUser(*user); err != nil {
			return nil, fmt.Errorf("%w: could not store user: %s", types.ErrUpstream, err)
		}
	}
	r.nextUserId = user.Id
	r.users[user.Id] = user
	r.userByName[user.Username] = user
	out := *user
	return &out, nil
}

// UpdateUser replaces the display attributes of an existing user. Messages
// already sent keep the snapshot taken at append time.
func (r *Registry) UpdateUser(userId int64, ageGroup, initials, avatarColor string) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", types.ErrNotFound, userId)
	}
	updated := *user
	updated.AgeGroup = ageGroup
	updated.Initials = initials
	updated.AvatarColor = avatarColor
	if r.persister != nil {
		if err := r.persister.StoreUser(updated); err != nil {
			return nil, fmt.Errorf("%w: could not store user: %s", types.ErrUpstream, err)
		}
	}
	*user = updated
	out := updated
	return &out, nil
}

func (r *Registry) GetUser(userId int64) (*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userId]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", types.ErrNotFound, userId)
	}
	out := *user
	return &out, nil
}

func (r *Registry) GetUserByUsername(username string) (*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.userByName[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", types.ErrNotFound, username)
	}
	out := *user
	return &out, nil
}

func (r *Registry) ListUsers() []*types.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*types.User, 0, len(r.users))
	for id := int64(1); id <= r.nextUserId; id++ {
		if user, ok := r.users[id]; ok {
			out := *user
			users = append(users, &out)
		}
	}
	return users
}

// Snapshot returns the user's current display snapshot, or the Unknown
// fallback when the id cannot be resolved.
func (r *Registry) Snapshot(userId int64) types.UserSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userId]
	if !ok {
		return types.UnknownUserSnapshot
	}
	return user.Snapshot()
}

package session

import (
	"fmt"
	"sync"

	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/hub"
	"github.com/mumsspace/mumsspace-chat/registry"
	"github.com/mumsspace/mumsspace-chat/store"
	"github.com/mumsspace/mumsspace-chat/types"
)

// Coordinator is the façade over the room registry, the message store and the
// hub. It validates membership before any mutation, keeps the append order and
// the publish order of a room identical, and translates all failures into the
// shared error taxonomy.
type Coordinator struct {
	registry *registry.Registry
	store    *store.MessageStore
	hub      *hub.Hub

	defaultLimit int
	maxLimit     int

	mu        sync.Mutex
	roomLocks map[int64]*sync.Mutex
}

func New(reg *registry.Registry, st *store.MessageStore, h *hub.Hub, defaultLimit, maxLimit int) *Coordinator {
	if defaultLimit <= 0 {
		defaultLimit = store.DefaultHistoryLimit
	}
	if maxLimit <= 0 {
		maxLimit = store.MaxHistoryLimit
	}
	return &Coordinator{
		registry:     reg,
		store:        st,
		hub:          h,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		roomLocks:    make(map[int64]*sync.Mutex),
	}
}

// roomLock serializes append+publish per room, so that subscribers observe
// messages in id order.
func (c *Coordinator) roomLock(roomId int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.roomLocks[roomId]
	if !ok {
		l = &sync.Mutex{}
		c.roomLocks[roomId] = l
	}
	return l
}

// Connect registers a new live connection and returns its id plus the event
// channel for the transport write loop.
func (c *Coordinator) Connect(filterSrc string) (string, <-chan []byte, error) {
	return c.hub.Register(filterSrc)
}

// SwitchRoom verifies membership, atomically moves the connection's
// subscription to roomId and returns the room history for backfill. On a
// Forbidden or NotFound rejection the previous subscription is untouched.
// A message published between the subscription switch and the history fetch
// may appear both in the returned history and as a live event; clients
// deduplicate by message id.
func (c *Coordinator) SwitchRoom(connId string, roomId, userId int64) ([]*types.MessageWithUser, error) {
	member, err := c.registry.IsMember(userId, roomId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: user %d is not a member of room %d", types.ErrForbidden, userId, roomId)
	}
	if err := c.hub.Subscribe(connId, roomId); err != nil {
		return nil, err
	}
	return c.store.History(roomId, c.defaultLimit), nil
}

// SendMessage verifies membership, appends the message and publishes it to the
// room's subscribers. The append is durable once this returns; a delivery
// failure to an individual subscriber never rolls it back. The caller learns
// the server-assigned id and timestamp from the return value.
func (c *Coordinator) SendMessage(roomId, userId int64, content string) (*types.MessageWithUser, error) {
	member, err := c.registry.IsMember(userId, roomId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: user %d is not a member of room %d", types.ErrForbidden, userId, roomId)
	}
	l := c.roomLock(roomId)
	l.Lock()
	defer l.Unlock()
	message, err := c.store.Append(roomId, userId, content)
	if err != nil {
		return nil, err
	}
	if err := c.hub.Publish(roomId, message); err != nil {
		// the message is stored; a publish marshalling failure must not fail
		// the send
		globals.AppLogger.Error("could not publish message", "room", roomId, "message", message.Id, "error", err)
	}
	return message, nil
}

// History returns the room history, enforcing membership also on the read
// path.
func (c *Coordinator) History(roomId, userId int64, limit int) ([]*types.MessageWithUser, error) {
	member, err := c.registry.IsMember(userId, roomId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: user %d is not a member of room %d", types.ErrForbidden, userId, roomId)
	}
	if limit <= 0 {
		limit = c.defaultLimit
	}
	if limit > c.maxLimit {
		limit = c.maxLimit
	}
	return c.store.History(roomId, limit), nil
}

// Subscription returns the connection's current room, ok false if the
// connection is unknown or unsubscribed.
func (c *Coordinator) Subscription(connId string) (int64, bool) {
	return c.hub.Subscription(connId)
}

// SendTo delivers an event to a single connection.
func (c *Coordinator) SendTo(connId string, event string, payload interface{}) error {
	data, err := types.NewWireMessage(event, payload)
	if err != nil {
		return err
	}
	return c.hub.Send(connId, data)
}

// Disconnect unregisters the connection; idempotent.
func (c *Coordinator) Disconnect(connId string) {
	c.hub.Unregister(connId)
}

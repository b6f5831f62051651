package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/antonmedv/expr/vm"
	"github.com/google/uuid"
	"github.com/mumsspace/mumsspace-chat/filter"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/robfig/cron/v3"
)

const (
	sendChannelSize    = 256
	publishChannelSize = 1000
	roomInfoCronSpec   = "@every 1m"
)

// conn is one live transport session. A connection is subscribed to at most
// one room at a time; roomId 0 means unsubscribed.
type conn struct {
	id     string
	roomId int64
	send   chan []byte
	prog   *vm.Program // optional subscription filter
}

type outbound struct {
	roomId int64
	data   []byte
	env    filter.Env
}

// Hub is the connection registry and broadcast dispatcher for all rooms.
// Registration, subscription switches and fanout all go through the one
// RWMutex-guarded connection table; published events pass through a single
// dispatch goroutine, which preserves per-room publish order.
type Hub struct {
	mu sync.RWMutex

	conns   map[string]*conn
	publish chan outbound
	quit    chan struct{}
}

func New() *Hub {
	return &Hub{
		conns:   make(map[string]*conn),
		publish: make(chan outbound, publishChannelSize),
		quit:    make(chan struct{}),
	}
}

// Register creates a new, unsubscribed connection and returns its id together
// with the channel the transport write loop must drain. The channel is closed
// by Unregister. filterSrc may be empty; a non-empty expression is compiled
// against the filter Env and evaluated per delivered event.
func (h *Hub) Register(filterSrc string) (string, <-chan []byte, error) {
	var prog *vm.Program
	if filterSrc != "" {
		var err error
		prog, err = filter.Compile(filterSrc)
		if err != nil {
			return "", nil, fmt.Errorf("%w: could not compile filter: %s", types.ErrInvalidContent, err)
		}
	}
	c := &conn{
		id:   uuid.NewString(),
		send: make(chan []byte, sendChannelSize),
		prog: prog,
	}
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	globals.AppLogger.Debug("registered connection", "conn", c.id)
	return c.id, c.send, nil
}

// Unregister removes the connection and closes its send channel. Idempotent:
// unknown ids are a no-op, since disconnects can race with cleanup. The close
// happens under the write lock, and fanout sends happen under the read lock,
// so a send to the closed channel is not possible.
func (h *Hub) Unregister(connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connId]
	if !ok {
		return
	}
	delete(h.conns, connId)
	close(c.send)
	globals.AppLogger.Debug("unregistered connection", "conn", connId)
}

// Subscribe atomically replaces the connection's current subscription with
// roomId. There is no intermediate state in which the connection is in two
// rooms or in none.
func (h *Hub) Subscribe(connId string, roomId int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connId]
	if !ok {
		return fmt.Errorf("%w: connection %s", types.ErrNotFound, connId)
	}
	c.roomId = roomId
	return nil
}

// Subscription returns the connection's current room, ok false if the
// connection is unknown or unsubscribed.
func (h *Hub) Subscription(connId string) (int64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connId]
	if !ok || c.roomId == 0 {
		return 0, false
	}
	return c.roomId, true
}

// SubscribersOf returns the connections currently subscribed to the room,
// snapshot-consistent at the instant of the call.
func (h *Hub) SubscribersOf(roomId int64) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subscribers := make([]string, 0)
	for _, c := range h.conns {
		if c.roomId == roomId {
			subscribers = append(subscribers, c.id)
		}
	}
	return subscribers
}

// NoConnections returns the number of live connections subscribed to the room.
func (h *Hub) NoConnections(roomId int64) int {
	return len(h.SubscribersOf(roomId))
}

// Send delivers an event to a single connection, bypassing room fanout. Used
// for direct replies (history backfill, errors, AI answers).
func (h *Hub) Send(connId string, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connId]
	if !ok {
		return fmt.Errorf("%w: connection %s", types.ErrNotFound, connId)
	}
	select {
	case c.send <- data:
	default:
		globals.AppLogger.Warn("dropping direct event for slow connection", "conn", connId)
	}
	return nil
}

// Publish delivers the message to every connection subscribed to its room at
// dispatch time. Events enqueued for the same room are fanned out in enqueue
// order.
func (h *Hub) Publish(roomId int64, message *types.MessageWithUser) error {
	data, err := types.NewWireMessage(types.WireEventNewMessage, types.NewMessagePayload{Message: message})
	if err != nil {
		return err
	}
	h.publish <- outbound{
		roomId: roomId,
		data:   data,
		env: filter.Env{
			Event:  types.WireEventNewMessage,
			RoomId: roomId,
			Sender: filter.Sender(message.User),
		},
	}
	return nil
}

// PublishRoomInfo broadcasts the current connection count of the room.
func (h *Hub) PublishRoomInfo(roomId int64) error {
	data, err := types.NewWireMessage(types.WireEventRoomInfo, types.RoomInfoPayload{
		RoomId:        roomId,
		NoConnections: h.NoConnections(roomId),
	})
	if err != nil {
		return err
	}
	h.publish <- outbound{
		roomId: roomId,
		data:   data,
		env:    filter.Env{Event: types.WireEventRoomInfo, RoomId: roomId},
	}
	return nil
}

// Run is the dispatch loop. It also drives the periodic room-info broadcast.
// Run returns after Stop.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := cronRunner.AddFunc(roomInfoCronSpec, h.broadcastRoomInfo)
	if err != nil {
		panic(err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()
	for {
		select {
		case out := <-h.publish:
			h.fanout(out)

		case <-h.quit:
			// drain what was enqueued before the stop
			for {
				select {
				case out := <-h.publish:
					h.fanout(out)
				default:
					return
				}
			}
		}
	}
}

// Stop terminates the dispatch loop.
func (h *Hub) Stop() {
	close(h.quit)
}

// fanout writes the event to every subscriber's send channel. A slow consumer
// whose channel is full loses the event; the failure is logged and isolated to
// that connection.
func (h *Hub) fanout(out outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		if c.roomId != out.roomId {
			continue
		}
		if !filter.Run(c.prog, out.env) {
			continue
		}
		select {
		case c.send <- out.data:
		default:
			globals.AppLogger.Warn("dropping event for slow connection", "conn", c.id, "room", out.roomId)
		}
	}
}

// broadcastRoomInfo pushes room_info for every room that currently has
// subscribers.
func (h *Hub) broadcastRoomInfo() {
	h.mu.RLock()
	roomIds := make(map[int64]struct{})
	for _, c := range h.conns {
		if c.roomId != 0 {
			roomIds[c.roomId] = struct{}{}
		}
	}
	h.mu.RUnlock()
	for roomId := range roomIds {
		if err := h.PublishRoomInfo(roomId); err != nil {
			globals.AppLogger.Error("could not publish room info", "room", roomId, "error", err)
		}
	}
}

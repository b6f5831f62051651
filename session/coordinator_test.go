package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mumsspace/mumsspace-chat/hub"
	"github.com/mumsspace/mumsspace-chat/registry"
	"github.com/mumsspace/mumsspace-chat/store"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/stretchr/testify/assert"
)

type testEnv struct {
	registry    *registry.Registry
	coordinator *Coordinator
	hub         *hub.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	reg, err := registry.New(nil)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	if err := reg.SeedDefaultRooms(); err != nil {
		t.Fatalf("error: %s", err)
	}
	messageStore, err := store.New(nil, reg)
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	liveHub := hub.New()
	go liveHub.Run()
	t.Cleanup(liveHub.Stop)
	return &testEnv{
		registry:    reg,
		coordinator: New(reg, messageStore, liveHub, 0, 0),
		hub:         liveHub,
	}
}

func receive(t *testing.T, recv <-chan []byte) types.WebsocketMessage {
	t.Helper()
	select {
	case data, ok := <-recv:
		if !ok {
			t.Fatal("channel closed")
		}
		message := types.WebsocketMessage{}
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("error: %s", err)
		}
		return message
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return types.WebsocketMessage{}
}

func expectNothing(t *testing.T, recv <-chan []byte) {
	t.Helper()
	select {
	case data := <-recv:
		t.Fatalf("unexpected event: %s", string(data))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendAndReceive(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.registry.CreateUser("Alice", "0-1", "A", "pink")
	bob, _ := env.registry.CreateUser("Bob", "0-1", "B", "blue")

	aliceConn, aliceRecv, err := env.coordinator.Connect("")
	assert.NoError(t, err)
	_, carolRecv, err := env.coordinator.Connect("")
	assert.NoError(t, err)

	// Alice joins room 2, history is still empty
	history, err := env.coordinator.SwitchRoom(aliceConn, 2, alice.Id)
	assert.NoError(t, err)
	assert.Empty(t, history)

	// Bob posts without being connected (REST path)
	message, err := env.coordinator.SendMessage(2, bob.Id, "hello")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), message.Id)
	assert.Equal(t, "Bob", message.User.Username)

	event := receive(t, aliceRecv)
	assert.Equal(t, types.WireEventNewMessage, event.Event)
	payload := types.NewMessagePayload{}
	assert.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, int64(1), payload.Message.Id)
	assert.Equal(t, "hello", payload.Message.Content)

	// the unsubscribed connection sees nothing
	expectNothing(t, carolRecv)

	// a later join backfills the message
	history, err = env.coordinator.SwitchRoom(aliceConn, 2, alice.Id)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].Id)
}

func TestSendMessageOrder(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.registry.CreateUser("Alice", "0-1", "A", "pink")

	connId, recv, _ := env.coordinator.Connect("")
	_, err := env.coordinator.SwitchRoom(connId, 1, alice.Id)
	assert.NoError(t, err)

	const n = 10
	for i := 0; i < n; i++ {
		_, err := env.coordinator.SendMessage(1, alice.Id, "message")
		assert.NoError(t, err)
	}
	var lastId int64
	for i := 0; i < n; i++ {
		event := receive(t, recv)
		payload := types.NewMessagePayload{}
		assert.NoError(t, json.Unmarshal(event.Data, &payload))
		assert.Greater(t, payload.Message.Id, lastId)
		lastId = payload.Message.Id
	}
}

func TestPrivateGroupAccess(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.registry.CreateUser("Owner", "0-1", "O", "pink")
	outsider, _ := env.registry.CreateUser("Outsider", "2-5", "X", "green")
	group, _ := env.registry.CreateGroup("Twins club", "", owner.Id)

	connId, _, _ := env.coordinator.Connect("")
	_, err := env.coordinator.SwitchRoom(connId, 1, outsider.Id)
	assert.NoError(t, err)

	// a rejected switch leaves the previous subscription untouched
	_, err = env.coordinator.SwitchRoom(connId, group.Id, outsider.Id)
	assert.True(t, errors.Is(err, types.ErrForbidden))
	roomId, ok := env.coordinator.Subscription(connId)
	assert.True(t, ok)
	assert.Equal(t, int64(1), roomId)

	_, err = env.coordinator.SendMessage(group.Id, outsider.Id, "let me in")
	assert.True(t, errors.Is(err, types.ErrForbidden))

	_, err = env.coordinator.History(group.Id, outsider.Id, 0)
	assert.True(t, errors.Is(err, types.ErrForbidden))

	// unknown rooms are NotFound, not Forbidden
	_, err = env.coordinator.SwitchRoom(connId, 999, outsider.Id)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	// members are fine
	_, err = env.coordinator.SendMessage(group.Id, owner.Id, "welcome")
	assert.NoError(t, err)
	history, err := env.coordinator.History(group.Id, owner.Id, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSendTo(t *testing.T) {
	env := newTestEnv(t)

	connId, recv, _ := env.coordinator.Connect("")
	err := env.coordinator.SendTo(connId, types.WireEventError, types.ErrorPayload{Code: "not_subscribed", Message: "join a room first"})
	assert.NoError(t, err)

	event := receive(t, recv)
	assert.Equal(t, types.WireEventError, event.Event)
	payload := types.ErrorPayload{}
	assert.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "not_subscribed", payload.Code)

	env.coordinator.Disconnect(connId)
	assert.True(t, errors.Is(env.coordinator.SendTo(connId, types.WireEventError, nil), types.ErrNotFound))
}

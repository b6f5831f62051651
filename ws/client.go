package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/mumsspace/mumsspace-chat/ai"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/session"
	"github.com/mumsspace/mumsspace-chat/types"
)

const (
	pongWait   = 2 * time.Minute
	pingPeriod = time.Minute
	writeWait  = 10 * time.Second

	aiHelpTimeout = 45 * time.Second
)

// Client is a middleman between the websocket connection and the coordinator.
type Client struct {
	conn        *websocket.Conn
	coordinator *session.Coordinator
	aiClient    *ai.Client

	user   *types.User
	connId string

	// event channel owned by the hub, closed on unregister
	recv <-chan []byte

	doneChan chan struct{}
}

func NewClient(conn *websocket.Conn, coordinator *session.Coordinator, aiClient *ai.Client, user *types.User, connId string, recv <-chan []byte, doneChan chan struct{}) *Client {
	return &Client{
		conn:        conn,
		coordinator: coordinator,
		aiClient:    aiClient,
		user:        user,
		connId:      connId,
		recv:        recv,
		doneChan:    doneChan,
	}
}

func (c *Client) sendError(code, message string) {
	err := c.coordinator.SendTo(c.connId, types.WireEventError, types.ErrorPayload{Code: code, Message: message})
	if err != nil {
		globals.AppLogger.Debug("could not send error event", "conn", c.connId, "error", err)
	}
}

// ReadLoop pumps messages from the websocket connection to the coordinator.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
	}()
	c.conn.SetReadLimit(types.MaxMessageSize + 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				globals.AppLogger.Debug("ws closed unexpectedly", "conn", c.connId, "error", err)
			}
			return
		}

		message := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			globals.AppLogger.Debug("could not unmarshal ws message", "conn", c.connId, "error", err)
			c.sendError(types.ErrorCodeInvalidContent, "malformed message")
			continue
		}

		switch message.Event {
		case types.WireEventJoinRoom:
			c.handleJoinRoom(message.Data)

		case types.WireEventChat:
			c.handleChat(message.Data)

		case types.WireEventAIHelp:
			c.handleAIHelp(message.Data)

		default:
			c.sendError(types.ErrorCodeInvalidContent, "unknown event "+message.Event)
		}
	}
}

func (c *Client) decode(data json.RawMessage, out interface{}) bool {
	payloadMap := make(map[string]interface{})
	if err := json.Unmarshal(data, &payloadMap); err != nil {
		c.sendError(types.ErrorCodeInvalidContent, "malformed payload")
		return false
	}
	if err := mapstructure.WeakDecode(payloadMap, out); err != nil {
		c.sendError(types.ErrorCodeInvalidContent, "malformed payload")
		return false
	}
	return true
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	payload := types.JoinRoomPayload{}
	if !c.decode(data, &payload) {
		return
	}
	history, err := c.coordinator.SwitchRoom(c.connId, payload.RoomId, c.user.Id)
	if err != nil {
		c.sendError(types.ErrorCode(err), err.Error())
		return
	}
	err = c.coordinator.SendTo(c.connId, types.WireEventHistory, types.HistoryPayload{
		RoomId:   payload.RoomId,
		Messages: history,
	})
	if err != nil {
		globals.AppLogger.Debug("could not send history", "conn", c.connId, "error", err)
	}
}

func (c *Client) handleChat(data json.RawMessage) {
	payload := types.ChatPayload{}
	if !c.decode(data, &payload) {
		return
	}
	roomId, ok := c.coordinator.Subscription(c.connId)
	if !ok {
		c.sendError("not_subscribed", "join a room before sending messages")
		return
	}
	// the sender receives the stored message via the room broadcast
	if _, err := c.coordinator.SendMessage(roomId, c.user.Id, payload.Content); err != nil {
		c.sendError(types.ErrorCode(err), err.Error())
	}
}

func (c *Client) handleAIHelp(data json.RawMessage) {
	payload := types.AIHelpPayload{}
	if !c.decode(data, &payload) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), aiHelpTimeout)
		defer cancel()
		answer, err := c.aiClient.GetAdvice(ctx, payload.Question)
		if err != nil {
			c.sendError(types.ErrorCode(err), "could not get advice")
			return
		}
		err = c.coordinator.SendTo(c.connId, types.WireEventAIAnswer, types.AIAnswerPayload{
			Question: payload.Question,
			Answer:   answer,
		})
		if err != nil {
			globals.AppLogger.Debug("could not send ai answer", "conn", c.connId, "error", err)
		}
	}()
}

// WriteLoop pumps events from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.recv:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub unregistered us and closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				globals.AppLogger.Debug("could not write to ws connection, exiting write loop", "conn", c.connId)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.doneChan:
			return
		}
	}
}

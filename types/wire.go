package types

import "encoding/json"

// Event names of the websocket envelope. join_room, chat and ai_help travel
// client -> server, the rest server -> client.
const (
	WireEventJoinRoom   = "join_room"
	WireEventChat       = "chat"
	WireEventAIHelp     = "ai_help"
	WireEventNewMessage = "new_message"
	WireEventHistory    = "history"
	WireEventRoomInfo   = "room_info"
	WireEventAIAnswer   = "ai_answer"
	WireEventError      = "error"
)

// WebsocketMessage is the envelope actually sent over the websocket
// connection, in both directions.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewWireMessage marshals payload into a WebsocketMessage envelope.
func NewWireMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: data})
}

type JoinRoomPayload struct {
	RoomId int64 `json:"room_id" mapstructure:"room_id"`
}

type ChatPayload struct {
	Content string `json:"content" mapstructure:"content"`
}

type AIHelpPayload struct {
	Question string `json:"question" mapstructure:"question"`
}

type NewMessagePayload struct {
	Message *MessageWithUser `json:"message"`
}

type HistoryPayload struct {
	RoomId   int64              `json:"room_id"`
	Messages []*MessageWithUser `json:"messages"`
}

type RoomInfoPayload struct {
	RoomId        int64 `json:"room_id"`
	NoConnections int   `json:"no_connections"`
}

type AIAnswerPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

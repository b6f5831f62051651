package types

import "time"

// MaxMessageSize bounds the length of a chat message after trimming.
const MaxMessageSize = 4096

type Message struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	RoomId    int64     `json:"roomId" gorm:"index"`
	UserId    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageWithUser is a message together with the sender's display snapshot
// captured at append time. This is what the store hands out and what goes over
// the wire; the snapshot is persisted alongside the message so it survives
// later profile edits and restarts.
type MessageWithUser struct {
	Message `gorm:"embedded"`
	User    UserSnapshot `json:"user" gorm:"embedded;embeddedPrefix:user_"`
}

func (MessageWithUser) TableName() string {
	return "chat_messages"
}

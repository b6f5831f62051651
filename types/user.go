package types

import "time"

type User struct {
	Id          int64     `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex"`
	AgeGroup    string    `json:"ageGroup"`
	Initials    string    `json:"initials"`
	AvatarColor string    `json:"avatarColor"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserSnapshot is the sender's display identity frozen onto a message at write
// time, so historical messages render as they looked when sent.
type UserSnapshot struct {
	Username    string `json:"username"`
	AgeGroup    string `json:"ageGroup"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatarColor"`
}

// UnknownUserSnapshot is rendered for messages whose sender cannot be resolved.
var UnknownUserSnapshot = UserSnapshot{
	Username:    "Unknown",
	AgeGroup:    "0-1",
	Initials:    "UN",
	AvatarColor: "blue",
}

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		Username:    u.Username,
		AgeGroup:    u.AgeGroup,
		Initials:    u.Initials,
		AvatarColor: u.AvatarColor,
	}
}

package types

import "time"

// AgeGroupPrivate is the sentinel age group tag carried by private groups.
const AgeGroupPrivate = "private-group"

type Room struct {
	Id             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name"`
	AgeGroup       string    `json:"ageGroup"`
	Description    string    `json:"description"`
	IsPrivateGroup bool      `json:"isPrivateGroup"`
	CreatedBy      *int64    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Membership grants a user access to a private room. (UserId, RoomId) is
// unique; public rooms need no membership rows.
type Membership struct {
	Id       int64     `json:"id" gorm:"primaryKey"`
	UserId   int64     `json:"userId" gorm:"uniqueIndex:idx_user_room"`
	RoomId   int64     `json:"roomId" gorm:"uniqueIndex:idx_user_room"`
	JoinedAt time.Time `json:"joinedAt"`
}

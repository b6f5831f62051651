package persistence

import (
	"fmt"

	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/types"
)

// Persister is the durable backing store consumed by the in-memory registry
// and message store. Implementations must be safe for concurrent use. Messages
// are stored together with their frozen sender snapshot so history survives
// profile edits and restarts.
type Persister interface {
	StoreUser(types.User) error
	GetUsers() ([]*types.User, error)
	StoreRoom(types.Room) error
	GetRooms() ([]*types.Room, error)
	StoreMembership(types.Membership) error
	DeleteMembership(userId, roomId int64) error
	GetMemberships() ([]*types.Membership, error)
	StoreMessage(types.MessageWithUser) error
	GetMessages() ([]*types.MessageWithUser, error)
	StoreReport(types.Report) error
	GetReports() ([]*types.Report, error)
	Close() error
}

// NewPersister creates the persister selected in the configuration. A nil
// persister (no error) means memory-only operation.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil

	case "buntdb":
		return NewBuntPersister(cfg)

	case "sqlite", "postgres":
		return NewGormPersister(cfg)
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}

package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/tidwall/buntdb"
)

// key layout: user:<id>, room:<id>, membership:<userId>:<roomId>,
// message:<id zero-padded so keys sort in id order>, report:<id>
const messageKeyFormat = "message:%012d"

type BuntDBPersist struct {
	db *buntdb.DB
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, fmt.Errorf("buntdb persistence requires a dsn (file path or :memory:)")
	}
	db, err := buntdb.Open(cfg.PersistenceConfig.DSN)
	if err != nil {
		return nil, err
	}
	return &BuntDBPersist{db: db}, nil
}

func (p *BuntDBPersist) storeJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(data), nil)
		return err
	})
}

func (p *BuntDBPersist) StoreUser(user types.User) error {
	return p.storeJSON(fmt.Sprintf("user:%d", user.Id), user)
}

func (p *BuntDBPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := &types.User{}
			if err := json.Unmarshal([]byte(val), user); err == nil {
				users = append(users, user)
			}
			return true
		})
	})
	return users, err
}

func (p *BuntDBPersist) StoreRoom(room types.Room) error {
	return p.storeJSON(fmt.Sprintf("room:%d", room.Id), room)
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, val string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(val), room); err == nil {
				rooms = append(rooms, room)
			}
			return true
		})
	})
	return rooms, err
}

func (p *BuntDBPersist) StoreMembership(membership types.Membership) error {
	return p.storeJSON(fmt.Sprintf("membership:%d:%d", membership.UserId, membership.RoomId), membership)
}

func (p *BuntDBPersist) DeleteMembership(userId, roomId int64) error {
	err := p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(fmt.Sprintf("membership:%d:%d", userId, roomId))
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

func (p *BuntDBPersist) GetMemberships() ([]*types.Membership, error) {
	memberships := make([]*types.Membership, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("membership:*", func(key, val string) bool {
			membership := &types.Membership{}
			if err := json.Unmarshal([]byte(val), membership); err == nil {
				memberships = append(memberships, membership)
			}
			return true
		})
	})
	return memberships, err
}

func (p *BuntDBPersist) StoreMessage(message types.MessageWithUser) error {
	return p.storeJSON(fmt.Sprintf(messageKeyFormat, message.Id), message)
}

func (p *BuntDBPersist) GetMessages() ([]*types.MessageWithUser, error) {
	messages := make([]*types.MessageWithUser, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("message:*", func(key, val string) bool {
			message := &types.MessageWithUser{}
			if err := json.Unmarshal([]byte(val), message); err == nil {
				messages = append(messages, message)
			}
			return true
		})
	})
	return messages, err
}

func (p *BuntDBPersist) StoreReport(report types.Report) error {
	return p.storeJSON(fmt.Sprintf("report:%d", report.Id), report)
}

func (p *BuntDBPersist) GetReports() ([]*types.Report, error) {
	reports := make([]*types.Report, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("report:*", func(key, val string) bool {
			report := &types.Report{}
			if err := json.Unmarshal([]byte(val), report); err == nil {
				reports = append(reports, report)
			}
			return true
		})
	})
	return reports, err
}

func (p *BuntDBPersist) Close() error {
	return p.db.Close()
}

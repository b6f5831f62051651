package persistence

import (
	"fmt"

	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, fmt.Errorf("gorm persistence requires a dsn")
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.Migrator().AutoMigrate(&types.User{}, &types.Room{}, &types.Membership{}, &types.MessageWithUser{}, &types.Report{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p *GormPersist) StoreUser(user types.User) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error
}

func (p *GormPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.Order("id").Find(&users).Error
	return users, err
}

func (p *GormPersist) StoreRoom(room types.Room) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&room).Error
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.Order("id").Find(&rooms).Error
	return rooms, err
}

func (p *GormPersist) StoreMembership(membership types.Membership) error {
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error
}

func (p *GormPersist) DeleteMembership(userId, roomId int64) error {
	return p.db.Where("user_id = ? AND room_id = ?", userId, roomId).Delete(&types.Membership{}).Error
}

func (p *GormPersist) GetMemberships() ([]*types.Membership, error) {
	memberships := make([]*types.Membership, 0)
	err := p.db.Order("id").Find(&memberships).Error
	return memberships, err
}

func (p *GormPersist) StoreMessage(message types.MessageWithUser) error {
	return p.db.Create(&message).Error
}

func (p *GormPersist) GetMessages() ([]*types.MessageWithUser, error) {
	messages := make([]*types.MessageWithUser, 0)
	err := p.db.Order("id").Find(&messages).Error
	return messages, err
}

func (p *GormPersist) StoreReport(report types.Report) error {
	return p.db.Create(&report).Error
}

func (p *GormPersist) GetReports() ([]*types.Report, error) {
	reports := make([]*types.Report, 0)
	err := p.db.Order("id").Find(&reports).Error
	return reports, err
}

func (p *GormPersist) Close() error {
	return nil
}

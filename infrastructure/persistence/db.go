package persistence

import (
	"fmt"
	"time"

	"social-publisher/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Dev-only table definitions for the MySQL automigrate path. Production runs
// on PostgreSQL or Azure SQL with the Ensure*Schema helpers; local MySQL gets
// its schema from these.
type connectionTable struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	AccountID         string `gorm:"size:64;uniqueIndex:idx_account_platform"`
	Platform          string `gorm:"size:32;uniqueIndex:idx_account_platform"`
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	Scopes            string
	Oauth1Token       *string
	Oauth1TokenSecret *string
	ExternalID        string `gorm:"size:128"`
	Handle            string `gorm:"size:128"`
	Active            bool
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (connectionTable) TableName() string { return "connections" }

type scheduledPostTable struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	AccountID    string `gorm:"size:64;index:idx_schedule_key"`
	ContentID    string `gorm:"size:128;index:idx_schedule_key"`
	PostIndex    int    `gorm:"index:idx_schedule_key"`
	Platforms    string
	Payload      string `gorm:"type:text"`
	DueAt        time.Time
	Status       string `gorm:"size:16;index"`
	ErrorMessage *string
	JobHandle    *string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (scheduledPostTable) TableName() string { return "scheduled_posts" }

// NewRepositories opens the local MySQL database and migrates the publishing
// tables. Used by the dev profile only.
func NewRepositories() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&connectionTable{}, &scheduledPostTable{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return db, nil
}

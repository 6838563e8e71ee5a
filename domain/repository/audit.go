package repository

import (
	"context"
	"time"
)

// PublishAudit is one append-only record of a publish attempt, interactive
// or scheduled.
type PublishAudit struct {
	AccountID   string    `bson:"account_id" json:"account_id"`
	Platform    string    `bson:"platform" json:"platform"`
	ContentID   string    `bson:"content_id" json:"content_id"`
	PostIndex   int       `bson:"post_index" json:"post_index"`
	Scheduled   bool      `bson:"scheduled" json:"scheduled"`
	Status      string    `bson:"status" json:"status"`
	ExternalIDs []string  `bson:"external_ids,omitempty" json:"external_ids,omitempty"`
	Error       string    `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// IPublishAudit records publish attempts for operator visibility. Optional
// infrastructure: callers tolerate a nil implementation.
type IPublishAudit interface {
	Record(ctx context.Context, audit *PublishAudit) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*PublishAudit, error)
}

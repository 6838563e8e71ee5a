package persistence

import (
	"context"
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	auditDatabase   = "social_publisher"
	auditCollection = "publish_audit"
)

// PublishAuditRepository appends publish attempts to Mongo. The log is
// operator-facing; publishing never blocks on it.
type PublishAuditRepository struct {
	mongoDb *mongo.Client
}

func NewPublishAuditRepository(db *mongo.Client) *PublishAuditRepository {
	return &PublishAuditRepository{mongoDb: db}
}

func (r *PublishAuditRepository) Record(ctx context.Context, audit *repository.PublishAudit) error {
	if r.mongoDb == nil {
		logger.GetLogger().Info("MongoDB client is nil - skipping publish audit record")
		return nil
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	collection := r.mongoDb.Database(auditDatabase).Collection(auditCollection)
	if _, err := collection.InsertOne(ctx, audit); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while recording publish audit")
		return err
	}
	return nil
}

func (r *PublishAuditRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*repository.PublishAudit, error) {
	if r.mongoDb == nil {
		return nil, nil
	}
	collection := r.mongoDb.Database(auditDatabase).Collection(auditCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := collection.Find(ctx, bson.D{{Key: "account_id", Value: accountID}}, opts)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while fetching publish audits")
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var audits []*repository.PublishAudit
	for cursor.Next(ctx) {
		var audit repository.PublishAudit
		if err := cursor.Decode(&audit); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding publish audit")
			continue
		}
		audits = append(audits, &audit)
	}
	return audits, cursor.Err()
}

var _ repository.IPublishAudit = (*PublishAuditRepository)(nil)

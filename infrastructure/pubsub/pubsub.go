package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"

	"social-publisher/infrastructure/logger"
)

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating PubSub client")
		return nil, err
	}
	return client, nil
}

package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"social-publisher/infrastructure/logger"
)

// PostEvent is emitted whenever a post reaches a terminal outcome, so
// downstream consumers (analytics, notifications) can react without polling.
type PostEvent struct {
	AccountID string    `json:"account_id"`
	ContentID string    `json:"content_id"`
	PostIndex int       `json:"post_index"`
	Platform  string    `json:"platform"`
	Status    string    `json:"status"` // posted | failed
	PostIDs   []string  `json:"post_ids,omitempty"`
	Error     string    `json:"error,omitempty"`
	Scheduled bool      `json:"scheduled"`
	EmittedAt time.Time `json:"emitted_at"`
}

type IPostEvents interface {
	PublishEvent(ctx context.Context, event PostEvent) error
}

// PostEvents publishes terminal post outcomes to a Pub/Sub topic. Optional
// infrastructure: a nil client turns every publish into a logged no-op.
type PostEvents struct {
	PubSubClient *pubsub.Client
	TopicName    string
}

func NewPostEvents(pubSubClient *pubsub.Client, topicName string) IPostEvents {
	return &PostEvents{PubSubClient: pubSubClient, TopicName: topicName}
}

func (p *PostEvents) PublishEvent(ctx context.Context, event PostEvent) error {
	if p.PubSubClient == nil {
		logger.GetLogger().Info("PubSub client is nil - skipping post event")
		return nil
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.PubSubClient.Topic(p.TopicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.TopicName).Info("Topic doesn't exist - creating it")
		if _, err := p.PubSubClient.CreateTopic(ctx, p.TopicName); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while publishing post event")
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Info("Post event published")
	return nil
}

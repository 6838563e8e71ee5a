package servicebus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// ScheduledPostQueue backs the scheduler with Service Bus scheduled messages.
// The broker's sequence number is the cancellation handle: cancelling it
// before mutating the row guarantees the old intent can never fire.
type ScheduledPostQueue struct {
	client *azservicebus.Client
	queue  string
}

func NewScheduledPostQueue(client *azservicebus.Client, queue string) *ScheduledPostQueue {
	return &ScheduledPostQueue{client: client, queue: queue}
}

func (q *ScheduledPostQueue) Enqueue(ctx context.Context, scheduledPostID int64, dueAt time.Time) (string, error) {
	sender, err := q.client.NewSender(q.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return "", err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, context.Background())

	message := &azservicebus.Message{
		Body: []byte(strconv.FormatInt(scheduledPostID, 10)),
	}
	sequenceNumbers, err := sender.ScheduleMessages(ctx, []*azservicebus.Message{message}, dueAt.UTC(), nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while scheduling message.")
		return "", err
	}
	if len(sequenceNumbers) != 1 {
		return "", fmt.Errorf("expected one sequence number, got %d", len(sequenceNumbers))
	}
	return strconv.FormatInt(sequenceNumbers[0], 10), nil
}

func (q *ScheduledPostQueue) Cancel(ctx context.Context, handle string) error {
	sequenceNumber, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed job handle %q: %w", handle, err)
	}
	sender, err := q.client.NewSender(q.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.CancelScheduledMessages(ctx, []int64{sequenceNumber}, nil); err != nil {
		// Cancelling an already-delivered or already-cancelled message is not
		// an error for callers; the row status is the source of truth.
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":  err,
			"handle": handle,
		}).Warn("Cancel of scheduled message failed; relying on row status")
		return nil
	}
	return nil
}

// Executor runs a due scheduled post. Implemented by the schedule usecase.
type Executor interface {
	Execute(ctx context.Context, scheduledPostID int64) error
}

// RunConsumer receives due messages and hands them to the executor until the
// context is cancelled. Completion is acknowledged regardless of execution
// outcome: failures are captured on the row, and the sweep retries anything
// a crash left pending.
func (q *ScheduledPostQueue) RunConsumer(ctx context.Context, executor Executor) error {
	receiver, err := q.client.NewReceiverForQueue(q.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making receiver service bus.")
		return err
	}
	defer func(receiver *azservicebus.Receiver, ctx context.Context) {
		if err := receiver.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing receiver.")
		}
	}(receiver, context.Background())

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.GetLogger().WithField("error", err).Error("Error while receiving messages.")
			continue
		}
		for _, message := range messages {
			id, err := strconv.ParseInt(string(message.Body), 10, 64)
			if err != nil {
				logger.GetLogger().WithField("body", string(message.Body)).Warn("Dropping malformed scheduled post message")
			} else if err := executor.Execute(ctx, id); err != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"error":             err,
					"scheduled_post_id": id,
				}).Error("Scheduled post execution failed")
			}
			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				logger.GetLogger().WithField("error", err).Error("Error while completing message.")
			}
		}
	}
}

var _ repository.IJobQueue = (*ScheduledPostQueue)(nil)

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publisher delivers one outbox message and returns the broker message id.
type Publisher interface {
	Publish(ctx context.Context, msg config.PubSubMessage) (string, error)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, msg config.PubSubMessage) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, msg config.PubSubMessage) (string, error) {
	return f(ctx, msg)
}

// PubSubPublisher publishes to the PUBSUB_TOPIC topic.
var PubSubPublisher Publisher = PublisherFunc(config.PublishSettlementEventWithResult)

type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Publisher    Publisher
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration

	now func() time.Time
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Logger:         logger,
		Publisher:      PubSubPublisher,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch, publishes it and records the outcome.
// It returns the number of messages handed to the publisher.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.DB == nil || d.Publisher == nil {
		return 0
	}
	now := d.now()
	batch, err := d.claimBatch(ctx, now)
	if err != nil {
		config.LogError(d.Logger, "workflow", "OutboxDispatcher.DispatchOnce", "claim batch", nil, err)
		return 0
	}

	for _, rec := range batch {
		pubID, pubErr := d.Publisher.Publish(ctx, models.ConvertToPubSubMessage(rec))
		if pubErr != nil {
			d.markPublishFailed(ctx, rec, pubErr)
			continue
		}
		d.update(ctx, "markPublishSent", rec.ID, map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusSent,
			"published_at":       &now,
			"pub_sub_message_id": &pubID,
		})
	}
	return len(batch)
}

// claimBatch locks due rows with SKIP LOCKED so parallel dispatchers never
// share a message. Due means PENDING, FAILED past next_attempt_at, or
// PROCESSING with a lock older than LockTimeout. Rows already at MaxAttempts
// go DEAD here instead of being returned.
func (d *OutboxDispatcher) claimBatch(ctx context.Context, now time.Time) ([]models.OutboxMessage, error) {
	var batch []models.OutboxMessage
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []models.OutboxMessage
		err := tx.
			Where("(publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?)",
				[]string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now,
				models.OutboxPublishStatusProcessing, now.Add(-d.LockTimeout)).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&due).Error
		if err != nil {
			return err
		}

		for _, rec := range due {
			if d.exhausted(rec.PublishAttempts) {
				reason := fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)
				if err := tx.Model(&models.OutboxMessage{}).Where("id = ?", rec.ID).Updates(deadFields(reason)).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&models.OutboxMessage{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          &now,
				"locked_by":          &d.DispatcherID,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
			rec.PublishAttempts++
			batch = append(batch, rec)
		}
		return nil
	})
	return batch, err
}

func (d *OutboxDispatcher) exhausted(attempts int) bool {
	return d.MaxAttempts > 0 && attempts >= d.MaxAttempts
}

func deadFields(reason string) map[string]interface{} {
	return map[string]interface{}{
		"publish_status":     models.OutboxPublishStatusDead,
		"last_publish_error": &reason,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
	}
}

// update releases the row lock along with the given column changes.
func (d *OutboxDispatcher) update(ctx context.Context, funcName string, recordID int, fields map[string]interface{}) {
	fields["locked_at"] = nil
	fields["locked_by"] = nil
	err := d.DB.WithContext(ctx).Model(&models.OutboxMessage{}).Where("id = ?", recordID).Updates(fields).Error
	config.LogError(d.Logger, "workflow", "OutboxDispatcher."+funcName, "update outbox row", recordID, err)
}

// nextBackoff doubles InitialBackoff per previous attempt, capped at 10 minutes.
func (d *OutboxDispatcher) nextBackoff(attempt int) time.Duration {
	const maxBackoff = 10 * time.Minute
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, rec models.OutboxMessage, err error) {
	reason := err.Error()
	fields := logrus.Fields{
		"field":        "OutboxDispatcher",
		"event_type":   rec.EventType,
		"reference_id": rec.ReferenceId,
		"record_id":    rec.ID,
		"attempt":      rec.PublishAttempts,
	}

	if d.exhausted(rec.PublishAttempts) {
		d.update(ctx, "markPublishFailed", rec.ID, deadFields(reason))
		if d.Logger != nil {
			d.Logger.WithFields(fields).Error("outbox publish moved to DEAD after max attempts: " + reason)
		}
		return
	}

	next := d.now().Add(d.nextBackoff(rec.PublishAttempts))
	d.update(ctx, "markPublishFailed", rec.ID, map[string]interface{}{
		"publish_status":     models.OutboxPublishStatusFailed,
		"last_publish_error": &reason,
		"next_attempt_at":    &next,
	})
	if d.Logger != nil {
		fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
		d.Logger.WithFields(fields).Error("outbox publish failed: " + reason)
	}
}

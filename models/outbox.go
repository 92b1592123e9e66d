package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses. Stored as strings.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const (
	OutboxEventOrderSettled = "ORDER_SETTLED"

	OutboxReferenceOrder = "Order"
)

// OutboxMessage is written inside the caller's transaction and published to
// Pub/Sub by the dispatcher only after commit.
type OutboxMessage struct {
	ID               int        `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType        string     `gorm:"size:50;not null;index" json:"event_type"`
	ReferenceType    string     `gorm:"size:50;not null" json:"reference_type"`
	ReferenceId      int        `gorm:"not null;index" json:"reference_id"`
	Payload          []byte     `gorm:"type:blob" json:"payload"`
	OccurredAt       time.Time  `gorm:"not null" json:"occurred_at"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// AppendOutboxMessage writes the event row with tx. It does not publish.
func AppendOutboxMessage(ctx context.Context, tx *gorm.DB, eventType string, refType string, refId int, payload interface{}) (*OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	record := OutboxMessage{
		EventType:     eventType,
		ReferenceType: refType,
		ReferenceId:   refId,
		Payload:       body,
		OccurredAt:    time.Now().UTC(),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: CorrelationIdFromContextOrNew(ctx),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ConvertToPubSubMessage(record OutboxMessage) config.PubSubMessage {
	return config.PubSubMessage{
		ID:            record.ID,
		EventType:     record.EventType,
		ReferenceType: record.ReferenceType,
		ReferenceId:   record.ReferenceId,
		OccurredAt:    record.OccurredAt,
		Payload:       json.RawMessage(record.Payload),
		CorrelationId: record.CorrelationId,
	}
}

func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ReplayOutboxMessage re-queues a FAILED or DEAD message for immediate
// publishing with a fresh attempt budget.
func ReplayOutboxMessage(ctx context.Context, db *gorm.DB, recordId int) (time.Time, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&OutboxMessage{}).
		Where("id = ? AND publish_status IN ?", recordId, []string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusFailed,
			"publish_attempts":   0,
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return now, res.Error
	}
	if res.RowsAffected == 0 {
		return now, utils.ErrorRecordNotFound
	}
	return now, nil
}

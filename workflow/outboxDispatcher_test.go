package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	err       error
	published []config.PubSubMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg config.PubSubMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, msg)
	return "msg-1", nil
}

func appendSettledEvent(t *testing.T, db *gorm.DB, orderId int) *models.OutboxMessage {
	t.Helper()
	rec, err := models.AppendOutboxMessage(context.Background(), db, models.OutboxEventOrderSettled, models.OutboxReferenceOrder, orderId, OrderSettledEvent{OrderId: orderId})
	if err != nil {
		t.Fatalf("AppendOutboxMessage: %v", err)
	}
	return rec
}

func newTestDispatcher(db *gorm.DB, pub Publisher, now time.Time) *OutboxDispatcher {
	d := NewOutboxDispatcher(db, quietLogger())
	d.Publisher = pub
	d.now = func() time.Time { return now }
	return d
}

func reloadOutbox(t *testing.T, db *gorm.DB, id int) models.OutboxMessage {
	t.Helper()
	var rec models.OutboxMessage
	if err := db.First(&rec, id).Error; err != nil {
		t.Fatalf("reload outbox %d: %v", id, err)
	}
	return rec
}

func TestDispatchOncePublishesPending(t *testing.T) {
	db := newSettlementDB(t)
	rec := appendSettledEvent(t, db, 7)
	pub := &recordingPublisher{}
	d := newTestDispatcher(db, pub, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("DispatchOnce=%d want 1", n)
	}
	if len(pub.published) != 1 || pub.published[0].ReferenceId != 7 || pub.published[0].EventType != models.OutboxEventOrderSettled {
		t.Fatalf("published = %+v", pub.published)
	}
	got := reloadOutbox(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusSent || got.PubSubMessageId == nil || *got.PubSubMessageId != "msg-1" {
		t.Fatalf("outbox row = %+v", got)
	}
	if got.LockedBy != nil || got.PublishAttempts != 1 {
		t.Fatalf("outbox row lock/attempts = %+v", got)
	}

	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("second DispatchOnce=%d want 0", n)
	}
}

func TestDispatchOnceBacksOffAfterFailure(t *testing.T) {
	db := newSettlementDB(t)
	rec := appendSettledEvent(t, db, 8)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := newTestDispatcher(db, pub, now)

	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("DispatchOnce=%d want 1", n)
	}
	got := reloadOutbox(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusFailed || got.PublishAttempts != 1 {
		t.Fatalf("outbox row = %+v", got)
	}
	if got.LastPublishError == nil || *got.LastPublishError != "broker down" {
		t.Fatalf("last error = %v", got.LastPublishError)
	}
	if got.NextAttemptAt == nil || !got.NextAttemptAt.Equal(now.Add(5*time.Second)) {
		t.Fatalf("next attempt = %v", got.NextAttemptAt)
	}

	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("retry before backoff elapsed: DispatchOnce=%d", n)
	}

	pub.err = nil
	d.now = func() time.Time { return now.Add(6 * time.Second) }
	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("DispatchOnce after backoff=%d want 1", n)
	}
	got = reloadOutbox(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusSent || got.PublishAttempts != 2 {
		t.Fatalf("outbox row = %+v", got)
	}
}

func TestDispatchOnceMovesToDeadAfterMaxAttempts(t *testing.T) {
	db := newSettlementDB(t)
	rec := appendSettledEvent(t, db, 9)
	pub := &recordingPublisher{err: errors.New("permission denied")}
	d := newTestDispatcher(db, pub, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	d.MaxAttempts = 1

	d.DispatchOnce(context.Background())
	got := reloadOutbox(t, db, rec.ID)
	if got.PublishStatus != models.OutboxPublishStatusDead || got.NextAttemptAt != nil {
		t.Fatalf("outbox row = %+v", got)
	}

	if _, err := models.ReplayOutboxMessage(context.Background(), db, rec.ID); err != nil {
		t.Fatalf("ReplayOutboxMessage: %v", err)
	}
	pub.err = nil
	d.now = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("DispatchOnce after replay=%d want 1", n)
	}
	if got := reloadOutbox(t, db, rec.ID); got.PublishStatus != models.OutboxPublishStatusSent {
		t.Fatalf("outbox row after replay = %+v", got)
	}
}

func TestReplayOutboxMessageIgnoresSentRows(t *testing.T) {
	db := newSettlementDB(t)
	rec := appendSettledEvent(t, db, 10)
	d := newTestDispatcher(db, &recordingPublisher{}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	d.DispatchOnce(context.Background())

	if _, err := models.ReplayOutboxMessage(context.Background(), db, rec.ID); err == nil {
		t.Fatalf("replaying a SENT row should fail")
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	d := &OutboxDispatcher{InitialBackoff: 5 * time.Second}
	cases := map[int]time.Duration{
		1:  5 * time.Second,
		2:  10 * time.Second,
		4:  40 * time.Second,
		30: 10 * time.Minute,
	}
	for attempt, want := range cases {
		if got := d.nextBackoff(attempt); got != want {
			t.Fatalf("nextBackoff(%d)=%s want %s", attempt, got, want)
		}
	}
}

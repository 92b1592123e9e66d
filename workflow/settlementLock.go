package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"gorm.io/gorm"
)

// CompleteOrderWithLock takes a per-order Redis lock before settling.
// The lock only keeps concurrent requests from queueing on the order row;
// when Redis is missing or the lock is held, settlement proceeds and the
// row lock decides.
func CompleteOrderWithLock(ctx context.Context, db *gorm.DB, logger *logrus.Logger, orderId int) (*SettlementResult, error) {
	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, fmt.Sprintf("lock:order-settlement:%d", orderId), config.SettlementLockTTL(), nil)
		if err != nil {
			if logger != nil {
				msg := "could not obtain redis lock; proceeding without redis lock"
				if !errors.Is(err, redislock.ErrNotObtained) {
					msg = "error obtaining redis lock; proceeding without redis lock: " + err.Error()
				}
				logger.WithFields(logrus.Fields{
					"field":    "CompleteOrderWithLock",
					"order_id": orderId,
				}).Warn(msg)
			}
			lock = nil
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && logger != nil {
			logger.WithFields(logrus.Fields{
				"field":    "CompleteOrderWithLock",
				"order_id": orderId,
			}).Warn("failed to release redis lock: " + err.Error())
		}
	}()

	return CompleteOrder(ctx, db, logger, orderId)
}

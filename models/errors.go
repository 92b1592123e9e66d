package models

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyCompleted = errors.New("order already completed")
	ErrSettlementFailed      = errors.New("settlement failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrServiceNotFound       = errors.New("service not found")
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrDuplicateRecord       = errors.New("duplicate record")
)

// SettlementFailedError wraps any unexpected failure raised while an order
// was being settled. Nothing of the settlement was persisted.
type SettlementFailedError struct {
	OrderId int
	Err     error
}

func (e *SettlementFailedError) Error() string {
	return fmt.Sprintf("settlement of order %d failed: %v", e.OrderId, e.Err)
}

func (e *SettlementFailedError) Unwrap() error { return e.Err }

func (e *SettlementFailedError) Is(target error) bool {
	return target == ErrSettlementFailed
}

// IsDuplicateKeyErr matches unique violations from MySQL (1062) and SQLite.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

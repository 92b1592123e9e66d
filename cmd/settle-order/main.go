// settle-order completes one order from the command line, the same way
// POST /internal/orders/:id/complete does.
//
// Usage:
//
//	go run ./cmd/settle-order -order-id 42
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
	"github.com/stitchline/store_backend/workflow"
)

func main() {
	orderID := flag.Int("order-id", 0, "Required: order id")
	useRedis := flag.Bool("redis", true, "take the per-order Redis lock")
	flag.Parse()

	if *orderID <= 0 {
		fmt.Fprintln(os.Stderr, "--order-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if *useRedis {
		config.ConnectRedisWithRetry()
	}
	db := config.GetDB()
	logger := config.GetLogger()

	ctx := utils.SetCorrelationIdInContext(context.Background(), models.CorrelationIdFromContextOrNew(context.Background()))
	result, err := workflow.CompleteOrderWithLock(ctx, db, logger, *orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settle order %d: %v\n", *orderID, err)
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			os.Exit(3)
		case errors.Is(err, models.ErrOrderAlreadyCompleted):
			os.Exit(4)
		default:
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	utils.ErrorPanic(enc.Encode(result))
}

// allocation-reconcile runs the allocation and investor ledger checks once
// and prints any mismatches. Exit status 2 means issues were found.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/workflow"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	cid, issues, err := workflow.RunAllocationReconciliation(context.Background(), db, config.GetLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("correlation_id=%s issues=%d\n", cid, len(issues))
	for _, issue := range issues {
		fmt.Printf("%-20s %-26s #%-6d %s\n", issue.CheckType, issue.EntityType, issue.EntityId, issue.Details)
	}
	if len(issues) > 0 {
		os.Exit(2)
	}
}

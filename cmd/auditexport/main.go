// auditexport dumps the guardrails violation audit trail to a parquet file
// for offline compliance analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/export"
	"github.com/Inovico-app/inovy-sub006/internal/store"
	"go.uber.org/zap"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("GUARDIAN_STORE_DATABASE_URL"), "PostgreSQL connection string")
		output      = flag.String("output", "violations.parquet", "Output parquet file path")
		org         = flag.String("org", "", "Filter by organization ID")
		since       = flag.String("since", "", "Only include violations at or after this RFC3339 timestamp")
		until       = flag.String("until", "", "Only include violations before this RFC3339 timestamp")
		limit       = flag.Int("limit", 0, "Maximum number of rows (0 = no limit)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Exports guardrails violations to parquet.\n\n")
		fmt.Fprintf(os.Stderr, "Example:\n")
		fmt.Fprintf(os.Stderr, "  %s --output audit-2026-08.parquet --since 2026-08-01T00:00:00Z --until 2026-09-01T00:00:00Z\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "error: --database-url or GUARDIAN_STORE_DATABASE_URL is required")
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	filter := store.ViolationFilter{OrganizationID: *org, Limit: *limit}
	if *since != "" {
		filter.Since, err = time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid --since: %v\n", err)
			os.Exit(1)
		}
	}
	if *until != "" {
		filter.Until, err = time.Parse(time.RFC3339, *until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid --until: %v\n", err)
			os.Exit(1)
		}
	}

	db, err := store.New(&store.Config{
		DatabaseURL:  *databaseURL,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to store", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	violations, err := db.ListViolations(ctx, filter)
	if err != nil {
		logger.Fatal("Failed to list violations", zap.Error(err))
	}

	result, err := export.WriteViolations(*output, violations, logger)
	if err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}

	fmt.Printf("Exported %d violations to %s in %s\n", result.Rows, result.Path, result.Duration)
}

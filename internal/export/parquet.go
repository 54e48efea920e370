// Package export writes the violation audit trail to parquet files for
// offline compliance analysis.
package export

import (
	"fmt"
	"os"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// ViolationRow is the parquet layout for one violation record.
type ViolationRow struct {
	ID             string `parquet:"id"`
	OrganizationID string `parquet:"organization_id"`
	ProjectID      string `parquet:"project_id"`
	UserID         string `parquet:"user_id"`
	ViolationType  string `parquet:"violation_type"`
	Direction      string `parquet:"direction"`
	ActionTaken    string `parquet:"action_taken"`
	Severity       string `parquet:"severity"`
	GuardName      string `parquet:"guard_name"`
	Details        string `parquet:"details"`
	CreatedAtUnix  int64  `parquet:"created_at_unix"`
}

// Result summarizes one export run.
type Result struct {
	Rows     int
	Path     string
	Duration time.Duration
}

// WriteViolations writes violations to a parquet file at path, replacing
// any existing file.
func WriteViolations(path string, violations []guardrails.Violation, logger *zap.Logger) (*Result, error) {
	start := time.Now()

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	rows := make([]ViolationRow, len(violations))
	for i, v := range violations {
		rows[i] = ViolationRow{
			ID:             v.ID,
			OrganizationID: v.OrganizationID,
			ProjectID:      v.ProjectID,
			UserID:         v.UserID,
			ViolationType:  v.ViolationType,
			Direction:      string(v.Direction),
			ActionTaken:    string(v.ActionTaken),
			Severity:       string(v.Severity),
			GuardName:      v.GuardName,
			Details:        v.Details,
			CreatedAtUnix:  v.CreatedAt.Unix(),
		}
	}

	writer := parquet.NewGenericWriter[ViolationRow](file)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	result := &Result{
		Rows:     len(rows),
		Path:     path,
		Duration: time.Since(start),
	}

	logger.Info("Violation export completed",
		zap.Int("rows", result.Rows),
		zap.String("path", result.Path),
		zap.Duration("duration", result.Duration))

	return result, nil
}

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/domain"
)

// Store persists one row per planning cycle.
type Store struct {
	db     *DB
	logger *zap.Logger
}

// NewStore wraps db as a cycle-report store.
func NewStore(db *DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.With(zap.String("component", "history_store"))}
}

// RecordCycle inserts report as a new audit row.
func (s *Store) RecordCycle(ctx context.Context, report *domain.CycleReport) error {
	planJSON, err := json.Marshal(report.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	outcomesJSON, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	warningsJSON, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	const query = `
		INSERT INTO cycle_reports (
			id, started_at, finished_at, method, mode, balanciness,
			dry_run, plan, outcomes, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.pool.Exec(ctx, query,
		uuid.New().String(),
		report.StartedAt,
		report.FinishedAt,
		string(report.Policy.Method),
		string(report.Policy.Mode),
		report.Policy.Balanciness,
		report.DryRun,
		planJSON,
		outcomesJSON,
		warningsJSON,
	)
	if err != nil {
		s.logger.Error("failed to record cycle report", zap.Error(err))
		return fmt.Errorf("insert cycle report: %w", err)
	}
	return nil
}

// List returns the most recent cycle reports, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*domain.CycleReport, error) {
	const query = `
		SELECT started_at, finished_at, method, mode, balanciness, dry_run, plan, outcomes, warnings
		FROM cycle_reports
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := s.db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list cycle reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.CycleReport
	for rows.Next() {
		report := &domain.CycleReport{}
		var planJSON, outcomesJSON, warningsJSON []byte
		var method, mode string

		if err := rows.Scan(
			&report.StartedAt, &report.FinishedAt, &method, &mode, &report.Policy.Balanciness,
			&report.DryRun, &planJSON, &outcomesJSON, &warningsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan cycle report: %w", err)
		}
		report.Policy.Method = domain.Method(method)
		report.Policy.Mode = domain.Mode(mode)
		json.Unmarshal(planJSON, &report.Plan)
		json.Unmarshal(outcomesJSON, &report.Outcomes)
		json.Unmarshal(warningsJSON, &report.Warnings)

		reports = append(reports, report)
	}
	return reports, nil
}

// DeleteOlderThan removes cycle reports older than cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM cycle_reports WHERE started_at < $1`
	result, err := s.db.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old cycle reports: %w", err)
	}
	count := result.RowsAffected()
	if count > 0 {
		s.logger.Info("deleted old cycle reports", zap.Int64("count", count))
	}
	return count, nil
}

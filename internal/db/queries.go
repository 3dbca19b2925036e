package db

import (
	"context"
	"fmt"
)

// InsertUsageLog records one AI request for analytics
func (db *DB) InsertUsageLog(ctx context.Context, usage UsageLog) (*UsageLog, error) {
	query := `
		INSERT INTO usage_logs (provider, model, tokens, processing_time, fallback_used, success)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, provider, model, tokens, processing_time, fallback_used, success, created_at
	`

	row := db.QueryRowContext(ctx, query,
		usage.Provider, usage.Model, usage.Tokens, usage.ProcessingTime, usage.FallbackUsed, usage.Success)

	var u UsageLog
	if err := row.Scan(&u.ID, &u.Provider, &u.Model, &u.Tokens, &u.ProcessingTime, &u.FallbackUsed, &u.Success, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert usage log: %w", err)
	}

	return &u, nil
}

// RecordSystemMetric stores one named measurement with JSON metadata
func (db *DB) RecordSystemMetric(ctx context.Context, name string, value float64, metadata []byte) error {
	query := `
		INSERT INTO system_metrics (metric_name, metric_value, metadata)
		VALUES ($1, $2, $3)
	`

	if _, err := db.ExecContext(ctx, query, name, value, metadata); err != nil {
		return fmt.Errorf("failed to record system metric: %w", err)
	}

	return nil
}

// GetUsageStats returns per-provider per-day aggregates over the last N days
func (db *DB) GetUsageStats(ctx context.Context, days int) ([]ProviderDayStat, error) {
	query := `
		SELECT
			provider,
			COUNT(*) AS request_count,
			AVG(processing_time) AS avg_processing_time,
			SUM(tokens) AS total_tokens,
			DATE_TRUNC('day', created_at) AS date
		FROM usage_logs
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY provider, DATE_TRUNC('day', created_at)
		ORDER BY date DESC
	`

	rows, err := db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage stats: %w", err)
	}
	defer rows.Close()

	var stats []ProviderDayStat
	for rows.Next() {
		var s ProviderDayStat
		if err := rows.Scan(&s.Provider, &s.RequestCount, &s.AvgProcessingTime, &s.TotalTokens, &s.Date); err != nil {
			return nil, fmt.Errorf("failed to scan usage stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage stats: %w", err)
	}

	return stats, nil
}

// GetDashboardStats returns the aggregate summary for the dashboard
func (db *DB) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_requests,
			COALESCE(SUM(tokens), 0) AS total_tokens,
			COALESCE(AVG(processing_time), 0) AS avg_processing_time,
			COALESCE(AVG(CASE WHEN fallback_used THEN 1.0 ELSE 0.0 END), 0) AS fallback_rate,
			COALESCE(AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END), 0) AS success_rate
		FROM usage_logs
	`

	row := db.QueryRowContext(ctx, query)

	var s DashboardStats
	if err := row.Scan(&s.TotalRequests, &s.TotalTokens, &s.AvgProcessingTime, &s.FallbackRate, &s.SuccessRate); err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}

	return &s, nil
}

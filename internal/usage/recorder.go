package usage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/drx3/drx-backend/internal/db"
	"github.com/drx3/drx-backend/internal/orchestrator"
)

// Store is the slice of the database layer the recorder needs
type Store interface {
	InsertUsageLog(ctx context.Context, usage db.UsageLog) (*db.UsageLog, error)
	RecordSystemMetric(ctx context.Context, name string, value float64, metadata []byte) error
}

// Recorder persists usage records to Postgres: one usage_logs row plus
// the response_time and tokens_used system metrics.
type Recorder struct {
	store Store
}

// Ensure Recorder satisfies the orchestrator's sink interface
var _ orchestrator.UsageRecorder = (*Recorder)(nil)

// NewRecorder creates a DB-backed usage recorder
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record implements orchestrator.UsageRecorder
func (r *Recorder) Record(ctx context.Context, rec orchestrator.UsageRecord) error {
	_, err := r.store.InsertUsageLog(ctx, db.UsageLog{
		Provider:       rec.Provider,
		Model:          rec.Model,
		Tokens:         rec.Tokens,
		ProcessingTime: rec.ProcessingTime,
		FallbackUsed:   rec.FallbackUsed,
		Success:        rec.Success,
	})
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"provider": rec.Provider,
		"model":    rec.Model,
		"success":  rec.Success,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metric metadata: %w", err)
	}

	if err := r.store.RecordSystemMetric(ctx, "response_time", float64(rec.ProcessingTime), metadata); err != nil {
		return fmt.Errorf("failed to record response_time metric: %w", err)
	}

	if rec.Tokens > 0 {
		if err := r.store.RecordSystemMetric(ctx, "tokens_used", float64(rec.Tokens), metadata); err != nil {
			return fmt.Errorf("failed to record tokens_used metric: %w", err)
		}
	}

	return nil
}

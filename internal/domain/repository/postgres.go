package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ecosort_service/internal/domain/model"
)

// DetectionRecorder persists detection events for later analysis. The
// in-memory LogStore stays authoritative for the running session; a
// recorder is an optional durable sink behind it.
type DetectionRecorder interface {
	SaveDetections(ctx context.Context, sessionID string, detections []model.Detection, decision model.SortingDecision) error
}

type PostgresDetectionRecorder struct {
	db *sqlx.DB
}

func NewPostgresDetectionRecorder(connStr string) *PostgresDetectionRecorder {
	db := sqlx.MustConnect("postgres", connStr)
	return &PostgresDetectionRecorder{db: db}
}

func (r *PostgresDetectionRecorder) SaveDetections(
	ctx context.Context,
	sessionID string,
	detections []model.Detection,
	decision model.SortingDecision,
) error {
	const query = `
		INSERT INTO detection_events (
			session_id, class_id, class_name, category,
			confidence, bbox, signal, decision, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)`

	for _, d := range detections {
		bboxJSON, err := json.Marshal(d.Box)
		if err != nil {
			return fmt.Errorf("failed to marshal bbox: %w", err)
		}

		_, err = r.db.ExecContext(ctx, query,
			sessionID, d.ClassID, d.ClassName, string(d.Category),
			d.Confidence, bboxJSON, string(decision.Signal), decision.Decision,
		)
		if err != nil {
			return fmt.Errorf("failed to insert detection event: %w", err)
		}
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

// SaveAlerts stores alerts, skipping any that already exist for the same
// (campaign, related entity, type). Returns how many were actually inserted,
// so re-evaluating identical inputs is observably idempotent.
func (s *SQLiteStorage) SaveAlerts(ctx context.Context, alerts []model.Alert) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := saveAlertsTx(ctx, tx, alerts)
	if err != nil {
		return 0, err
	}

	return inserted, tx.Commit()
}

func saveAlertsTx(ctx context.Context, q queryable, alerts []model.Alert) (int, error) {
	inserted := 0
	for i := range alerts {
		a := &alerts[i]
		if err := validateAlert(a); err != nil {
			return inserted, err
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now()
		}

		result, err := q.ExecContext(ctx, `
			INSERT INTO alerts (id, campaign_id, severity, type, message, related_entity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(campaign_id, related_entity, type) DO NOTHING
		`, a.ID, a.CampaignID, string(a.Severity), a.Type, a.Message, a.RelatedEntity, a.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("failed to save alert for %q: %w", a.RelatedEntity, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// GetAlerts retrieves all alerts of a campaign, newest first.
func (s *SQLiteStorage) GetAlerts(ctx context.Context, campaignID string) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(campaignID, "campaignID"); err != nil {
		return nil, err
	}
	return getAlertsTx(ctx, s.db, campaignID)
}

func getAlertsTx(ctx context.Context, q queryable, campaignID string) ([]model.Alert, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, campaign_id, severity, type, message, related_entity, created_at, acknowledged_at
		FROM alerts
		WHERE campaign_id = ?
		ORDER BY created_at DESC, related_entity
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a        model.Alert
			severity string
			ackAt    sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.CampaignID, &severity, &a.Type, &a.Message, &a.RelatedEntity, &a.CreatedAt, &ackAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = model.Severity(severity)
		if ackAt.Valid {
			t := ackAt.Time
			a.AcknowledgedAt = &t
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// AcknowledgeAlert records operator acknowledgment. Acknowledging twice is
// a no-op rather than an error.
func (s *SQLiteStorage) AcknowledgeAlert(ctx context.Context, alertID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(alertID, "alertID"); err != nil {
		return err
	}
	return acknowledgeAlertTx(ctx, s.db, alertID)
}

func acknowledgeAlertTx(ctx context.Context, q queryable, alertID string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE alerts
		SET acknowledged_at = COALESCE(acknowledged_at, CURRENT_TIMESTAMP)
		WHERE id = ?
	`, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: alert %s", common.ErrNotFound, alertID)
	}
	return nil
}

package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"evote/internal/errs"
	"evote/internal/infrastructure/persistence/gormdb/model"
	"evote/internal/ports"
)

// AuditRepository records vote attempts in vote_attempts.
type AuditRepository struct {
	db *gorm.DB
}

var _ ports.AuditSink = (*AuditRepository)(nil)

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) RecordAttempt(ctx context.Context, attempt ports.VoteAttempt) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.VoteAttempt{
		VoterID:       strings.TrimSpace(attempt.VoterID),
		EventID:       strings.TrimSpace(attempt.EventID),
		Code:          attempt.Code,
		Detail:        attempt.Detail,
		Confidence:    attempt.Confidence,
		DeviceID:      attempt.DeviceID,
		NetworkOrigin: attempt.NetworkOrigin,
		AttemptedAt:   attempt.AttemptedAt.UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert vote attempt")
	}
	return nil
}

func (r *AuditRepository) ListAttempts(ctx context.Context, voterID string, eventID string) ([]ports.VoteAttempt, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.VoteAttempt
	if err := db.Where("voter_id = ? AND event_id = ?", voterID, eventID).
		Order("attempt_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query vote attempts")
	}

	items := make([]ports.VoteAttempt, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.VoteAttempt{
			VoterID:       row.VoterID,
			EventID:       row.EventID,
			Code:          row.Code,
			Detail:        row.Detail,
			Confidence:    row.Confidence,
			DeviceID:      row.DeviceID,
			NetworkOrigin: row.NetworkOrigin,
			AttemptedAt:   row.AttemptedAt,
		})
	}
	return items, nil
}

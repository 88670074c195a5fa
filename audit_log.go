package accesscontrol

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// logAudit creates an audit log entry. Best effort: audit failures are
// logged but never fail the operation being audited.
func (ac *AccessControl) logAudit(ctx context.Context, actorID uint, action, targetType string, targetID uint, details string) {
	if !ac.auditEnabled {
		return
	}

	entry := &AuditLog{
		CorrelationID: uuid.NewString(),
		ActorID:       actorID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		Details:       details,
		CreatedAt:     time.Now(),
	}
	if err := ac.db.WithContext(ctx).Create(entry).Error; err != nil {
		ac.log.Warnw("failed to write audit log", "action", action, "target_type", targetType, "error", err)
	}
}

// GetAuditLog retrieves an audit log entry by ID.
func (ac *AccessControl) GetAuditLog(ctx context.Context, id uint) (*AuditLog, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	var entry AuditLog
	if err := ac.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// ListAuditLogs retrieves audit entries, optionally filtered by actor or
// target, most recent first.
func (ac *AccessControl) ListAuditLogs(ctx context.Context, actorID, targetID *uint) ([]AuditLog, error) {
	var entries []AuditLog
	query := ac.db.WithContext(ctx).Order("created_at DESC")
	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}
	if targetID != nil {
		query = query.Where("target_id = ?", *targetID)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

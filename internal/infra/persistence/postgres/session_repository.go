// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/domain/repository"
	"sitewatch/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionRepository implements the repository.SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create persists a new active session row.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.AuthSession) error {
	sessionM := fromSessionDomain(session)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateTokenHash
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("missing required session information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create auth session")
	}

	// Update the entity with generated values
	session.CreatedAt = sessionM.CreatedAt

	return nil
}

// FindByID retrieves a session by its unique ID, revoked or not.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AuthSession, error) {
	var sessionM model.AuthSessionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by ID")
	}

	return toSessionDomain(&sessionM), nil
}

// FindActiveByUserID lists the user's active sessions, newest first.
func (repo *sessionRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.AuthSession, error) {
	var sessionModels []*model.AuthSessionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active sessions by user")
	}

	sessions := make([]*entity.AuthSession, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// MarkUsed stamps last_used_at. Best-effort telemetry: a missing row is not
// an error.
func (repo *sessionRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.AuthSessionModel{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error; err != nil {
		return errors.Wrap(err, "failed to mark session used")
	}

	return nil
}

// Revoke terminates a session with a single conditional update so concurrent
// revocations of the same row resolve to exactly one winner. When replacedBy
// is set the update additionally requires replaced_by IS NULL, which is what
// makes refresh-token rotation race-safe.
func (repo *sessionRepository) Revoke(ctx context.Context, id uuid.UUID, reason string, replacedBy *uuid.UUID) error {
	updates := map[string]any{
		"revoked_at":     time.Now(),
		"revoked_reason": reason,
	}

	query := repo.db.WithContext(ctx).
		Model(&model.AuthSessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id)

	if replacedBy != nil {
		updates["replaced_by"] = *replacedBy
		query = query.Where("replaced_by IS NULL")
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke session")
	}

	if result.RowsAffected == 0 {
		// Distinguish a lost race from a session that never existed.
		var count int64
		if err := repo.db.WithContext(ctx).
			Model(&model.AuthSessionModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to check session existence")
		}
		if count == 0 {
			return repository.ErrSessionNotFound
		}

		return repository.ErrSessionAlreadyRevoked
	}

	return nil
}

// RevokeAllForUser revokes every currently-active session for a user.
func (repo *sessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.AuthSessionModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]any{
			"revoked_at":     time.Now(),
			"revoked_reason": reason,
		}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke user sessions")
	}

	return nil
}

// DeleteExpired removes sessions whose expiry is in the past.
func (repo *sessionRepository) DeleteExpired(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.AuthSessionModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete expired sessions")
	}

	return nil
}

// CountActiveForUser returns the number of active sessions for a user.
func (repo *sessionRepository) CountActiveForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Model(&model.AuthSessionModel{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count active sessions")
	}

	return int(count), nil
}

// --- Mapper Functions ---

// toSessionDomain converts a GORM AuthSessionModel to a domain AuthSession entity.
func toSessionDomain(data *model.AuthSessionModel) *entity.AuthSession {
	if data == nil {
		return nil
	}

	return &entity.AuthSession{
		ID:            data.ID,
		UserID:        data.UserID,
		TokenHash:     data.TokenHash,
		CreatedAt:     data.CreatedAt,
		LastUsedAt:    data.LastUsedAt,
		RevokedAt:     data.RevokedAt,
		RevokedReason: data.RevokedReason,
		ReplacedBy:    data.ReplacedBy,
		ExpiresAt:     data.ExpiresAt,
		UserAgent:     data.UserAgent,
		IP:            data.IP,
	}
}

// fromSessionDomain converts a domain AuthSession entity to a GORM AuthSessionModel.
func fromSessionDomain(data *entity.AuthSession) *model.AuthSessionModel {
	if data == nil {
		return nil
	}

	return &model.AuthSessionModel{
		ID:            data.ID,
		UserID:        data.UserID,
		TokenHash:     data.TokenHash,
		CreatedAt:     data.CreatedAt,
		LastUsedAt:    data.LastUsedAt,
		RevokedAt:     data.RevokedAt,
		RevokedReason: data.RevokedReason,
		ReplacedBy:    data.ReplacedBy,
		ExpiresAt:     data.ExpiresAt,
		UserAgent:     data.UserAgent,
		IP:            data.IP,
	}
}

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

// resetTokenRepository implements the repository.ResetTokenRepository interface.
type resetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository is the constructor for resetTokenRepository.
func NewResetTokenRepository(db *gorm.DB) repository.ResetTokenRepository {
	return &resetTokenRepository{
		db: db,
	}
}

// Create inserts a new reset token row.
func (repo *resetTokenRepository) Create(ctx context.Context, token *entity.PasswordResetToken) error {
	tokenM := fromResetTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("missing required token information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create reset token")
	}

	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindByHash retrieves the most recent token row with the given hash.
func (repo *resetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*entity.PasswordResetToken, error) {
	var tokenM model.PasswordResetTokenModel

	if err := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Order("created_at DESC").
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrResetTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find reset token by hash")
	}

	return toResetTokenDomain(&tokenM), nil
}

// MarkUsed stamps used_at on an unused token. The used_at IS NULL guard makes
// concurrent consumers of the same token resolve to one winner.
func (repo *resetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.PasswordResetTokenModel{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now())

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark reset token used")
	}

	if result.RowsAffected == 0 {
		// Distinguish a lost race from a token that never existed.
		var count int64
		if err := repo.db.WithContext(ctx).
			Model(&model.PasswordResetTokenModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to check reset token existence")
		}
		if count == 0 {
			return repository.ErrResetTokenNotFound
		}

		return repository.ErrResetTokenAlreadyUsed
	}

	return nil
}

// InvalidateAllForUser marks every outstanding unused token for the user as
// used, enforcing the single-outstanding-token invariant.
func (repo *resetTokenRepository) InvalidateAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.PasswordResetTokenModel{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", time.Now()).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to invalidate reset tokens")
	}

	return nil
}

// --- Mapper Functions ---

// toResetTokenDomain converts a GORM PasswordResetTokenModel to a domain entity.
func toResetTokenDomain(data *model.PasswordResetTokenModel) *entity.PasswordResetToken {
	if data == nil {
		return nil
	}

	return &entity.PasswordResetToken{
		ID:        data.ID,
		UserID:    data.UserID,
		TokenHash: data.TokenHash,
		ExpiresAt: data.ExpiresAt,
		UsedAt:    data.UsedAt,
		CreatedAt: data.CreatedAt,
	}
}

// fromResetTokenDomain converts a domain entity to a GORM PasswordResetTokenModel.
func fromResetTokenDomain(data *entity.PasswordResetToken) *model.PasswordResetTokenModel {
	if data == nil {
		return nil
	}

	return &model.PasswordResetTokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		TokenHash: data.TokenHash,
		ExpiresAt: data.ExpiresAt,
		UsedAt:    data.UsedAt,
		CreatedAt: data.CreatedAt,
	}
}

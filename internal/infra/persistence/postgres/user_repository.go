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

// userRepository implements the repository.UserRepository interface.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		db: db,
	}
}

// FindByID retrieves a user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by ID")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a user by email, case-insensitively.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel

	if err := repo.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// UpdatePasswordHash replaces the stored credential hash for a user.
func (repo *userRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		if isNotNullConstraintViolation(result.Error) {
			return domainerrors.ErrInternalError.WrapMessage("missing password hash")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update password hash")
	}

	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// SetPendingTwoFactorSecret stores a freshly generated secret awaiting
// confirmation. The active secret and enabled flag are left untouched so an
// abandoned enrollment cannot lock the account out.
func (repo *userRepository) SetPendingTwoFactorSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"two_factor_pending_secret": secret,
			"updated_at":                time.Now(),
		})

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to set pending two-factor secret")
	}

	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// PromoteTwoFactorSecret moves the pending secret into the active slot, sets
// the enabled flag and clears the pending field in one statement. The guard
// on a non-empty pending secret keeps a concurrent double-confirm from
// enabling an empty secret.
func (repo *userRepository) PromoteTwoFactorSecret(ctx context.Context, userID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ? AND two_factor_pending_secret <> ''", userID).
		Updates(map[string]any{
			"two_factor_secret":         gorm.Expr("two_factor_pending_secret"),
			"two_factor_pending_secret": "",
			"two_factor_enabled":        true,
			"updated_at":                time.Now(),
		})

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to promote two-factor secret")
	}

	if result.RowsAffected == 0 {
		return domainerrors.ErrTwoFactorNotPending
	}

	return nil
}

// --- Mapper Functions ---

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:                     data.ID,
		TenantID:               data.TenantID,
		Email:                  data.Email,
		Name:                   data.Name,
		Role:                   entity.Role(data.Role),
		PasswordHash:           data.PasswordHash,
		TwoFactorSecret:        data.TwoFactorSecret,
		TwoFactorPendingSecret: data.TwoFactorPendingSecret,
		TwoFactorEnabled:       data.TwoFactorEnabled,
		CreatedAt:              data.CreatedAt,
		UpdatedAt:              data.UpdatedAt,
	}
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/infrastructure/persistence/mappers"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
	db "github.com/servora/servora/internal/shared/db"
	apperrors "github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
)

// UserRepository is the gorm user directory.
type UserRepository struct {
	db     *gorm.DB
	mapper mappers.UserMapper
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, logger logger.Interface) *UserRepository {
	return &UserRepository{
		db:     db,
		mapper: mappers.NewUserMapper(),
		logger: logger,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(r.mapper.ToModel(u)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflictError("user already exists", u.Email())
		}
		r.logger.Errorw("failed to create user", "user_id", u.ID(), "error", err)
		return storeErr(err, "failed to create user")
	}
	r.logger.Infow("user created", "user_id", u.ID(), "role", u.Role().String())
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var model models.UserModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("user not found", id)
		}
		r.logger.Errorw("failed to get user by ID", "user_id", id, "error", err)
		return nil, storeErr(err, "failed to get user")
	}

	u, err := r.mapper.ToEntity(&model)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map user", err.Error())
	}
	return u, nil
}

// GetByIDs returns the users that exist; unknown ids are skipped.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	var rows []*models.UserModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, storeErr(err, "failed to get users")
	}

	users, err := r.mapper.ToEntities(rows)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map users", err.Error())
	}
	return users, nil
}

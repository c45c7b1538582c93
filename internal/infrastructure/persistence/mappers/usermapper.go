package mappers

import (
	"fmt"

	"github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/mapper"
)

// UserMapper handles the conversion between domain entities and persistence models
type UserMapper interface {
	ToEntity(model *models.UserModel) (*user.User, error)
	ToModel(entity *user.User) *models.UserModel
	ToEntities(models []*models.UserModel) ([]*user.User, error)
}

// UserMapperImpl is the concrete implementation of UserMapper
type UserMapperImpl struct{}

// NewUserMapper creates a new user mapper
func NewUserMapper() UserMapper {
	return &UserMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *UserMapperImpl) ToEntity(model *models.UserModel) (*user.User, error) {
	if model == nil {
		return nil, nil
	}
	role, err := authorization.ParseUserRole(model.Role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", model.ID, err)
	}
	return user.ReconstructUser(
		model.ID,
		model.Name,
		model.Email,
		role,
		model.Department,
		model.Active,
		model.CreatedAt.UTC(),
		model.UpdatedAt.UTC(),
	), nil
}

// ToModel converts a domain entity to a persistence model
func (m *UserMapperImpl) ToModel(entity *user.User) *models.UserModel {
	return &models.UserModel{
		ID:         entity.ID(),
		Name:       entity.Name(),
		Email:      entity.Email(),
		Role:       entity.Role().String(),
		Department: entity.Department(),
		Active:     entity.IsActive(),
		CreatedAt:  entity.CreatedAt(),
		UpdatedAt:  entity.UpdatedAt(),
	}
}

// ToEntities converts multiple persistence models to domain entities
func (m *UserMapperImpl) ToEntities(list []*models.UserModel) ([]*user.User, error) {
	return mapper.MapSliceWithError(list, m.ToEntity)
}

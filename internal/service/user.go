package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/model"
	"brand-ranking/internal/repository"
)

// UserService handles user account operations.
type UserService struct {
	users *repository.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetUser retrieves a user by id.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userError(err)
	}
	return user, nil
}

// UpdateUser applies an admin edit to a user's profile or role.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error) {
	if upd.Role != nil && *upd.Role != model.RoleUser && *upd.Role != model.RoleAdmin {
		return nil, ErrInvalidRole
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return nil, userError(err)
	}

	log.Info().Str("user_id", id.String()).Msg("User updated")
	return user, nil
}

// DeleteUser removes a user together with their ballots and ledger.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return userError(err)
	}

	log.Info().Str("user_id", id.String()).Msg("User deleted")
	return nil
}

func userError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

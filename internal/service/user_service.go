package service

import (
	"context"
	"time"

	"storefront-api/internal/domain"
	"storefront-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages accounts after sign-up.
type UserService interface {
	List(ctx context.Context, page, limit int) (*Page[*domain.User], error)
	// GetProfile returns an active user with the orders they placed.
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
	// Update changes profile fields. Only the account owner or an admin may do so.
	Update(ctx context.Context, actor *domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	logger    *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, orderRepo repository.OrderRepository, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, orderRepo: orderRepo, logger: logger}
}

func (s *userService) List(ctx context.Context, page, limit int) (*Page[*domain.User], error) {
	page, limit = normalizePage(page, limit)

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, internalError("failed to list users", err)
	}

	return &Page[*domain.User]{Items: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, id, true)
	if err != nil {
		return nil, internalError("failed to get user", err)
	}

	orders, err := s.orderRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, internalError("failed to list user orders", err)
	}

	return &domain.UserProfile{User: user, Orders: orders}, nil
}

func (s *userService) Update(ctx context.Context, actor *domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if !actor.CanAccessUser(id) {
		return nil, domain.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id, true)
	if err != nil {
		return nil, internalError("failed to get user", err)
	}

	patch.Apply(user)
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, internalError("failed to update user", err)
	}

	return user, nil
}

func (s *userService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return internalError("failed to deactivate user", err)
	}

	s.logger.Info("User deactivated", zap.String("user_id", id.String()))
	return nil
}

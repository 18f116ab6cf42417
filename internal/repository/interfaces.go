package repository

import (
	"context"

	"assistbot/internal/models"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	SetTimezone(ctx context.Context, telegramID int64, timezone string) error
	Delete(ctx context.Context, id int64) error
}

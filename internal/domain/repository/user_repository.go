package repository

import (
	"context"

	"kinmel/internal/domain/entity"
)

// UserRepository is the read-only view the gateway has of the identity
// subsystem.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

package repository

import (
	"context"

	"kinmel/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
}

package fcm

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"kinmel/internal/domain/entity"
	"kinmel/internal/domain/repository"
	"kinmel/pkg/logger"
)

// PushSender pages an offline recipient through Firebase Cloud Messaging and
// persists the matching in-app notification record. The whole path is
// best-effort: callers log and swallow any error.
type PushSender struct {
	client    *messaging.Client
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
}

func NewPushSender(client *messaging.Client, userRepo repository.UserRepository, notifRepo repository.NotificationRepository) *PushSender {
	return &PushSender{
		client:    client,
		userRepo:  userRepo,
		notifRepo: notifRepo,
	}
}

func (s *PushSender) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	user, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}

	for _, token := range user.FCMTokens {
		_, err := s.client.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		})
		if err != nil {
			logger.Warn("fcm: send to token of user %s failed: %v", recipientID, err)
		}
	}

	return s.notifRepo.Create(ctx, &entity.Notification{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Data:        data,
	})
}

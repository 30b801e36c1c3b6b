package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type fcmPushSender struct {
	client *messaging.Client
}

// NewFCMPushSender builds a Firebase Cloud Messaging client from a service
// account credentials file.
func NewFCMPushSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &fcmPushSender{client: client}, nil
}

func (s *fcmPushSender) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "send", "title", title)
	id, err := s.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}

type noopPushSender struct{}

func NewNoopPushSender() PushSender {
	return noopPushSender{}
}

func (noopPushSender) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	return nil
}

package notification

import (
	"context"
	"fmt"

	"medvisit/services/profile"
	"medvisit/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Service sends a push notification to one party. Delivery mechanics live
// behind this boundary; the engine only cares that a send either lands or
// returns an error it can log.
type Service interface {
	Send(ctx context.Context, userID, role, notificationType, title, body string, data map[string]string) error
}

// FCMService is the Firebase Cloud Messaging implementation.
type FCMService struct {
	Directory profile.Directory
	Logger    *zap.Logger
}

func (s *FCMService) Send(ctx context.Context, userID, role, notificationType, title, body string, data map[string]string) error {
	token, err := s.Directory.FCMToken(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("notification: could not resolve token for %s %s: %w", role, userID, err)
	}
	if token == "" {
		return fmt.Errorf("notification: %s %s has no FCM token", role, userID)
	}

	if data == nil {
		data = map[string]string{}
	}
	data["type"] = notificationType
	data["role"] = role

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "visit_updates",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	response, err := utils.FCMClient.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("notification: failed to send FCM message: %w", err)
	}
	s.Logger.Debug("push notification sent",
		zap.String("userId", userID),
		zap.String("role", role),
		zap.String("messageId", response))
	return nil
}

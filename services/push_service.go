package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"github.com/lingora/lingora_backend/models"
)

const (
	// defaultClickTarget is where a notification click navigates when the
	// notification carries no action of its own.
	defaultClickTarget = "/notifications"

	// fallbackTag collapses untagged notifications into one OS popup.
	fallbackTag = "lingora-notification"

	// displayTimeout bounds how long an uninteracted popup stays visible.
	displayTimeout = 5 * time.Second

	fcmChannelID = "lingora_notifications"
)

// FCMPushGateway delivers OS-level notifications through Firebase Cloud
// Messaging. Permission is modeled per user: an explicit denial wins, a
// registered device token reads as granted, and everything else is the
// undetermined default state.
type FCMPushGateway struct {
	app *firebase.App
	log *logrus.Entry
}

func NewFCMPushGateway(app *firebase.App) *FCMPushGateway {
	return &FCMPushGateway{
		app: app,
		log: logrus.WithField("service", "push"),
	}
}

// Permission reports the tri-state permission for the user.
func (g *FCMPushGateway) Permission(user *models.User) string {
	if user.PushPermission == models.PushPermissionDenied {
		return models.PushPermissionDenied
	}
	if user.DeviceToken != "" {
		return models.PushPermissionGranted
	}
	return models.PushPermissionDefault
}

// RequestPermission resolves the undetermined state. Server-side there is
// nothing to prompt: a registered device token is the user's consent, so the
// request only confirms registration. An unregistered device stays at
// default, like a dismissed prompt.
func (g *FCMPushGateway) RequestPermission(_ context.Context, user *models.User) (string, error) {
	if user.PushPermission == models.PushPermissionDenied {
		return models.PushPermissionDenied, nil
	}
	if user.DeviceToken != "" {
		return models.PushPermissionGranted, nil
	}
	return models.PushPermissionDefault, nil
}

// Display sends the notification to the user's registered device. The
// payload carries the title/message, open and close actions, the
// notification id as the collapse tag, and a data map with the deep-link
// action and the delivery timestamp.
func (g *FCMPushGateway) Display(ctx context.Context, user *models.User, notification *models.Notification) error {
	if user.DeviceToken == "" {
		return fmt.Errorf("user %s has no device token", user.ID.Hex())
	}
	if g.app == nil {
		return errors.New("firebase app not initialized")
	}

	client, err := g.app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	tag := notification.ID
	if tag == "" {
		tag = fallbackTag
	}
	action := notification.Action
	if action == "" {
		action = defaultClickTarget
	}

	ttl := displayTimeout
	message := &messaging.Message{
		Token: user.DeviceToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data: g.prepareNotificationData(notification, action),
		Android: &messaging.AndroidConfig{
			CollapseKey: tag,
			Priority:    "high",
			TTL:         &ttl,
			Notification: &messaging.AndroidNotification{
				Sound:       "default",
				ChannelID:   fcmChannelID,
				Tag:         tag,
				ClickAction: action,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: notification.Title,
						Body:  notification.Message,
					},
					Sound:    "default",
					Badge:    func() *int { v := 1; return &v }(),
					Category: "LINGORA_NOTIFICATION",
				},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Message,
				Icon:  notification.Icon,
				Tag:   tag,
				Actions: []*messaging.WebpushNotificationAction{
					{Action: "open", Title: "Open"},
					{Action: "close", Title: "Close"},
				},
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: action,
			},
		},
	}

	response, err := client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	g.log.WithFields(logrus.Fields{
		"userId":    user.ID.Hex(),
		"messageId": response,
	}).Info("push notification sent")
	return nil
}

// prepareNotificationData flattens the notification metadata into the FCM
// string map, with defaults for the fields every client expects.
func (g *FCMPushGateway) prepareNotificationData(notification *models.Notification, action string) map[string]string {
	result := map[string]string{
		"notificationId": notification.ID,
		"type":           notification.Type,
		"icon":           notification.Icon,
		"action":         action,
		"dismissAfter":   strconv.FormatInt(displayTimeout.Milliseconds(), 10),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	for key, value := range notification.Data {
		switch v := value.(type) {
		case string:
			result[key] = v
		case int:
			result[key] = strconv.Itoa(v)
		default:
			result[key] = fmt.Sprint(v)
		}
	}

	return result
}

// UnsupportedPushGateway is the capability variant for environments without
// a push backend. Permission always reads denied so the manager never
// attempts a display.
type UnsupportedPushGateway struct{}

func NewUnsupportedPushGateway() *UnsupportedPushGateway {
	return &UnsupportedPushGateway{}
}

func (g *UnsupportedPushGateway) Permission(*models.User) string {
	return models.PushPermissionDenied
}

func (g *UnsupportedPushGateway) RequestPermission(context.Context, *models.User) (string, error) {
	return models.PushPermissionDenied, nil
}

func (g *UnsupportedPushGateway) Display(context.Context, *models.User, *models.Notification) error {
	return errors.New("push notifications are not supported on this platform")
}

// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Push permission tri-state, mirroring the platform notification permission.
const (
	PushPermissionDefault = "default"
	PushPermissionGranted = "granted"
	PushPermissionDenied  = "denied"
)

// NotificationPreferences holds the per-channel opt-outs. A nil flag means
// the channel is enabled; only an explicit false disables it.
type NotificationPreferences struct {
	Push     *bool `json:"push,omitempty" bson:"push,omitempty"`
	Email    *bool `json:"email,omitempty" bson:"email,omitempty"`
	Reminder *bool `json:"reminder,omitempty" bson:"reminder,omitempty"`
}

// PushEnabled reports whether push delivery is allowed for this user.
func (p NotificationPreferences) PushEnabled() bool {
	return p.Push == nil || *p.Push
}

// EmailEnabled reports whether email delivery is allowed for this user.
func (p NotificationPreferences) EmailEnabled() bool {
	return p.Email == nil || *p.Email
}

// ReminderEnabled reports whether scheduled reminders are allowed for this user.
func (p NotificationPreferences) ReminderEnabled() bool {
	return p.Reminder == nil || *p.Reminder
}

// User model
type User struct {
	ID                      primitive.ObjectID      `json:"id,omitempty" bson:"_id,omitempty"`
	Email                   string                  `json:"email,omitempty" bson:"email,omitempty"`
	Username                string                  `json:"username,omitempty" bson:"username,omitempty"`
	Notifications           []Notification          `json:"notifications" bson:"notifications"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences" bson:"notificationPreferences"`
	DeviceToken             string                  `json:"deviceToken,omitempty" bson:"deviceToken,omitempty"`       // Push registration token
	PushPermission          string                  `json:"pushPermission,omitempty" bson:"pushPermission,omitempty"` // default/granted/denied
	LastActive              time.Time               `json:"lastActive" bson:"lastActive"`
	LastNotificationAt      time.Time               `json:"lastNotificationAt,omitempty" bson:"lastNotificationAt,omitempty"`
	CreatedAt               time.Time               `json:"createdAt" bson:"createdAt"`
	UpdatedAt               time.Time               `json:"updatedAt" bson:"updatedAt"`
}

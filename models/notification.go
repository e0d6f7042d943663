// models/notification.go
package models

import (
	"time"
)

// Notification types
const (
	NotificationTypeAchievement = "achievement"
	NotificationTypeReminder    = "reminder"
	NotificationTypeStreak      = "streak"
	NotificationTypeLesson      = "lesson"
	NotificationTypeUpdate      = "update"
	NotificationTypeGeneral     = "general"
	NotificationTypeWelcome     = "welcome"
	NotificationTypeLevelUp     = "level_up"
	NotificationTypeCertificate = "certificate"
	NotificationTypeFriend      = "friend"
)

// MaxNotifications is the per-user cap on the stored notification list.
// Inserts beyond the cap evict the oldest entries.
const MaxNotifications = 100

// Notification model. Notifications are embedded in the user document,
// newest first, rather than stored in their own collection.
type Notification struct {
	ID        string                 `json:"id" bson:"id"`                         // Unique per user document
	Title     string                 `json:"title" bson:"title"`                   // Notification title
	Message   string                 `json:"message" bson:"message"`               // Notification message
	Type      string                 `json:"type" bson:"type"`                     // One of the NotificationType constants
	Icon      string                 `json:"icon" bson:"icon"`                     // Display glyph, defaulted from the type
	Read      bool                   `json:"read" bson:"read"`                     // Whether the notification has been read
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`           // Timestamp of notification creation
	Action    string                 `json:"action,omitempty" bson:"action,omitempty"` // Optional deep-link target
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"` // Optional additional data, opaque to the manager
}

// DefaultIcon returns the display glyph for a notification type.
// Unrecognized types fall back to the bell.
func DefaultIcon(notifType string) string {
	switch notifType {
	case NotificationTypeAchievement:
		return "🏆"
	case NotificationTypeReminder:
		return "⏰"
	case NotificationTypeStreak:
		return "🔥"
	case NotificationTypeLesson:
		return "📚"
	case NotificationTypeUpdate:
		return "📢"
	case NotificationTypeWelcome:
		return "👋"
	case NotificationTypeLevelUp:
		return "⬆️"
	case NotificationTypeCertificate:
		return "📜"
	case NotificationTypeFriend:
		return "👥"
	case NotificationTypeGeneral:
		return "🔔"
	default:
		return "🔔"
	}
}

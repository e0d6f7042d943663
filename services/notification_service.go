package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lingora/lingora_backend/models"
)

// DefaultListLimit is the number of notifications returned when the caller
// does not specify a limit. Note that UnreadCount counts within this window,
// not over the full stored cap.
const DefaultListLimit = 50

// UserStore is the contract the manager expects from the user record store.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SaveNotifications(ctx context.Context, userID string, list []models.Notification) error
	RecordNotification(ctx context.Context, userID string, list []models.Notification, at time.Time) error
	SetPushPermission(ctx context.Context, userID string, permission string) error
	SetDeviceToken(ctx context.Context, userID string, token string) error
	SetPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error
}

// EmailQueue is the contract for the append-only outbound email store.
type EmailQueue interface {
	Enqueue(ctx context.Context, job *models.EmailJob) error
}

// PushGateway abstracts the platform notification capability so the core
// logic is testable without a real push backend. The unsupported variant
// reports denied for everything.
type PushGateway interface {
	// Permission reports the tri-state permission for the user.
	Permission(user *models.User) string
	// RequestPermission prompts for permission and returns the resulting
	// tri-state. It never re-prompts on its own.
	RequestPermission(ctx context.Context, user *models.User) (string, error)
	// Display shows an OS-level notification on the user's device.
	Display(ctx context.Context, user *models.User, notification *models.Notification) error
}

// LiveChannel delivers notifications to connected in-app sessions.
// Delivery is best effort; a disconnected user is not an error.
type LiveChannel interface {
	NotifyUser(userID string, notification *models.Notification)
}

// NotificationService owns the lifecycle of a user's notification list:
// creation, capped storage, read-state transitions, deletion, and fan-out to
// the push, email, and live channels.
//
// Every operation follows the best-effort contract: failures are logged and
// surfaced as false or empty results, never as raised faults, so a failure
// to notify can never abort the user action that triggered it.
//
// The store write is a read-modify-write of the whole notification list with
// no transactional guard; two concurrent writers for the same user race with
// last-write-wins semantics.
type NotificationService struct {
	users  UserStore
	emails EmailQueue
	push   PushGateway
	live   LiveChannel
	log    *logrus.Entry
}

// NewNotificationService creates a notification manager. live may be nil if
// the host has no in-app session channel.
func NewNotificationService(users UserStore, emails EmailQueue, push PushGateway, live LiveChannel) *NotificationService {
	return &NotificationService{
		users:  users,
		emails: emails,
		push:   push,
		live:   live,
		log:    logrus.WithField("service", "notifications"),
	}
}

// NotificationInput carries the caller-supplied fields of a new notification.
// Title and Message are required; Type defaults to general and Icon defaults
// from the type.
type NotificationInput struct {
	Title   string
	Message string
	Type    string
	Icon    string
	Action  string
	Data    map[string]interface{}
}

// Send records a notification for the user and fans it out to the enabled
// side channels. It returns false when the user does not exist or the store
// write fails; side-channel failures do not affect the result since the
// stored record is already visible to the user.
func (s *NotificationService) Send(ctx context.Context, userID string, input NotificationInput) bool {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("send: failed to load user")
		return false
	}

	notification := newNotification(input)

	list := make([]models.Notification, 0, len(user.Notifications)+1)
	list = append(list, notification)
	list = append(list, user.Notifications...)
	if len(list) > models.MaxNotifications {
		list = list[:models.MaxNotifications]
	}

	if err := s.users.RecordNotification(ctx, userID, list, notification.Timestamp); err != nil {
		s.log.WithField("userId", userID).WithError(err).Error("send: failed to store notification")
		return false
	}

	s.fanOut(ctx, user, &notification)
	return true
}

// fanOut delivers the stored notification over the push, email, and live
// channels, honoring the user's preferences. All failures are swallowed.
func (s *NotificationService) fanOut(ctx context.Context, user *models.User, notification *models.Notification) {
	if user.NotificationPreferences.PushEnabled() {
		s.displayPush(ctx, user, notification)
	}

	if user.NotificationPreferences.EmailEnabled() && user.Email != "" {
		job := &models.EmailJob{
			Email:     user.Email,
			Subject:   notification.Title,
			Body:      notification.Message,
			Type:      notification.Type,
			Status:    models.EmailStatusPending,
			CreatedAt: time.Now(),
			UserID:    user.ID.Hex(),
		}
		if err := s.emails.Enqueue(ctx, job); err != nil {
			s.log.WithField("userId", user.ID.Hex()).WithError(err).Warn("send: failed to enqueue email")
		}
	}

	if s.live != nil {
		s.live.NotifyUser(user.ID.Hex(), notification)
	}
}

// displayPush drives the display state machine over the permission tri-state:
// denied is a no-op, granted displays, and default prompts exactly once
// before either displaying or giving up.
func (s *NotificationService) displayPush(ctx context.Context, user *models.User, notification *models.Notification) bool {
	switch s.push.Permission(user) {
	case models.PushPermissionDenied:
		return false
	case models.PushPermissionGranted:
		return s.display(ctx, user, notification)
	default:
		if !s.promptPermission(ctx, user) {
			return false
		}
		return s.display(ctx, user, notification)
	}
}

func (s *NotificationService) display(ctx context.Context, user *models.User, notification *models.Notification) bool {
	if err := s.push.Display(ctx, user, notification); err != nil {
		s.log.WithField("userId", user.ID.Hex()).WithError(err).Warn("push display failed")
		return false
	}
	return true
}

// promptPermission asks the gateway for permission and persists a definitive
// answer. Returns true only when permission ends up granted.
func (s *NotificationService) promptPermission(ctx context.Context, user *models.User) bool {
	permission, err := s.push.RequestPermission(ctx, user)
	if err != nil {
		s.log.WithField("userId", user.ID.Hex()).WithError(err).Warn("permission request failed")
		return false
	}

	// A dismissed prompt stays at default and may be asked again later.
	if permission == models.PushPermissionGranted || permission == models.PushPermissionDenied {
		user.PushPermission = permission
		if err := s.users.SetPushPermission(ctx, user.ID.Hex(), permission); err != nil {
			s.log.WithField("userId", user.ID.Hex()).WithError(err).Warn("failed to persist push permission")
		}
	}

	return permission == models.PushPermissionGranted
}

// List returns the first limit entries of the user's notification list,
// newest first. A missing user or a store failure yields an empty list.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) []models.Notification {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("list: failed to load user")
		return []models.Notification{}
	}

	if len(user.Notifications) > limit {
		return user.Notifications[:limit]
	}
	return user.Notifications
}

// UnreadCount returns the number of unread notifications within the default
// list window.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) int {
	count := 0
	for _, n := range s.List(ctx, userID, DefaultListLimit) {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks the matching notification as read. Unknown ids are
// tolerated: the write still happens and the call reports true.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) bool {
	return s.rewriteList(ctx, userID, func(list []models.Notification) []models.Notification {
		for i := range list {
			if list[i].ID == notificationID {
				list[i].Read = true
			}
		}
		return list
	})
}

// MarkAllRead marks every stored notification as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) bool {
	return s.rewriteList(ctx, userID, func(list []models.Notification) []models.Notification {
		for i := range list {
			list[i].Read = true
		}
		return list
	})
}

// Delete removes the matching notification, preserving the relative order of
// the rest. Unknown ids are tolerated the same way MarkRead tolerates them.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) bool {
	return s.rewriteList(ctx, userID, func(list []models.Notification) []models.Notification {
		kept := list[:0]
		for _, n := range list {
			if n.ID != notificationID {
				kept = append(kept, n)
			}
		}
		return kept
	})
}

// DeleteAll resets the user's notification list to empty.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) bool {
	return s.rewriteList(ctx, userID, func([]models.Notification) []models.Notification {
		return []models.Notification{}
	})
}

func (s *NotificationService) rewriteList(ctx context.Context, userID string, transform func([]models.Notification) []models.Notification) bool {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("failed to load user for list update")
		return false
	}

	if err := s.users.SaveNotifications(ctx, userID, transform(user.Notifications)); err != nil {
		s.log.WithField("userId", userID).WithError(err).Error("failed to store notification list")
		return false
	}
	return true
}

// CheckPermission reports the push permission tri-state for the user. A
// missing user reads as denied since nothing can be displayed anyway.
func (s *NotificationService) CheckPermission(ctx context.Context, userID string) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.PushPermissionDenied
	}
	return s.push.Permission(user)
}

// RequestPermission short-circuits on an already definitive permission and
// otherwise prompts once, returning whether permission ended up granted.
func (s *NotificationService) RequestPermission(ctx context.Context, userID string) bool {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("permission request: failed to load user")
		return false
	}

	switch s.push.Permission(user) {
	case models.PushPermissionGranted:
		return true
	case models.PushPermissionDenied:
		return false
	default:
		return s.promptPermission(ctx, user)
	}
}

// UpdateDeviceToken registers the push registration token the display
// channel delivers to.
func (s *NotificationService) UpdateDeviceToken(ctx context.Context, userID, token string) bool {
	if err := s.users.SetDeviceToken(ctx, userID, token); err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("failed to update device token")
		return false
	}
	return true
}

// UpdatePreferences replaces the user's per-channel opt-outs.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) bool {
	if err := s.users.SetPreferences(ctx, userID, prefs); err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("failed to update preferences")
		return false
	}
	return true
}

func newNotification(input NotificationInput) models.Notification {
	notifType := input.Type
	if notifType == "" {
		notifType = models.NotificationTypeGeneral
	}

	icon := input.Icon
	if icon == "" {
		icon = models.DefaultIcon(notifType)
	}

	return models.Notification{
		ID:        uuid.NewString(),
		Title:     input.Title,
		Message:   input.Message,
		Type:      notifType,
		Icon:      icon,
		Read:      false,
		Timestamp: time.Now().UTC(),
		Action:    input.Action,
		Data:      input.Data,
	}
}

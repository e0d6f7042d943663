package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lingora/lingora_backend/models"
)

// fakeUserStore provides an in-memory implementation of the user record
// store so the lifecycle logic can be tested without a database.
type fakeUserStore struct {
	users       map[string]*models.User
	saveCalls   int
	permissions map[string]string
	failGet     bool
	failSave    bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:       make(map[string]*models.User),
		permissions: make(map[string]string),
	}
}

func (f *fakeUserStore) addUser(user *models.User) string {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	id := user.ID.Hex()
	f.users[id] = user
	return id
}

func (f *fakeUserStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	if f.failGet {
		return nil, errors.New("store unreachable")
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}

	// Hand out a copy the way a fresh database decode would.
	copied := *user
	copied.Notifications = append([]models.Notification(nil), user.Notifications...)
	return &copied, nil
}

func (f *fakeUserStore) SaveNotifications(_ context.Context, userID string, list []models.Notification) error {
	return f.store(userID, list, nil)
}

func (f *fakeUserStore) RecordNotification(_ context.Context, userID string, list []models.Notification, at time.Time) error {
	return f.store(userID, list, &at)
}

func (f *fakeUserStore) store(userID string, list []models.Notification, at *time.Time) error {
	if f.failSave {
		return errors.New("store unreachable")
	}
	user, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	f.saveCalls++
	user.Notifications = list
	if at != nil {
		user.LastNotificationAt = *at
	}
	return nil
}

func (f *fakeUserStore) SetPushPermission(_ context.Context, userID string, permission string) error {
	f.permissions[userID] = permission
	if user, ok := f.users[userID]; ok {
		user.PushPermission = permission
	}
	return nil
}

func (f *fakeUserStore) SetDeviceToken(_ context.Context, userID string, token string) error {
	user, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.DeviceToken = token
	return nil
}

func (f *fakeUserStore) SetPreferences(_ context.Context, userID string, prefs models.NotificationPreferences) error {
	user, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.NotificationPreferences = prefs
	return nil
}

// fakeEmailQueue records enqueued jobs for later inspection.
type fakeEmailQueue struct {
	jobs []*models.EmailJob
	fail bool
}

func (f *fakeEmailQueue) Enqueue(_ context.Context, job *models.EmailJob) error {
	if f.fail {
		return errors.New("queue unreachable")
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// fakePushGateway records display attempts and permission prompts.
type fakePushGateway struct {
	permission    string
	requestResult string
	requestErr    error
	displayErr    error
	displayed     []*models.Notification
	requestCalls  int
}

func (f *fakePushGateway) Permission(*models.User) string {
	if f.permission == "" {
		return models.PushPermissionDefault
	}
	return f.permission
}

func (f *fakePushGateway) RequestPermission(context.Context, *models.User) (string, error) {
	f.requestCalls++
	if f.requestErr != nil {
		return "", f.requestErr
	}
	if f.requestResult == "" {
		return models.PushPermissionDefault, nil
	}
	return f.requestResult, nil
}

func (f *fakePushGateway) Display(_ context.Context, _ *models.User, notification *models.Notification) error {
	if f.displayErr != nil {
		return f.displayErr
	}
	f.displayed = append(f.displayed, notification)
	return nil
}

type serviceFixture struct {
	users  *fakeUserStore
	emails *fakeEmailQueue
	push   *fakePushGateway
	svc    *NotificationService
}

func newServiceFixture() *serviceFixture {
	users := newFakeUserStore()
	emails := &fakeEmailQueue{}
	push := &fakePushGateway{permission: models.PushPermissionGranted}
	return &serviceFixture{
		users:  users,
		emails: emails,
		push:   push,
		svc:    NewNotificationService(users, emails, push, nil),
	}
}

func boolPtr(v bool) *bool { return &v }

func TestSendStoresNotificationNewestFirst(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{Username: "mira"})

	for i := 1; i <= 3; i++ {
		ok := f.svc.Send(context.Background(), userID, NotificationInput{
			Title:   fmt.Sprintf("title %d", i),
			Message: fmt.Sprintf("message %d", i),
		})
		require.True(t, ok)
	}

	list := f.svc.List(context.Background(), userID, 0)
	require.Len(t, list, 3)
	assert.Equal(t, "title 3", list[0].Title)
	assert.Equal(t, "title 1", list[2].Title)

	first := list[0]
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Read)
	assert.Equal(t, models.NotificationTypeGeneral, first.Type)
	assert.Equal(t, "🔔", first.Icon)
	assert.False(t, first.Timestamp.IsZero())
	assert.False(t, f.users.users[userID].LastNotificationAt.IsZero())
}

func TestSendCapsListAtMax(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 0; i <= models.MaxNotifications; i++ {
		ok := f.svc.Send(context.Background(), userID, NotificationInput{
			Title:   fmt.Sprintf("title %d", i),
			Message: "message",
		})
		require.True(t, ok)
	}

	stored := f.users.users[userID].Notifications
	require.Len(t, stored, models.MaxNotifications)

	// The very first notification fell off the tail.
	assert.Equal(t, fmt.Sprintf("title %d", models.MaxNotifications), stored[0].Title)
	for _, n := range stored {
		assert.NotEqual(t, "title 0", n.Title)
	}
}

func TestSendUnknownUser(t *testing.T) {
	f := newServiceFixture()

	ok := f.svc.Send(context.Background(), "missing", NotificationInput{Title: "t", Message: "m"})

	assert.False(t, ok)
	assert.Zero(t, f.users.saveCalls)
	assert.Empty(t, f.emails.jobs)
	assert.Empty(t, f.push.displayed)
}

func TestSendStoreWriteFailure(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})
	f.users.failSave = true

	ok := f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"})

	assert.False(t, ok)
	assert.Empty(t, f.emails.jobs, "no fan-out when the store write failed")
	assert.Empty(t, f.push.displayed)
}

func TestSendEnqueuesEmail(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{Email: "mira@example.com"})

	ok := f.svc.Send(context.Background(), userID, NotificationInput{
		Title:   "Lesson complete",
		Message: "Nice work!",
		Type:    models.NotificationTypeLesson,
	})

	require.True(t, ok)
	require.Len(t, f.emails.jobs, 1)
	job := f.emails.jobs[0]
	assert.Equal(t, "mira@example.com", job.Email)
	assert.Equal(t, "Lesson complete", job.Subject)
	assert.Equal(t, "Nice work!", job.Body)
	assert.Equal(t, models.NotificationTypeLesson, job.Type)
	assert.Equal(t, models.EmailStatusPending, job.Status)
	assert.Equal(t, userID, job.UserID)
}

func TestSendEmailGating(t *testing.T) {
	t.Run("opted out", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{
			Email:                   "mira@example.com",
			NotificationPreferences: models.NotificationPreferences{Email: boolPtr(false)},
		})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.emails.jobs)
	})

	t.Run("no address", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.emails.jobs)
	})

	t.Run("queue failure is swallowed", func(t *testing.T) {
		f := newServiceFixture()
		f.emails.fail = true
		userID := f.users.addUser(&models.User{Email: "mira@example.com"})

		assert.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	})
}

func TestSendPushGating(t *testing.T) {
	t.Run("opted out", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{
			NotificationPreferences: models.NotificationPreferences{Push: boolPtr(false)},
		})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.push.displayed)
	})

	t.Run("permission denied", func(t *testing.T) {
		f := newServiceFixture()
		f.push.permission = models.PushPermissionDenied
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.push.displayed)
		assert.Zero(t, f.push.requestCalls, "denied must not prompt")
	})

	t.Run("display failure is swallowed", func(t *testing.T) {
		f := newServiceFixture()
		f.push.displayErr = errors.New("platform exploded")
		userID := f.users.addUser(&models.User{})

		assert.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	})
}

func TestSendPushPromptsAtMostOnce(t *testing.T) {
	t.Run("prompt granted", func(t *testing.T) {
		f := newServiceFixture()
		f.push.permission = models.PushPermissionDefault
		f.push.requestResult = models.PushPermissionGranted
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Equal(t, 1, f.push.requestCalls)
		assert.Len(t, f.push.displayed, 1)
		assert.Equal(t, models.PushPermissionGranted, f.users.permissions[userID])
	})

	t.Run("prompt dismissed", func(t *testing.T) {
		f := newServiceFixture()
		f.push.permission = models.PushPermissionDefault
		f.push.requestResult = models.PushPermissionDefault
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Equal(t, 1, f.push.requestCalls)
		assert.Empty(t, f.push.displayed)
		assert.Empty(t, f.users.permissions[userID], "a dismissed prompt stays undetermined")
	})

	t.Run("prompt failure", func(t *testing.T) {
		f := newServiceFixture()
		f.push.permission = models.PushPermissionDefault
		f.push.requestErr = errors.New("platform unavailable")
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.push.displayed)
	})

	t.Run("prompt denied", func(t *testing.T) {
		f := newServiceFixture()
		f.push.permission = models.PushPermissionDefault
		f.push.requestResult = models.PushPermissionDenied
		userID := f.users.addUser(&models.User{})

		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
		assert.Empty(t, f.push.displayed)
		assert.Equal(t, models.PushPermissionDenied, f.users.permissions[userID])
	})
}

func TestSendDeliversToLiveChannel(t *testing.T) {
	f := newServiceFixture()
	delivered := make(map[string]*models.Notification)
	f.svc.live = liveFunc(func(userID string, n *models.Notification) {
		delivered[userID] = n
	})
	userID := f.users.addUser(&models.User{})

	require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	require.Contains(t, delivered, userID)
	assert.Equal(t, "t", delivered[userID].Title)
}

type liveFunc func(userID string, notification *models.Notification)

func (f liveFunc) NotifyUser(userID string, notification *models.Notification) {
	f(userID, notification)
}

func TestMarkRead(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 1; i <= 3; i++ {
		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{
			Title: fmt.Sprintf("title %d", i), Message: "m",
		}))
	}

	target := f.svc.List(context.Background(), userID, 0)[1]
	require.True(t, f.svc.MarkRead(context.Background(), userID, target.ID))

	list := f.svc.List(context.Background(), userID, 0)
	assert.False(t, list[0].Read)
	assert.True(t, list[1].Read)
	assert.False(t, list[2].Read)

	// Marking again converges to the same state.
	require.True(t, f.svc.MarkRead(context.Background(), userID, target.ID))
	again := f.svc.List(context.Background(), userID, 0)
	assert.Equal(t, list, again)
}

func TestMarkReadUnknownID(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})
	require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))

	assert.True(t, f.svc.MarkRead(context.Background(), userID, "no-such-id"))

	list := f.svc.List(context.Background(), userID, 0)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
}

func TestMarkReadUnknownUser(t *testing.T) {
	f := newServiceFixture()
	assert.False(t, f.svc.MarkRead(context.Background(), "missing", "id"))
}

func TestMarkAllRead(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 0; i < 4; i++ {
		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	}

	require.True(t, f.svc.MarkAllRead(context.Background(), userID))

	for _, n := range f.svc.List(context.Background(), userID, 0) {
		assert.True(t, n.Read)
	}
	assert.Zero(t, f.svc.UnreadCount(context.Background(), userID))
}

func TestUnreadCount(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 0; i < 3; i++ {
		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	}
	target := f.svc.List(context.Background(), userID, 0)[0]
	require.True(t, f.svc.MarkRead(context.Background(), userID, target.ID))

	assert.Equal(t, 2, f.svc.UnreadCount(context.Background(), userID))
}

func TestUnreadCountWindow(t *testing.T) {
	f := newServiceFixture()

	// 60 entries: the 50 newest are read, the 10 oldest are not. The count
	// only sees the default list window, so it reports zero.
	list := make([]models.Notification, 60)
	for i := range list {
		list[i] = models.Notification{ID: fmt.Sprintf("n%d", i), Read: i < DefaultListLimit}
	}
	userID := f.users.addUser(&models.User{Notifications: list})

	assert.Zero(t, f.svc.UnreadCount(context.Background(), userID))
}

func TestUnreadCountUnknownUser(t *testing.T) {
	f := newServiceFixture()
	assert.Zero(t, f.svc.UnreadCount(context.Background(), "missing"))
}

func TestDelete(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 1; i <= 3; i++ {
		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{
			Title: fmt.Sprintf("title %d", i), Message: "m",
		}))
	}

	before := f.svc.List(context.Background(), userID, 0)
	require.True(t, f.svc.Delete(context.Background(), userID, before[1].ID))

	after := f.svc.List(context.Background(), userID, 0)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[2].ID, after[1].ID)

	// Unknown id removes nothing but still reports true.
	assert.True(t, f.svc.Delete(context.Background(), userID, "no-such-id"))
	assert.Len(t, f.svc.List(context.Background(), userID, 0), 2)
}

func TestDeleteAll(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	for i := 0; i < 3; i++ {
		require.True(t, f.svc.Send(context.Background(), userID, NotificationInput{Title: "t", Message: "m"}))
	}

	require.True(t, f.svc.DeleteAll(context.Background(), userID))
	assert.Empty(t, f.svc.List(context.Background(), userID, 0))
	assert.Zero(t, f.svc.UnreadCount(context.Background(), userID))
}

func TestListLimit(t *testing.T) {
	f := newServiceFixture()

	list := make([]models.Notification, 80)
	for i := range list {
		list[i] = models.Notification{ID: fmt.Sprintf("n%d", i)}
	}
	userID := f.users.addUser(&models.User{Notifications: list})

	assert.Len(t, f.svc.List(context.Background(), userID, 0), DefaultListLimit)
	assert.Len(t, f.svc.List(context.Background(), userID, 10), 10)
	assert.Len(t, f.svc.List(context.Background(), userID, 200), 80)
}

func TestListFailuresYieldEmpty(t *testing.T) {
	f := newServiceFixture()
	assert.Empty(t, f.svc.List(context.Background(), "missing", 0))

	f.users.failGet = true
	assert.Empty(t, f.svc.List(context.Background(), "any", 0))
}

func TestCheckPermission(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	f.push.permission = models.PushPermissionGranted
	assert.Equal(t, models.PushPermissionGranted, f.svc.CheckPermission(context.Background(), userID))

	f.push.permission = models.PushPermissionDefault
	assert.Equal(t, models.PushPermissionDefault, f.svc.CheckPermission(context.Background(), userID))

	assert.Equal(t, models.PushPermissionDenied, f.svc.CheckPermission(context.Background(), "missing"))
}

func TestRequestPermissionShortCircuits(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	f.push.permission = models.PushPermissionGranted
	assert.True(t, f.svc.RequestPermission(context.Background(), userID))
	assert.Zero(t, f.push.requestCalls)

	f.push.permission = models.PushPermissionDenied
	assert.False(t, f.svc.RequestPermission(context.Background(), userID))
	assert.Zero(t, f.push.requestCalls)

	f.push.permission = models.PushPermissionDefault
	f.push.requestResult = models.PushPermissionGranted
	assert.True(t, f.svc.RequestPermission(context.Background(), userID))
	assert.Equal(t, 1, f.push.requestCalls)
}

func TestTypedSenders(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{Username: "mira"})

	require.True(t, f.svc.SendWelcome(context.Background(), userID, "mira"))
	require.True(t, f.svc.SendAchievement(context.Background(), userID, "a-1", "First Steps"))
	require.True(t, f.svc.SendStreakWarning(context.Background(), userID, 7))
	require.True(t, f.svc.SendLessonComplete(context.Background(), userID, "Basics 2", 92))
	require.True(t, f.svc.SendLevelUp(context.Background(), userID, 5))
	require.True(t, f.svc.SendCertificateEarned(context.Background(), userID, "Spanish A1"))
	require.True(t, f.svc.SendDailyReminder(context.Background(), userID, "mira"))
	require.True(t, f.svc.SendUpdate(context.Background(), userID, "New voices", "Try the new audio voices."))

	list := f.svc.List(context.Background(), userID, 0)
	require.Len(t, list, 8)

	// Newest first: the update sender ran last.
	assert.Equal(t, models.NotificationTypeUpdate, list[0].Type)

	byType := make(map[string]models.Notification)
	for _, n := range list {
		byType[n.Type] = n
	}

	welcome := byType[models.NotificationTypeWelcome]
	assert.Equal(t, "Welcome, mira!", welcome.Title)
	assert.Equal(t, "👋", welcome.Icon)

	achievement := byType[models.NotificationTypeAchievement]
	assert.Contains(t, achievement.Message, "First Steps")
	assert.Equal(t, "a-1", achievement.Data["achievementId"])
	assert.Equal(t, "🏆", achievement.Icon)

	streak := byType[models.NotificationTypeStreak]
	assert.Contains(t, streak.Message, "7-day streak")
	assert.Equal(t, 7, streak.Data["streakDays"])

	lesson := byType[models.NotificationTypeLesson]
	assert.Contains(t, lesson.Message, "Basics 2")
	assert.Contains(t, lesson.Message, "92%")

	levelUp := byType[models.NotificationTypeLevelUp]
	assert.Contains(t, levelUp.Message, "level 5")

	certificate := byType[models.NotificationTypeCertificate]
	assert.Contains(t, certificate.Message, "Spanish A1")
	assert.Equal(t, "/certificates", certificate.Action)
}

func TestSendReminderIfInactive(t *testing.T) {
	dayAndMore := time.Now().Add(-25 * time.Hour)
	recently := time.Now().Add(-time.Hour)

	t.Run("inactive user gets reminded", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{Username: "mira", LastActive: dayAndMore})

		require.True(t, f.svc.SendReminderIfInactive(context.Background(), userID))

		list := f.svc.List(context.Background(), userID, 0)
		require.Len(t, list, 1)
		assert.Equal(t, models.NotificationTypeReminder, list[0].Type)
		assert.Contains(t, list[0].Message, "mira")
	})

	t.Run("recently active user is not reminded", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{LastActive: recently})

		assert.False(t, f.svc.SendReminderIfInactive(context.Background(), userID))
		assert.Empty(t, f.svc.List(context.Background(), userID, 0))
	})

	t.Run("opted out user is not reminded", func(t *testing.T) {
		f := newServiceFixture()
		userID := f.users.addUser(&models.User{
			LastActive:              dayAndMore,
			NotificationPreferences: models.NotificationPreferences{Reminder: boolPtr(false)},
		})

		assert.False(t, f.svc.SendReminderIfInactive(context.Background(), userID))
		assert.Empty(t, f.svc.List(context.Background(), userID, 0))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture()
		assert.False(t, f.svc.SendReminderIfInactive(context.Background(), "missing"))
	})
}

func TestUpdateDeviceToken(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	assert.True(t, f.svc.UpdateDeviceToken(context.Background(), userID, "token-1"))
	assert.Equal(t, "token-1", f.users.users[userID].DeviceToken)

	assert.False(t, f.svc.UpdateDeviceToken(context.Background(), "missing", "token-1"))
}

func TestUpdatePreferences(t *testing.T) {
	f := newServiceFixture()
	userID := f.users.addUser(&models.User{})

	prefs := models.NotificationPreferences{Push: boolPtr(false)}
	assert.True(t, f.svc.UpdatePreferences(context.Background(), userID, prefs))
	assert.False(t, f.users.users[userID].NotificationPreferences.PushEnabled())

	assert.False(t, f.svc.UpdatePreferences(context.Background(), "missing", prefs))
}

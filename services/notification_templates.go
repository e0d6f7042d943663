package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lingora/lingora_backend/models"
)

// reminderInactivity is how long a user must be away before the daily
// reminder fires.
const reminderInactivity = 24 * time.Hour

// Typed senders. Each builds a fixed title/message template for one
// notification type and delegates to Send.

// SendWelcome greets a newly registered user.
func (s *NotificationService) SendWelcome(ctx context.Context, userID, username string) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   fmt.Sprintf("Welcome, %s!", username),
		Message: "Your language journey starts now. Complete your first lesson to earn points!",
		Type:    models.NotificationTypeWelcome,
		Action:  "/lessons",
	})
}

// SendAchievement announces an unlocked achievement.
func (s *NotificationService) SendAchievement(ctx context.Context, userID, achievementID, achievementName string) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Achievement Unlocked!",
		Message: fmt.Sprintf("You earned \"%s\". Keep it up!", achievementName),
		Type:    models.NotificationTypeAchievement,
		Action:  "/achievements",
		Data: map[string]interface{}{
			"achievementId": achievementID,
		},
	})
}

// SendDailyReminder nudges the user toward their daily lesson.
func (s *NotificationService) SendDailyReminder(ctx context.Context, userID, username string) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Time to practice",
		Message: fmt.Sprintf("%s, your daily lesson is waiting for you.", username),
		Type:    models.NotificationTypeReminder,
		Action:  "/lessons",
	})
}

// SendReminderIfInactive sends the daily reminder when the user has been
// away for more than a day and has not opted out of reminders. Scheduled
// jobs call this per user; it reports false when nothing was sent.
func (s *NotificationService) SendReminderIfInactive(ctx context.Context, userID string) bool {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("reminder: failed to load user")
		return false
	}

	if !user.NotificationPreferences.ReminderEnabled() {
		return false
	}
	if time.Since(user.LastActive) <= reminderInactivity {
		return false
	}

	return s.SendDailyReminder(ctx, userID, user.Username)
}

// SendStreakWarning warns that the user's streak expires today.
func (s *NotificationService) SendStreakWarning(ctx context.Context, userID string, streakDays int) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Your streak is in danger!",
		Message: fmt.Sprintf("Practice today to keep your %d-day streak alive.", streakDays),
		Type:    models.NotificationTypeStreak,
		Action:  "/lessons",
		Data: map[string]interface{}{
			"streakDays": streakDays,
		},
	})
}

// SendLessonComplete reports a finished lesson and its score.
func (s *NotificationService) SendLessonComplete(ctx context.Context, userID, lessonTitle string, score int) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Lesson complete",
		Message: fmt.Sprintf("You finished \"%s\" with a score of %d%%.", lessonTitle, score),
		Type:    models.NotificationTypeLesson,
		Action:  "/progress",
		Data: map[string]interface{}{
			"lessonTitle": lessonTitle,
			"score":       score,
		},
	})
}

// SendLevelUp announces a new level.
func (s *NotificationService) SendLevelUp(ctx context.Context, userID string, level int) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Level up!",
		Message: fmt.Sprintf("You reached level %d. Keep going!", level),
		Type:    models.NotificationTypeLevelUp,
		Action:  "/progress",
		Data: map[string]interface{}{
			"level": level,
		},
	})
}

// SendCertificateEarned announces a course certificate.
func (s *NotificationService) SendCertificateEarned(ctx context.Context, userID, courseName string) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   "Certificate earned",
		Message: fmt.Sprintf("Your certificate for \"%s\" is ready to download.", courseName),
		Type:    models.NotificationTypeCertificate,
		Action:  "/certificates",
		Data: map[string]interface{}{
			"courseName": courseName,
		},
	})
}

// SendUpdate delivers a product update announcement.
func (s *NotificationService) SendUpdate(ctx context.Context, userID, title, message string) bool {
	return s.Send(ctx, userID, NotificationInput{
		Title:   title,
		Message: message,
		Type:    models.NotificationTypeUpdate,
		Action:  "/notifications",
	})
}

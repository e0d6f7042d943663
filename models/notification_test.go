package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIcon(t *testing.T) {
	tests := []struct {
		notifType string
		want      string
	}{
		{NotificationTypeAchievement, "🏆"},
		{NotificationTypeReminder, "⏰"},
		{NotificationTypeStreak, "🔥"},
		{NotificationTypeLesson, "📚"},
		{NotificationTypeUpdate, "📢"},
		{NotificationTypeWelcome, "👋"},
		{NotificationTypeLevelUp, "⬆️"},
		{NotificationTypeCertificate, "📜"},
		{NotificationTypeFriend, "👥"},
		{NotificationTypeGeneral, "🔔"},
		{"something-new", "🔔"},
		{"", "🔔"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultIcon(tt.notifType), "type %q", tt.notifType)
	}
}

func TestPreferencesDefaultOn(t *testing.T) {
	enabled := true
	disabled := false

	var prefs NotificationPreferences
	assert.True(t, prefs.PushEnabled(), "absent flag means enabled")
	assert.True(t, prefs.EmailEnabled())
	assert.True(t, prefs.ReminderEnabled())

	prefs = NotificationPreferences{Push: &enabled, Email: &disabled}
	assert.True(t, prefs.PushEnabled())
	assert.False(t, prefs.EmailEnabled())
	assert.True(t, prefs.ReminderEnabled())
}

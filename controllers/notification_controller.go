package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lingora/lingora_backend/middleware"
	"github.com/lingora/lingora_backend/models"
	"github.com/lingora/lingora_backend/services"
)

// NotificationController exposes the notification manager to the UI layer
// and to scheduled jobs. The manager itself never raises; a false result
// maps to a non-2xx status here and nowhere else.
type NotificationController struct {
	service *services.NotificationService
}

func NewNotificationController(service *services.NotificationService) *NotificationController {
	return &NotificationController{service: service}
}

// SendNotificationRequest represents the request body for sending a notification
type SendNotificationRequest struct {
	UserID  string                 `json:"userId" validate:"required"`
	Title   string                 `json:"title" validate:"required"`
	Message string                 `json:"message" validate:"required"`
	Type    string                 `json:"type,omitempty"`
	Icon    string                 `json:"icon,omitempty"`
	Action  string                 `json:"action,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// RemindRequest represents the request body for triggering a daily reminder
type RemindRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// DeviceTokenRequest represents the request body for updating push tokens
type DeviceTokenRequest struct {
	DeviceToken string `json:"deviceToken" validate:"required"`
}

// Send stores a notification for a user and fans it out to the enabled
// channels. Called by system jobs and the admin surface.
func (nc *NotificationController) Send(c echo.Context) error {
	var req SendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Missing required fields",
		})
	}

	ok := nc.service.Send(c.Request().Context(), req.UserID, services.NotificationInput{
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
		Icon:    req.Icon,
		Action:  req.Action,
		Data:    req.Data,
	})
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Notification could not be delivered",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification sent successfully",
	})
}

// Remind sends the daily reminder to a user who has been inactive for more
// than a day and has not opted out. Called by the reminder scheduler; a
// skipped reminder is not an error.
func (nc *NotificationController) Remind(c echo.Context) error {
	var req RemindRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Missing required fields",
		})
	}

	sent := nc.service.SendReminderIfInactive(c.Request().Context(), req.UserID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"sent":    sent,
	})
}

// List returns the authenticated user's notifications, newest first.
func (nc *NotificationController) List(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	notifications := nc.service.List(c.Request().Context(), claims.UserID, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": notifications,
	})
}

// UnreadCount returns the number of unread notifications.
func (nc *NotificationController) UnreadCount(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	count := nc.service.UnreadCount(c.Request().Context(), claims.UserID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"unreadCount": count,
	})
}

// MarkRead marks one notification as read.
func (nc *NotificationController) MarkRead(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.MarkRead(c.Request().Context(), claims.UserID, c.Param("id"))
	return nc.writeResult(c, ok)
}

// MarkAllRead marks every notification as read.
func (nc *NotificationController) MarkAllRead(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.MarkAllRead(c.Request().Context(), claims.UserID)
	return nc.writeResult(c, ok)
}

// Delete removes one notification.
func (nc *NotificationController) Delete(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.Delete(c.Request().Context(), claims.UserID, c.Param("id"))
	return nc.writeResult(c, ok)
}

// DeleteAll clears the notification list.
func (nc *NotificationController) DeleteAll(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.DeleteAll(c.Request().Context(), claims.UserID)
	return nc.writeResult(c, ok)
}

// CheckPermission reports the push permission tri-state.
func (nc *NotificationController) CheckPermission(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	permission := nc.service.CheckPermission(c.Request().Context(), claims.UserID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"permission": permission,
	})
}

// RequestPermission prompts for push permission, short-circuiting on an
// already definitive state.
func (nc *NotificationController) RequestPermission(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	granted := nc.service.RequestPermission(c.Request().Context(), claims.UserID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"granted": granted,
	})
}

// UpdateDeviceToken registers the push registration token for the user.
func (nc *NotificationController) UpdateDeviceToken(c echo.Context) error {
	var req DeviceTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Missing required fields",
		})
	}

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.UpdateDeviceToken(c.Request().Context(), claims.UserID, req.DeviceToken)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to update device token",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Device token updated",
	})
}

// UpdatePreferences replaces the per-channel notification opt-outs.
func (nc *NotificationController) UpdatePreferences(c echo.Context) error {
	var prefs models.NotificationPreferences
	if err := c.Bind(&prefs); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ok := nc.service.UpdatePreferences(c.Request().Context(), claims.UserID, prefs)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to update preferences",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Preferences updated",
	})
}

func (nc *NotificationController) writeResult(c echo.Context, ok bool) error {
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "User not found",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

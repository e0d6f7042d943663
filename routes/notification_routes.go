package routes

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/lingora/lingora_backend/controllers"
	"github.com/lingora/lingora_backend/middleware"
	"github.com/lingora/lingora_backend/services"
	"github.com/lingora/lingora_backend/websocket"
)

// RegisterNotificationRoutes registers all notification-related routes
func RegisterNotificationRoutes(e *echo.Echo, service *services.NotificationService, hub *websocket.Hub, newPoller func(userID string) *services.Poller) {
	notificationController := controllers.NewNotificationController(service)

	// Endpoints for system jobs and the admin surface
	e.POST("/api/notifications/send", notificationController.Send)
	e.POST("/api/notifications/remind", notificationController.Remind)

	// Authenticated routes for the UI layer
	authGroup := e.Group("/api/notifications")
	authGroup.Use(middleware.JWTMiddleware())

	authGroup.GET("", notificationController.List)
	authGroup.GET("/unread-count", notificationController.UnreadCount)
	authGroup.PUT("/:id/read", notificationController.MarkRead)
	authGroup.PUT("/read-all", notificationController.MarkAllRead)
	authGroup.DELETE("/:id", notificationController.Delete)
	authGroup.DELETE("", notificationController.DeleteAll)
	authGroup.GET("/permission", notificationController.CheckPermission)
	authGroup.POST("/permission/request", notificationController.RequestPermission)
	authGroup.POST("/device-token", notificationController.UpdateDeviceToken)
	authGroup.PUT("/preferences", notificationController.UpdatePreferences)

	// Live channel: connected sessions get new notifications immediately and
	// a per-session poller signals unread-count increases.
	wsGroup := e.Group("/api/ws")
	wsGroup.Use(middleware.JWTMiddleware())
	wsGroup.GET("", func(c echo.Context) error {
		claims := middleware.GetUserFromToken(c)
		if claims == nil {
			return echo.ErrUnauthorized
		}

		poller := newPoller(claims.UserID)
		hooks := websocket.SessionHooks{
			OnConnect: func(userID string) {
				poller.Start(context.Background(), userID)
			},
			OnDisconnect: func(string) {
				poller.Stop()
			},
		}
		return websocket.HandleWebSocket(c, hub, claims.UserID, hooks)
	})
}

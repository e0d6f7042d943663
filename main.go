package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/lingora/lingora_backend/config"
	"github.com/lingora/lingora_backend/middleware"
	"github.com/lingora/lingora_backend/repositories"
	"github.com/lingora/lingora_backend/routes"
	"github.com/lingora/lingora_backend/services"
	"github.com/lingora/lingora_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase; push runs unsupported without credentials
	firebaseApp := config.InitFirebase()

	// Connect to Redis (optional, unread-count cache)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub for the live in-app channel
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Wire the notification manager
	userRepo := repositories.NewUserRepository(client)
	emailQueue := repositories.NewEmailQueueRepository(client)

	var pushGateway services.PushGateway
	if firebaseApp != nil {
		pushGateway = services.NewFCMPushGateway(firebaseApp)
	} else {
		pushGateway = services.NewUnsupportedPushGateway()
	}

	notificationService := services.NewNotificationService(userRepo, emailQueue, pushGateway, wsHub)

	// Start the email dispatch worker
	dispatcher := services.NewEmailDispatcher(emailQueue, services.NewSMTPMailerFromEnv())
	dispatcher.Start(context.Background())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Lingora Notification Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Register notification routes; each WebSocket session gets its own
	// unread-count poller signaling over the hub.
	routes.RegisterNotificationRoutes(e, notificationService, wsHub, func(userID string) *services.Poller {
		return services.NewPoller(notificationService, redisClient, func(count int) {
			wsHub.SignalUnread(userID, count)
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

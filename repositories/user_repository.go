package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lingora/lingora_backend/config"
	"github.com/lingora/lingora_backend/models"
)

// ErrUserNotFound is returned when the target user record does not exist.
var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Client) *UserRepository {
	return &UserRepository{
		collection: config.GetCollection(db, "users"),
	}
}

// GetUser fetches the full user record.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveNotifications replaces the user's notification list. The whole field
// is rewritten; concurrent writers race with last-write-wins semantics.
func (r *UserRepository) SaveNotifications(ctx context.Context, userID string, list []models.Notification) error {
	return r.setFields(ctx, userID, bson.M{"notifications": list})
}

// RecordNotification replaces the notification list and stamps the time the
// latest notification was delivered.
func (r *UserRepository) RecordNotification(ctx context.Context, userID string, list []models.Notification, at time.Time) error {
	return r.setFields(ctx, userID, bson.M{
		"notifications":      list,
		"lastNotificationAt": at,
	})
}

// SetPushPermission persists the platform permission state for the user.
func (r *UserRepository) SetPushPermission(ctx context.Context, userID string, permission string) error {
	return r.setFields(ctx, userID, bson.M{"pushPermission": permission})
}

// SetDeviceToken registers or replaces the user's push registration token.
func (r *UserRepository) SetDeviceToken(ctx context.Context, userID string, token string) error {
	return r.setFields(ctx, userID, bson.M{"deviceToken": token})
}

// SetPreferences replaces the user's per-channel notification opt-outs.
func (r *UserRepository) SetPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	return r.setFields(ctx, userID, bson.M{"notificationPreferences": prefs})
}

func (r *UserRepository) setFields(ctx context.Context, userID string, fields bson.M) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrUserNotFound
	}

	fields["updatedAt"] = time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

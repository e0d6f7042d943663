package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lingora/lingora_backend/config"
	"github.com/lingora/lingora_backend/models"
)

// EmailQueueRepository is the append-only staging store for outbound email
// jobs. The notification manager enqueues; the email dispatcher drains.
type EmailQueueRepository struct {
	collection *mongo.Collection
}

func NewEmailQueueRepository(db *mongo.Client) *EmailQueueRepository {
	return &EmailQueueRepository{
		collection: config.GetCollection(db, "emailQueue"),
	}
}

// Enqueue appends a new job to the queue.
func (r *EmailQueueRepository) Enqueue(ctx context.Context, job *models.EmailJob) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Status == "" {
		job.Status = models.EmailStatusPending
	}

	_, err := r.collection.InsertOne(ctx, job)
	return err
}

// ListPending returns up to limit pending jobs, oldest first.
func (r *EmailQueueRepository) ListPending(ctx context.Context, limit int) ([]models.EmailJob, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"status": models.EmailStatusPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.EmailJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkSent records a successful delivery.
func (r *EmailQueueRepository) MarkSent(ctx context.Context, jobID primitive.ObjectID) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": jobID},
		bson.M{"$set": bson.M{"status": models.EmailStatusSent, "sentAt": now}},
	)
	return err
}

// MarkFailed records a failed delivery. Failed jobs are not retried by this
// subsystem.
func (r *EmailQueueRepository) MarkFailed(ctx context.Context, jobID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": jobID},
		bson.M{"$set": bson.M{"status": models.EmailStatusFailed}},
	)
	return err
}

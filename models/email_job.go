// models/email_job.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Email job statuses
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// EmailJob is an entry in the outbound email queue. The notification
// manager only appends pending entries; a background dispatcher drains them.
type EmailJob struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Subject   string             `json:"subject" bson:"subject"`
	Body      string             `json:"body" bson:"body"`
	Type      string             `json:"type" bson:"type"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	SentAt    *time.Time         `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	UserID    string             `json:"userId" bson:"userId"`
}

package messaging

import (
	"context"
	"fmt"
	"time"

	"medvisit/database"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// ThreadService creates a chat thread for an accepted booking. Message
// delivery itself is outside the engine.
type ThreadService interface {
	CreateThread(ctx context.Context, bookingID, patientID, practitionerID string) (string, error)
}

type thread struct {
	ID             string    `bson:"id"`
	BookingID      string    `bson:"booking_id"`
	PatientID      string    `bson:"patient_id"`
	PractitionerID string    `bson:"practitioner_id"`
	CreatedAt      time.Time `bson:"created_at"`
}

// MongoThreadService records the thread row the chat service reads from.
type MongoThreadService struct {
	coll *mongo.Collection
}

func NewMongoThreadService() *MongoThreadService {
	return &MongoThreadService{coll: database.DB().Collection("threads")}
}

func (s *MongoThreadService) CreateThread(ctx context.Context, bookingID, patientID, practitionerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	t := thread{
		ID:             uuid.New().String(),
		BookingID:      bookingID,
		PatientID:      patientID,
		PractitionerID: practitionerID,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return t.ID, nil
}

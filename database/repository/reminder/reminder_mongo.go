package reminderRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medvisit/apperrors"
	"medvisit/database"
	"medvisit/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const opTimeout = 5 * time.Second

// MongoReminderRepo is the MongoDB-backed implementation.
type MongoReminderRepo struct {
	coll *mongo.Collection
}

func NewMongoReminderRepo() *MongoReminderRepo {
	return &MongoReminderRepo{coll: database.DB().Collection("reminders")}
}

func (r *MongoReminderRepo) Create(ctx context.Context, reminder *models.Reminder) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, reminder); err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (r *MongoReminderRepo) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var reminder models.Reminder
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&reminder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("reminder", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reminder: %w", err)
	}
	return &reminder, nil
}

func (r *MongoReminderRepo) ListUnsentByBooking(ctx context.Context, bookingID string) ([]models.Reminder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID, "sent": false})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	var reminders []models.Reminder
	if err := cur.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	return reminders, nil
}

// MarkSent uses a filtered update so only one caller can flip the flag.
func (r *MongoReminderRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "sent": false},
		bson.M{"$set": bson.M{"sent": true}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoReminderRepo) DeleteUnsentByBooking(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"booking_id": bookingID, "sent": false}); err != nil {
		return fmt.Errorf("failed to delete reminders: %w", err)
	}
	return nil
}

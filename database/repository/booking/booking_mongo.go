package bookingRepo

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

var activeStatuses = []models.BookingStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusEnRoute,
	models.StatusInProgress,
}

// MongoBookingRepo is the MongoDB-backed implementation.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{coll: database.DB().Collection("bookings")}
}

func overlapFilter(practitionerID string, start, end time.Time, excludeID string) bson.M {
	filter := bson.M{
		"practitioner_id":    practitionerID,
		"status":             bson.M{"$in": activeStatuses},
		"scheduled_at":       bson.M{"$lt": end},
		"scheduled_end_time": bson.M{"$gt": start},
	}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

// CreateWithConflictCheck inserts the booking inside a Mongo transaction,
// re-checking for overlapping active bookings first. The session makes the
// check-and-insert atomic so two concurrent requests for the same window
// cannot both commit.
func (r *MongoBookingRepo) CreateWithConflictCheck(ctx context.Context, booking *models.Booking) error {
	return r.withConflictCheck(ctx, booking, func(sc mongo.SessionContext) error {
		if _, err := r.coll.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	})
}

// UpdateScheduleWithConflictCheck persists a reschedule with the same
// transactional overlap guarantee, excluding the booking itself from the
// conflict scan.
func (r *MongoBookingRepo) UpdateScheduleWithConflictCheck(ctx context.Context, booking *models.Booking) error {
	return r.withConflictCheck(ctx, booking, func(sc mongo.SessionContext) error {
		return r.replace(sc, booking)
	})
}

func (r *MongoBookingRepo) withConflictCheck(ctx context.Context, booking *models.Booking, write func(mongo.SessionContext) error) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := overlapFilter(booking.PractitionerID, booking.ScheduledAt, booking.ScheduledEndTime, booking.ID)
		count, err := r.coll.CountDocuments(sc, filter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if count > 0 {
			return apperrors.Conflict(apperrors.ReasonOverlap, "requested time overlaps an existing booking")
		}
		return write(sc)
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		var app *apperrors.AppError
		if errors.As(err, &app) {
			return app
		}
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.replace(ctx, booking)
}

func (r *MongoBookingRepo) replace(ctx context.Context, booking *models.Booking) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": booking.ID}, booking)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("booking", booking.ID)
	}
	return nil
}

func (r *MongoBookingRepo) FindActiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	return r.find(ctx, overlapFilter(practitionerID, start, end, excludeID))
}

func (r *MongoBookingRepo) FindActiveBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error) {
	return r.find(ctx, overlapFilter(practitionerID, from, to, ""))
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

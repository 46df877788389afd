package tracking

import (
	"context"
	"fmt"
	"time"

	"medvisit/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VisitTracker initializes the live-location record when a visit starts.
// Location updates and ETA math live outside the engine.
type VisitTracker interface {
	StartTracking(ctx context.Context, bookingID, practitionerID string) error
}

// MongoVisitTracker upserts the tracking record the location service feeds.
type MongoVisitTracker struct {
	coll *mongo.Collection
}

func NewMongoVisitTracker() *MongoVisitTracker {
	return &MongoVisitTracker{coll: database.DB().Collection("visit_tracking")}
}

func (t *MongoVisitTracker) StartTracking(ctx context.Context, bookingID, practitionerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"booking_id": bookingID}
	update := bson.M{"$set": bson.M{
		"booking_id":      bookingID,
		"practitioner_id": practitionerID,
		"active":          true,
		"started_at":      time.Now().UTC(),
	}}
	if _, err := t.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to start visit tracking: %w", err)
	}
	return nil
}

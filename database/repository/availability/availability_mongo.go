package availabilityRepo

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

// MongoAvailabilityRepo is the MongoDB-backed implementation.
type MongoAvailabilityRepo struct {
	windowColl   *mongo.Collection
	blackoutColl *mongo.Collection
	settingsColl *mongo.Collection
}

func NewMongoAvailabilityRepo() *MongoAvailabilityRepo {
	db := database.DB()
	return &MongoAvailabilityRepo{
		windowColl:   db.Collection("availability_windows"),
		blackoutColl: db.Collection("blackouts"),
		settingsColl: db.Collection("scheduling_settings"),
	}
}

func (r *MongoAvailabilityRepo) CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.windowColl.InsertOne(ctx, window); err != nil {
		return fmt.Errorf("failed to insert availability window: %w", err)
	}
	return nil
}

func (r *MongoAvailabilityRepo) UpdateWindow(ctx context.Context, window *models.AvailabilityWindow) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"id": window.ID, "practitioner_id": window.PractitionerID}
	update := bson.M{"$set": bson.M{
		"day_of_week": window.DayOfWeek,
		"start_time":  window.StartTime,
		"end_time":    window.EndTime,
		"active":      window.Active,
	}}
	res, err := r.windowColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update availability window: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("availability window", window.ID)
	}
	return nil
}

func (r *MongoAvailabilityRepo) DeleteWindow(ctx context.Context, practitionerID, windowID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.windowColl.DeleteOne(ctx, bson.M{"id": windowID, "practitioner_id": practitionerID})
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("availability window", windowID)
	}
	return nil
}

func (r *MongoAvailabilityRepo) ListWindows(ctx context.Context, practitionerID string) ([]models.AvailabilityWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "day_of_week", Value: 1}, {Key: "start_time", Value: 1}})
	cur, err := r.windowColl.Find(ctx, bson.M{"practitioner_id": practitionerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	var windows []models.AvailabilityWindow
	if err := cur.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability windows: %w", err)
	}
	return windows, nil
}

func (r *MongoAvailabilityRepo) ListWindowsForDay(ctx context.Context, practitionerID string, day time.Weekday) ([]models.AvailabilityWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"practitioner_id": practitionerID,
		"day_of_week":     int(day),
		"active":          true,
	}
	cur, err := r.windowColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list windows for day: %w", err)
	}
	var windows []models.AvailabilityWindow
	if err := cur.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode windows for day: %w", err)
	}
	return windows, nil
}

func (r *MongoAvailabilityRepo) ReplaceWindows(ctx context.Context, practitionerID string, windows []models.AvailabilityWindow) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.windowColl.DeleteMany(ctx, bson.M{"practitioner_id": practitionerID}); err != nil {
		return fmt.Errorf("failed to clear availability windows: %w", err)
	}
	if len(windows) == 0 {
		return nil
	}
	docs := make([]any, len(windows))
	for i := range windows {
		docs[i] = windows[i]
	}
	if _, err := r.windowColl.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert availability windows: %w", err)
	}
	return nil
}

func (r *MongoAvailabilityRepo) CreateBlackout(ctx context.Context, blackout *models.Blackout) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.blackoutColl.InsertOne(ctx, blackout); err != nil {
		return fmt.Errorf("failed to insert blackout: %w", err)
	}
	return nil
}

func (r *MongoAvailabilityRepo) DeleteBlackout(ctx context.Context, practitionerID, blackoutID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.blackoutColl.DeleteOne(ctx, bson.M{"id": blackoutID, "practitioner_id": practitionerID})
	if err != nil {
		return fmt.Errorf("failed to delete blackout: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("blackout", blackoutID)
	}
	return nil
}

func (r *MongoAvailabilityRepo) ListBlackouts(ctx context.Context, practitionerID string) ([]models.Blackout, error) {
	return r.findBlackouts(ctx, bson.M{"practitioner_id": practitionerID})
}

func (r *MongoAvailabilityRepo) ListBlackoutsBetween(ctx context.Context, practitionerID, fromDate, toDate string) ([]models.Blackout, error) {
	filter := bson.M{
		"practitioner_id": practitionerID,
		"date":            bson.M{"$gte": fromDate, "$lte": toDate},
	}
	return r.findBlackouts(ctx, filter)
}

func (r *MongoAvailabilityRepo) findBlackouts(ctx context.Context, filter bson.M) ([]models.Blackout, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.blackoutColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list blackouts: %w", err)
	}
	var blackouts []models.Blackout
	if err := cur.All(ctx, &blackouts); err != nil {
		return nil, fmt.Errorf("failed to decode blackouts: %w", err)
	}
	return blackouts, nil
}

func (r *MongoAvailabilityRepo) GetSettings(ctx context.Context, practitionerID string) (*models.SchedulingSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var settings models.SchedulingSettings
	err := r.settingsColl.FindOne(ctx, bson.M{"practitioner_id": practitionerID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultSchedulingSettings(practitionerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scheduling settings: %w", err)
	}
	return &settings, nil
}

func (r *MongoAvailabilityRepo) UpsertSettings(ctx context.Context, settings *models.SchedulingSettings) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"practitioner_id": settings.PractitionerID}
	update := bson.M{"$set": bson.M{
		"slot_duration_minutes": settings.SlotDurationMinutes,
		"buffer_minutes":        settings.BufferMinutes,
		"updated_at":            settings.UpdatedAt,
	}}
	if _, err := r.settingsColl.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert scheduling settings: %w", err)
	}
	return nil
}

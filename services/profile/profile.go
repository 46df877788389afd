package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medvisit/apperrors"
	"medvisit/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Party roles used across ownership checks and notifications.
const (
	RolePatient      = "patient"
	RolePractitioner = "practitioner"
)

// PractitionerProfile is the slice of the identity service the booking
// engine needs at creation time.
type PractitionerProfile struct {
	Verified  bool `bson:"verified"`
	Available bool `bson:"available"`
}

// Directory exposes identity/profile lookups. Account management itself is
// an external concern; only these reads cross into the engine.
type Directory interface {
	GetPractitionerProfile(ctx context.Context, practitionerID string) (*PractitionerProfile, error)
	// FCMToken resolves a party's push token for notification delivery.
	FCMToken(ctx context.Context, userID, role string) (string, error)
}

// MongoDirectory reads the profile collections maintained by the identity
// service.
type MongoDirectory struct {
	practitionerColl *mongo.Collection
	patientColl      *mongo.Collection
}

func NewMongoDirectory() *MongoDirectory {
	db := database.DB()
	return &MongoDirectory{
		practitionerColl: db.Collection("practitioners"),
		patientColl:      db.Collection("patients"),
	}
}

func (d *MongoDirectory) GetPractitionerProfile(ctx context.Context, practitionerID string) (*PractitionerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var profile PractitionerProfile
	err := d.practitionerColl.FindOne(ctx, bson.M{"id": practitionerID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("practitioner", practitionerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch practitioner profile: %w", err)
	}
	return &profile, nil
}

func (d *MongoDirectory) FCMToken(ctx context.Context, userID, role string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	coll := d.patientColl
	if role == RolePractitioner {
		coll = d.practitionerColl
	}

	var doc struct {
		FCMToken string `bson:"fcm_token"`
	}
	err := coll.FindOne(ctx, bson.M{"id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", apperrors.NotFound(role, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch fcm token: %w", err)
	}
	return doc.FCMToken, nil
}

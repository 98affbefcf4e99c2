package session

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// sessionDoc reuses the owning user's id as its own _id (spec.md §4.4: "at
// most one session document per user id ... enforced by _id being the user
// id"), matching original_source/server/src/session.rs's Session.
type sessionDoc struct {
	ID    bson.ObjectID `bson:"_id"`
	Start time.Time     `bson:"start"`
}

func (s sessionDoc) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.Start) > ttl
}

// MongoStore is the Mongo-backed implementation of Store, living in the
// "SESSIONS.sessions" namespace spec.md §6 names.
type MongoStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

// NewMongoStore wraps client's SESSIONS.sessions collection. ttl is the
// session expiry window (spec.md §4.4 default: 600 seconds).
func NewMongoStore(client *mongo.Client, ttl time.Duration) *MongoStore {
	return &MongoStore{
		collection: client.Database("SESSIONS").Collection("sessions"),
		ttl:        ttl,
	}
}

func (s *MongoStore) Start(ctx context.Context, userID string) error {
	status, err := s.CheckActive(ctx, userID)
	if err != nil {
		return err
	}
	if status == Active {
		return nil
	}

	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("session: invalid user id: %w", err)
	}

	doc := sessionDoc{ID: oid, Start: time.Now().UTC()}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("session: start: %w", err)
	}
	return nil
}

func (s *MongoStore) End(ctx context.Context, userID string) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("session: invalid user id: %w", err)
	}

	if _, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
		return fmt.Errorf("session: end: %w", err)
	}
	return nil
}

func (s *MongoStore) CheckActive(ctx context.Context, userID string) (Status, error) {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return NotFound, fmt.Errorf("session: invalid user id: %w", err)
	}

	var doc sessionDoc
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return NotFound, nil
		}
		return NotFound, fmt.Errorf("session: check active: %w", err)
	}

	if doc.expired(s.ttl, time.Now().UTC()) {
		if _, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
			return NotFound, fmt.Errorf("session: delete expired: %w", err)
		}
		return Expired, nil
	}
	return Active, nil
}

var _ Store = (*MongoStore)(nil)

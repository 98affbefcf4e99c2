package identity

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// userDoc is the on-disk shape of a user record (spec.md §3's User entity),
// grounded on original_source/server/src/user.rs's SensitiveUser.
type userDoc struct {
	ID           bson.ObjectID   `bson:"_id"`
	Username     string          `bson:"username"`
	PasswordHash string          `bson:"password_hash"`
	Online       bool            `bson:"online"`
	Guilds       []bson.ObjectID `bson:"guilds"`
}

func (u userDoc) toUser() User {
	guilds := make([]string, len(u.Guilds))
	for i, g := range u.Guilds {
		guilds[i] = g.Hex()
	}
	return User{ID: u.ID.Hex(), Username: u.Username, Online: u.Online, Guilds: guilds}
}

// MongoStore is the Mongo-backed implementation of Store. It holds the
// "USERS" database's "users" collection, matching the namespace layout
// spec.md §6 specifies ("USERS.users (indexed by username unique)").
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps client's USERS.users collection. Callers should call
// EnsureIndexes once at startup.
func NewMongoStore(client *mongo.Client) *MongoStore {
	return &MongoStore{collection: client.Database("USERS").Collection("users")}
}

// EnsureIndexes creates the unique username index spec.md §4.5 requires.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("identity: create username index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, username, password string, online bool) (string, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return "", err
	}

	doc := userDoc{
		ID:           bson.NewObjectID(),
		Username:     username,
		PasswordHash: hash,
		Online:       online,
		Guilds:       []bson.ObjectID{},
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("identity: insert user: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid user id: %w", err)
	}

	var doc userDoc
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: get user: %w", err)
	}
	user := doc.toUser()
	return &user, nil
}

func (s *MongoStore) FindByName(ctx context.Context, name string) ([]User, error) {
	cursor, err := s.collection.Find(ctx, bson.D{{Key: "username", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("identity: find by name: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("identity: decode user: %w", err)
		}
		users = append(users, doc.toUser())
	}
	return users, cursor.Err()
}

func (s *MongoStore) CheckCredentials(ctx context.Context, userID, username, password string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return false, fmt.Errorf("identity: invalid user id: %w", err)
	}

	var doc userDoc
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("identity: check credentials: %w", err)
	}

	return doc.Username == username && verifyPassword(password, doc.PasswordHash), nil
}

func (s *MongoStore) SetStatus(ctx context.Context, userID string, online bool) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("identity: invalid user id: %w", err)
	}

	_, err = s.collection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "online", Value: online}}}},
	)
	if err != nil {
		return fmt.Errorf("identity: set status: %w", err)
	}
	return nil
}

func (s *MongoStore) AddGuild(ctx context.Context, userID, guildID string) error {
	userOID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("identity: invalid user id: %w", err)
	}
	guildOID, err := bson.ObjectIDFromHex(guildID)
	if err != nil {
		return fmt.Errorf("identity: invalid guild id: %w", err)
	}

	_, err = s.collection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userOID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "guilds", Value: guildOID}}}},
	)
	if err != nil {
		return fmt.Errorf("identity: add guild: %w", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)

package guild

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// configDoc is the sole document in a guild database's reserved "config"
// collection (spec.md §6), grounded on
// original_source/server/src/server_handler.rs's ServerConfig.
type configDoc struct {
	ID     bson.ObjectID   `bson:"_id,omitempty"`
	Name   string          `bson:"name"`
	Admins []bson.ObjectID `bson:"admins"`
	Users  []bson.ObjectID `bson:"users"`
}

func (c configDoc) toConfig() *Config {
	return &Config{Name: c.Name, Admins: objectIDsToHex(c.Admins), Users: objectIDsToHex(c.Users)}
}

func objectIDsToHex(ids []bson.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// messageDoc is one message within a blockDoc.
type messageDoc struct {
	Content string `bson:"content"`
	Author  string `bson:"author"`
}

// blockDoc is one document in a channel collection.
type blockDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Messages  []messageDoc  `bson:"messages"`
	CreatedAt time.Time     `bson:"created_at"`
	Filled    bool          `bson:"filled"`
}

func (b blockDoc) toBlock() Block {
	msgs := make([]Message, len(b.Messages))
	for i, m := range b.Messages {
		msgs[i] = Message{Content: m.Content, Author: m.Author}
	}
	return Block{ID: b.ID.Hex(), Messages: msgs, CreatedAt: b.CreatedAt, Filled: b.Filled}
}

func blockToDoc(b Block) blockDoc {
	msgs := make([]messageDoc, len(b.Messages))
	for i, m := range b.Messages {
		msgs[i] = messageDoc{Content: m.Content, Author: m.Author}
	}
	return blockDoc{Messages: msgs, CreatedAt: b.CreatedAt, Filled: b.Filled}
}

// MongoStore is the Mongo-backed implementation of Store. Each guild owns
// its own database, named by its hex id, holding a "config" collection plus
// one collection per channel (spec.md §6).
type MongoStore struct {
	client *mongo.Client
	locks  *ChannelLockRegistry
}

// NewMongoStore wraps client. The caller must launch locks.Run() as a
// goroutine before using the returned store.
func NewMongoStore(client *mongo.Client, locks *ChannelLockRegistry) *MongoStore {
	return &MongoStore{client: client, locks: locks}
}

func (s *MongoStore) configCollection(guildID string) *mongo.Collection {
	return s.client.Database(guildID).Collection(reservedConfigName)
}

func (s *MongoStore) loadConfig(ctx context.Context, guildID string) (*configDoc, error) {
	var doc configDoc
	err := s.configCollection(guildID).FindOne(ctx, bson.D{}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("guild: load config: %w", err)
	}
	return &doc, nil
}

func (s *MongoStore) CreateGuild(ctx context.Context, actorUserID, name string) (string, error) {
	actorOID, err := bson.ObjectIDFromHex(actorUserID)
	if err != nil {
		return "", fmt.Errorf("guild: invalid actor id: %w", err)
	}

	guildID := bson.NewObjectID()
	doc := configDoc{
		ID:     bson.NewObjectID(),
		Name:   name,
		Admins: []bson.ObjectID{actorOID},
		Users:  []bson.ObjectID{actorOID},
	}
	if _, err := s.client.Database(guildID.Hex()).Collection(reservedConfigName).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("guild: create: %w", err)
	}
	return guildID.Hex(), nil
}

func (s *MongoStore) DeleteGuild(ctx context.Context, actorUserID, guildID string) error {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return err
	}
	if err := checkAdmin(cfg.toConfig(), actorUserID); err != nil {
		return err
	}
	if err := s.client.Database(guildID).Drop(ctx); err != nil {
		return fmt.Errorf("guild: drop: %w", err)
	}
	return nil
}

func (s *MongoStore) GetName(ctx context.Context, guildID string) (string, error) {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

func (s *MongoStore) channelNames(ctx context.Context, guildID string) ([]string, error) {
	names, err := s.client.Database(guildID).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("guild: list collections: %w", err)
	}
	out := names[:0]
	for _, n := range names {
		if n != reservedConfigName {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MongoStore) channelExists(ctx context.Context, guildID, name string) (bool, error) {
	names, err := s.channelNames(ctx, guildID)
	if err != nil {
		return false, err
	}
	return contains(names, name), nil
}

func (s *MongoStore) CreateChannel(ctx context.Context, actorUserID, guildID, name string) error {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return err
	}
	if err := checkAdmin(cfg.toConfig(), actorUserID); err != nil {
		return err
	}

	if name == reservedConfigName {
		return ErrChannelExists
	}
	exists, err := s.channelExists(ctx, guildID, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrChannelExists
	}

	doc := blockToDoc(newOpeningBlock(time.Now().UTC()))
	if _, err := s.client.Database(guildID).Collection(name).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("guild: create channel: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteChannel(ctx context.Context, actorUserID, guildID, name string) error {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return err
	}
	if err := checkAdmin(cfg.toConfig(), actorUserID); err != nil {
		return err
	}

	exists, err := s.channelExists(ctx, guildID, name)
	if err != nil {
		return err
	}
	if !exists {
		return ErrChannelNotFound
	}

	if err := s.client.Database(guildID).Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("guild: delete channel: %w", err)
	}
	return nil
}

func (s *MongoStore) ListChannels(ctx context.Context, actorUserID, guildID string) ([]string, error) {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := checkMember(cfg.toConfig(), actorUserID); err != nil {
		return nil, err
	}
	return s.channelNames(ctx, guildID)
}

func (s *MongoStore) SendMessage(ctx context.Context, actorUserID, guildID, channel, content, authorUsername string) error {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return err
	}
	if err := checkMember(cfg.toConfig(), actorUserID); err != nil {
		return err
	}

	exists, err := s.channelExists(ctx, guildID, channel)
	if err != nil {
		return err
	}
	if !exists {
		return ErrChannelNotFound
	}

	unlock, err := s.locks.Lock(ctx, guildID+"/"+channel)
	if err != nil {
		return fmt.Errorf("guild: acquire channel lock: %w", err)
	}
	defer unlock()

	coll := s.client.Database(guildID).Collection(channel)

	var open blockDoc
	err = coll.FindOne(ctx, bson.D{{Key: "filled", Value: false}}).Decode(&open)
	msg := Message{Content: content, Author: authorUsername}

	if err == mongo.ErrNoDocuments {
		doc := blockToDoc(newBlock(msg, time.Now().UTC()))
		_, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("guild: insert block: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("guild: find open block: %w", err)
	}

	updated := appendMessage(open.toBlock(), msg)
	doc := blockToDoc(updated)
	doc.ID = open.ID
	_, err = coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: open.ID}}, doc)
	if err != nil {
		return fmt.Errorf("guild: replace block: %w", err)
	}
	return nil
}

func (s *MongoStore) GetBlock(ctx context.Context, actorUserID, guildID, channel string, blockIndex uint32) ([]Message, bool, error) {
	cfg, err := s.loadConfig(ctx, guildID)
	if err != nil {
		return nil, false, err
	}
	if err := checkMember(cfg.toConfig(), actorUserID); err != nil {
		return nil, false, err
	}

	coll := s.client.Database(guildID).Collection(channel)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, false, fmt.Errorf("guild: find blocks: %w", err)
	}
	defer cursor.Close(ctx)

	idx := uint32(0)
	for cursor.Next(ctx) {
		if idx == blockIndex {
			var doc blockDoc
			if err := cursor.Decode(&doc); err != nil {
				return nil, false, fmt.Errorf("guild: decode block: %w", err)
			}
			return doc.toBlock().Messages, true, nil
		}
		idx++
	}
	if err := cursor.Err(); err != nil {
		return nil, false, fmt.Errorf("guild: iterate blocks: %w", err)
	}
	return nil, false, nil
}

var _ Store = (*MongoStore)(nil)

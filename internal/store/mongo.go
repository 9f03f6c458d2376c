package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatrelay/internal/domain"
)

const (
	roomsCollection    = "rooms"
	messagesCollection = "messages"

	opTimeout = 5 * time.Second
)

// roomDocument is the provisioned authorization record for one room.
type roomDocument struct {
	Name  string   `bson:"name"`
	Users []string `bson:"users"`
}

// MongoStore implements Store on MongoDB. All messages live in a single
// collection keyed by a room field; the room name is only ever passed as a
// query value, never spliced into a collection name.
type MongoStore struct {
	client   *mongo.Client
	rooms    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore connects to MongoDB, verifies the connection, and ensures
// the indexes the relay relies on.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		rooms:    db.Collection(roomsCollection),
		messages: db.Collection(messagesCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.rooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to index rooms: %w", err)
	}

	// History reads are always (room, timestamp ascending).
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to index messages: %w", err)
	}

	return nil
}

// GetAuthorizedUsers returns the authorized username set for room, or
// ErrRoomNotFound when the room was never provisioned.
func (s *MongoStore) GetAuthorizedUsers(ctx context.Context, room string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc roomDocument
	err := s.rooms.FindOne(ctx, bson.M{"name": domain.Normalize(room)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up room %q: %w", room, err)
	}

	return doc.Users, nil
}

// AppendMessage persists one chat message with a server-assigned timestamp
// and returns the stored record.
func (s *MongoStore) AppendMessage(ctx context.Context, room, username, message string) (domain.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	msg := domain.ChatMessage{
		Room:      domain.Normalize(room),
		Username:  domain.Normalize(username),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

// GetHistory returns all persisted messages for room, oldest first.
func (s *MongoStore) GetHistory(ctx context.Context, room string) ([]domain.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.messages.Find(ctx,
		bson.M{"room": domain.Normalize(room)},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer cursor.Close(ctx)

	var history []domain.ChatMessage
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	return history, nil
}

// ProvisionRoom upserts a room's authorized user set. Provisioning is an
// operator task outside the relay's runtime path; the relay itself only
// reads the directory.
func (s *MongoStore) ProvisionRoom(ctx context.Context, room string, users []string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	normalized := make([]string, 0, len(users))
	for _, u := range users {
		normalized = append(normalized, domain.Normalize(u))
	}

	_, err := s.rooms.UpdateOne(ctx,
		bson.M{"name": domain.Normalize(room)},
		bson.M{"$set": bson.M{"users": normalized}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to provision room %q: %w", room, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

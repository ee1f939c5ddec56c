package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/message"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI      string
	Database string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:      "mongodb://localhost:27017",
		Database: "kgpgpt",
	}
}

// MongoStore keeps conversations and messages in two collections.
type MongoStore struct {
	client        *mongo.Client
	conversations *mongo.Collection
	messages      *mongo.Collection
}

var _ conversation.Store = (*MongoStore)(nil)

type mongoConversation struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Active    bool      `bson:"is_active"`
}

type mongoMessage struct {
	ID             string         `bson:"_id"`
	ConversationID string         `bson:"conversation_id"`
	Role           string         `bson:"role"`
	Content        string         `bson:"content"`
	Metadata       map[string]any `bson:"metadata"`
	CreatedAt      time.Time      `bson:"created_at"`
}

// NewMongoStore connects, pings and creates the indexes.
func NewMongoStore(ctx context.Context, config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	store := &MongoStore{
		client:        client,
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
	if err := store.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	if _, err := s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

// CreateConversation upserts conv by _id.
func (s *MongoStore) CreateConversation(ctx context.Context, conv *conversation.Conversation) error {
	if err := conversation.Prepare(conv, time.Now()); err != nil {
		return err
	}
	doc := mongoConversation{
		ID:        conv.ID,
		UserID:    conv.UserID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Active:    conv.Active,
	}
	_, err := s.conversations.ReplaceOne(ctx, bson.M{"_id": conv.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store conversation in MongoDB: %w", err)
	}
	return nil
}

// ListConversations returns userID's conversations, most recently updated first.
func (s *MongoStore) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	cursor, err := s.conversations.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoConversation
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	out := make([]*conversation.Conversation, len(docs))
	for i, d := range docs {
		out[i] = d.toConversation()
	}
	return out, nil
}

// GetConversation returns one conversation.
func (s *MongoStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	var doc mongoConversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, conversation.NotFound(id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return doc.toConversation(), nil
}

// DeleteConversation removes a conversation and its messages.
func (s *MongoStore) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.conversations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if result.DeletedCount == 0 {
		return conversation.NotFound(id)
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{"conversation_id": id}); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// AddMessage inserts msg and bumps the conversation's updated_at.
func (s *MongoStore) AddMessage(ctx context.Context, msg *conversation.Message) error {
	now := time.Now()
	if err := conversation.PrepareMessage(msg, now); err != nil {
		return err
	}
	res, err := s.conversations.UpdateOne(ctx, bson.M{"_id": msg.ConversationID},
		bson.M{"$set": bson.M{"updated_at": now}})
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return conversation.NotFound(msg.ConversationID)
	}
	doc := mongoMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Metadata:       msg.Metadata,
		CreatedAt:      msg.CreatedAt,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to store message in MongoDB: %w", err)
	}
	return nil
}

// Messages returns a conversation's messages oldest first.
func (s *MongoStore) Messages(ctx context.Context, conversationID string) ([]*conversation.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	out := make([]*conversation.Message, len(docs))
	for i, d := range docs {
		out[i] = &conversation.Message{
			ID:             d.ID,
			ConversationID: d.ConversationID,
			Role:           message.Role(d.Role),
			Content:        d.Content,
			Metadata:       d.Metadata,
			CreatedAt:      d.CreatedAt,
		}
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks if MongoDB connection is alive
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// drop removes both collections. Tests use it to start clean.
func (s *MongoStore) drop(ctx context.Context) error {
	if err := s.messages.Drop(ctx); err != nil {
		return err
	}
	return s.conversations.Drop(ctx)
}

func (d mongoConversation) toConversation() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Active:    d.Active,
	}
}

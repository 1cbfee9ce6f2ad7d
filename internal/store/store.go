// Package store persists chat settings and usage statistics. Two
// backends are provided: flat JSON files for single-instance
// deployments and MongoDB for deployments that need atomic per-key
// updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"voice_translator_bot/internal/config"
)

// Collection names used by the Mongo backend.
const (
	CollectionChatSettings = "chat_settings"
	CollectionUsageUsers   = "usage_users"
	CollectionUsageChats   = "usage_chats"
	CollectionUsageDaily   = "usage_daily"
)

// nowFunc is overridable for tests.
var nowFunc = time.Now

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// Manager owns a MongoDB client and the configured database handle.
type Manager struct {
	client mongoClient
	db     *mongo.Database
}

// NewManager initializes the Mongo client using the supplied configuration and
// verifies connectivity with a ping.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Manager{
		client: client,
		db:     client.Database(cfg.MongoDB),
	}, nil
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Collection returns a collection handle for the given name.
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// ChatSettings returns the chat settings collection handle.
func (m *Manager) ChatSettings() *mongo.Collection {
	return m.Collection(CollectionChatSettings)
}

// UsageUsers returns the per-user usage collection handle.
func (m *Manager) UsageUsers() *mongo.Collection {
	return m.Collection(CollectionUsageUsers)
}

// UsageChats returns the per-chat usage collection handle.
func (m *Manager) UsageChats() *mongo.Collection {
	return m.Collection(CollectionUsageChats)
}

// UsageDaily returns the per-day usage collection handle.
func (m *Manager) UsageDaily() *mongo.Collection {
	return m.Collection(CollectionUsageDaily)
}

// Ping verifies connectivity to the primary.
func (m *Manager) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.client == nil {
		return errors.New("store manager is not initialized")
	}

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// EnsureBaseIndexes creates the foundational indexes for the settings and
// usage collections. Collections are created implicitly if they do not
// already exist.
func (m *Manager) EnsureBaseIndexes(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}

	unique := func(key, name string) []mongo.IndexModel {
		return []mongo.IndexModel{
			{
				Keys: bson.D{{Key: key, Value: 1}},
				Options: options.Index().
					SetName(name).
					SetUnique(true),
			},
		}
	}

	targets := []struct {
		coll *mongo.Collection
		key  string
		name string
	}{
		{m.ChatSettings(), "chat_id", "chat_id_unique"},
		{m.UsageUsers(), "user_id", "user_id_unique"},
		{m.UsageChats(), "chat_id", "chat_id_unique"},
		{m.UsageDaily(), "date", "date_unique"},
	}

	for _, target := range targets {
		if _, err := createIndexes(ctx, target.coll, unique(target.key, target.name)); err != nil {
			return fmt.Errorf("create %s indexes: %w", target.coll.Name(), err)
		}
	}

	return nil
}

// Close disconnects the Mongo client.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.client.Disconnect(ctx)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
)

type settingsCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type settingsRecord struct {
	ChatID   int64               `bson:"chat_id"`
	Settings domain.ChatSettings `bson:"settings"`
}

// MongoSettings stores per-chat settings as one document per chat,
// updated atomically with upserts.
type MongoSettings struct {
	coll   settingsCollection
	logger *logrus.Entry
}

// NewMongoSettings constructs a MongoSettings over the chat settings
// collection.
func NewMongoSettings(coll settingsCollection, logger *logrus.Entry) *MongoSettings {
	if logger == nil {
		logger = logging.Logger()
	}

	return &MongoSettings{coll: coll, logger: logger}
}

// Get returns the stored settings for the chat, or defaults when the
// chat has none.
func (s *MongoSettings) Get(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	if s == nil || s.coll == nil {
		return domain.ChatSettings{}, errors.New("settings store is not initialized")
	}
	if ctx == nil {
		return domain.ChatSettings{}, errors.New("context is required")
	}

	var record settingsRecord
	err := s.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DefaultChatSettings(), nil
	}
	if err != nil {
		return domain.ChatSettings{}, fmt.Errorf("load settings: %w", err)
	}

	return record.Settings.Normalize(), nil
}

// Set stores the settings for the chat, replacing any previous value.
func (s *MongoSettings) Set(ctx context.Context, chatID int64, settings domain.ChatSettings) error {
	if s == nil || s.coll == nil {
		return errors.New("settings store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	settings = settings.Normalize()

	update := bson.M{
		"$set":         bson.M{"settings": settings},
		"$setOnInsert": bson.M{"chat_id": chatID},
	}

	result, err := s.coll.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if result != nil && result.UpsertedCount > 0 {
		s.logger.WithFields(logging.Fields{
			"event":   "chat_settings_created",
			"chat_id": chatID,
		}).Debug("stored settings for new chat")
	}

	return nil
}

package store

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voice_translator_bot/internal/domain"
)

type fakeSettingsCollection struct {
	t    *testing.T
	docs map[int64]settingsRecord
}

func newFakeSettingsCollection(t *testing.T) *fakeSettingsCollection {
	t.Helper()
	return &fakeSettingsCollection{t: t, docs: make(map[int64]settingsRecord)}
}

func (f *fakeSettingsCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	chatID := f.chatID(filter)

	record, ok := f.docs[chatID]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(record, nil, nil)
}

func (f *fakeSettingsCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	chatID := f.chatID(filter)

	updateDoc, ok := update.(bson.M)
	if !ok {
		f.t.Fatalf("unexpected update type %T", update)
	}
	set, ok := updateDoc["$set"].(bson.M)
	if !ok {
		f.t.Fatalf("expected $set in update, got %v", updateDoc)
	}
	settings, ok := set["settings"].(domain.ChatSettings)
	if !ok {
		f.t.Fatalf("expected settings payload, got %T", set["settings"])
	}

	_, existed := f.docs[chatID]
	f.docs[chatID] = settingsRecord{ChatID: chatID, Settings: settings}

	result := &mongo.UpdateResult{MatchedCount: 1}
	if !existed {
		result = &mongo.UpdateResult{UpsertedCount: 1}
	}
	return result, nil
}

func (f *fakeSettingsCollection) chatID(filter interface{}) int64 {
	f.t.Helper()

	filterDoc, ok := filter.(bson.M)
	if !ok {
		f.t.Fatalf("unexpected filter type %T", filter)
	}
	chatID, ok := filterDoc["chat_id"].(int64)
	if !ok {
		f.t.Fatalf("expected chat_id filter, got %v", filterDoc)
	}
	return chatID
}

func TestMongoSettingsDefaultsForUnknownChat(t *testing.T) {
	coll := newFakeSettingsCollection(t)
	settings := NewMongoSettings(coll, testLogger(t))

	got, err := settings.Get(context.Background(), 100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Mode != domain.ModeTranslate || got.TTSEnabled {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestMongoSettingsRoundTrip(t *testing.T) {
	coll := newFakeSettingsCollection(t)
	settings := NewMongoSettings(coll, testLogger(t))

	ctx := context.Background()
	stored := domain.ChatSettings{
		EnabledLanguages: []string{"en", "id"},
		Mode:             domain.ModeSummarize,
		TTSEnabled:       true,
	}

	if err := settings.Set(ctx, 100, stored); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := settings.Get(ctx, 100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Mode != domain.ModeSummarize || !got.TTSEnabled {
		t.Fatalf("expected stored settings back, got %+v", got)
	}
	if len(got.EnabledLanguages) != 2 || got.EnabledLanguages[0] != "en" {
		t.Fatalf("expected [en id], got %v", got.EnabledLanguages)
	}
}

func TestMongoSettingsNormalizesBeforeSaving(t *testing.T) {
	coll := newFakeSettingsCollection(t)
	settings := NewMongoSettings(coll, testLogger(t))

	stored := domain.ChatSettings{
		EnabledLanguages: []string{"xx"},
		Mode:             "shout",
	}

	if err := settings.Set(context.Background(), 100, stored); err != nil {
		t.Fatalf("Set: %v", err)
	}

	saved := coll.docs[100].Settings
	if saved.Mode != domain.ModeTranslate {
		t.Fatalf("expected mode to normalize, got %q", saved.Mode)
	}
	if len(saved.EnabledLanguages) != 2 || saved.EnabledLanguages[0] != "ru" {
		t.Fatalf("expected default languages after normalization, got %v", saved.EnabledLanguages)
	}
}

func TestMongoSettingsValidatesInputs(t *testing.T) {
	settings := NewMongoSettings(newFakeSettingsCollection(t), testLogger(t))

	if _, err := settings.Get(nil, 100); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if err := settings.Set(nil, 100, domain.DefaultChatSettings()); err == nil {
		t.Fatalf("expected error for nil context")
	}

	var uninitialized *MongoSettings
	if _, err := uninitialized.Get(context.Background(), 100); err == nil {
		t.Fatalf("expected error for uninitialized store")
	}
}

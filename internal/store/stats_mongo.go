package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voice_translator_bot/internal/domain"
)

type statsCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoStats accumulates usage counters with atomic per-key $inc
// upserts, one document per user, chat, and day.
type MongoStats struct {
	users statsCollection
	chats statsCollection
	daily statsCollection
}

// NewMongoStats constructs a MongoStats over the three usage
// collections.
func NewMongoStats(users, chats, daily statsCollection) *MongoStats {
	return &MongoStats{users: users, chats: chats, daily: daily}
}

type userUsageRecord struct {
	UserID     int64  `bson:"user_id"`
	Name       string `bson:"name"`
	UsageCount int64  `bson:"usage_count"`
	LastUsed   string `bson:"last_used"`
}

type chatUsageRecord struct {
	ChatID     int64  `bson:"chat_id"`
	Name       string `bson:"name"`
	UsageCount int64  `bson:"usage_count"`
}

type dailyUsageRecord struct {
	Date  string `bson:"date"`
	Count int64  `bson:"count"`
}

// Record increments the usage counters for the event's user, chat, and
// day. Private chats are recorded under a fixed title.
func (s *MongoStats) Record(ctx context.Context, event domain.VoiceEvent) error {
	if s == nil || s.users == nil || s.chats == nil || s.daily == nil {
		return errors.New("stats store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	now := nowFunc().UTC()
	today := now.Format(dateLayout)
	upsert := options.Update().SetUpsert(true)

	_, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": event.UserID},
		bson.M{
			"$set":         bson.M{"name": event.UserName, "last_used": now.Format(time.RFC3339)},
			"$inc":         bson.M{"usage_count": 1},
			"$setOnInsert": bson.M{"user_id": event.UserID},
		},
		upsert,
	)
	if err != nil {
		return fmt.Errorf("record user usage: %w", err)
	}

	_, err = s.chats.UpdateOne(ctx,
		bson.M{"chat_id": event.ChatID},
		bson.M{
			"$set":         bson.M{"name": chatTitle(event)},
			"$inc":         bson.M{"usage_count": 1},
			"$setOnInsert": bson.M{"chat_id": event.ChatID},
		},
		upsert,
	)
	if err != nil {
		return fmt.Errorf("record chat usage: %w", err)
	}

	_, err = s.daily.UpdateOne(ctx,
		bson.M{"date": today},
		bson.M{
			"$inc":         bson.M{"count": 1},
			"$setOnInsert": bson.M{"date": today},
		},
		upsert,
	)
	if err != nil {
		return fmt.Errorf("record daily usage: %w", err)
	}

	return nil
}

// Snapshot reads back every usage document into one report-ready
// snapshot.
func (s *MongoStats) Snapshot(ctx context.Context) (domain.UsageStats, error) {
	if s == nil || s.users == nil || s.chats == nil || s.daily == nil {
		return domain.UsageStats{}, errors.New("stats store is not initialized")
	}
	if ctx == nil {
		return domain.UsageStats{}, errors.New("context is required")
	}

	stats := domain.NewUsageStats()

	var users []userUsageRecord
	if err := findAll(ctx, s.users, &users); err != nil {
		return domain.UsageStats{}, fmt.Errorf("load user usage: %w", err)
	}
	for _, user := range users {
		stats.Users[strconv.FormatInt(user.UserID, 10)] = domain.UserStats{
			Name:       user.Name,
			UsageCount: user.UsageCount,
			LastUsed:   user.LastUsed,
		}
	}

	var chats []chatUsageRecord
	if err := findAll(ctx, s.chats, &chats); err != nil {
		return domain.UsageStats{}, fmt.Errorf("load chat usage: %w", err)
	}
	for _, chat := range chats {
		stats.Chats[strconv.FormatInt(chat.ChatID, 10)] = domain.ChatStats{
			Name:       chat.Name,
			UsageCount: chat.UsageCount,
		}
	}

	var days []dailyUsageRecord
	if err := findAll(ctx, s.daily, &days); err != nil {
		return domain.UsageStats{}, fmt.Errorf("load daily usage: %w", err)
	}
	for _, day := range days {
		stats.DailyUsage[day.Date] = day.Count
	}

	return stats, nil
}

func findAll(ctx context.Context, coll statsCollection, out any) error {
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

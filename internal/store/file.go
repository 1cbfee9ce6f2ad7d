package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
)

const dateLayout = "2006-01-02"

// privateChatTitle labels private chats in the per-chat counters, which
// otherwise carry the group title.
const privateChatTitle = "Private chat"

// FileSettings persists per-chat settings as a single JSON document on
// disk. Reads never create the file; a missing or unreadable file just
// yields defaults.
type FileSettings struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Entry
}

// NewFileSettings constructs a FileSettings at the given path.
func NewFileSettings(path string, logger *logrus.Entry) (*FileSettings, error) {
	if path == "" {
		return nil, errors.New("settings file path is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &FileSettings{path: path, logger: logger}, nil
}

// Get returns the stored settings for the chat, or defaults when the
// chat has none.
func (s *FileSettings) Get(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	if ctx == nil {
		return domain.ChatSettings{}, errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	settings, ok := all[chatKey(chatID)]
	if !ok {
		return domain.DefaultChatSettings(), nil
	}

	return settings.Normalize(), nil
}

// Set stores the settings for the chat, replacing any previous value.
func (s *FileSettings) Set(ctx context.Context, chatID int64, settings domain.ChatSettings) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	settings = settings.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	all[chatKey(chatID)] = settings

	if err := writeJSONFile(s.path, all); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}

// Ping verifies the settings directory is reachable so the health
// endpoint can report on the file backend.
func (s *FileSettings) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat settings directory: %w", err)
	}

	return nil
}

// load reads the full settings document. A missing or corrupt file is
// treated as empty so every chat falls back to defaults.
func (s *FileSettings) load() map[string]domain.ChatSettings {
	all := make(map[string]domain.ChatSettings)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithFields(logging.Fields{
				"event": "settings_read_failed",
				"path":  s.path,
			}).WithError(err).Warn("falling back to default settings")
		}
		return all
	}

	if err := json.Unmarshal(raw, &all); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "settings_decode_failed",
			"path":  s.path,
		}).WithError(err).Warn("falling back to default settings")
		return make(map[string]domain.ChatSettings)
	}

	return all
}

// FileStats persists usage statistics as a single JSON document on
// disk, mirroring the settings file behavior for missing and corrupt
// files.
type FileStats struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Entry
}

// NewFileStats constructs a FileStats at the given path.
func NewFileStats(path string, logger *logrus.Entry) (*FileStats, error) {
	if path == "" {
		return nil, errors.New("stats file path is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &FileStats{path: path, logger: logger}, nil
}

// Record increments the usage counters for the event's user, chat, and
// day. Private chats are recorded under a fixed title.
func (s *FileStats) Record(ctx context.Context, event domain.VoiceEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	now := nowFunc().UTC()
	today := now.Format(dateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.load()

	user := stats.Users[chatKey(event.UserID)]
	user.Name = event.UserName
	user.UsageCount++
	user.LastUsed = now.Format(time.RFC3339)
	stats.Users[chatKey(event.UserID)] = user

	chat := stats.Chats[chatKey(event.ChatID)]
	chat.Name = chatTitle(event)
	chat.UsageCount++
	stats.Chats[chatKey(event.ChatID)] = chat

	stats.DailyUsage[today]++

	if err := writeJSONFile(s.path, stats); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}

	return nil
}

// Snapshot returns a copy of the accumulated statistics.
func (s *FileStats) Snapshot(ctx context.Context) (domain.UsageStats, error) {
	if ctx == nil {
		return domain.UsageStats{}, errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(), nil
}

func (s *FileStats) load() domain.UsageStats {
	stats := domain.NewUsageStats()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithFields(logging.Fields{
				"event": "stats_read_failed",
				"path":  s.path,
			}).WithError(err).Warn("starting from empty stats")
		}
		return stats
	}

	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "stats_decode_failed",
			"path":  s.path,
		}).WithError(err).Warn("starting from empty stats")
		return domain.NewUsageStats()
	}

	if stats.Users == nil {
		stats.Users = make(map[string]domain.UserStats)
	}
	if stats.Chats == nil {
		stats.Chats = make(map[string]domain.ChatStats)
	}
	if stats.DailyUsage == nil {
		stats.DailyUsage = make(map[string]int64)
	}

	return stats
}

func chatKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func chatTitle(event domain.VoiceEvent) string {
	if event.ChatKind == domain.ChatPrivate {
		return privateChatTitle
	}
	return event.ChatTitle
}

// writeJSONFile writes v to path atomically: the document goes to a
// temp file in the same directory first and is renamed over the target.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

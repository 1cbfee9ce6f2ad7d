// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"voice_translator_bot/internal/config"
	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
	"voice_translator_bot/internal/pipeline"
)

type botRunner interface {
	Start(ctx context.Context)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"business_message",
	}

	createBot = func(token string, options ...bot.Option) (botRunner, error) {
		return bot.New(token, options...)
	}
)

// SettingsStore persists per-chat configuration.
type SettingsStore interface {
	Get(ctx context.Context, chatID int64) (domain.ChatSettings, error)
	Set(ctx context.Context, chatID int64, settings domain.ChatSettings) error
}

// UsageRecorder accumulates and reports usage statistics.
type UsageRecorder interface {
	Record(ctx context.Context, event domain.VoiceEvent) error
	Snapshot(ctx context.Context) (domain.UsageStats, error)
}

// Processor turns a transcript into translations and/or a summary.
type Processor interface {
	Process(ctx context.Context, text, sourceLang string, effective pipeline.Outcome, enabledLanguages []string) (domain.ProcessingResult, error)
}

// Transcriber converts voice audio to text plus a detected language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, string, error)
}

// SpeechSynthesizer renders text as spoken audio.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, lang string) ([]byte, error)
}

// ChatMemberGetter resolves a user's membership in a chat.
type ChatMemberGetter interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error)
}

// Client wraps the Telegram bot instance and the processing pipeline
// dependencies.
type Client struct {
	bot       botRunner
	logger    *logrus.Entry
	transport Transport
	deliverer *Deliverer
	voices    VoiceFetcher
	members   ChatMemberGetter

	settings    SettingsStore
	usage       UsageRecorder
	processor   Processor
	transcriber Transcriber

	speech           SpeechSynthesizer
	indonesianSpeech SpeechSynthesizer

	ownerID       int64
	ownerUsername string
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithSettingsStore sets the settings backend.
func WithSettingsStore(settings SettingsStore) Option {
	return func(c *Client) { c.settings = settings }
}

// WithUsageRecorder sets the usage statistics backend.
func WithUsageRecorder(usage UsageRecorder) Option {
	return func(c *Client) { c.usage = usage }
}

// WithProcessor sets the content processor.
func WithProcessor(processor Processor) Option {
	return func(c *Client) { c.processor = processor }
}

// WithTranscriber sets the speech-to-text collaborator.
func WithTranscriber(transcriber Transcriber) Option {
	return func(c *Client) { c.transcriber = transcriber }
}

// WithSpeechSynthesizer sets the default text-to-speech collaborator.
func WithSpeechSynthesizer(speech SpeechSynthesizer) Option {
	return func(c *Client) { c.speech = speech }
}

// WithIndonesianSpeech sets the synthesizer preferred for Indonesian.
func WithIndonesianSpeech(speech SpeechSynthesizer) Option {
	return func(c *Client) { c.indonesianSpeech = speech }
}

// WithTransport overrides the outbound transport; used in tests.
func WithTransport(transport Transport) Option {
	return func(c *Client) { c.transport = transport }
}

// WithVoiceFetcher overrides the voice downloader; used in tests.
func WithVoiceFetcher(voices VoiceFetcher) Option {
	return func(c *Client) { c.voices = voices }
}

// WithChatMemberGetter overrides membership lookups; used in tests.
func WithChatMemberGetter(members ChatMemberGetter) Option {
	return func(c *Client) { c.members = members }
}

// NewClient initializes the Telegram bot with long polling and wires
// the update handlers to the processing pipeline.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Client{
		logger:        logger,
		ownerID:       cfg.BotOwnerID,
		ownerUsername: cfg.BotOwnerUsername,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.settings == nil {
		return nil, errors.New("settings store is required")
	}
	if c.usage == nil {
		return nil, errors.New("usage recorder is required")
	}
	if c.processor == nil {
		return nil, errors.New("processor is required")
	}
	if c.transcriber == nil {
		return nil, errors.New("transcriber is required")
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(c.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	c.bot = tgBot

	if real, ok := tgBot.(*bot.Bot); ok {
		if c.transport == nil {
			c.transport = newBotTransport(real)
		}
		if c.voices == nil {
			c.voices = newBotVoiceFetcher(real)
		}
		if c.members == nil {
			c.members = newBotMemberGetter(real)
		}
	}
	if c.transport == nil {
		return nil, errors.New("transport is required")
	}

	deliverer, err := NewDeliverer(c.transport, logger)
	if err != nil {
		return nil, fmt.Errorf("init deliverer: %w", err)
	}
	c.deliverer = deliverer

	return c, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// handleUpdate routes inbound updates: voice messages enter the
// processing pipeline, slash commands go to the command table.
func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	msg := update.Message
	business := false
	if msg == nil && update.BusinessMessage != nil {
		msg = update.BusinessMessage
		business = true
	}
	if msg == nil {
		return
	}

	if msg.Voice != nil {
		event := voiceEvent(msg, business)
		// Each voice message is an independent task so a slow
		// collaborator call never stalls other chats.
		go c.processVoice(ctx, event)
		return
	}

	if business {
		return
	}

	if cmd, ok := parseCommand(msg.Text); ok {
		c.dispatchCommand(ctx, cmd, msg)
	}
}

// voiceEvent flattens the update into the pipeline's inbound shape.
func voiceEvent(msg *models.Message, business bool) domain.VoiceEvent {
	kind := domain.ChatPrivate
	switch {
	case business:
		kind = domain.ChatBusiness
	case msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup:
		kind = domain.ChatGroup
	}

	title := msg.Chat.Title
	if title == "" {
		title = msg.Chat.Username
	}

	return domain.VoiceEvent{
		ChatID:    msg.Chat.ID,
		ChatTitle: title,
		ChatKind:  kind,
		UserID:    userID(msg.From),
		UserName:  displayName(msg.From),
		MessageID: msg.ID,
		Duration:  msg.Voice.Duration,
		FileID:    msg.Voice.FileID,
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func displayName(user *models.User) string {
	if user == nil {
		return ""
	}
	if user.Username != "" {
		return user.Username
	}

	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// botMemberGetter adapts *bot.Bot to the ChatMemberGetter interface.
type botMemberGetter struct {
	bot *bot.Bot
}

func newBotMemberGetter(b *bot.Bot) *botMemberGetter {
	return &botMemberGetter{bot: b}
}

func (g *botMemberGetter) GetChatMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	member, err := g.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("get chat member: %w", err)
	}

	return member, nil
}

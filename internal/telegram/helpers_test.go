package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"voice_translator_bot/internal/config"
	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/pipeline"
)

type fakeRunner struct{}

func (f *fakeRunner) Start(context.Context) {}

func stubCreateBot(t *testing.T) {
	t.Helper()

	prev := createBot
	createBot = func(string, ...bot.Option) (botRunner, error) {
		return &fakeRunner{}, nil
	}
	t.Cleanup(func() { createBot = prev })
}

type fakeSettingsStore struct {
	docs   map[int64]domain.ChatSettings
	getErr error
	setErr error
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{docs: make(map[int64]domain.ChatSettings)}
}

func (f *fakeSettingsStore) Get(_ context.Context, chatID int64) (domain.ChatSettings, error) {
	if f.getErr != nil {
		return domain.ChatSettings{}, f.getErr
	}
	if settings, ok := f.docs[chatID]; ok {
		return settings, nil
	}
	return domain.DefaultChatSettings(), nil
}

func (f *fakeSettingsStore) Set(_ context.Context, chatID int64, settings domain.ChatSettings) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.docs[chatID] = settings
	return nil
}

type fakeUsageRecorder struct {
	events   []domain.VoiceEvent
	snapshot domain.UsageStats
	err      error
}

func (f *fakeUsageRecorder) Record(_ context.Context, event domain.VoiceEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeUsageRecorder) Snapshot(context.Context) (domain.UsageStats, error) {
	return f.snapshot, f.err
}

type processCall struct {
	text       string
	sourceLang string
	outcome    pipeline.Outcome
	enabled    []string
}

type fakeProcessor struct {
	calls  []processCall
	result domain.ProcessingResult
	err    error
}

func (f *fakeProcessor) Process(_ context.Context, text, sourceLang string, effective pipeline.Outcome, enabledLanguages []string) (domain.ProcessingResult, error) {
	f.calls = append(f.calls, processCall{text: text, sourceLang: sourceLang, outcome: effective, enabled: enabledLanguages})
	return f.result, f.err
}

type fakeTranscriber struct {
	text string
	lang string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, string, error) {
	return f.text, f.lang, f.err
}

type fakeVoiceFetcher struct {
	audio []byte
	err   error
}

func (f *fakeVoiceFetcher) FetchVoice(context.Context, string) ([]byte, error) {
	return f.audio, f.err
}

type fakeSynthesizer struct {
	audio []byte
	calls []string
	err   error
}

func (f *fakeSynthesizer) SynthesizeSpeech(_ context.Context, _, lang string) ([]byte, error) {
	f.calls = append(f.calls, lang)
	return f.audio, f.err
}

type fakeMemberGetter struct {
	memberType models.ChatMemberType
	err        error
}

func (f *fakeMemberGetter) GetChatMember(context.Context, int64, int64) (*models.ChatMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatMember{Type: f.memberType}, nil
}

type clientFixture struct {
	client      *Client
	transport   *mockTransport
	settings    *fakeSettingsStore
	usage       *fakeUsageRecorder
	processor   *fakeProcessor
	transcriber *fakeTranscriber
	fetcher     *fakeVoiceFetcher
	speech      *fakeSynthesizer
	idSpeech    *fakeSynthesizer
	members     *fakeMemberGetter
}

func newClientFixture(t *testing.T) *clientFixture {
	t.Helper()
	stubCreateBot(t)

	fx := &clientFixture{
		transport:   newMockTransport(),
		settings:    newFakeSettingsStore(),
		usage:       &fakeUsageRecorder{},
		processor:   &fakeProcessor{},
		transcriber: &fakeTranscriber{text: "hello there", lang: "en"},
		fetcher:     &fakeVoiceFetcher{audio: []byte("ogg-bytes")},
		speech:      &fakeSynthesizer{audio: []byte("mp3")},
		idSpeech:    &fakeSynthesizer{audio: []byte("mp3-id")},
		members:     &fakeMemberGetter{memberType: models.ChatMemberTypeMember},
	}

	logger, _ := logtest.NewNullLogger()

	cfg := config.Config{
		TelegramToken:    "test-token",
		BotOwnerID:       900,
		BotOwnerUsername: "owneruser",
	}

	client, err := NewClient(cfg, logrus.NewEntry(logger),
		WithSettingsStore(fx.settings),
		WithUsageRecorder(fx.usage),
		WithProcessor(fx.processor),
		WithTranscriber(fx.transcriber),
		WithTransport(fx.transport),
		WithVoiceFetcher(fx.fetcher),
		WithSpeechSynthesizer(fx.speech),
		WithIndonesianSpeech(fx.idSpeech),
		WithChatMemberGetter(fx.members),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	fx.client = client
	return fx
}

func privateMessage(chatID int64, userID int64, text string) *models.Message {
	return &models.Message{
		ID:   11,
		From: &models.User{ID: userID, Username: "someone"},
		Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
		Text: text,
	}
}

func groupMessage(chatID int64, userID int64, text string) *models.Message {
	return &models.Message{
		ID:   11,
		From: &models.User{ID: userID, Username: "someone"},
		Chat: models.Chat{ID: chatID, Type: models.ChatTypeSupergroup, Title: "team"},
		Text: text,
	}
}

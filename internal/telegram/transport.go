package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageRef identifies one delivered message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Transport is the outbound message surface the handlers depend on.
// It is satisfied by the live bot and by recording mocks in tests.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, parseMode models.ParseMode, replyTo int) (MessageRef, error)
	EditMessageText(ctx context.Context, ref MessageRef, text string, parseMode models.ParseMode) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendVoice(ctx context.Context, chatID int64, audio []byte, filename string, replyTo int) error
}

// VoiceFetcher downloads the audio payload of an inbound voice message.
type VoiceFetcher interface {
	FetchVoice(ctx context.Context, fileID string) ([]byte, error)
}

// botTransport adapts *bot.Bot to the Transport interface.
type botTransport struct {
	bot *bot.Bot
}

func newBotTransport(b *bot.Bot) *botTransport {
	return &botTransport{bot: b}
}

func (t *botTransport) SendMessage(ctx context.Context, chatID int64, text string, parseMode models.ParseMode, replyTo int) (MessageRef, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return MessageRef{}, fmt.Errorf("send message: %w", err)
	}

	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (t *botTransport) EditMessageText(ctx context.Context, ref MessageRef, text string, parseMode models.ParseMode) error {
	_, err := t.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}

	return nil
}

func (t *botTransport) DeleteMessage(ctx context.Context, ref MessageRef) error {
	_, err := t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}

func (t *botTransport) SendVoice(ctx context.Context, chatID int64, audio []byte, filename string, replyTo int) error {
	params := &bot.SendVoiceParams{
		ChatID: chatID,
		Voice: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(audio),
		},
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	if _, err := t.bot.SendVoice(ctx, params); err != nil {
		return fmt.Errorf("send voice: %w", err)
	}

	return nil
}

// botVoiceFetcher resolves a file id to a download link and pulls the
// bytes over HTTP.
type botVoiceFetcher struct {
	bot  *bot.Bot
	http *http.Client
}

func newBotVoiceFetcher(b *bot.Bot) *botVoiceFetcher {
	return &botVoiceFetcher{
		bot:  b,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *botVoiceFetcher) FetchVoice(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, errors.New("file id is required")
	}

	file, err := f.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolve voice file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build voice download request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download voice file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download voice file: http %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read voice file: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("voice file is empty")
	}

	return audio, nil
}

package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
	"voice_translator_bot/internal/pipeline"
)

const (
	processingNotice   = "🎙️ Processing voice message..."
	quotaNotice        = "⚠️ The AI service quota is exhausted. Please try again later."
	rateLimitNotice    = "⏳ Too many requests right now. Please try again in a minute."
	failureNotice      = "⚠️ Could not process this voice message."
	noSpeechNotice     = "🤷 Could not recognize any speech in this message."
	voiceReplyFilename = "translation.mp3"
)

// processVoice runs one inbound voice message through the full
// pipeline. Every failure is absorbed here; nothing escapes to the
// poller or to other events.
func (c *Client) processVoice(ctx context.Context, event domain.VoiceEvent) {
	logger := c.logger.WithFields(logging.Fields{
		"chat_id":  event.ChatID,
		"user_id":  event.UserID,
		"duration": event.Duration,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("event", "voice_task_panic").Errorf("recovered: %v", r)
		}
	}()

	if err := c.usage.Record(ctx, event); err != nil {
		logger.WithField("event", "usage_record_failed").WithError(err).Warn("continuing without stats")
	}

	settings, err := c.settings.Get(ctx, event.ChatID)
	if err != nil {
		logger.WithField("event", "settings_load_failed").WithError(err).Warn("applying defaults")
		settings = domain.DefaultChatSettings()
	}

	outcome := pipeline.ResolveMode(settings.Mode, event.Duration)
	if outcome.Ignore {
		logger.WithField("event", "voice_ignored").Debug("clip too short for summarize mode")
		return
	}

	origin := MessageRef{ChatID: event.ChatID, MessageID: event.MessageID}

	var placeholder *MessageRef
	if ref, err := c.transport.SendMessage(ctx, event.ChatID, processingNotice, "", event.MessageID); err != nil {
		logger.WithField("event", "placeholder_failed").WithError(err).Warn("continuing without placeholder")
	} else {
		placeholder = &ref
	}

	audio, err := c.voices.FetchVoice(ctx, event.FileID)
	if err != nil {
		logger.WithField("event", "voice_download_failed").WithError(err).Error("aborting event")
		c.failEvent(ctx, origin, placeholder, failureNotice)
		return
	}

	text, sourceLang, err := c.transcriber.Transcribe(ctx, audio, "voice.ogg")
	if err != nil {
		logger.WithField("event", "transcription_failed").WithError(err).Error("aborting event")
		c.failEvent(ctx, origin, placeholder, noticeFor(err))
		return
	}
	if strings.TrimSpace(text) == "" {
		c.failEvent(ctx, origin, placeholder, noSpeechNotice)
		return
	}

	// A detected language outside the chat's pair is added so the user
	// still sees the original alongside the configured targets.
	enabled := settings.EnabledLanguages
	if domain.SupportedLanguage(sourceLang) && !containsLang(enabled, sourceLang) {
		enabled = append(append([]string(nil), enabled...), sourceLang)
	}

	result, err := c.processor.Process(ctx, text, sourceLang, outcome, enabled)
	if err != nil {
		logger.WithField("event", "processing_failed").WithError(err).Error("aborting event")
		c.failEvent(ctx, origin, placeholder, noticeFor(err))
		return
	}

	rendered := pipeline.Render(result, enabled)
	if _, err := c.deliverer.Deliver(ctx, rendered, origin, placeholder, event.ChatKind); err != nil {
		logger.WithField("event", "delivery_failed").WithError(err).Error("result not delivered")
		return
	}

	c.maybeSendVoiceReply(ctx, logger, event, settings, outcome, result)
}

// failEvent surfaces a short notice to the user, reusing the
// placeholder when it is still editable.
func (c *Client) failEvent(ctx context.Context, origin MessageRef, placeholder *MessageRef, notice string) {
	if placeholder != nil {
		if err := c.transport.EditMessageText(ctx, *placeholder, notice, ""); err == nil || isNotModified(err) {
			return
		}
	}

	if _, err := c.transport.SendMessage(ctx, origin.ChatID, notice, "", origin.MessageID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "failure_notice_dropped",
			"chat_id": origin.ChatID,
		}).WithError(err).Warn("user not notified")
	}
}

// noticeFor maps collaborator errors to the user-visible notice; only
// the quota and rate-limit cases are distinguishable by design.
func noticeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return quotaNotice
	case errors.Is(err, domain.ErrRateLimited):
		return rateLimitNotice
	default:
		return failureNotice
	}
}

// maybeSendVoiceReply sends the spoken translation after the text
// outcome is final. It is always a separate send and never retried.
func (c *Client) maybeSendVoiceReply(ctx context.Context, logger *logrus.Entry, event domain.VoiceEvent, settings domain.ChatSettings, outcome pipeline.Outcome, result domain.ProcessingResult) {
	if !settings.TTSEnabled || !outcome.Mode.IncludesTranslate() {
		return
	}

	target := ""
	for _, lang := range settings.EnabledLanguages {
		if lang != result.SourceLang {
			target = lang
			break
		}
	}
	if target == "" {
		return
	}

	text := result.Translations[target]
	if text == "" || text == domain.TranslationErrorPlaceholder {
		return
	}

	synth := c.speech
	if target == "id" && c.indonesianSpeech != nil {
		synth = c.indonesianSpeech
	}
	if synth == nil {
		return
	}

	audio, err := synth.SynthesizeSpeech(ctx, text, target)
	if err != nil {
		logger.WithField("event", "tts_failed").WithError(err).Warn("skipping voice reply")
		return
	}

	if err := c.transport.SendVoice(ctx, event.ChatID, audio, voiceReplyFilename, event.MessageID); err != nil {
		logger.WithField("event", "voice_reply_failed").WithError(err).Warn("voice reply dropped")
	}
}

func containsLang(langs []string, lang string) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

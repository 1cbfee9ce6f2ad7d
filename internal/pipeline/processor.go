package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
)

// Translator produces translations of text into the target languages.
// A partially filled map is acceptable; missing targets are treated as
// per-language failures unless the error is fatal for the whole event.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang string, targets []string) (map[string]string, error)
}

// Summarizer produces a structured summary of text in the given language.
type Summarizer interface {
	Summarize(ctx context.Context, text, lang string) (string, error)
}

// Processor orchestrates the translation and summarization collaborators
// according to the effective mode and assembles one ProcessingResult.
type Processor struct {
	translator Translator
	summarizer Summarizer
	logger     *logrus.Entry
}

// NewProcessor constructs a Processor.
func NewProcessor(translator Translator, summarizer Summarizer, logger *logrus.Entry) *Processor {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Processor{
		translator: translator,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Process runs the collaborators for one event. Per-language translation
// failures degrade to a placeholder entry; quota and rate-limit errors
// abort the whole result.
func (p *Processor) Process(ctx context.Context, text, sourceLang string, effective Outcome, enabledLanguages []string) (domain.ProcessingResult, error) {
	if p == nil || p.translator == nil || p.summarizer == nil {
		return domain.ProcessingResult{}, errors.New("processor is not initialized")
	}
	if ctx == nil {
		return domain.ProcessingResult{}, errors.New("context is required")
	}

	result := domain.ProcessingResult{
		Original:     CleanText(text),
		SourceLang:   sourceLang,
		Translations: map[string]string{},
	}

	if effective.Ignore {
		result.Ignore = true
		return result, nil
	}

	mode := effective.Mode

	if mode.IncludesTranslate() {
		translations, err := p.translate(ctx, text, sourceLang, targetsFor(enabledLanguages, sourceLang))
		if err != nil {
			return domain.ProcessingResult{}, err
		}
		result.Translations = translations
		result.Translations[sourceLang] = result.Original
	}

	if mode.IncludesSummarize() {
		summaryLang := summaryLanguage(mode, sourceLang, enabledLanguages)

		textToSummarize := result.Original
		if summaryLang != sourceLang {
			translated, ok := result.Translations[summaryLang]
			if !ok || translated == domain.TranslationErrorPlaceholder {
				extra, err := p.translate(ctx, text, sourceLang, []string{summaryLang})
				if err != nil {
					return domain.ProcessingResult{}, err
				}
				translated, ok = extra[summaryLang], extra[summaryLang] != domain.TranslationErrorPlaceholder
			}
			if ok && translated != "" {
				textToSummarize = translated
			}
		}

		summary, err := p.summarizer.Summarize(ctx, textToSummarize, summaryLang)
		if err != nil {
			return domain.ProcessingResult{}, fmt.Errorf("summarize: %w", err)
		}
		result.Summary = CleanText(summary)
		result.SummaryLang = summaryLang
	}

	return result, nil
}

// translate invokes the collaborator and fills a placeholder for every
// target it failed to produce, unless the failure is fatal.
func (p *Processor) translate(ctx context.Context, text, sourceLang string, targets []string) (map[string]string, error) {
	if len(targets) == 0 {
		return map[string]string{}, nil
	}

	raw, err := p.translator.Translate(ctx, text, sourceLang, targets)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) || errors.Is(err, domain.ErrRateLimited) {
			return nil, fmt.Errorf("translate: %w", err)
		}
		p.logger.WithFields(logging.Fields{
			"event":       "translation_failed",
			"source_lang": sourceLang,
		}).WithError(err).Warn("translation collaborator failed, degrading to placeholders")
	}

	translations := make(map[string]string, len(targets))
	for _, lang := range targets {
		if translated, ok := raw[lang]; ok && translated != "" {
			translations[lang] = CleanText(translated)
			continue
		}
		translations[lang] = domain.TranslationErrorPlaceholder
	}

	return translations, nil
}

func targetsFor(enabledLanguages []string, sourceLang string) []string {
	targets := make([]string, 0, len(enabledLanguages))
	for _, lang := range enabledLanguages {
		if lang != sourceLang {
			targets = append(targets, lang)
		}
	}
	return targets
}

// summaryLanguage picks the language of the summary: the source language
// in pure summarize mode, otherwise the first enabled language different
// from the source (list order is the tie-break), falling back to English
// and then Russian.
func summaryLanguage(mode domain.Mode, sourceLang string, enabledLanguages []string) string {
	if mode == domain.ModeSummarize {
		return sourceLang
	}

	for _, lang := range enabledLanguages {
		if lang != sourceLang {
			return lang
		}
	}

	if sourceLang != "en" {
		return "en"
	}
	return "ru"
}

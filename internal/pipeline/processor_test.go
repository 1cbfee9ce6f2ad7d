package pipeline

import (
	"context"
	"errors"
	"testing"

	"voice_translator_bot/internal/domain"
)

type translateCall struct {
	text       string
	sourceLang string
	targets    []string
}

type fakeTranslator struct {
	calls   []translateCall
	results map[string]string
	err     error
}

func (f *fakeTranslator) Translate(_ context.Context, text, sourceLang string, targets []string) (map[string]string, error) {
	f.calls = append(f.calls, translateCall{text: text, sourceLang: sourceLang, targets: targets})
	if f.err != nil {
		return f.results, f.err
	}

	out := map[string]string{}
	for _, lang := range targets {
		if translated, ok := f.results[lang]; ok {
			out[lang] = translated
		}
	}
	return out, nil
}

type fakeSummarizer struct {
	calls   []string
	langs   []string
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text, lang string) (string, error) {
	f.calls = append(f.calls, text)
	f.langs = append(f.langs, lang)
	return f.summary, f.err
}

func TestProcessTranslateMode(t *testing.T) {
	translator := &fakeTranslator{results: map[string]string{"en": "hello  there", "id": "halo"}}
	summarizer := &fakeSummarizer{}
	processor := NewProcessor(translator, summarizer, nil)

	result, err := processor.Process(context.Background(), " привет  там ", "ru",
		Outcome{Mode: domain.ModeTranslate}, []string{"ru", "en", "id"})
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}

	if result.Original != "привет там" {
		t.Fatalf("expected cleaned original, got %q", result.Original)
	}
	if result.Translations["ru"] != "привет там" {
		t.Fatalf("expected source language entry, got %q", result.Translations["ru"])
	}
	if result.Translations["en"] != "hello there" {
		t.Fatalf("expected cleaned translation, got %q", result.Translations["en"])
	}
	if result.Translations["id"] != "halo" {
		t.Fatalf("expected indonesian translation, got %q", result.Translations["id"])
	}
	if result.Summary != "" {
		t.Fatalf("expected no summary in translate mode, got %q", result.Summary)
	}
	if len(summarizer.calls) != 0 {
		t.Fatalf("expected summarizer to stay idle, got %d calls", len(summarizer.calls))
	}

	if len(translator.calls) != 1 {
		t.Fatalf("expected one translation call, got %d", len(translator.calls))
	}
	targets := translator.calls[0].targets
	if len(targets) != 2 || targets[0] != "en" || targets[1] != "id" {
		t.Fatalf("expected targets [en id], got %v", targets)
	}
}

func TestProcessPartialTranslationFailure(t *testing.T) {
	translator := &fakeTranslator{results: map[string]string{"en": "hello"}}
	processor := NewProcessor(translator, &fakeSummarizer{}, nil)

	result, err := processor.Process(context.Background(), "привет", "ru",
		Outcome{Mode: domain.ModeTranslate}, []string{"ru", "en", "id"})
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}

	if result.Translations["en"] != "hello" {
		t.Fatalf("expected english translation to survive, got %q", result.Translations["en"])
	}
	if result.Translations["id"] != domain.TranslationErrorPlaceholder {
		t.Fatalf("expected placeholder for failed language, got %q", result.Translations["id"])
	}
}

func TestProcessCollaboratorFailureFillsAllPlaceholders(t *testing.T) {
	translator := &fakeTranslator{err: errors.New("model unavailable")}
	processor := NewProcessor(translator, &fakeSummarizer{}, nil)

	result, err := processor.Process(context.Background(), "привет", "ru",
		Outcome{Mode: domain.ModeTranslate}, []string{"ru", "en"})
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}

	if result.Translations["en"] != domain.TranslationErrorPlaceholder {
		t.Fatalf("expected placeholder, got %q", result.Translations["en"])
	}
	if result.Translations["ru"] != "привет" {
		t.Fatalf("expected source entry to survive, got %q", result.Translations["ru"])
	}
}

func TestProcessQuotaErrorAborts(t *testing.T) {
	translator := &fakeTranslator{err: domain.ErrQuotaExceeded}
	processor := NewProcessor(translator, &fakeSummarizer{}, nil)

	_, err := processor.Process(context.Background(), "привет", "ru",
		Outcome{Mode: domain.ModeTranslate}, []string{"ru", "en"})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error to propagate, got %v", err)
	}
}

func TestProcessSummarizeModeUsesSourceLanguage(t *testing.T) {
	translator := &fakeTranslator{}
	summarizer := &fakeSummarizer{summary: "краткое содержание"}
	processor := NewProcessor(translator, summarizer, nil)

	result, err := processor.Process(context.Background(), "длинный текст", "ru",
		Outcome{Mode: domain.ModeSummarize}, []string{"ru", "en"})
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}

	if result.Summary != "краткое содержание" {
		t.Fatalf("expected summary, got %q", result.Summary)
	}
	if result.SummaryLang != "ru" {
		t.Fatalf("expected summary in source language, got %q", result.SummaryLang)
	}
	if len(translator.calls) != 0 {
		t.Fatalf("expected no translation in pure summarize mode, got %d calls", len(translator.calls))
	}
	if len(summarizer.calls) != 1 || summarizer.calls[0] != "длинный текст" {
		t.Fatalf("expected original text to be summarized, got %v", summarizer.calls)
	}
}

func TestProcessBothModeSummarizesTranslatedText(t *testing.T) {
	translator := &fakeTranslator{results: map[string]string{"en": "long text"}}
	summarizer := &fakeSummarizer{summary: "summary"}
	processor := NewProcessor(translator, summarizer, nil)

	result, err := processor.Process(context.Background(), "длинный текст", "ru",
		Outcome{Mode: domain.ModeBoth}, []string{"ru", "en"})
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}

	if result.SummaryLang != "en" {
		t.Fatalf("expected summary in first enabled non-source language, got %q", result.SummaryLang)
	}
	if len(summarizer.calls) != 1 || summarizer.calls[0] != "long text" {
		t.Fatalf("expected translated text to be summarized, got %v", summarizer.calls)
	}
	if len(translator.calls) != 1 {
		t.Fatalf("expected existing translation to be reused, got %d calls", len(translator.calls))
	}
}

func TestProcessBothModeRequestsMissingSummaryTranslation(t *testing.T) {
	translator := &fakeTranslator{results: map[string]string{"en": "long text"}}
	summarizer := &fakeSummarizer{summary: "summary"}
	processor := NewProcessor(translator, summarizer, nil)

	// Source is the only enabled language: translation produces no
	// targets, the summary language falls back to English, and one
	// extra single-target translation is requested for it.
	result, err := processor.Process(context.Background(), "длинный текст", "ru",
		Outcome{Mode: domain.ModeBoth}, []string{"ru"})
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}

	if result.SummaryLang != "en" {
		t.Fatalf("expected summary language en, got %q", result.SummaryLang)
	}
	if len(translator.calls) != 1 {
		t.Fatalf("expected one extra translation call, got %d", len(translator.calls))
	}
	if targets := translator.calls[0].targets; len(targets) != 1 || targets[0] != "en" {
		t.Fatalf("expected single english target, got %v", targets)
	}
	if summarizer.calls[0] != "long text" {
		t.Fatalf("expected summary input to be the translated text, got %q", summarizer.calls[0])
	}
}

func TestProcessIgnoreShortCircuits(t *testing.T) {
	translator := &fakeTranslator{}
	summarizer := &fakeSummarizer{}
	processor := NewProcessor(translator, summarizer, nil)

	result, err := processor.Process(context.Background(), "короткий", "ru",
		Outcome{Mode: domain.ModeSummarize, Ignore: true}, []string{"ru", "en"})
	if err != nil {
		t.Fatalf("expected result, got error: %v", err)
	}

	if !result.Ignore {
		t.Fatalf("expected ignore flag to be set")
	}
	if len(translator.calls) != 0 || len(summarizer.calls) != 0 {
		t.Fatalf("expected no collaborator calls for ignored event")
	}
}

func TestSummaryLanguageFallbacks(t *testing.T) {
	cases := []struct {
		name       string
		mode       domain.Mode
		sourceLang string
		enabled    []string
		want       string
	}{
		{"pure summarize uses source", domain.ModeSummarize, "id", []string{"ru", "en"}, "id"},
		{"both picks first enabled non-source", domain.ModeBoth, "ru", []string{"ru", "id", "en"}, "id"},
		{"both falls back to english", domain.ModeBoth, "ru", []string{"ru"}, "en"},
		{"both falls back to russian for english source", domain.ModeBoth, "en", []string{"en"}, "ru"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := summaryLanguage(tc.mode, tc.sourceLang, tc.enabled); got != tc.want {
				t.Fatalf("summaryLanguage(%s, %s, %v) = %q, want %q", tc.mode, tc.sourceLang, tc.enabled, got, tc.want)
			}
		})
	}
}

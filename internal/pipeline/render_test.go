package pipeline

import (
	"strings"
	"testing"

	"voice_translator_bot/internal/domain"
)

func TestRenderTranslateOnly(t *testing.T) {
	result := domain.ProcessingResult{
		Original:   "привет",
		SourceLang: "ru",
		Translations: map[string]string{
			"ru": "привет",
			"en": "hello",
		},
	}

	out := Render(result, []string{"ru", "en"})

	if !strings.Contains(out, "<b>Original (🇷🇺):</b>") {
		t.Fatalf("expected original section with the source flag, got %q", out)
	}
	if !strings.Contains(out, "🇺🇸: hello") {
		t.Fatalf("expected english translation line, got %q", out)
	}
	if strings.Contains(out, "🇷🇺: привет\n\n") {
		t.Fatalf("source language must not repeat in translations, got %q", out)
	}
	if strings.Contains(out, "Summary") {
		t.Fatalf("expected no summary section, got %q", out)
	}
}

func TestRenderIncludesSummarySection(t *testing.T) {
	result := domain.ProcessingResult{
		Original:    "a long story",
		SourceLang:  "en",
		Summary:     "Short version.",
		SummaryLang: "en",
	}

	out := Render(result, []string{"ru", "en"})

	if !strings.Contains(out, "<b>Summary 🇺🇸:</b>") {
		t.Fatalf("expected summary header, got %q", out)
	}
	if !strings.Contains(out, "Short version.") {
		t.Fatalf("expected summary body, got %q", out)
	}
	if strings.Contains(out, "Translations") {
		t.Fatalf("expected no translations section without translations, got %q", out)
	}
}

func TestRenderOrdersTranslationsByEnabledList(t *testing.T) {
	result := domain.ProcessingResult{
		Original:   "halo",
		SourceLang: "id",
		Translations: map[string]string{
			"id": "halo",
			"en": "hello",
			"ru": "привет",
		},
	}

	out := Render(result, []string{"en", "ru"})

	en := strings.Index(out, "🇺🇸: hello")
	ru := strings.Index(out, "🇷🇺: привет")
	if en < 0 || ru < 0 || en > ru {
		t.Fatalf("expected enabled-list order en before ru, got %q", out)
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	result := domain.ProcessingResult{
		Original:     "a < b & c",
		SourceLang:   "en",
		Translations: map[string]string{"ru": "x <tag>"},
	}

	out := Render(result, []string{"ru", "en"})

	if strings.Contains(out, "a < b & c") || strings.Contains(out, "<tag>") {
		t.Fatalf("expected transcript text escaped, got %q", out)
	}
	if !strings.Contains(out, "a &lt; b &amp; c") {
		t.Fatalf("expected escaped original, got %q", out)
	}
}

func TestRenderIgnoredResultIsEmpty(t *testing.T) {
	if out := Render(domain.ProcessingResult{Ignore: true, Original: "x"}, nil); out != "" {
		t.Fatalf("expected empty output for ignored results, got %q", out)
	}
}

func TestLangFlagFallsBackToCode(t *testing.T) {
	if got := LangFlag("fr"); got != "fr" {
		t.Fatalf("expected unknown codes returned as-is, got %q", got)
	}
	if got := LangFlag("id"); got != "🇮🇩" {
		t.Fatalf("expected indonesian flag, got %q", got)
	}
}

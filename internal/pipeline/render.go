package pipeline

import (
	"strings"

	"voice_translator_bot/internal/domain"
)

var langFlags = map[string]string{
	"ru": "🇷🇺",
	"en": "🇺🇸",
	"id": "🇮🇩",
}

// LangFlag returns the flag emoji for a language code, or the code
// itself when no flag is known.
func LangFlag(lang string) string {
	if flag, ok := langFlags[lang]; ok {
		return flag
	}
	return lang
}

// Render formats a processing result as an HTML message: the original
// transcript, the translations in enabled-language order, and the
// summary when present. Returns an empty string for ignored results.
func Render(result domain.ProcessingResult, enabledLanguages []string) string {
	if result.Ignore {
		return ""
	}

	var b strings.Builder

	b.WriteString("🎙️ <b>Original (")
	b.WriteString(LangFlag(result.SourceLang))
	b.WriteString("):</b>\n")
	b.WriteString(escapeHTML(result.Original))
	b.WriteString("\n")

	if translated := renderTranslations(result, enabledLanguages); translated != "" {
		b.WriteString("\n🔄 <b>Translations:</b>\n")
		b.WriteString(translated)
	}

	if result.Summary != "" {
		b.WriteString("\n📝 <b>Summary ")
		b.WriteString(LangFlag(result.SummaryLang))
		b.WriteString(":</b>\n")
		b.WriteString(escapeHTML(result.Summary))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

// renderTranslations lists translations in enabled-language order,
// followed by any extra languages the result carries (a detected source
// outside the enabled set can introduce one).
func renderTranslations(result domain.ProcessingResult, enabledLanguages []string) string {
	if len(result.Translations) == 0 {
		return ""
	}

	seen := map[string]bool{result.SourceLang: true}
	ordered := make([]string, 0, len(result.Translations))
	for _, lang := range enabledLanguages {
		if !seen[lang] {
			seen[lang] = true
			ordered = append(ordered, lang)
		}
	}
	for _, lang := range domain.SupportedLanguages {
		if !seen[lang] {
			seen[lang] = true
			ordered = append(ordered, lang)
		}
	}

	var b strings.Builder
	for _, lang := range ordered {
		translated, ok := result.Translations[lang]
		if !ok {
			continue
		}
		b.WriteString(LangFlag(lang))
		b.WriteString(": ")
		b.WriteString(escapeHTML(translated))
		b.WriteString("\n\n")
	}

	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

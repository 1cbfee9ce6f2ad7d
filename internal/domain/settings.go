// Package domain defines the shared types of the voice translation
// pipeline: chat settings, processing modes, usage statistics, inbound
// events, and processing results.
package domain

// Mode is the per-chat processing policy.
type Mode string

const (
	// ModeTranslate translates the transcript into the enabled languages.
	ModeTranslate Mode = "translate"
	// ModeSummarize produces a structured summary of the transcript.
	ModeSummarize Mode = "summarize"
	// ModeBoth translates and summarizes.
	ModeBoth Mode = "both"
)

// Valid reports whether the mode is one of the three known values.
func (m Mode) Valid() bool {
	switch m {
	case ModeTranslate, ModeSummarize, ModeBoth:
		return true
	}
	return false
}

// IncludesTranslate reports whether translation is part of the mode.
func (m Mode) IncludesTranslate() bool {
	return m == ModeTranslate || m == ModeBoth
}

// IncludesSummarize reports whether summarization is part of the mode.
func (m Mode) IncludesSummarize() bool {
	return m == ModeSummarize || m == ModeBoth
}

// SupportedLanguages lists the language codes the bot understands, in
// the order used for display.
var SupportedLanguages = []string{"ru", "en", "id"}

// SupportedLanguage reports whether the code is one the bot can
// translate to and from.
func SupportedLanguage(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}

// ChatSettings is the durable per-chat configuration record.
type ChatSettings struct {
	// EnabledLanguages is never empty; order is the priority used when
	// picking a summary or voice-reply target.
	EnabledLanguages []string `json:"enabled_languages" bson:"enabled_languages"`
	Mode             Mode     `json:"mode" bson:"mode"`
	TTSEnabled       bool     `json:"tts_enabled" bson:"tts_enabled"`
}

// DefaultChatSettings returns the settings applied to a chat that has
// never been configured. The caller receives a fresh copy.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		EnabledLanguages: []string{"ru", "en"},
		Mode:             ModeTranslate,
		TTSEnabled:       false,
	}
}

// Normalize repairs a settings record loaded from storage: unknown
// modes fall back to translate, unsupported languages are dropped, and
// an empty language list is replaced with the defaults.
func (s ChatSettings) Normalize() ChatSettings {
	if !s.Mode.Valid() {
		s.Mode = ModeTranslate
	}

	langs := make([]string, 0, len(s.EnabledLanguages))
	for _, lang := range s.EnabledLanguages {
		if SupportedLanguage(lang) {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		langs = DefaultChatSettings().EnabledLanguages
	}
	s.EnabledLanguages = langs

	return s
}

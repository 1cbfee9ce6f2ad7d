package domain

// TranslationErrorPlaceholder marks a target language whose translation
// failed while the rest of the result stayed usable.
const TranslationErrorPlaceholder = "Error during translation"

// ProcessingResult is the transient outcome of one processed event. It
// is rendered and delivered immediately after construction.
type ProcessingResult struct {
	Original   string
	SourceLang string
	// Translations maps language code to cleaned text. Keys are a
	// subset of the enabled languages plus the source language.
	Translations map[string]string
	Summary      string
	SummaryLang  string
	// Ignore means the event produces no visible output at all.
	Ignore bool
}

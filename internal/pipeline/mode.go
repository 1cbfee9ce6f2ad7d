// Package pipeline contains the content-processing core: duration-based
// mode resolution, text normalization, and orchestration of the
// translation and summarization collaborators.
package pipeline

import "voice_translator_bot/internal/domain"

// shortClipSeconds is the boundary for the duration overrides. Clips
// shorter than this are not worth summarizing; clips longer than this
// get a summary even in translate-only chats.
const shortClipSeconds = 30

// Outcome is the effective processing decision for a single event.
type Outcome struct {
	Mode domain.Mode
	// Ignore means the event must produce no visible output.
	Ignore bool
}

// ResolveMode computes the effective mode for one event from the stored
// mode and the clip duration in seconds. A missing duration (0) counts
// as a short clip. The stored settings are never mutated.
func ResolveMode(stored domain.Mode, durationSeconds int) Outcome {
	if durationSeconds < shortClipSeconds {
		switch stored {
		case domain.ModeSummarize:
			return Outcome{Mode: stored, Ignore: true}
		case domain.ModeBoth:
			return Outcome{Mode: domain.ModeTranslate}
		}
	}

	if durationSeconds > shortClipSeconds && stored == domain.ModeTranslate {
		return Outcome{Mode: domain.ModeBoth}
	}

	return Outcome{Mode: stored}
}

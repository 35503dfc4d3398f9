package whisper

import (
	"context"
	"errors"
	"strings"
)

// AutoLanguage asks the engine to detect the spoken language itself.
const AutoLanguage = "auto"

var (
	ErrEngineNotFound = errors.New("whisper engine not found")
	ErrMissingAPIKey  = errors.New("transcription API key is not set")
)

type Request struct {
	AudioPath string
	ModelPath string
	Language  string
}

// Result is what an engine recognized. Language is only filled in when the
// engine reports it.
type Result struct {
	Text     string
	Language string
}

type Engine interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// languageCodes maps English language names to the ISO 639-1 codes whisper
// models and the transcription API expect.
var languageCodes = map[string]string{
	"arabic":     "ar",
	"bengali":    "bn",
	"bulgarian":  "bg",
	"catalan":    "ca",
	"chinese":    "zh",
	"croatian":   "hr",
	"czech":      "cs",
	"danish":     "da",
	"dutch":      "nl",
	"english":    "en",
	"estonian":   "et",
	"finnish":    "fi",
	"french":     "fr",
	"german":     "de",
	"greek":      "el",
	"hebrew":     "he",
	"hindi":      "hi",
	"hungarian":  "hu",
	"indonesian": "id",
	"italian":    "it",
	"japanese":   "ja",
	"korean":     "ko",
	"latvian":    "lv",
	"lithuanian": "lt",
	"malay":      "ms",
	"marathi":    "mr",
	"nepali":     "ne",
	"norwegian":  "no",
	"persian":    "fa",
	"polish":     "pl",
	"portuguese": "pt",
	"punjabi":    "pa",
	"romanian":   "ro",
	"russian":    "ru",
	"serbian":    "sr",
	"slovak":     "sk",
	"slovenian":  "sl",
	"spanish":    "es",
	"swahili":    "sw",
	"swedish":    "sv",
	"tamil":      "ta",
	"telugu":     "te",
	"thai":       "th",
	"turkish":    "tr",
	"ukrainian":  "uk",
	"urdu":       "ur",
	"vietnamese": "vi",
}

// NormalizeLanguage turns a language hint into the form engines accept:
// codes are lower-cased, English names ("German") become their ISO 639-1
// code, and blank input or "auto" in any case means AutoLanguage. Anything
// else is passed through lower-cased for the engine to accept or reject.
func NormalizeLanguage(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return AutoLanguage
	}
	if code, ok := languageCodes[trimmed]; ok {
		return code
	}
	return trimmed
}

func languageHint(lang string) (string, bool) {
	lang = NormalizeLanguage(lang)
	if lang == AutoLanguage {
		return "", false
	}
	return lang, true
}

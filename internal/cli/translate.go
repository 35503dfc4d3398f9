package cli

import (
	"context"
	"os"
	"strings"

	"github.com/fmueller/scribe/internal/translate"
	"github.com/fmueller/scribe/internal/whisper"
	"go.uber.org/zap"
)

// translateTranscript returns the transcript in the --translate-to language.
// Translation is best effort: any failure keeps the original text.
func (a *appState) translateTranscript(ctx context.Context, result whisper.Result, requested string) string {
	text := strings.TrimSpace(result.Text)
	target := whisper.NormalizeLanguage(a.translateTo)

	source := whisper.NormalizeLanguage(result.Language)
	if source == whisper.AutoLanguage {
		source = whisper.NormalizeLanguage(requested)
	}
	if source == target {
		a.log().Debug("transcript already in target language", zap.String("language", target))
		return text
	}
	if source == whisper.AutoLanguage {
		source = ""
	}

	translatorFn := a.translatorFn
	if translatorFn == nil {
		translatorFn = a.newTranslator
	}
	translator, err := translatorFn()
	if err != nil {
		a.log().Warn("translation unavailable, printing original transcript", zap.Error(err))
		return text
	}

	stopSpinner := startSpinner(os.Stderr, a.progressEnabled(), "Translating")
	translated, err := translator.Translate(ctx, translate.Request{Text: text, From: source, To: target})
	elapsed := stopSpinner()
	if err != nil {
		a.log().Warn("translation failed, printing original transcript", zap.Duration("elapsed", elapsed), zap.Error(err))
		return text
	}

	a.log().Info("translation finished", zap.Duration("elapsed", elapsed), zap.String("from", source), zap.String("to", target))
	return translated
}

func (a *appState) newTranslator() (translate.Translator, error) {
	translator, err := translate.NewChatTranslator(translate.Options{
		APIKey:  a.apiKey(),
		BaseURL: a.env("OPENAI_BASE_URL"),
		Model:   a.translateModel,
		Logger:  a.log(),
	})
	if err != nil {
		return nil, err
	}
	return translator, nil
}

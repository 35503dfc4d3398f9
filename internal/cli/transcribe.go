package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fmueller/scribe/internal/download"
	"github.com/fmueller/scribe/internal/whisper"
	"go.uber.org/zap"
)

func (a *appState) runTranscribe(ctx context.Context, out io.Writer, audioPath, language string) error {
	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeAudio
	}

	result, err := transcribeFn(ctx, audioPath, language)
	if err != nil {
		return err
	}

	if isBlankTranscript(result.Text) {
		a.log().Warn(noSpeechHint())
		return writeTranscript(out, result.Text)
	}
	if a.translateTo != "" {
		return writeTranscript(out, a.translateTranscript(ctx, result, language))
	}
	return writeTranscript(out, result.Text)
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath, language string) (whisper.Result, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return whisper.Result{}, fmt.Errorf("audio file not found: %w", err)
	}

	engineFn := a.engineFn
	if engineFn == nil {
		engineFn = a.newEngine
	}
	engine, err := engineFn()
	if err != nil {
		return whisper.Result{}, err
	}

	req := whisper.Request{
		AudioPath: audioPath,
		Language:  whisper.NormalizeLanguage(language),
	}
	if _, local := engine.(*whisper.LocalEngine); local {
		model, err := a.ensureModelAvailable(ctx)
		if err != nil {
			return whisper.Result{}, err
		}
		req.ModelPath = model.Path
	}

	a.log().Info("transcribing...",
		zap.String("audio", req.AudioPath),
		zap.String("engine", engine.Name()),
		zap.String("model", req.ModelPath),
		zap.String("language", req.Language),
	)
	stopSpinner := startSpinner(os.Stderr, a.progressEnabled(), "Transcribing")

	result, err := engine.Transcribe(ctx, req)
	elapsed := stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return whisper.Result{}, err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", elapsed), zap.String("detected_language", result.Language))

	return result, nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}
	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `scribe setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.Fetch(ctx, download.Request{
		URL:         resolved.URL,
		Destination: resolved.Path,
		SHA256:      resolved.SHA256,
		NoProgress:  a.noProgress,
		Logger:      a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

package cli

import (
	"fmt"
	"slices"

	"github.com/fmueller/scribe/internal/whisper"
	"go.uber.org/zap"
)

const (
	engineAuto   = "auto"
	engineLocal  = "local"
	engineOpenAI = "openai"
)

var engineKinds = []string{engineAuto, engineLocal, engineOpenAI}

func isEngineKind(kind string) bool {
	return slices.Contains(engineKinds, kind)
}

// newEngine builds the engine selected by --engine. In auto mode a local
// whisper-cli wins; audio only leaves the machine when no local engine exists
// and SCRIBE_OPENAI_API_KEY is set. A generic OPENAI_API_KEY is honored only
// with an explicit --engine openai.
func (a *appState) newEngine() (whisper.Engine, error) {
	switch a.engine {
	case engineLocal:
		return whisper.NewLocalEngine(a.log())
	case engineOpenAI:
		return a.newRemoteEngine()
	case engineAuto, "":
		local, err := whisper.NewLocalEngine(a.log())
		if err == nil {
			return local, nil
		}
		if a.env(envAPIKey) == "" {
			return nil, err
		}
		a.log().Info("local whisper engine unavailable; using transcription API", zap.Error(err))
		return a.newRemoteEngine()
	default:
		return nil, fmt.Errorf("unknown engine %q", a.engine)
	}
}

func (a *appState) newRemoteEngine() (whisper.Engine, error) {
	engine, err := whisper.NewRemoteEngine(whisper.RemoteOptions{
		APIKey:  a.apiKey(),
		BaseURL: a.env("OPENAI_BASE_URL"),
		Model:   a.apiModel,
		Logger:  a.log(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w; set OPENAI_API_KEY or %s", err, envAPIKey)
	}
	return engine, nil
}

func (a *appState) apiKey() string {
	if key := a.env(envAPIKey); key != "" {
		return key
	}
	return a.env("OPENAI_API_KEY")
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fmueller/scribe/internal/logging"
	"github.com/fmueller/scribe/internal/platform"
	"github.com/fmueller/scribe/internal/translate"
	"github.com/fmueller/scribe/internal/version"
	"github.com/fmueller/scribe/internal/whisper"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	envModel       = "SCRIBE_MODEL"
	envModelDir    = "SCRIBE_MODEL_DIR"
	envEngine      = "SCRIBE_ENGINE"
	envAPIKey      = "SCRIBE_OPENAI_API_KEY"
	envTranslateTo = "SCRIBE_TRANSLATE_TO"
)

type appState struct {
	verbose        bool
	jsonLogs       bool
	logFile        string
	noProgress     bool
	model          string
	modelDir       string
	engine         string
	apiModel       string
	autoDownload   bool
	translateTo    string
	translateModel string

	envFiles []string
	getenv   func(string) string
	logger   *zap.Logger

	engineFn     func() (whisper.Engine, error)
	transcribeFn func(ctx context.Context, audioPath, language string) (whisper.Result, error)
	translatorFn func() (translate.Translator, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{
		envFiles:     []string{".env"},
		autoDownload: true,
	})
}

func newRootCmd(app *appState) *cobra.Command {
	app.applyDefaults()

	cmd := &cobra.Command{
		Use:   "scribe <audio-file> [language]",
		Short: "Transcribe an audio file with a whisper speech model",
		Long: "Transcribe an audio file with a whisper speech model and print the text.\n\n" +
			"The optional language skips automatic language detection. It may be an ISO 639-1\n" +
			"code (en, de, ne, ...) or an English language name (English, German, Nepali, ...);\n" +
			"names are mapped to their code, anything else is passed to the engine as given.\n" +
			"Omit it, or pass \"auto\", to let the engine detect the language.\n\n" +
			"With --translate-to the transcript is translated through an OpenAI-compatible chat\n" +
			"model before printing. If translation fails the original transcript is printed.",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var language string
			if len(args) > 1 {
				language = args[1]
			}
			return app.runTranscribe(cmd.Context(), cmd.OutOrStdout(), args[0], language)
		},
	}

	cmd.SetVersionTemplate("scribe v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.StringVar(&app.logFile, "log-file", app.logFile, "Also write logs to this file (rotated)")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	flags.StringVar(&app.model, "model", app.model, "Model tier ("+strings.Join(whisper.ModelNames(), "|")+") or ggml model file path")
	flags.StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	flags.StringVar(&app.engine, "engine", app.engine, "Transcription engine: "+strings.Join(engineKinds, "|"))
	flags.StringVar(&app.apiModel, "api-model", app.apiModel, "Model name sent to the OpenAI-compatible API")
	flags.BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
	cmd.Flags().StringVar(&app.translateTo, "translate-to", app.translateTo, "Translate the transcript into this language (code or name)")
	cmd.Flags().StringVar(&app.translateModel, "translate-model", app.translateModel, "Chat model used for --translate-to")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *appState) applyDefaults() {
	if a.model == "" {
		a.model = whisper.DefaultModel
	}
	if a.engine == "" {
		a.engine = engineAuto
	}
	if a.apiModel == "" {
		a.apiModel = whisper.DefaultRemoteModel
	}
	if a.translateModel == "" {
		a.translateModel = translate.DefaultModel
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}
	if a.engineFn == nil {
		a.engineFn = a.newEngine
	}
	if a.transcribeFn == nil {
		a.transcribeFn = a.transcribeAudio
	}
}

// prepare loads .env files, fills unset flags from the environment and builds
// the logger. Flags given on the command line always win.
func (a *appState) prepare(cmd *cobra.Command) error {
	for _, file := range a.envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	flags := cmd.Flags()
	for name, key := range map[string]string{"model": envModel, "model-dir": envModelDir, "engine": envEngine, "translate-to": envTranslateTo} {
		if flags.Lookup(name) == nil || flags.Changed(name) {
			continue
		}
		if value := strings.TrimSpace(a.getenv(key)); value != "" {
			if err := flags.Set(name, value); err != nil {
				return fmt.Errorf("apply %s: %w", key, err)
			}
		}
	}

	a.engine = strings.ToLower(strings.TrimSpace(a.engine))
	if !isEngineKind(a.engine) {
		return fmt.Errorf("invalid argument %q for \"--engine\" flag: must be one of %s", a.engine, strings.Join(engineKinds, ", "))
	}

	if a.translateTo != "" {
		a.translateTo = whisper.NormalizeLanguage(a.translateTo)
		if a.translateTo == whisper.AutoLanguage {
			return errors.New(`invalid argument "auto" for "--translate-to" flag: a target language is required`)
		}
	}

	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs, File: a.logFile})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) env(key string) string {
	if a.translateModel == "" {
		a.translateModel = translate.DefaultModel
	}
	if a.getenv == nil {
		return os.Getenv(key)
	}
	return a.getenv(key)
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func writeTranscript(out io.Writer, transcript string) error {
	if _, err := fmt.Fprintln(out, transcript); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

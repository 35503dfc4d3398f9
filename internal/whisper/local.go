package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fmueller/scribe/internal/platform"
	"go.uber.org/zap"
)

// WhisperPathEnv overrides the whisper-cli executable used by LocalEngine.
const WhisperPathEnv = "SCRIBE_WHISPER_PATH"

// LocalEngine transcribes by running a whisper.cpp whisper-cli executable
// against a ggml model file.
type LocalEngine struct {
	Executable string
	Logger     *zap.Logger
}

func NewLocalEngine(logger *zap.Logger) (*LocalEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv(WhisperPathEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%s is not executable: %w", WhisperPathEnv, err)
		}
		return &LocalEngine{Executable: override, Logger: logger}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve scribe executable path: %w", err)
	}

	exe, err := ResolveEnginePath(self)
	if err != nil {
		return nil, err
	}

	return &LocalEngine{Executable: exe, Logger: logger}, nil
}

// ResolveEnginePath looks for whisper-cli next to the scribe binary first and
// falls back to PATH.
func ResolveEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	if found, err := exec.LookPath(engineBinaryName()); err == nil {
		return found, nil
	}

	return "", fmt.Errorf("%w: looked near %s and in PATH for %s; install whisper.cpp or set %s", ErrEngineNotFound, selfExecutable, engineBinaryName(), WhisperPathEnv)
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	name := engineBinaryName()
	host := platform.CurrentRuntime().Target()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", name),
		filepath.Join(binDir, "libexec", "whisper", name),
		filepath.Join(binDir, "packaging", "whisper", host, name),
		filepath.Join(binDir, name),
	}
}

func (e *LocalEngine) Name() string { return "local" }

func (e *LocalEngine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Result{}, errors.New("model path is required")
	}
	if err := ensureExecutable(e.Executable); err != nil {
		return Result{}, fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	workDir, err := os.MkdirTemp("", "scribe-")
	if err != nil {
		return Result{}, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	outBase := filepath.Join(workDir, "transcript")
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-nt", "-otxt", "-of", outBase}
	lang, explicit := languageHint(req.Language)
	if explicit {
		args = append(args, "-l", lang)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Executable, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	e.logger().Debug("running whisper engine", zap.String("engine", e.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return Result{}, explainRunError(e.Executable, err, strings.TrimSpace(stderr.String()))
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}

	result := Result{Text: strings.TrimSpace(string(content))}
	if explicit {
		result.Language = lang
	}
	return result, nil
}

func (e *LocalEngine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func explainRunError(exe string, err error, stderr string) error {
	switch {
	case isMissingSharedLibraryError(stderr):
		return fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF or point %s at a working build", exe, stderr, WhisperPathEnv)
	case isIllegalInstructionError(stderr), isIllegalInstructionError(err.Error()):
		return fmt.Errorf("whisper engine crashed with an illegal CPU instruction; set %s to a whisper-cli binary built for this CPU", WhisperPathEnv)
	case stderr == "":
		return fmt.Errorf("whisper transcribe failed: %w", err)
	default:
		return fmt.Errorf("whisper transcribe failed: %w (%s)", err, stderr)
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	for _, pattern := range []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	} {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}

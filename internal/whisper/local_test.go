package whisper

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fmueller/scribe/internal/platform"
	"github.com/stretchr/testify/require"
)

const fakeWhisperScript = `#!/bin/sh
out=""
lang="auto"
while [ $# -gt 0 ]; do
  case "$1" in
    -of) out="$2"; shift 2 ;;
    -l) lang="$2"; shift 2 ;;
    *) shift ;;
  esac
done
printf '  hello world [%s]\n' "$lang" > "$out.txt"
`

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script engines are not supported on windows")
	}

	path := filepath.Join(dir, engineBinaryName())
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func writeAudio(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestLocalEngineTranscribeAutoLanguage(t *testing.T) {
	t.Parallel()

	engine := &LocalEngine{Executable: writeScript(t, t.TempDir(), fakeWhisperScript)}
	result, err := engine.Transcribe(context.Background(), Request{
		AudioPath: writeAudio(t),
		ModelPath: "/models/ggml-base.bin",
		Language:  AutoLanguage,
	})
	require.NoError(t, err)
	require.Equal(t, "hello world [auto]", result.Text)
	require.Empty(t, result.Language)
}

func TestLocalEngineTranscribePassesLanguage(t *testing.T) {
	t.Parallel()

	engine := &LocalEngine{Executable: writeScript(t, t.TempDir(), fakeWhisperScript)}
	result, err := engine.Transcribe(context.Background(), Request{
		AudioPath: writeAudio(t),
		ModelPath: "/models/ggml-base.bin",
		Language:  "de",
	})
	require.NoError(t, err)
	require.Equal(t, "hello world [de]", result.Text)
	require.Equal(t, "de", result.Language)
}

func TestLocalEngineReportsMissingSharedLibraries(t *testing.T) {
	t.Parallel()

	script := "#!/bin/sh\necho 'error while loading shared libraries: libwhisper.so.1: cannot open shared object file' >&2\nexit 127\n"
	engine := &LocalEngine{Executable: writeScript(t, t.TempDir(), script)}
	_, err := engine.Transcribe(context.Background(), Request{AudioPath: writeAudio(t), ModelPath: "m.bin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required shared libraries")
}

func TestLocalEngineWrapsFailureWithStderr(t *testing.T) {
	t.Parallel()

	script := "#!/bin/sh\necho 'failed to read audio file' >&2\nexit 2\n"
	engine := &LocalEngine{Executable: writeScript(t, t.TempDir(), script)}
	_, err := engine.Transcribe(context.Background(), Request{AudioPath: writeAudio(t), ModelPath: "m.bin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisper transcribe failed")
	require.Contains(t, err.Error(), "failed to read audio file")
}

func TestLocalEngineRequiresPaths(t *testing.T) {
	t.Parallel()

	engine := &LocalEngine{Executable: "/nonexistent/whisper-cli"}
	_, err := engine.Transcribe(context.Background(), Request{ModelPath: "m.bin"})
	require.EqualError(t, err, "audio path is required")

	_, err = engine.Transcribe(context.Background(), Request{AudioPath: "a.wav"})
	require.EqualError(t, err, "model path is required")

	_, err = engine.Transcribe(context.Background(), Request{AudioPath: "a.wav", ModelPath: "m.bin"})
	require.ErrorContains(t, err, "not executable")
}

func TestResolveEnginePathFindsLibexecSibling(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	engineDir := filepath.Join(root, "libexec", "whisper")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.MkdirAll(engineDir, 0o755))

	self := filepath.Join(binDir, "scribe")
	require.NoError(t, os.WriteFile(self, []byte(""), 0o755))
	enginePath := filepath.Join(engineDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveEnginePath(self)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveEnginePathFindsPackagingPathForLocalDev(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	self := filepath.Join(root, "scribe")
	require.NoError(t, os.WriteFile(self, []byte(""), 0o755))

	targetDir := filepath.Join(root, "packaging", "whisper", platform.CurrentRuntime().Target())
	require.NoError(t, os.MkdirAll(targetDir, 0o755))
	enginePath := filepath.Join(targetDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveEnginePath(self)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveEnginePathFallsBackToPATH(t *testing.T) {
	pathDir := t.TempDir()
	enginePath := writeScript(t, pathDir, "#!/bin/sh\n")
	t.Setenv("PATH", pathDir)

	self := filepath.Join(t.TempDir(), "scribe")
	resolved, err := ResolveEnginePath(self)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveEnginePathMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	self := filepath.Join(t.TempDir(), "bin", "scribe")
	_, err := ResolveEnginePath(self)
	require.ErrorIs(t, err, ErrEngineNotFound)
}

func TestNewLocalEngineHonorsOverride(t *testing.T) {
	enginePath := writeScript(t, t.TempDir(), fakeWhisperScript)
	t.Setenv(WhisperPathEnv, enginePath)

	engine, err := NewLocalEngine(nil)
	require.NoError(t, err)
	require.Equal(t, enginePath, engine.Executable)
	require.Equal(t, "local", engine.Name())
}

func TestNewLocalEngineRejectsBadOverride(t *testing.T) {
	t.Setenv(WhisperPathEnv, filepath.Join(t.TempDir(), "missing"))

	_, err := NewLocalEngine(nil)
	require.ErrorContains(t, err, WhisperPathEnv+" is not executable")
}

func TestIsMissingSharedLibraryError(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1: cannot open shared object file"))
	require.True(t, isMissingSharedLibraryError("dyld: Library not loaded: @rpath/libwhisper.dylib"))
	require.False(t, isMissingSharedLibraryError("some other runtime error"))
	require.False(t, isMissingSharedLibraryError(""))
}

func TestIsIllegalInstructionError(t *testing.T) {
	t.Parallel()

	require.True(t, isIllegalInstructionError("signal: illegal instruction (core dumped)"))
	require.False(t, isIllegalInstructionError("some other runtime error"))
	require.False(t, isIllegalInstructionError(""))
}

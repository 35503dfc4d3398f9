package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/fmueller/scribe/internal/whisper"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runApp(t, &appState{autoDownload: true}, args)
}

func runApp(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetContext(context.Background())
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

type fakeEngine struct {
	mu       sync.Mutex
	requests []whisper.Request
	result   whisper.Result
	err      error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(_ context.Context, req whisper.Request) (whisper.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeEngine) calls() []whisper.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]whisper.Request(nil), f.requests...)
}

func appWithEngine(engine whisper.Engine) *appState {
	return &appState{
		getenv: envMap(nil),
		engineFn: func() (whisper.Engine, error) {
			return engine, nil
		},
	}
}

func writeAudioFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

// writeFakeWhisperCLI installs a shell script that mimics whisper-cli's -otxt
// output and echoes the language it was given.
func writeFakeWhisperCLI(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script engines are not supported on windows")
	}

	script := `#!/bin/sh
out=""
lang="auto"
while [ $# -gt 0 ]; do
  case "$1" in
    -of) out="$2"; shift 2 ;;
    -l) lang="$2"; shift 2 ;;
    *) shift ;;
  esac
done
printf 'hello world [%s]\n' "$lang" > "$out.txt"
`
	path := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

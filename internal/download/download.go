package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	defaultAttempts = 3
	userAgent       = "scribe/1"
)

// Request describes one file to fetch. An empty SHA256 skips verification.
type Request struct {
	URL         string
	Destination string
	SHA256      string
	Attempts    int
	NoProgress  bool
	HTTPClient  *http.Client
	Logger      *zap.Logger

	// backoff between attempts; nil means linear 300ms steps.
	backoff func(attempt int) time.Duration
}

// Fetch downloads req.URL into req.Destination. The payload is staged in a
// ".part" file next to the destination and only renamed into place once its
// checksum matches.
func Fetch(ctx context.Context, req Request) error {
	if req.URL == "" {
		return errors.New("download URL is required")
	}
	if req.Destination == "" {
		return errors.New("destination path is required")
	}
	req = withDefaults(req)

	expected := normalizeChecksum(req.SHA256)

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	var err error
	for attempt := 1; attempt <= req.Attempts; attempt++ {
		if attempt > 1 {
			req.Logger.Warn("retrying download", zap.Int("attempt", attempt), zap.Int("max", req.Attempts), zap.String("url", req.URL), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(req.backoff(attempt)):
			}
		}

		if err = fetchOnce(ctx, req, expected); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}

	return err
}

func withDefaults(req Request) Request {
	if req.Attempts <= 0 {
		req.Attempts = defaultAttempts
	}
	if req.HTTPClient == nil {
		req.HTTPClient = &http.Client{Timeout: 30 * time.Minute}
	}
	if req.Logger == nil {
		req.Logger = zap.NewNop()
	}
	if req.backoff == nil {
		req.backoff = func(attempt int) time.Duration {
			return time.Duration(attempt) * 300 * time.Millisecond
		}
	}
	return req
}

// VerifyFile hashes path and compares it with expected. An empty expected
// digest always verifies.
func VerifyFile(path, expected string) error {
	expected = normalizeChecksum(expected)
	if expected == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	return compareDigest(h, expected)
}

func fetchOnce(ctx context.Context, req Request, expected string) (err error) {
	partial := req.Destination + ".part"
	_ = os.Remove(partial)

	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := req.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	h := sha256.New()
	sinks := []io.Writer{out, h}
	bar := newByteBar(req.NoProgress, resp.ContentLength)
	if bar != nil {
		sinks = append(sinks, bar)
	}

	if _, err := io.Copy(io.MultiWriter(sinks...), resp.Body); err != nil {
		return fmt.Errorf("download body: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if expected != "" {
		if err := compareDigest(h, expected); err != nil {
			return err
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(partial, req.Destination); err != nil {
		return fmt.Errorf("move temp file into destination: %w", err)
	}

	req.Logger.Debug("download complete", zap.String("url", req.URL), zap.String("destination", req.Destination))
	return nil
}

func newByteBar(noProgress bool, contentLength int64) *progressbar.ProgressBar {
	if noProgress || contentLength <= 0 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}

	return progressbar.NewOptions64(
		contentLength,
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}

func compareDigest(h hash.Hash, expected string) error {
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

func normalizeChecksum(sum string) string {
	return strings.ToLower(strings.TrimSpace(sum))
}

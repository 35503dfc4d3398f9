package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "scribe"

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Target is the os_arch directory name used for packaged engine binaries.
func (r Runtime) Target() string {
	return r.OS + "_" + r.Arch
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

func DefaultModelDirFor(goos, homeDir, dataHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if dataHome != "" {
			return filepath.Join(dataHome, appDirName, "models"), nil
		}
		return filepath.Join(homeDir, ".local", "share", appDirName, "models"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDirName, "models"), nil
	case "windows":
		if dataHome != "" {
			return filepath.Join(dataHome, appDirName, "models"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", appDirName, "models"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

// ResolveModelDir returns override when set, otherwise the per-user data
// directory for the current OS.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, dataHomeEnv(runtime.GOOS))
}

func dataHomeEnv(goos string) string {
	if goos == "windows" {
		return os.Getenv("LOCALAPPDATA")
	}
	return os.Getenv("XDG_DATA_HOME")
}

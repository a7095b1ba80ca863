package lmstudio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BinaryName is the name of the LM Studio command-line tool.
const BinaryName = "lms"

// LocateBinary returns how to invoke the lms CLI. When lms is on PATH the
// bare name is returned; otherwise the LM Studio install location under
// homeDir is checked. An empty homeDir is resolved from the environment.
func LocateBinary(homeDir string) (string, error) {
	if _, err := exec.LookPath(BinaryName); err == nil {
		return BinaryName, nil
	}

	fallback, err := FallbackBinaryPath(homeDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBinaryNotInstalled, err)
	}

	info, err := os.Stat(fallback)
	if err != nil || info.IsDir() {
		return "", ErrBinaryNotInstalled
	}

	return fallback, nil
}

// FallbackBinaryPath returns {home}/.lmstudio/bin/lms, with an .exe suffix
// on Windows.
func FallbackBinaryPath(homeDir string) (string, error) {
	if homeDir == "" {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
	}

	name := BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return filepath.Join(homeDir, ".lmstudio", "bin", name), nil
}

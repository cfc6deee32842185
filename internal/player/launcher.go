package player

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/cantoplayer/canto/internal/domain"
)

// CommandNone selects the in-memory widget instead of launching mpv
const CommandNone = "none"

// mpvCandidates lists where mpv usually lives, tried in order when no command is configured
var mpvCandidates = map[string][]string{
	"darwin":  {"mpv", "/opt/homebrew/bin/mpv", "/usr/local/bin/mpv", "/Applications/mpv.app/Contents/MacOS/mpv"},
	"linux":   {"mpv", "/usr/bin/mpv", "/usr/local/bin/mpv", "/snap/bin/mpv"},
	"freebsd": {"mpv", "/usr/local/bin/mpv"},
}

// resolveCommand finds the mpv executable.
// A configured command must resolve; otherwise the platform candidates are tried.
func resolveCommand(command string, logger *slog.Logger) (string, error) {
	if command != "" && command != "mpv" {
		path, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("player %q: %w", command, domain.ErrPlayerNotFound)
		}
		logger.Debug("using configured player", "command", command, "path", path)
		return path, nil
	}

	candidates, ok := mpvCandidates[runtime.GOOS]
	if !ok {
		candidates = mpvCandidates["linux"]
	}
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err == nil {
			logger.Debug("detected player", "path", path)
			return path, nil
		}
		logger.Debug("player candidate not available", "path", candidate, "error", err)
	}
	return "", domain.ErrPlayerNotFound
}

// defaultSocket returns a per-process IPC socket path
func defaultSocket() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("canto-mpv-%d.sock", os.Getpid()))
}

// buildArgs returns the mpv command line for a headless, IPC controlled instance.
// keep-open stops mpv from advancing by itself so the queue decides what plays next.
func buildArgs(socket string, volume int, extra []string) []string {
	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--pause",
		"--keep-open=always",
		"--input-ipc-server=" + socket,
	}
	if volume >= 0 {
		args = append(args, "--volume="+strconv.Itoa(min(volume, 130)))
	}
	return append(args, extra...)
}

package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantoplayer/canto/internal/domain"
	"github.com/cantoplayer/canto/internal/log"
)

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/tmp/mpv.sock", 80, []string{"--audio-device=alsa"})
	assert.Contains(t, args, "--input-ipc-server=/tmp/mpv.sock")
	assert.Contains(t, args, "--keep-open=always")
	assert.Contains(t, args, "--idle=yes")
	assert.Contains(t, args, "--volume=80")
	assert.Equal(t, "--audio-device=alsa", args[len(args)-1])

	assert.Contains(t, buildArgs("s", 500, nil), "--volume=130")
}

func TestResolveCommand(t *testing.T) {
	logger := log.NullLogger()

	_, err := resolveCommand("/definitely/not/a/player", logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

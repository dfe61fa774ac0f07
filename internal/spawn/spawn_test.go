package spawn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSpawnRunsThroughShell(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	s := New(zap.NewNop())

	require.NoError(t, s.Spawn("echo hello > "+out))
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(out)
		return err == nil && string(b) == "hello\n"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSpawnEmpty(t *testing.T) {
	s := New(zap.NewNop())
	assert.ErrorIs(t, s.Spawn("   "), ErrEmptyCommand)
}

func TestSpawnMissingShell(t *testing.T) {
	s := New(zap.NewNop())
	s.Shell = filepath.Join(t.TempDir(), "nosh")
	assert.Error(t, s.Spawn("true"))
}

func TestSpawnAll(t *testing.T) {
	dir := t.TempDir()
	s := New(zap.NewNop())
	s.SpawnAll([]string{"touch " + filepath.Join(dir, "a"), "", "touch " + filepath.Join(dir, "b")})

	require.Eventually(t, func() bool {
		_, errA := os.Stat(filepath.Join(dir, "a"))
		_, errB := os.Stat(filepath.Join(dir, "b"))
		return errA == nil && errB == nil
	}, 5*time.Second, 10*time.Millisecond)
}

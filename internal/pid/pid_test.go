package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPid(t *testing.T, dir string) int {
	t.Helper()

	b, err := os.ReadFile(pid.Path(dir))
	require.NoError(t, err)
	n, err := strconv.Atoi(string(b))
	require.NoError(t, err)

	return n
}

func TestWriteRemove(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, pid.Write(dir))
	assert.Equal(t, os.Getpid(), readPid(t, dir))

	// Rewriting our own file is allowed.
	require.NoError(t, pid.Write(dir))

	require.NoError(t, pid.Remove(dir))
	_, err := os.Stat(pid.Path(dir))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, pid.Remove(dir), "removing a missing file is not an error")
}

func TestWriteAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(pid.Path(dir), []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	for name, content := range map[string]string{
		"dead process": "2147483000",
		"garbage":      "not a pid",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(pid.Path(dir), []byte(content), 0o600))

			require.NoError(t, pid.Write(dir))
			assert.Equal(t, os.Getpid(), readPid(t, dir))
		})
	}
}

func TestPathDefaultsToTempDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "fx5204ps.pid"), pid.Path(""))
	assert.Equal(t, filepath.Join("/run", "fx5204ps.pid"), pid.Path("/run"))
}

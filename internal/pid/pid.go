package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/fx5204ps/internal/errors"
)

const (
	pidFile = "fx5204ps.pid"
	pidPerm = 0o600
)

// Path returns the pid file location in dir, or in the system temp
// directory when dir is empty.
func Path(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, pidFile)
}

// Write records the current process ID. It fails with ErrAlreadyRunning
// while another live process owns the file; a stale or unreadable file is
// replaced.
func Write(dir string) error {
	errFactory := errors.New()
	path := Path(dir)

	bytes, err := os.ReadFile(path)
	switch {
	case err == nil:
		if owner, ok := parse(bytes); ok && owner != os.Getpid() && alive(owner) {
			return errFactory.WithData(errors.ErrAlreadyRunning, owner)
		}
	case !os.IsNotExist(err):
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), pidPerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove(dir string) error {
	errFactory := errors.New()

	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func parse(b []byte) (int, bool) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// EPERM means the process exists under another user.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

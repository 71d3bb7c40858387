// Package queue is the durable request queue between the dispatcher and
// the external executor. PLAN and EXECUTE records arrive as JSON files in
// the inbox, the drain worker sorts them into pending/ (awaiting approval)
// or ready/ (executor pickup), and resolved records land in done/.
package queue

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// dirPerm is the permission for queue-managed directories.
const dirPerm = 0750

// DirConfig holds the queue directory layout under a single root.
type DirConfig struct {
	Root string
}

// DefaultDirConfig places the queue under the relaybot state directory.
func DefaultDirConfig(stateDir string) DirConfig {
	return DirConfig{Root: filepath.Join(stateDir, "queue")}
}

// Inbox returns the directory where Enqueue writes new records.
func (d DirConfig) Inbox() string { return filepath.Join(d.Root, "inbox") }

// Pending returns the directory of approval-requiring PLAN records.
func (d DirConfig) Pending() string { return filepath.Join(d.Root, "pending") }

// Ready returns the executor pickup directory.
func (d DirConfig) Ready() string { return filepath.Join(d.Root, "ready") }

// Done returns the directory of resolved records.
func (d DirConfig) Done() string { return filepath.Join(d.Root, "done") }

// EnsureDirs creates all queue directories. Idempotent.
func EnsureDirs(cfg DirConfig) error {
	for _, dir := range []string{cfg.Inbox(), cfg.Pending(), cfg.Ready(), cfg.Done()} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MoveFile moves src to dst using os.Rename, falling back to copy+remove
// on EXDEV (cross-device link, common with systemd bind mounts). The drain
// worker uses it for every inbox lifecycle move so a queue directory on
// another filesystem cannot strand records.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

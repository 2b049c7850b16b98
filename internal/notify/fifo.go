package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vietddude/walletnotify/internal/core/domain"
)

// ErrNoReader is returned by Send when no daemon has the pipe open.
var ErrNoReader = errors.New("no reader on notification pipe")

// EnsurePipe creates the named pipe if it is missing and applies mode and
// the optional owning group.
func EnsurePipe(path string, mode uint32, group string) error {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := unix.Mkfifo(path, mode); err != nil {
			return fmt.Errorf("mkfifo %s: %w", path, err)
		}
	case err != nil:
		return fmt.Errorf("stat %s: %w", path, err)
	case fi.Mode()&fs.ModeNamedPipe == 0:
		return fmt.Errorf("%s exists and is not a named pipe", path)
	}

	// mkfifo is subject to umask.
	if err := os.Chmod(path, fs.FileMode(mode)); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return fmt.Errorf("lookup group %s: %w", group, err)
		}
		gid, err := strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf("group %s has non-numeric gid %q", group, g.Gid)
		}
		if err := os.Chown(path, -1, gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	return nil
}

// OpenPipe opens the pipe for reading. The open blocks until a writer
// appears; cancelling ctx abandons it.
func OpenPipe(ctx context.Context, path string) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		ch <- result{f, err}
	}()

	select {
	case r := <-ch:
		return r.f, r.err
	case <-ctx.Done():
	}

	// Release the pending open by briefly appearing as a writer.
	for {
		if w, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0); err == nil {
			_ = w.Close()
		}
		select {
		case r := <-ch:
			if r.f != nil {
				_ = r.f.Close()
			}
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Interrupt unblocks a pending read on f.
func Interrupt(f *os.File) {
	if err := f.SetReadDeadline(time.Now()); err != nil {
		_ = f.Close()
	}
}

// Send writes one record to the pipe. It fails fast with ErrNoReader
// instead of blocking when the daemon is not running.
func Send(path string, rec domain.NotificationRecord) error {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if errors.Is(err, unix.ENXIO) {
		return ErrNoReader
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Records are shorter than PIPE_BUF, so each write is atomic.
	if _, err := f.WriteString(rec.String() + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

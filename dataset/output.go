package dataset

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultDirCreationPerm is used when creating the directory of a result file.
const DefaultDirCreationPerm = 0755

// Output is a result file being written.
//
// Data goes to a temporary file next to the result, which is moved into place by Commit. A
// "<path>.lock" file coordinates concurrent runs writing to the same result.
type Output struct {
	path     string
	tmpPath  string
	lockPath string
	file     *os.File
	lock     *flock.Flock
	done     bool
}

// CreateOutput locks path and opens a temporary file to write its contents into.
//
// If the lock is held by another process it polls every 100 to 200 milliseconds, until the lock
// is acquired or ctx is done.
func CreateOutput(ctx context.Context, path string) (*Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirCreationPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory for result file %q", path)
	}
	o := &Output{
		path:     path,
		tmpPath:  path + ".writing",
		lockPath: path + ".lock",
	}
	o.lock = flock.New(o.lockPath)
	if err := lockWithRetry(ctx, o.lock); err != nil {
		return nil, errors.WithMessagef(err, "while locking %q to write %q", o.lockPath, path)
	}
	file, err := os.Create(o.tmpPath)
	if err != nil {
		o.unlock()
		return nil, errors.Wrapf(err, "creating temporary result file %q", o.tmpPath)
	}
	o.file = file
	return o, nil
}

func lockWithRetry(ctx context.Context, lock *flock.Flock) error {
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lock.Path())
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * time.Duration(100+rand.Intn(100))):
		}
	}
}

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	return o.file.Write(p)
}

// Path returns the final path of the result file.
func (o *Output) Path() string {
	return o.path
}

// Commit closes the temporary file, moves it to the result path and releases the lock.
func (o *Output) Commit() error {
	if o.done {
		return errors.Errorf("result %q already closed", o.path)
	}
	o.done = true
	defer o.unlock()
	if err := o.file.Close(); err != nil {
		_ = os.Remove(o.tmpPath)
		return errors.Wrapf(err, "failed to close temporary result file %q", o.tmpPath)
	}
	if err := os.Rename(o.tmpPath, o.path); err != nil {
		_ = os.Remove(o.tmpPath)
		return errors.Wrapf(err, "failed to move result file %q to %q", o.tmpPath, o.path)
	}
	return nil
}

// Abort discards what was written and releases the lock. It's a no-op after Commit, so it can be
// deferred.
func (o *Output) Abort() {
	if o.done {
		return
	}
	o.done = true
	defer o.unlock()
	if err := o.file.Close(); err != nil {
		klog.Warningf("Failed closing temporary file %q: %v", o.tmpPath, err)
	}
	if err := os.Remove(o.tmpPath); err != nil {
		klog.Warningf("Failed removing temporary file %q: %v", o.tmpPath, err)
	}
}

func (o *Output) unlock() {
	if err := o.lock.Unlock(); err != nil {
		klog.Errorf("Error unlocking file %q: %v", o.lockPath, err)
		return
	}
	// The result is in place (or discarded), so we no longer need the lock file.
	if err := os.Remove(o.lockPath); err != nil && !os.IsNotExist(err) {
		klog.Warningf("Error removing lock file %q: %+v", o.lockPath, err)
	}
}

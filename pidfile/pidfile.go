// Package pidfile records the running instance so that a later one can stop
// it. Termination is advisory: nothing waits for the old instance to exit.
package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/stream2cast/stream2cast/log"
)

const defaultFilename = "stream2cast.pid"

type Lock struct {
	path        string
	processName string
}

type Option func(*Lock)

// WithProcessName sets the executable name a recorded pid must belong to
// before it is signalled. It defaults to the name of this executable.
func WithProcessName(name string) Option {
	return func(l *Lock) {
		l.processName = name
	}
}

func New(path string, opts ...Option) *Lock {
	l := &Lock{path: path}
	if exe, err := os.Executable(); err == nil {
		l.processName = filepath.Base(exe)
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Default uses stream2cast.pid in the temporary directory.
func Default(opts ...Option) *Lock {
	return New(filepath.Join(os.TempDir(), defaultFilename), opts...)
}

func (l *Lock) Path() string { return l.path }

// Read returns the recorded pid.
func (l *Lock) Read() (int, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return 0, errors.Wrap(err, "unable to read pid file")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid pid file %s", l.path)
	}
	return pid, nil
}

// Record writes the pid of this process.
func (l *Lock) Record() error {
	err := renameio.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
	return errors.Wrap(err, "unable to write pid file")
}

// TerminatePrevious signals the process group of the recorded instance. A
// missing file, a pid that is gone or belongs to another program, and a
// failed signal are all ignored.
func (l *Lock) TerminatePrevious() {
	logger := log.WithField("package", "pidfile")
	pid, err := l.Read()
	if err != nil {
		logger.WithError(err).Debug("no previous instance recorded")
		return
	}
	if pid <= 0 || pid == os.Getpid() {
		return
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		logger.WithError(err).Debugf("previous instance %d is gone", pid)
		return
	}
	name, err := p.Name()
	if err != nil || name != l.processName {
		logger.Debugf("pid %d is %q, not %q; leaving it alone", pid, name, l.processName)
		return
	}

	if err := terminate(p); err != nil {
		logger.WithError(err).Debugf("unable to terminate previous instance %d", pid)
		return
	}
	logger.Debugf("terminated previous instance %d", pid)
}

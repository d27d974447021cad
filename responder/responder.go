// Package responder holds the HTTP handlers that deliver one media file to
// a cast device, either as stored or through an external encoder.
package responder

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/log"
	"github.com/stream2cast/stream2cast/transcoder"
)

const (
	DefaultBufferSize = 32 * 1024

	// How long an encoder gets to exit after being signalled before it is
	// killed outright.
	waitDelay = 5 * time.Second
)

// Config is fixed when a handler is built and never changes afterwards.
type Config struct {
	// Path is the absolute path of the only file that is served.
	Path        string
	ContentType string
	BufferSize  int
	// Stderr receives the encoder's diagnostics. Nil discards them.
	Stderr io.Writer
}

// URLPath is the request path the file is served under.
func (c Config) URLPath() string {
	p := filepath.ToSlash(c.Path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (c Config) bufferSize() int {
	if c.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return c.BufferSize
}

// accept rejects requests for anything other than a GET of the configured
// path.
func (c Config) accept(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path != c.URLPath() {
		http.NotFound(w, r)
		return false
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (c Config) writeHeader(w http.ResponseWriter) {
	w.Header().Set("Content-Type", c.ContentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// Direct streams the file as stored.
type Direct struct {
	cfg Config
}

func NewDirect(cfg Config) *Direct {
	return &Direct{cfg: cfg}
}

func (d *Direct) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("package", "responder").WithField("path", d.cfg.Path)
	if !d.cfg.accept(w, r) {
		logger.Warnf("rejected %s %s", r.Method, r.URL.Path)
		return
	}

	f, err := os.Open(d.cfg.Path)
	if err != nil {
		logger.WithError(err).Error("unable to open media file")
		http.Error(w, "unable to open media file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	d.cfg.writeHeader(w)
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := copyBuffer(w, f, d.cfg.bufferSize())
	if err != nil {
		logger.WithError(err).Warnf("streaming aborted after %d bytes", n)
		panic(http.ErrAbortHandler)
	}
	logger.Infof("served %d bytes", n)
}

// CommandFunc builds the encoder process for one request. The command must
// be created with exec.CommandContext using ctx.
type CommandFunc func(ctx context.Context) *exec.Cmd

// ToolCommand encodes path with tool at quality q.
func ToolCommand(tool transcoder.Tool, path string, q transcoder.Quality) CommandFunc {
	return func(ctx context.Context) *exec.Cmd {
		return tool.Command(ctx, path, q)
	}
}

// Transcoding streams the standard output of an encoder. The encoder lives
// only as long as the request.
type Transcoding struct {
	cfg     Config
	command CommandFunc
}

func NewTranscoding(cfg Config, command CommandFunc) *Transcoding {
	return &Transcoding{cfg: cfg, command: command}
}

func (t *Transcoding) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("package", "responder").WithField("path", t.cfg.Path)
	if !t.cfg.accept(w, r) {
		logger.Warnf("rejected %s %s", r.Method, r.URL.Path)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := t.command(ctx)
	cmd.Stderr = t.cfg.Stderr
	cmd.WaitDelay = waitDelay
	inProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		logger.WithError(err).Error("unable to start transcoder")
		http.Error(w, "unable to start transcoder", http.StatusInternalServerError)
		return
	}
	logger.Debugf("transcoding with %s (pid %d)", strings.Join(cmd.Args, " "), cmd.Process.Pid)

	t.cfg.writeHeader(w)
	w.WriteHeader(http.StatusOK)

	n, copyErr := copyBuffer(w, stdout, t.cfg.bufferSize())
	if copyErr != nil {
		// Stop the encoder before reaping it; it may be blocked writing to
		// a pipe nobody reads anymore.
		cancel()
	}
	waitErr := cmd.Wait()

	switch {
	case copyErr != nil:
		logger.WithError(copyErr).Warnf("streaming aborted after %d bytes, transcoder stopped", n)
		panic(http.ErrAbortHandler)
	case waitErr != nil:
		logger.WithError(waitErr).Errorf("transcoder failed after %d bytes", n)
		panic(http.ErrAbortHandler)
	}
	logger.Infof("served %d transcoded bytes", n)
}

// copyBuffer moves src to w through one fixed buffer, flushing after every
// write so the client's pace throttles the reads.
func copyBuffer(w http.ResponseWriter, src io.Reader, size int) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, size)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, errors.Wrap(werr, "write")
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, errors.Wrap(err, "flush")
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, errors.Wrap(rerr, "read")
		}
	}
}

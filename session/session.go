// Package session ties the pieces together: it stops a previous instance,
// serves one file to the device and issues the device control commands.
package session

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/stream2cast/stream2cast/application"
	"github.com/stream2cast/stream2cast/cast"
	"github.com/stream2cast/stream2cast/config"
	"github.com/stream2cast/stream2cast/log"
	"github.com/stream2cast/stream2cast/pidfile"
	"github.com/stream2cast/stream2cast/probe"
	"github.com/stream2cast/stream2cast/responder"
	"github.com/stream2cast/stream2cast/server"
	"github.com/stream2cast/stream2cast/transcoder"
)

// VolumeStep is the change applied by VolumeUp and VolumeDown.
const VolumeStep = 0.1

// Device is the remote receiver as seen by a session.
type Device interface {
	Status() (*cast.Application, *cast.Media, *cast.Volume)
	IsIdle() bool
	QuitApp() error
	LocalAddr() (string, error)
	Load(contentURL, contentType string) error
	Pause() error
	Unpause() error
	StopMedia() error
	SetVolume(level float32) error
	VolumeUp(step float32) error
	VolumeDown(step float32) error
	Close(stopMedia bool) error
}

// Acquirer connects to the device. It is called once per operation.
type Acquirer func(ctx context.Context) (Device, error)

// Snapshot is what the device reported when it was acquired.
type Snapshot struct {
	Application *cast.Application
	Media       *cast.Media
	Volume      *cast.Volume
}

// PlaybackRequest is a validated file to play.
type PlaybackRequest struct {
	path      string
	transcode bool
}

// NewPlaybackRequest checks that path names a readable regular file.
func NewPlaybackRequest(path string, transcode bool) (PlaybackRequest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return PlaybackRequest{}, errors.Wrapf(ErrFileNotFound, "%s: %v", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return PlaybackRequest{}, errors.Wrap(ErrFileNotFound, path)
	}
	if !fi.Mode().IsRegular() {
		return PlaybackRequest{}, errors.Wrapf(ErrFileNotFound, "%s is not a regular file", path)
	}
	f, err := os.Open(abs)
	if err != nil {
		return PlaybackRequest{}, errors.Wrapf(ErrFileNotFound, "%s is not readable", path)
	}
	f.Close()
	return PlaybackRequest{path: abs, transcode: transcode}, nil
}

func (r PlaybackRequest) Path() string { return r.path }

func (r PlaybackRequest) Transcode() bool { return r.transcode }

type Manager struct {
	acquire Acquirer
	store   *config.Store
	lock    *pidfile.Lock
	detect  transcoder.Detector
	settler Settler
	stderr  io.Writer
}

type Option func(*Manager)

func WithConfigStore(store *config.Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

func WithPidFile(lock *pidfile.Lock) Option {
	return func(m *Manager) {
		m.lock = lock
	}
}

// WithDetector replaces the check for installed transcoders.
func WithDetector(detect transcoder.Detector) Option {
	return func(m *Manager) {
		m.detect = detect
	}
}

func WithSettler(s Settler) Option {
	return func(m *Manager) {
		m.settler = s
	}
}

// WithEncoderStderr forwards the encoder's diagnostics to w.
func WithEncoderStderr(w io.Writer) Option {
	return func(m *Manager) {
		m.stderr = w
	}
}

func NewManager(acquire Acquirer, opts ...Option) *Manager {
	m := &Manager{
		acquire: acquire,
		lock:    pidfile.Default(),
		detect:  transcoder.VersionQuery,
		settler: DefaultSettler(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) config() config.Config {
	if m.store == nil {
		return config.Default()
	}
	return m.store.Load()
}

// Play serves req to the device and returns once the device has fetched it,
// the fetch failed, or ctx ended.
func (m *Manager) Play(ctx context.Context, req PlaybackRequest) error {
	logger := log.WithField("package", "session").WithField("path", req.path)
	if req.path == "" {
		return errors.Wrap(ErrFileNotFound, "no file given")
	}

	if m.lock != nil {
		m.lock.TerminatePrevious()
		if err := m.lock.Record(); err != nil {
			logger.WithError(err).Warn("unable to record process id")
		}
	}

	cfg := m.config()
	tool, installed := transcoder.Resolve(ctx, cfg.Transcoder, m.detect)
	if req.transcode && !installed {
		return errors.Wrap(ErrUnsupportedOperation, "unable to transcode, neither ffmpeg nor avconv is installed")
	}
	probeCommand := ""
	if installed {
		probeCommand = tool.ProbeCommand()
	}
	mime := probe.Detect(ctx, req.path, probeCommand)
	if sniffed, av := probe.Sniff(req.path); sniffed != "" && !av {
		logger.Warnf("file looks like %s, the device may not play it", sniffed)
	}
	logger.Infof("mimetype %s", mime)

	dev, err := m.acquireDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close(false)

	if !dev.IsIdle() {
		logger.Info("stopping the running app")
		if err := dev.QuitApp(); err != nil {
			return remote("quit the running app", err)
		}
		if err := m.settler.Settle(ctx, AppQuit); err != nil {
			return err
		}
	}

	host, err := dev.LocalAddr()
	if err != nil {
		return remote("find the local address", err)
	}

	rcfg := responder.Config{
		Path:        req.path,
		ContentType: mime.String(),
		Stderr:      m.stderr,
	}
	var handler http.Handler = responder.NewDirect(rcfg)
	if req.transcode {
		logger.Infof("transcoding with %s at %s/%s", tool, cfg.Preset, cfg.Bitrate)
		handler = responder.NewTranscoding(rcfg, responder.ToolCommand(tool, req.path, cfg.Quality()))
	}

	srv, err := server.Listen(host, handler)
	if err != nil {
		return err
	}
	defer srv.Close()

	url := srv.URL(rcfg.URLPath())
	logger.Infof("serving %s", url)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		if err := dev.Load(url, mime.String()); err != nil {
			return remote("load media", err)
		}
		return nil
	})
	return g.Wait()
}

// acquireDevice connects, logs what the device is doing and lets it settle.
func (m *Manager) acquireDevice(ctx context.Context) (Device, error) {
	dev, err := m.acquire(ctx)
	if err != nil {
		return nil, remote("connect to the device", err)
	}
	logSnapshot(snapshot(dev))
	if err := m.settler.Settle(ctx, Acquired); err != nil {
		dev.Close(false)
		return nil, err
	}
	return dev, nil
}

func snapshot(dev Device) Snapshot {
	app, media, volume := dev.Status()
	return Snapshot{Application: app, Media: media, Volume: volume}
}

func logSnapshot(s Snapshot) {
	logger := log.WithField("package", "session")
	if s.Application != nil {
		logger = logger.WithField("app", s.Application.DisplayName).WithField("status", s.Application.StatusText)
	}
	if s.Media != nil {
		logger = logger.WithField("player_state", s.Media.PlayerState)
	}
	logger.WithField("volume", s.Volume.LevelOrZero()).Info("device acquired")
}

// control runs one command on the device and waits for it to settle.
func (m *Manager) control(ctx context.Context, op string, f func(Device) error) error {
	dev, err := m.acquireDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close(false)
	if err := f(dev); err != nil {
		return remote(op, err)
	}
	return m.settler.Settle(ctx, CommandIssued)
}

func (m *Manager) Pause(ctx context.Context) error {
	return m.control(ctx, "pause", Device.Pause)
}

func (m *Manager) Unpause(ctx context.Context) error {
	return m.control(ctx, "resume", Device.Unpause)
}

// Stop stops the media and then quits the receiver app.
func (m *Manager) Stop(ctx context.Context) error {
	dev, err := m.acquireDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close(false)

	switch err := dev.StopMedia(); {
	case err == nil:
		if err := m.settler.Settle(ctx, CommandIssued); err != nil {
			return err
		}
	case errors.Is(err, application.ErrNoMediaStop):
	default:
		return remote("stop", err)
	}
	if err := dev.QuitApp(); err != nil {
		return remote("quit the app", err)
	}
	return nil
}

func (m *Manager) Status(ctx context.Context) (Snapshot, error) {
	dev, err := m.acquire(ctx)
	if err != nil {
		return Snapshot{}, remote("connect to the device", err)
	}
	defer dev.Close(false)
	return snapshot(dev), nil
}

func (m *Manager) VolumeUp(ctx context.Context) error {
	return m.control(ctx, "raise the volume", func(d Device) error {
		return d.VolumeUp(VolumeStep)
	})
}

func (m *Manager) VolumeDown(ctx context.Context) error {
	return m.control(ctx, "lower the volume", func(d Device) error {
		return d.VolumeDown(VolumeStep)
	})
}

// SetVolume sets the level, between 0 and 1.
func (m *Manager) SetVolume(ctx context.Context, level float32) error {
	if level < 0 || level > 1 {
		return errors.Wrapf(config.ErrInvalidArgument, "volume must be between 0 and 1, got %v", level)
	}
	return m.control(ctx, "set the volume", func(d Device) error {
		return d.SetVolume(level)
	})
}

func (m *Manager) Mute(ctx context.Context) error {
	return m.SetVolume(ctx, 0)
}

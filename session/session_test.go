package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream2cast/stream2cast/application"
	"github.com/stream2cast/stream2cast/cast"
	"github.com/stream2cast/stream2cast/config"
	"github.com/stream2cast/stream2cast/pidfile"
)

type fetch struct {
	url         string
	contentType string
	status      int
	header      string
	body        string
	err         error
}

type fakeDevice struct {
	mu       sync.Mutex
	idle     bool
	calls    []string
	loadErr  error
	stopErr  error
	localErr error
	volume   float32
	fetched  chan fetch
	closed   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{idle: true, volume: 0.5, fetched: make(chan fetch, 1)}
}

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) Status() (*cast.Application, *cast.Media, *cast.Volume) {
	level := d.volume
	if d.idle {
		return nil, nil, &cast.Volume{Level: &level}
	}
	return &cast.Application{AppId: "app", DisplayName: "Other"}, &cast.Media{PlayerState: "PLAYING"}, &cast.Volume{Level: &level}
}

func (d *fakeDevice) IsIdle() bool { return d.idle }

func (d *fakeDevice) QuitApp() error {
	d.record("QuitApp")
	return nil
}

func (d *fakeDevice) LocalAddr() (string, error) {
	if d.localErr != nil {
		return "", d.localErr
	}
	return "127.0.0.1", nil
}

// Load fetches the URL in the background, the way a receiver does after
// accepting the command.
func (d *fakeDevice) Load(contentURL, contentType string) error {
	d.record("Load")
	if d.loadErr != nil {
		return d.loadErr
	}
	go func() {
		f := fetch{url: contentURL, contentType: contentType}
		resp, err := http.Get(contentURL)
		if err != nil {
			f.err = err
			d.fetched <- f
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		f.status, f.header, f.body, f.err = resp.StatusCode, resp.Header.Get("Content-Type"), string(b), err
		d.fetched <- f
	}()
	return nil
}

func (d *fakeDevice) Pause() error   { d.record("Pause"); return nil }
func (d *fakeDevice) Unpause() error { d.record("Unpause"); return nil }

func (d *fakeDevice) StopMedia() error {
	d.record("StopMedia")
	return d.stopErr
}

func (d *fakeDevice) SetVolume(level float32) error {
	d.record("SetVolume")
	d.volume = level
	return nil
}

func (d *fakeDevice) VolumeUp(step float32) error {
	d.record("VolumeUp")
	d.volume += step
	return nil
}

func (d *fakeDevice) VolumeDown(step float32) error {
	d.record("VolumeDown")
	d.volume -= step
	return nil
}

func (d *fakeDevice) Close(bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type recordingSettler struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSettler) Settle(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return ctx.Err()
}

func (s *recordingSettler) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func noTools(context.Context, string) bool { return false }

type harness struct {
	dev      *fakeDevice
	settler  *recordingSettler
	acquired int
	lock     *pidfile.Lock
	manager  *Manager
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dev:     newFakeDevice(),
		settler: &recordingSettler{},
		lock:    pidfile.New(filepath.Join(dir, "test.pid")),
	}
	acquire := func(context.Context) (Device, error) {
		h.acquired++
		return h.dev, nil
	}
	base := []Option{
		WithConfigStore(config.NewStore(filepath.Join(dir, ".stream2cast"))),
		WithPidFile(h.lock),
		WithSettler(h.settler),
		WithDetector(noTools),
	}
	h.manager = NewManager(acquire, append(base, opts...)...)
	return h
}

func (h *harness) waitFetch(t *testing.T) fetch {
	t.Helper()
	select {
	case f := <-h.dev.fetched:
		return f
	case <-time.After(10 * time.Second):
		t.Fatal("device never fetched the media")
		return fetch{}
	}
}

func mediaFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewPlaybackRequest(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPlaybackRequest(filepath.Join(dir, "missing.mp4"), false)
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = NewPlaybackRequest(dir, false)
	assert.ErrorIs(t, err, ErrFileNotFound)

	path := mediaFile(t, "clip.mp4", "data")
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, path)
	require.NoError(t, err)

	req, err := NewPlaybackRequest(rel, true)
	require.NoError(t, err)
	assert.Equal(t, path, req.Path())
	assert.True(t, req.Transcode())
}

func TestPlayServesFileToDevice(t *testing.T) {
	h := newHarness(t)
	content := strings.Repeat("media bytes ", 10000)
	path := mediaFile(t, filepath.Join("My Movies", "clip 1.mp4"), content)
	req, err := NewPlaybackRequest(path, false)
	require.NoError(t, err)

	require.NoError(t, h.manager.Play(context.Background(), req))

	f := h.waitFetch(t)
	require.NoError(t, f.err)
	assert.Equal(t, http.StatusOK, f.status)
	assert.Equal(t, content, f.body)
	assert.Equal(t, "video/mp4", f.contentType)
	assert.Equal(t, "video/mp4", f.header)
	assert.Contains(t, f.url, "/My%20Movies/clip%201.mp4")
	assert.True(t, strings.HasPrefix(f.url, "http://127.0.0.1:"))

	assert.Equal(t, []string{"Load"}, h.dev.Calls())
	assert.Equal(t, []Event{Acquired}, h.settler.Events())
	assert.True(t, h.dev.closed)

	pid, err := h.lock.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPlayQuitsRunningApp(t *testing.T) {
	h := newHarness(t)
	h.dev.idle = false
	req, err := NewPlaybackRequest(mediaFile(t, "a.mp4", "x"), false)
	require.NoError(t, err)

	require.NoError(t, h.manager.Play(context.Background(), req))
	h.waitFetch(t)

	assert.Equal(t, []string{"QuitApp", "Load"}, h.dev.Calls())
	assert.Equal(t, []Event{Acquired, AppQuit}, h.settler.Events())
}

func TestPlayTranscodeWithoutTool(t *testing.T) {
	h := newHarness(t)
	req, err := NewPlaybackRequest(mediaFile(t, "a.mkv", "x"), true)
	require.NoError(t, err)

	err = h.manager.Play(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.Zero(t, h.acquired, "the device must not be touched")
}

func TestPlayLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.dev.loadErr = application.ErrLoadFailed
	req, err := NewPlaybackRequest(mediaFile(t, "a.mp4", "x"), false)
	require.NoError(t, err)

	err = h.manager.Play(context.Background(), req)
	assert.ErrorIs(t, err, ErrRemoteCommand)
	assert.ErrorIs(t, err, application.ErrLoadFailed)
}

func TestPlayLocalAddrFailure(t *testing.T) {
	h := newHarness(t)
	h.dev.localErr = cast.ErrNotConnected
	req, err := NewPlaybackRequest(mediaFile(t, "a.mp4", "x"), false)
	require.NoError(t, err)

	err = h.manager.Play(context.Background(), req)
	assert.ErrorIs(t, err, ErrRemoteCommand)
	assert.Empty(t, h.dev.Calls())
}

func TestPlayCancelledBeforeFetch(t *testing.T) {
	h := newHarness(t)
	req, err := NewPlaybackRequest(mediaFile(t, "a.mp4", "x"), false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = h.manager.Play(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body), 0o755))
}

func TestPlayTranscodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts as stand-in tools")
	}
	bin := t.TempDir()
	// The stand-in encoder echoes its input file, given after -i.
	writeScript(t, bin, "ffmpeg", "cat \"$2\"\n")
	writeScript(t, bin, "ffprobe", "echo codec_type=audio\necho format_name=mp3\n")
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	h := newHarness(t, WithDetector(func(_ context.Context, name string) bool {
		return name == "ffmpeg"
	}))
	req, err := NewPlaybackRequest(mediaFile(t, "song.flac", "encoded audio"), true)
	require.NoError(t, err)

	require.NoError(t, h.manager.Play(context.Background(), req))

	f := h.waitFetch(t)
	require.NoError(t, f.err)
	assert.Equal(t, "encoded audio", f.body)
	assert.Equal(t, "audio/mpeg", f.contentType)
	assert.Equal(t, "audio/mpeg", f.header)
}

func TestControlCommands(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Manager, context.Context) error
		want string
	}{
		{"pause", (*Manager).Pause, "Pause"},
		{"unpause", (*Manager).Unpause, "Unpause"},
		{"volume up", (*Manager).VolumeUp, "VolumeUp"},
		{"volume down", (*Manager).VolumeDown, "VolumeDown"},
		{"mute", (*Manager).Mute, "SetVolume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, tt.run(h.manager, context.Background()))
			assert.Equal(t, []string{tt.want}, h.dev.Calls())
			assert.Equal(t, []Event{Acquired, CommandIssued}, h.settler.Events())
			assert.True(t, h.dev.closed)
		})
	}
}

func TestMuteSetsZero(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.manager.Mute(context.Background()))
	assert.Zero(t, h.dev.volume)
}

func TestSetVolume(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.manager.SetVolume(context.Background(), 0.3))
	assert.InDelta(t, 0.3, h.dev.volume, 0.0001)

	for _, level := range []float32{-0.1, 1.5} {
		err := h.manager.SetVolume(context.Background(), level)
		assert.ErrorIs(t, err, config.ErrInvalidArgument)
	}
	assert.Equal(t, 1, h.acquired, "invalid levels must not reach the device")
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.manager.Stop(context.Background()))
	assert.Equal(t, []string{"StopMedia", "QuitApp"}, h.dev.Calls())
	assert.Equal(t, []Event{Acquired, CommandIssued}, h.settler.Events())
}

func TestStopWithoutMedia(t *testing.T) {
	h := newHarness(t)
	h.dev.stopErr = application.ErrNoMediaStop
	require.NoError(t, h.manager.Stop(context.Background()))
	assert.Equal(t, []string{"StopMedia", "QuitApp"}, h.dev.Calls())
}

func TestStopFailure(t *testing.T) {
	h := newHarness(t)
	h.dev.stopErr = application.ErrConnectionClosed
	err := h.manager.Stop(context.Background())
	assert.ErrorIs(t, err, ErrRemoteCommand)
	assert.ErrorIs(t, err, application.ErrConnectionClosed)
	assert.Equal(t, []string{"StopMedia"}, h.dev.Calls())
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.dev.idle = false
	s, err := h.manager.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Application)
	assert.Equal(t, "Other", s.Application.DisplayName)
	assert.Equal(t, "PLAYING", s.Media.PlayerState)
	assert.InDelta(t, 0.5, s.Volume.LevelOrZero(), 0.0001)
	assert.Empty(t, h.settler.Events())
}

func TestAcquireFailure(t *testing.T) {
	boom := errors.New("no route to host")
	m := NewManager(func(context.Context) (Device, error) { return nil, boom },
		WithSettler(&recordingSettler{}))

	err := m.Pause(context.Background())
	assert.ErrorIs(t, err, ErrRemoteCommand)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "no route to host")
}

func TestFixedInterval(t *testing.T) {
	s := FixedInterval{Acquired: time.Millisecond, AppQuit: time.Hour}
	assert.NoError(t, s.Settle(context.Background(), Acquired))
	assert.NoError(t, s.Settle(context.Background(), CommandIssued))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Settle(ctx, AppQuit), context.DeadlineExceeded)

	d := DefaultSettler()
	assert.Equal(t, time.Second, d.Acquired)
	assert.Equal(t, 5*time.Second, d.AppQuit)
	assert.Equal(t, 3*time.Second, d.CommandIssued)
}

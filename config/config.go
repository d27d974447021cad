// Package config persists the transcoding settings in a small key:value
// document in the user's home directory.
package config

import (
	"os"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/stream2cast/stream2cast/log"
	"github.com/stream2cast/stream2cast/transcoder"
)

const (
	KeyTranscoder = "transcoder"
	KeyPreset     = "ffmpeg_preset"
	KeyBitrate    = "ffmpeg_bitrate"

	defaultFilename = ".stream2cast"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPersist         = errors.New("unable to save config")
)

func init() {
	// Written keys must read back as "key:value" with no alignment padding.
	ini.PrettyFormat = false
}

type Config struct {
	Transcoder transcoder.Tool
	Preset     string
	Bitrate    string
}

func Default() Config {
	q := transcoder.DefaultQuality()
	return Config{Transcoder: transcoder.FFmpeg, Preset: q.Preset, Bitrate: q.Bitrate}
}

func (c Config) Quality() transcoder.Quality {
	return transcoder.Quality{Preset: c.Preset, Bitrate: c.Bitrate}
}

// Store reads and writes the document at a fixed path. Values set through
// the store stay in effect for the life of the process even when they could
// not be written.
type Store struct {
	path string

	mu      sync.Mutex
	current *Config
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore uses ~/.stream2cast.
func DefaultStore() (*Store, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, errors.Wrap(err, "unable to find homedir")
	}
	return NewStore(home + string(os.PathSeparator) + defaultFilename), nil
}

func (s *Store) Path() string { return s.path }

func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		Loose:                    true,
		KeyValueDelimiters:       ":",
		KeyValueDelimiterOnWrite: ":",
		SkipUnrecognizableLines:  true,
		IgnoreInlineComment:      true,
	}
}

// Load returns the stored configuration. Missing, unknown or invalid
// entries fall back to their defaults, so the result is always complete.
func (s *Store) Load() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return *s.current
	}
	return s.read()
}

func (s *Store) read() Config {
	c := Default()
	f, err := ini.LoadSources(loadOptions(), s.path)
	if err != nil {
		log.WithField("package", "config").WithError(err).Debugf("unable to read %s, using defaults", s.path)
		return c
	}

	if v := value(f, KeyTranscoder); v != "" {
		if tool, err := transcoder.ParseTool(v); err == nil {
			c.Transcoder = tool
		}
	}
	if v := value(f, KeyPreset); transcoder.ValidPreset(v) {
		c.Preset = v
	}
	if v := value(f, KeyBitrate); transcoder.ValidBitrate(v) {
		c.Bitrate = v
	}
	return c
}

// value returns the last entry for key. The document has no sections, so a
// bracketed line is ignored and the keys after it still count.
func value(f *ini.File, key string) string {
	v := ""
	for _, section := range f.Sections() {
		if section.HasKey(key) {
			v = strings.TrimSpace(section.Key(key).String())
		}
	}
	return v
}

// Save replaces the whole document with c.
func (s *Store) Save(c Config) error {
	f := ini.Empty(loadOptions())
	section := f.Section(ini.DefaultSection)
	for _, kv := range [][2]string{
		{KeyTranscoder, c.Transcoder.Name()},
		{KeyPreset, c.Preset},
		{KeyBitrate, c.Bitrate},
	} {
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return errors.Wrapf(ErrPersist, "%s: %v", kv[0], err)
		}
	}

	t, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o644))
	if err != nil {
		return errors.Wrapf(ErrPersist, "%s: %v", s.path, err)
	}
	defer t.Cleanup()
	if _, err := f.WriteTo(t); err != nil {
		return errors.Wrapf(ErrPersist, "%s: %v", s.path, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(ErrPersist, "%s: %v", s.path, err)
	}
	return nil
}

// SetTranscoder records the preferred encoder.
func (s *Store) SetTranscoder(name string) (Config, error) {
	tool, err := transcoder.ParseTool(name)
	if err != nil {
		return Config{}, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return s.update(func(c *Config) { c.Transcoder = tool }), nil
}

// SetQuality records the encoder preset and bitrate. Nothing is written
// unless both are valid.
func (s *Store) SetQuality(preset, bitrate string) (Config, error) {
	q := transcoder.Quality{
		Preset:  strings.ToLower(strings.TrimSpace(preset)),
		Bitrate: strings.ToLower(strings.TrimSpace(bitrate)),
	}
	if err := q.Validate(); err != nil {
		return Config{}, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return s.update(func(c *Config) {
		c.Preset = q.Preset
		c.Bitrate = q.Bitrate
	}), nil
}

// ResetQuality restores the default preset and bitrate.
func (s *Store) ResetQuality() Config {
	q := transcoder.DefaultQuality()
	return s.update(func(c *Config) {
		c.Preset = q.Preset
		c.Bitrate = q.Bitrate
	})
}

func (s *Store) update(mutate func(*Config)) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c Config
	if s.current != nil {
		c = *s.current
	} else {
		c = s.read()
	}
	mutate(&c)
	s.current = &c

	if err := s.Save(c); err != nil {
		log.WithField("package", "config").WithError(err).Warn("Unable to save config.")
	}
	return c
}

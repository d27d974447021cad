// Package transcoder describes the external encoders media can be piped
// through and how to pick one that is installed.
package transcoder

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/log"
)

var (
	ErrUnknownTool    = errors.New("transcoder must be either ffmpeg or avconv")
	ErrInvalidPreset  = errors.New("preset value must be one of: " + strings.Join(Presets, ", "))
	ErrInvalidBitrate = errors.New("bitrate must be an integer value optionally ending with k or m. For example: 2000k")
)

// Tool is one of the supported encoders.
type Tool int

const (
	FFmpeg Tool = iota
	Avconv
)

type variant struct {
	name       string
	probe      string
	audioCodec string
	extra      []string
}

var variants = map[Tool]variant{
	FFmpeg: {name: "ffmpeg", probe: "ffprobe", audioCodec: "libfdk_aac"},
	Avconv: {name: "avconv", probe: "avprobe", audioCodec: "aac", extra: []string{"-strict", "experimental"}},
}

// Tools lists every supported encoder, most preferred first.
func Tools() []Tool {
	return []Tool{FFmpeg, Avconv}
}

// ParseTool returns the tool called name, ignoring case.
func ParseTool(name string) (Tool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tools() {
		if variants[t].name == name {
			return t, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownTool, "%q", name)
}

func (t Tool) String() string { return t.Name() }

// Name is the executable name of the encoder.
func (t Tool) Name() string { return variants[t].name }

// ProbeCommand is the executable name of the prober shipped with the encoder.
func (t Tool) ProbeCommand() string { return variants[t].probe }

// Args returns the encoder arguments producing a fragmented mp4 stream on
// stdout.
func (t Tool) Args(source string, q Quality) []string {
	v := variants[t]
	args := []string{
		"-i", source,
		"-preset", q.Preset,
		"-c:a", v.audioCodec,
		"-f", "mp4",
		"-frag_duration", "3600",
		"-b:v", q.Bitrate,
	}
	args = append(args, v.extra...)
	return append(args, "-")
}

// Command builds the encoder invocation for source. The process is killed
// when ctx is done.
func (t Tool) Command(ctx context.Context, source string, q Quality) *exec.Cmd {
	return exec.CommandContext(ctx, t.Name(), t.Args(source, q)...)
}

// Presets are the encoder speed presets, fastest first.
var Presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow", "placebo",
}

const (
	DefaultPreset  = "ultrafast"
	DefaultBitrate = "2000k"
)

var bitrateRegex = regexp.MustCompile(`^\d+[km]?$`)

// Quality is the encoder preset and video bitrate.
type Quality struct {
	Preset  string
	Bitrate string
}

func DefaultQuality() Quality {
	return Quality{Preset: DefaultPreset, Bitrate: DefaultBitrate}
}

func (q Quality) Validate() error {
	if !ValidPreset(q.Preset) {
		return errors.Wrapf(ErrInvalidPreset, "%q", q.Preset)
	}
	if !ValidBitrate(q.Bitrate) {
		return errors.Wrapf(ErrInvalidBitrate, "%q", q.Bitrate)
	}
	return nil
}

func ValidPreset(preset string) bool {
	for _, p := range Presets {
		if p == preset {
			return true
		}
	}
	return false
}

func ValidBitrate(bitrate string) bool {
	return bitrateRegex.MatchString(bitrate)
}

// Detector reports whether the named executable is installed.
type Detector func(ctx context.Context, name string) bool

// VersionQuery runs `name -version`. A tool that starts counts as installed
// whatever its exit status.
func VersionQuery(ctx context.Context, name string) bool {
	err := exec.CommandContext(ctx, name, "-version").Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// Resolve picks the preferred tool if it is installed, otherwise any other
// installed one. It reports false when no tool is installed.
func Resolve(ctx context.Context, preferred Tool, detect Detector) (Tool, bool) {
	if detect == nil {
		detect = VersionQuery
	}
	if detect(ctx, preferred.Name()) {
		return preferred, true
	}
	for _, t := range Tools() {
		if t == preferred {
			continue
		}
		if detect(ctx, t.Name()) {
			log.WithField("package", "transcoder").Warnf("unable to find %s - using %s", preferred, t)
			return t, true
		}
	}
	return preferred, false
}

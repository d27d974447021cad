// Package probe works out the MIME type a cast device should be told to
// expect for a media file.
package probe

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/log"
)

const DefaultMimeType = "video/mp4"

var ErrProbeUnavailable = errors.New("probing unavailable")

type Kind int

const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	if k == Audio {
		return "audio"
	}
	return "video"
}

type Container int

const (
	Unknown Container = iota
	MP4
	WebM
	Ogg
	MPEG
	WAV
)

// Subtypes of the MIME type, Unknown is served as mp4.
var subtypes = map[Container]string{
	Unknown: "mp4",
	MP4:     "mp4",
	WebM:    "webm",
	Ogg:     "ogg",
	MPEG:    "mpeg",
	WAV:     "wav",
}

// Format names checked in order, the first one reported wins.
var containers = []struct {
	name      string
	container Container
	audioOnly bool
}{
	{"mp4", MP4, false},
	{"webm", WebM, false},
	{"ogg", Ogg, false},
	{"mp3", MPEG, true},
	{"wav", WAV, true},
}

type MimeDecision struct {
	Kind      Kind
	Container Container
}

func Default() MimeDecision {
	return MimeDecision{Kind: Video, Container: MP4}
}

func (d MimeDecision) String() string {
	return d.Kind.String() + "/" + subtypes[d.Container]
}

// Parse classifies the key=value output of ffprobe/avprobe run with
// -show_streams -show_format.
func Parse(r io.Reader) MimeDecision {
	var (
		hasVideo   bool
		formatName []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "codec_type=video"):
			hasVideo = true
		case strings.HasPrefix(line, "format_name="):
			value := strings.TrimPrefix(line, "format_name=")
			formatName = strings.Split(strings.ToLower(strings.TrimSpace(value)), ",")
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithField("package", "probe").WithError(err).Debug("unable to read probe output")
	}

	if formatName == nil {
		return Default()
	}

	kind := Audio
	if hasVideo {
		kind = Video
	}
	for _, c := range containers {
		for _, name := range formatName {
			if strings.TrimSpace(name) != c.name {
				continue
			}
			if c.audioOnly {
				return MimeDecision{Kind: Audio, Container: c.container}
			}
			return MimeDecision{Kind: kind, Container: c.container}
		}
	}
	return MimeDecision{Kind: kind, Container: Unknown}
}

// Detect runs probeCommand against path. Without a usable prober the
// default video/mp4 is returned.
func Detect(ctx context.Context, path, probeCommand string) MimeDecision {
	logger := log.WithField("package", "probe")
	if probeCommand == "" {
		return Default()
	}

	cmd := exec.CommandContext(ctx, probeCommand, "-show_streams", "-show_format", path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.WithError(errors.Wrap(ErrProbeUnavailable, err.Error())).Warn("using default mimetype")
		return Default()
	}
	if err := cmd.Start(); err != nil {
		logger.WithError(errors.Wrap(ErrProbeUnavailable, err.Error())).Warn("using default mimetype")
		return Default()
	}

	decision := Parse(stdout)
	if err := cmd.Wait(); err != nil {
		logger.WithError(err).Debugf("%s exited with an error", probeCommand)
	}
	return decision
}

// Sniff reports the MIME type implied by the magic bytes of path and
// whether that is an audio or video type.
func Sniff(path string) (string, bool) {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}
	return kind.MIME.Value, kind.MIME.Type == "audio" || kind.MIME.Type == "video"
}

package transcoder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTool(t *testing.T) {
	tool, err := ParseTool("FFmpeg")
	require.NoError(t, err)
	assert.Equal(t, FFmpeg, tool)

	tool, err = ParseTool(" avconv")
	require.NoError(t, err)
	assert.Equal(t, Avconv, tool)

	_, err = ParseTool("handbrake")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestArgs(t *testing.T) {
	q := Quality{Preset: "veryfast", Bitrate: "1500k"}

	assert.Equal(t, []string{
		"-i", "/media/a b.mkv", "-preset", "veryfast", "-c:a", "libfdk_aac",
		"-f", "mp4", "-frag_duration", "3600", "-b:v", "1500k", "-",
	}, FFmpeg.Args("/media/a b.mkv", q))

	assert.Equal(t, []string{
		"-i", "/media/a b.mkv", "-preset", "veryfast", "-c:a", "aac",
		"-f", "mp4", "-frag_duration", "3600", "-b:v", "1500k",
		"-strict", "experimental", "-",
	}, Avconv.Args("/media/a b.mkv", q))

	assert.Equal(t, "ffprobe", FFmpeg.ProbeCommand())
	assert.Equal(t, "avprobe", Avconv.ProbeCommand())

	cmd := Avconv.Command(context.Background(), "/media/a.avi", q)
	assert.Equal(t, "avconv", filepath.Base(cmd.Args[0]))
}

func TestQualityValidate(t *testing.T) {
	for _, preset := range Presets {
		for _, bitrate := range []string{"2000k", "2m", "800"} {
			assert.NoError(t, Quality{Preset: preset, Bitrate: bitrate}.Validate(), "%s %s", preset, bitrate)
		}
	}

	assert.ErrorIs(t, Quality{Preset: "turbo", Bitrate: "2000k"}.Validate(), ErrInvalidPreset)
	for _, bitrate := range []string{"", "k", "fast", "2000kb", "-5", "2.5m", "2000K"} {
		assert.ErrorIs(t, Quality{Preset: "fast", Bitrate: bitrate}.Validate(), ErrInvalidBitrate, bitrate)
	}
}

func installed(names ...string) Detector {
	return func(_ context.Context, name string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		preferred Tool
		installed []string
		want      Tool
		ok        bool
	}{
		{"preferred ffmpeg", FFmpeg, []string{"ffmpeg", "avconv"}, FFmpeg, true},
		{"preferred avconv", Avconv, []string{"ffmpeg", "avconv"}, Avconv, true},
		{"fallback to avconv", FFmpeg, []string{"avconv"}, Avconv, true},
		{"fallback to ffmpeg", Avconv, []string{"ffmpeg"}, FFmpeg, true},
		{"none installed", FFmpeg, nil, FFmpeg, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(ctx, tt.preferred, installed(tt.installed...))
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVersionQuery(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts")
	}
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	}
	write("ffmpeg", "echo ffmpeg version 6.0")
	write("avconv", "exit 1")
	t.Setenv("PATH", dir)

	ctx := context.Background()
	assert.True(t, VersionQuery(ctx, "ffmpeg"))
	assert.True(t, VersionQuery(ctx, "avconv"), "a tool exiting non-zero is still installed")
	assert.False(t, VersionQuery(ctx, "handbrake"))
}

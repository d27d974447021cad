package log

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Fields map[string]interface{}

type Level uint32

var (
	// ErrorLevel level. Logs. Used for errors that should definitely be noted.
	ErrorLevel = Level(logrus.ErrorLevel)
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel = Level(logrus.WarnLevel)
	// InfoLevel level. General operational entries about what's going on inside the
	// application.
	InfoLevel = Level(logrus.InfoLevel)
	// DebugLevel level. Usually only enabled when debugging. Very verbose logging.
	DebugLevel = Level(logrus.DebugLevel)
)

// Format selects how log entries are rendered.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

var ErrUnknownFormat = errors.New("unknown log format")

// ParseFormat accepts "text", "json" or "console".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatConsole:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

type LogEntry interface {
	Logger
	Fields() Fields
}

type Logger interface {
	SetLevel(level Level)
	GetLevel() Level
	SetOutput(out io.Writer)

	WithField(key string, value interface{}) LogEntry
	WithFields(fields Fields) LogEntry
	WithError(err error) LogEntry

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Printf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

var _ Logger = &wrapLogger{}

type wrapLogger struct {
	*logrus.Logger
}

func (dl *wrapLogger) GetLevel() Level {
	return Level(dl.Level)
}

func (dl *wrapLogger) SetLevel(level Level) {
	dl.Logger.SetLevel(logrus.Level(level))
}

func (dl *wrapLogger) WithField(key string, value interface{}) LogEntry {
	return &wrapLogEntry{dl.Logger.WithField(key, value)}
}

func (dl *wrapLogger) WithFields(fields Fields) LogEntry {
	return &wrapLogEntry{dl.Logger.WithFields(logrus.Fields(fields))}
}

func (dl *wrapLogger) WithError(err error) LogEntry {
	return &wrapLogEntry{dl.Logger.WithError(err)}
}

var _ LogEntry = &wrapLogEntry{}

type wrapLogEntry struct {
	*logrus.Entry
}

func (dle *wrapLogEntry) Fields() Fields {
	return Fields(dle.Entry.Data)
}

func (dle *wrapLogEntry) SetOutput(out io.Writer) {
	dle.Logger.SetOutput(out)
}

func (dle *wrapLogEntry) GetLevel() Level {
	return Level(dle.Logger.Level)
}

func (dle *wrapLogEntry) SetLevel(level Level) {
	dle.Logger.SetLevel(logrus.Level(level))
}

func (dle *wrapLogEntry) WithField(key string, value interface{}) LogEntry {
	return &wrapLogEntry{Entry: dle.Entry.WithField(key, value)}
}

func (dle *wrapLogEntry) WithFields(fields Fields) LogEntry {
	return &wrapLogEntry{Entry: dle.Entry.WithFields(logrus.Fields(fields))}
}

func (dle *wrapLogEntry) WithError(err error) LogEntry {
	return &wrapLogEntry{Entry: dle.Entry.WithError(err)}
}

// New returns a text logger writing to out.
func New(out io.Writer) Logger {
	return NewWithFormat(out, FormatText)
}

// NewWithFormat returns a logger rendering entries in the given format. The
// console format emits JSON that is re-rendered by a zerolog console writer.
func NewWithFormat(out io.Writer, format Format) Logger {
	l := &logrus.Logger{
		Out:          out,
		Formatter:    new(logrus.TextFormatter),
		Hooks:        make(logrus.LevelHooks),
		Level:        logrus.InfoLevel,
		ExitFunc:     os.Exit,
		ReportCaller: false,
	}
	switch format {
	case FormatJSON:
		l.Formatter = new(logrus.JSONFormatter)
	case FormatConsole:
		l.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		}
		l.Out = NewConsoleWriter(out)
	}
	return &wrapLogger{l}
}

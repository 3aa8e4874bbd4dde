package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl   zerolog.Logger
	sink SinkFunc
}

func New() *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{zl: logger}
}

func NewFromConfig(cfg LoggerConfig) *Logger {
	if cfg.LogLevel == zerolog.NoLevel {
		cfg.LogLevel = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger().
		Level(cfg.LogLevel)

	return &Logger{zl: logger}
}

// Nop returns a logger that drops every message.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) WithOutput(w io.Writer) *Logger {
	l.zl = l.zl.Output(w)
	return l
}

func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	l.zl = l.zl.Level(level)
	return l
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		return &Logger{zl: *ctxLogger, sink: l.sink}
	}
	return &Logger{zl: l.zl.With().Logger(), sink: l.sink}
}

// WithComponent returns a child logger tagged with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger(), sink: l.sink}
}

func (l *Logger) With() zerolog.Context {
	return l.zl.With()
}

// Zerolog exposes the underlying logger for libraries that accept one directly.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Level() zerolog.Level {
	return l.zl.GetLevel()
}

func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
	l.activateSink(msg, zerolog.DebugLevel)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
	l.activateSinkFormatted(zerolog.DebugLevel, format, v...)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
	l.activateSink(msg, zerolog.InfoLevel)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
	l.activateSinkFormatted(zerolog.InfoLevel, format, v...)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
	l.activateSink(msg, zerolog.WarnLevel)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
	l.activateSinkFormatted(zerolog.WarnLevel, format, v...)
}

func (l *Logger) Error(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
	l.activateSink(msg, zerolog.ErrorLevel)
}

func (l *Logger) Errorf(err error, format string, v ...interface{}) {
	l.zl.Error().Err(err).Msgf(format, v...)
	l.activateSinkFormatted(zerolog.ErrorLevel, format, v...)
}

func (l *Logger) Fatal(err error, msg string) {
	l.activateSink(msg, zerolog.FatalLevel)
	l.zl.Fatal().Err(err).Msg(msg)
}

func (l *Logger) Fatalf(err error, format string, v ...interface{}) {
	l.activateSinkFormatted(zerolog.FatalLevel, format, v...)
	l.zl.Fatal().Err(err).Msgf(format, v...)
}

func (l *Logger) Panic(err error, msg string) {
	l.activateSink(msg, zerolog.PanicLevel)
	l.zl.Panic().Err(err).Msg(msg)
}

func (l *Logger) Panicf(err error, format string, v ...interface{}) {
	l.activateSinkFormatted(zerolog.PanicLevel, format, v...)
	l.zl.Panic().Err(err).Msgf(format, v...)
}

func (l *Logger) Log(level zerolog.Level, msg string) {
	l.zl.WithLevel(level).Msg(msg)
	l.activateSink(msg, level)
}

func (l *Logger) Logf(level zerolog.Level, format string, v ...interface{}) {
	l.zl.WithLevel(level).Msgf(format, v...)
	l.activateSinkFormatted(level, format, v...)
}

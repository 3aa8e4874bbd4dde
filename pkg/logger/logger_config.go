package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

type LoggerConfigJson struct {
	LogLevel string `json:"log_level"`
}

type LoggerConfig struct {
	LogLevel zerolog.Level
}

func (lcj LoggerConfigJson) ConvertToDomain() LoggerConfig {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(lcj.LogLevel)))
	if err != nil {
		level = zerolog.NoLevel
	}

	return LoggerConfig{
		LogLevel: level,
	}
}

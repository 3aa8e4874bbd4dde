package logger_message

import (
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/timeutil"
)

type LoggerMessage struct {
	Service   string           `json:"service,omitempty"`
	Level     string           `json:"level"`
	Message   string           `json:"message"`
	Timestamp timeutil.TimeUTC `json:"timestamp"`
}

func (lm LoggerMessage) Serialize() ([]byte, error) {
	return utilities.Serialize(lm)
}

package rabbitmq

import (
	"fmt"
	"os"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	logger_message "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/timeutil"
	"github.com/rs/zerolog"
)

func CreateRabbitmqLoggerSink(service string, publisher IRabbitmqPublisher) logger.SinkFunc {
	return func(msg string, level zerolog.Level, timestamp timeutil.TimeUTC) {
		loggerMessage := logger_message.LoggerMessage{
			Service:   service,
			Level:     level.String(),
			Message:   msg,
			Timestamp: timestamp,
		}

		err := publisher.Publish(loggerMessage)
		if err != nil {
			// not through the logger, it would recurse into this sink
			fmt.Fprintf(os.Stderr, "Failed to publish log message to RabbitMQ: %v\n", err)
		}
	}
}

package rabbitmq

import (
	"fmt"
	"math"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const maxConnectRetries = 7

func ConnectToRabbitmq(config RabbitmqConfig) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	waitTime := 1 * time.Second

	queueLogger := logger.OrDefault(nil)
	connectionString := fmt.Sprintf("amqp://%s:%s@%s:%d/", config.User, config.Password, config.Host, config.Port)

	for i := 0; i < maxConnectRetries; i++ {
		conn, err = amqp.Dial(connectionString)
		if err == nil {
			return conn, nil
		}
		queueLogger.Warnf("Attempt %d failed: %v. Retrying in %v...", i+1, err, waitTime)
		time.Sleep(waitTime)
		waitTime = time.Duration(math.Pow(2, float64(i+1))) * time.Second
	}
	return nil, err
}

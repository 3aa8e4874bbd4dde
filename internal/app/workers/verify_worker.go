package workers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/verifier"
	dtocommon "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/dto_common"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	VerifyRequestsConsumerAlias  = "VerifyRequestsConsumer"
	VerifyFailuresPublisherAlias = "VerifyFailuresPublisher"
)

// VerifyWorker checks proofs that arrive on the verify request queue. Results
// are published by the verifier; requests that could not be checked go to the
// failure publisher.
type VerifyWorker struct {
	verifier *verifier.Verifier
	consumer rabbitmq.IRabbitmqConsumer
	failures rabbitmq.IRabbitmqPublisher
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewVerifyWorker(v *verifier.Verifier, consumer rabbitmq.IRabbitmqConsumer, failures rabbitmq.IRabbitmqPublisher, l *logger.Logger) *VerifyWorker {
	return &VerifyWorker{
		verifier: v,
		consumer: consumer,
		failures: failures,
		logger:   logger.OrDefault(l).WithComponent(VerifyRequestsConsumerAlias),
	}
}

func (w *VerifyWorker) GetServiceName() string {
	return VerifyRequestsConsumerAlias
}

func (w *VerifyWorker) StartService(ctx context.Context) {
	if w.consumer == nil {
		w.logger.Warn("No consumer configured, verify worker idle")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("Listening for verification requests...")
	if err := w.consumer.StartConsuming(ctx, func(d amqp.Delivery) {
		w.Handle(ctx, d.Body)
	}); err != nil && ctx.Err() == nil {
		w.logger.Error(err, "Verify request consumer stopped")
	}
}

func (w *VerifyWorker) StopService() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

// Handle processes one serialized VerifyRequestDto.
func (w *VerifyWorker) Handle(ctx context.Context, body []byte) {
	responseFactory := dtocommon.NewVerifyFailureFactory("", body)

	var message dtocommon.VerifyRequestDto
	if err := json.Unmarshal(body, &message); err != nil {
		w.logger.Errorf(err, "Failed to unmarshal verify request")
		w.fail(responseFactory.CreateErrorDto(err, reasoncodes.ErrUnmarshal))
		return
	}
	responseFactory = dtocommon.NewVerifyFailureFactory(message.EventId, body)

	var proof disclosure.Proof
	if err := json.Unmarshal(message.Proof, &proof); err != nil {
		w.logger.Errorf(err, "Failed to unmarshal proof of request %s", message.EventId)
		w.fail(responseFactory.CreateErrorDto(err, reasoncodes.ErrInvalidStructure))
		return
	}

	result := w.verifier.Verify(ctx, &proof, message.VerifierDid, verifier.Options{
		ExpectedChallenge:  message.ExpectedChallenge,
		RequiredAttributes: message.RequiredAttributes,
	})
	if !result.Success {
		w.fail(responseFactory.CreateErrorDto(result.Err, result.Err.Code))
		return
	}

	w.logger.Infof("Processed verify request %s, valid: %t", message.EventId, result.IsValid)
}

func (w *VerifyWorker) fail(dto utilities.Serializable) {
	if w.failures == nil {
		return
	}
	if err := w.failures.Publish(dto); err != nil {
		w.logger.Error(err, "Could not publish verify failure")
	}
}

package workers_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend/backendtest"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/generator"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/verifier"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/workers"
	dtocommon "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/dto_common"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type mockPublisher struct {
	mu        sync.Mutex
	published []utilities.Serializable
}

func (m *mockPublisher) Publish(body utilities.Serializable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, body)
	return nil
}

func (m *mockPublisher) all() []utilities.Serializable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]utilities.Serializable(nil), m.published...)
}

type mockConsumer struct {
	deliveries [][]byte
}

func (m *mockConsumer) StartConsuming(ctx context.Context, handler func(amqp.Delivery)) error {
	for _, body := range m.deliveries {
		handler(amqp.Delivery{Body: body})
	}
	<-ctx.Done()
	return ctx.Err()
}

func setup(t *testing.T) (*disclosure.Proof, *verifier.Verifier, *mockPublisher) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	clock := func() time.Time { return now }

	g := generator.New(generator.Config{Catalog: c, Backend: backendtest.NativeBackend{}, Logger: logger.Nop(), Now: clock})
	proof, err := g.Generate(context.Background(), disclosure.Request{
		CredentialId:   "cred-1",
		Purpose:        catalog.PurposeAgeVerification,
		RequiredClaims: []claims.Requirement{{Attribute: "age", Operation: claims.OpGreaterThan, Value: 18.0, Essential: true}},
		ChallengeNonce: "nonce-1",
		VerifierDID:    "did:example:verifier",
		ExpiresAt:      now.Add(time.Hour),
	}, claims.Subject{"birthDate": "1990-05-15"})
	require.NoError(t, err)

	events := &mockPublisher{}
	v := verifier.New(verifier.Config{Catalog: c, Backend: backendtest.NativeBackend{}, Publisher: events, Logger: logger.Nop(), Now: clock})
	return proof, v, events
}

func request(t *testing.T, proof *disclosure.Proof) []byte {
	t.Helper()
	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	body, err := dtocommon.VerifyRequestDto{
		EventId:           "event-1",
		Proof:             raw,
		VerifierDid:       "did:example:verifier",
		ExpectedChallenge: "nonce-1",
	}.Serialize()
	require.NoError(t, err)
	return body
}

func TestVerifyWorkerHandle(t *testing.T) {
	proof, v, events := setup(t)
	failures := &mockPublisher{}
	worker := workers.NewVerifyWorker(v, nil, failures, logger.Nop())

	worker.Handle(context.Background(), request(t, proof))
	worker.Handle(context.Background(), request(t, proof))

	published := events.all()
	require.Len(t, published, 2)
	assert.True(t, published[0].(dtocommon.VerificationEventDto).IsValid)
	assert.Equal(t, reasoncodes.ErrProofReplayed, published[1].(dtocommon.VerificationEventDto).ReasonCode)
	assert.Empty(t, failures.all())
}

func TestVerifyWorkerRejectsMalformedRequests(t *testing.T) {
	_, v, events := setup(t)
	failures := &mockPublisher{}
	worker := workers.NewVerifyWorker(v, nil, failures, logger.Nop())

	worker.Handle(context.Background(), []byte("not json"))
	worker.Handle(context.Background(), []byte(`{"event_id":"event-2","proof":"nope"}`))

	published := failures.all()
	require.Len(t, published, 2)
	assert.Equal(t, reasoncodes.ErrUnmarshal, published[0].(dtocommon.VerifyFailureDto).ReasonCode)
	second := published[1].(dtocommon.VerifyFailureDto)
	assert.Equal(t, reasoncodes.ErrInvalidStructure, second.ReasonCode)
	assert.Equal(t, "event-2", second.EventId)
	assert.Empty(t, events.all())
}

func TestVerifyWorkerConsumesUntilStopped(t *testing.T) {
	proof, v, events := setup(t)
	worker := workers.NewVerifyWorker(v, &mockConsumer{deliveries: [][]byte{request(t, proof)}}, nil, logger.Nop())
	assert.Equal(t, workers.VerifyRequestsConsumerAlias, worker.GetServiceName())

	done := make(chan struct{})
	go func() {
		worker.StartService(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return len(events.all()) == 1 }, time.Second, 5*time.Millisecond)
	worker.StopService()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

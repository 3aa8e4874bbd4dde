package dtocommon

import (
	"encoding/json"

	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/timeutil"
)

// VerificationEventDto is emitted once per completed verification.
type VerificationEventDto struct {
	EventId            string                 `json:"event_id"`
	ProofId            string                 `json:"proof_id"`
	CircuitName        string                 `json:"circuit_name"`
	VerifierDid        string                 `json:"verifier_did"`
	NullifierHash      string                 `json:"nullifier_hash"`
	IsValid            bool                   `json:"is_valid"`
	ReasonCode         reasoncodes.ReasonCode `json:"reason_code"`
	VerifiedAttributes []string               `json:"verified_attributes,omitempty"`
	VerifiedAt         timeutil.TimeUTC       `json:"verified_at"`
}

func (ve VerificationEventDto) Serialize() ([]byte, error) {
	return utilities.Serialize(ve)
}

// VerifyRequestDto asks the verification worker to check a proof asynchronously.
type VerifyRequestDto struct {
	EventId            string          `json:"event_id"`
	Proof              json.RawMessage `json:"proof"`
	VerifierDid        string          `json:"verifier_did"`
	ExpectedChallenge  string          `json:"expected_challenge,omitempty"`
	RequiredAttributes []string        `json:"required_attributes,omitempty"`
}

func (vr VerifyRequestDto) Serialize() ([]byte, error) {
	return utilities.Serialize(vr)
}

type VerifyFailureDto struct {
	EventId     string                 `json:"event_id"`
	RequestBody []byte                 `json:"request_body"`
	Error       string                 `json:"error"`
	ReasonCode  reasoncodes.ReasonCode `json:"reason_code"`
}

func (vf VerifyFailureDto) Serialize() ([]byte, error) {
	return utilities.Serialize(vf)
}

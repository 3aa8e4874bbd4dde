package disclosure

import (
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/privacy"
)

const (
	SchemeGroth16     = "groth16"
	SchemePlaceholder = "development-placeholder"
)

// Request is a verifier's ask for a selective disclosure.
type Request struct {
	CredentialId   string               `json:"credentialId"`
	RequestId      string               `json:"requestId,omitempty"`
	Purpose        string               `json:"purpose,omitempty"`
	RequiredClaims []claims.Requirement `json:"requiredClaims"`
	Context        string               `json:"context"`
	ChallengeNonce string               `json:"challengeNonce"`
	VerifierDID    string               `json:"verifierDID"`
	ExpiresAt      time.Time            `json:"expiresAt"`
}

// ProvenClaim reports whether one requirement was satisfied, never the value itself.
type ProvenClaim struct {
	Attribute   string `json:"attribute"`
	Description string `json:"description"`
	Proven      bool   `json:"proven"`
	Essential   bool   `json:"essential"`
}

type Metadata struct {
	PrivacyLevel       privacy.Level `json:"privacyLevel"`
	PrivacyScore       int           `json:"privacyScore"`
	Scheme             string        `json:"scheme"`
	Challenge          string        `json:"challenge"`
	VerifierDid        string        `json:"verifierDid"`
	Purpose            string        `json:"purpose"`
	RequestId          string        `json:"requestId"`
	RequirementsDigest string        `json:"requirementsDigest"`
	Context            string        `json:"context,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	ExpiresAt          time.Time     `json:"expiresAt"`
}

// Proof is immutable once produced by the generator.
type Proof struct {
	ProofId        string        `json:"id"`
	ProofType      string        `json:"proofType"`
	Claims         []ProvenClaim `json:"claims"`
	Metadata       Metadata      `json:"metadata"`
	CommitmentHash string        `json:"commitmentHash"`
	NullifierHash  string        `json:"nullifierHash"`
	ProofData      []byte        `json:"proofData"`
	PublicSignals  []string      `json:"publicSignals"`
	CircuitName    string        `json:"circuitName"`
}

// Placeholder reports whether the proof came from the development fallback.
func (p *Proof) Placeholder() bool {
	return p.Metadata.Scheme == SchemePlaceholder
}

const (
	ExpirationValid   = "valid"
	ExpirationExpired = "expired"
	ExpirationUnknown = "unknown"
)

type VerificationMetadata struct {
	VerificationTime time.Time `json:"verificationTime"`
	VerifierDid      string    `json:"verifierDid"`
	NullifierUsed    bool      `json:"nullifierUsed"`
	ExpirationStatus string    `json:"expirationStatus"`
}

type VerificationResult struct {
	Success            bool                 `json:"success"`
	IsValid            bool                 `json:"isValid"`
	VerifiedAttributes []string             `json:"verifiedAttributes"`
	ProofMetadata      VerificationMetadata `json:"proofMetadata"`
	Warnings           []string             `json:"warnings,omitempty"`
	Error              *ErrorBody           `json:"error,omitempty"`

	// Err keeps the full error for server-side logging.
	Err *Error `json:"-"`
}

package disclosure

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

func digest(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CommitmentHash ties a proof to the request and circuit it was made for.
func CommitmentHash(credentialID, requestID, circuitName string) string {
	return digest(credentialID, requestID, circuitName)
}

// NullifierHash identifies one proof for replay detection; salt is fresh per proof.
func NullifierHash(credentialID, verifierDID, purpose, salt string) string {
	return digest(credentialID, verifierDID, purpose, salt)
}

// ClaimsDigest covers the ordered claim labels of a proof. Proven bits are
// left out; those travel as public signals.
func ClaimsDigest(proven []ProvenClaim) string {
	parts := make([]string, 0, 3*len(proven))
	for _, c := range proven {
		parts = append(parts, c.Attribute, c.Description, strconv.FormatBool(c.Essential))
	}
	return digest(parts...)
}

// RequirementsDigest covers the full requirement set a proof answers,
// including operations and bounds.
func RequirementsDigest(reqs []claims.Requirement) (string, error) {
	raw, err := json.Marshal(reqs)
	if err != nil {
		return "", err
	}
	return digest(string(raw)), nil
}

// BindingInput is everything a proof commits to outside its circuit inputs.
type BindingInput struct {
	Challenge          string
	NullifierHash      string
	CommitmentHash     string
	VerifierDid        string
	ExpiresAt          time.Time
	ClaimsDigest       string
	RequirementsDigest string
}

// Binding is the public circuit input that fixes the proof's metadata into
// the proof. Changing any input field invalidates the proof.
func Binding(in BindingInput) *big.Int {
	return zkp.HashToField([]byte(digest(
		in.Challenge,
		in.NullifierHash,
		in.CommitmentHash,
		in.VerifierDid,
		strconv.FormatInt(in.ExpiresAt.Unix(), 10),
		in.ClaimsDigest,
		in.RequirementsDigest,
	)))
}

// ProofBinding recomputes the binding from a proof as presented.
func ProofBinding(p *Proof) *big.Int {
	return Binding(BindingInput{
		Challenge:          p.Metadata.Challenge,
		NullifierHash:      p.NullifierHash,
		CommitmentHash:     p.CommitmentHash,
		VerifierDid:        p.Metadata.VerifierDid,
		ExpiresAt:          p.Metadata.ExpiresAt,
		ClaimsDigest:       ClaimsDigest(p.Claims),
		RequirementsDigest: p.Metadata.RequirementsDigest,
	})
}

package verifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/backend"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/disclosure"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/nullifier"
	dtocommon "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/dto_common"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/timeutil"
	"github.com/google/uuid"
)

type Config struct {
	Catalog *catalog.Catalog
	Backend backend.ProvingBackend
	Ledger  nullifier.Ledger
	// Publisher receives one event per completed verification; optional.
	Publisher rabbitmq.IRabbitmqPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

// Verifier checks proofs and records their nullifiers. The ledger is the only
// shared state.
type Verifier struct {
	catalog   *catalog.Catalog
	backend   backend.ProvingBackend
	ledger    nullifier.Ledger
	publisher rabbitmq.IRabbitmqPublisher
	logger    *logger.Logger
	now       func() time.Time
}

func New(cfg Config) *Verifier {
	v := &Verifier{
		catalog:   cfg.Catalog,
		backend:   cfg.Backend,
		ledger:    cfg.Ledger,
		publisher: cfg.Publisher,
		logger:    logger.OrDefault(cfg.Logger).WithComponent("proof-verifier"),
		now:       cfg.Now,
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.ledger == nil {
		v.ledger = nullifier.NewMemoryLedger()
	}
	return v
}

// Options are the verifier-side expectations for one check.
type Options struct {
	ExpectedChallenge  string
	RequiredAttributes []string
	// ExpectedRequirements, when set, must be the exact requirement set the
	// proof was generated for.
	ExpectedRequirements []claims.Requirement
}

// Verify runs the checks in order and stops at the first failure. The
// nullifier is recorded only after every check passed.
func (v *Verifier) Verify(ctx context.Context, proof *disclosure.Proof, verifierDID string, opts Options) disclosure.VerificationResult {
	now := v.now().UTC()
	result := disclosure.VerificationResult{
		Success:            true,
		VerifiedAttributes: []string{},
		ProofMetadata: disclosure.VerificationMetadata{
			VerificationTime: now,
			VerifierDid:      verifierDID,
			ExpirationStatus: disclosure.ExpirationUnknown,
		},
	}

	circuit, err := v.check(ctx, proof, verifierDID, opts, now, &result)
	if err == nil {
		err = v.record(ctx, proof, verifierDID)
	}

	if err != nil {
		de := disclosure.AsError(err, reasoncodes.ErrCryptographicVerificationFailed)
		result.IsValid = false
		result.Err = de
		result.Error = de.Body()
		// infrastructure trouble means the verification itself did not complete
		result.Success = !de.Retryable() && de.Code != reasoncodes.ErrCanceled
		result.VerifiedAttributes = []string{}
		v.logFailure(proof, verifierDID, de)
	} else {
		result.IsValid = true
		result.ProofMetadata.NullifierUsed = true
		v.logger.Infof("Verified proof %s for %s", proof.ProofId, verifierDID)
	}

	if result.Success {
		v.publish(proof, circuit, verifierDID, result)
	}
	return result
}

func (v *Verifier) check(ctx context.Context, proof *disclosure.Proof, verifierDID string, opts Options, now time.Time, result *disclosure.VerificationResult) (*catalog.Circuit, error) {
	if err := checkStructure(proof, verifierDID); err != nil {
		return nil, err
	}

	if !proof.Metadata.ExpiresAt.After(now) {
		result.ProofMetadata.ExpirationStatus = disclosure.ExpirationExpired
		return nil, disclosure.NewError(reasoncodes.ErrExpired, "proof expired at %s", proof.Metadata.ExpiresAt.Format(time.RFC3339))
	}
	result.ProofMetadata.ExpirationStatus = disclosure.ExpirationValid

	if proof.Metadata.VerifierDid != verifierDID {
		return nil, disclosure.NewError(reasoncodes.ErrVerifierMismatch, "proof was issued for a different verifier")
	}

	if opts.ExpectedChallenge != "" && opts.ExpectedChallenge != proof.Metadata.Challenge {
		return nil, disclosure.NewError(reasoncodes.ErrChallengeMismatch, "proof was made for a different challenge")
	}

	if len(opts.ExpectedRequirements) > 0 {
		expected, err := disclosure.RequirementsDigest(opts.ExpectedRequirements)
		if err != nil || expected != proof.Metadata.RequirementsDigest {
			return nil, disclosure.NewError(reasoncodes.ErrRequestMismatch, "proof answers a different set of requirements")
		}
	}

	spent, err := v.ledger.Contains(ctx, proof.NullifierHash, verifierDID)
	if err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrLedger, err, "")
	}
	if spent {
		result.ProofMetadata.NullifierUsed = true
		return nil, disclosure.NewError(reasoncodes.ErrProofReplayed, "proof %s was already presented to %s", proof.ProofId, verifierDID)
	}

	circuit, err := v.verifyCryptography(ctx, proof)
	if err != nil {
		return nil, err
	}

	missing := utilities.Filter(opts.RequiredAttributes, func(attr string) bool {
		return !provenAttribute(proof.Claims, attr)
	})
	if len(missing) > 0 {
		return circuit, disclosure.NewError(reasoncodes.ErrMissingRequiredAttributes, "required attributes not proven: %s", strings.Join(missing, ", ")).WithDetails(missing...)
	}

	for _, c := range proof.Claims {
		if c.Proven {
			result.VerifiedAttributes = append(result.VerifiedAttributes, c.Attribute)
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("claim '%s' was not proven", c.Description))
		}
	}

	if err := ctx.Err(); err != nil {
		return circuit, disclosure.Wrap(reasoncodes.ErrCanceled, err, "verification canceled")
	}
	return circuit, nil
}

func checkStructure(proof *disclosure.Proof, verifierDID string) error {
	if proof == nil {
		return disclosure.NewError(reasoncodes.ErrInvalidStructure, "proof is missing")
	}
	var missing []string
	if proof.ProofId == "" {
		missing = append(missing, "id")
	}
	if proof.ProofType == "" {
		missing = append(missing, "proofType")
	}
	if len(proof.ProofData) == 0 {
		missing = append(missing, "proofData")
	}
	if proof.CommitmentHash == "" {
		missing = append(missing, "commitmentHash")
	}
	if proof.NullifierHash == "" {
		missing = append(missing, "nullifierHash")
	}
	if proof.Metadata.ExpiresAt.IsZero() {
		missing = append(missing, "metadata.expiresAt")
	}
	if verifierDID == "" {
		missing = append(missing, "verifierDid")
	}
	if len(missing) > 0 {
		return disclosure.NewError(reasoncodes.ErrInvalidStructure, "missing fields: %s", strings.Join(missing, ", ")).WithDetails(missing...)
	}
	return nil
}

// verifyCryptography checks the proof with the backend and ties its public
// signals to the proof's metadata and claims.
func (v *Verifier) verifyCryptography(ctx context.Context, proof *disclosure.Proof) (*catalog.Circuit, error) {
	if proof.Placeholder() {
		return nil, disclosure.NewError(reasoncodes.ErrCryptographicVerificationFailed, "development placeholder proofs carry no cryptographic guarantee")
	}

	name := proof.CircuitName
	if name == "" {
		name = proof.ProofType
	}
	circuit, err := v.catalog.SelectCircuit(name)
	if err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrCryptographicVerificationFailed, err, "unknown circuit")
	}

	ok, err := v.backend.Verify(ctx, circuit, proof.PublicSignals, proof.ProofData)
	if err != nil {
		if ctx.Err() != nil {
			return nil, disclosure.Wrap(reasoncodes.ErrCanceled, ctx.Err(), "verification canceled")
		}
		v.logger.Errorf(err, "Verification backend failed for proof %s", proof.ProofId)
		return nil, disclosure.Wrap(reasoncodes.ErrProvingBackend, err, "")
	}
	if !ok {
		return nil, disclosure.NewError(reasoncodes.ErrCryptographicVerificationFailed, "proof does not verify")
	}

	if err := checkSignals(circuit, proof); err != nil {
		return nil, disclosure.Wrap(reasoncodes.ErrCryptographicVerificationFailed, err, "")
	}
	return circuit, nil
}

func checkSignals(circuit *catalog.Circuit, proof *disclosure.Proof) error {
	signal := func(field string) (string, error) {
		idx, ok := circuit.SignalIndex(field)
		if !ok || idx >= len(proof.PublicSignals) {
			return "", fmt.Errorf("no public signal '%s'", field)
		}
		return proof.PublicSignals[idx], nil
	}

	holds, err := signal(catalog.OutcomeField)
	if err != nil {
		return err
	}
	if holds != "1" {
		return fmt.Errorf("circuit outcome does not hold")
	}

	binding, err := signal(catalog.BindingField)
	if err != nil {
		return err
	}
	expected := disclosure.ProofBinding(proof)
	if binding != expected.String() {
		return fmt.Errorf("binding does not match proof metadata")
	}

	if len(proof.Claims) == 0 || len(proof.Claims) > circuit.MaxClaims {
		return fmt.Errorf("proof lists %d claims for a %d claim circuit", len(proof.Claims), circuit.MaxClaims)
	}
	for i, c := range proof.Claims {
		proven, err := signal(catalog.ProvenField(i))
		if err != nil {
			return err
		}
		essential, err := signal(catalog.EssentialField(i))
		if err != nil {
			return err
		}
		if (proven == "1") != c.Proven || (essential == "1") != c.Essential {
			return fmt.Errorf("claim %d does not match its public signals", i)
		}
	}
	return nil
}

func provenAttribute(proven []disclosure.ProvenClaim, attribute string) bool {
	for _, c := range proven {
		if c.Proven && (c.Attribute == attribute || c.Description == attribute) {
			return true
		}
	}
	return false
}

// record spends the nullifier. Losing the insert race is a replay.
func (v *Verifier) record(ctx context.Context, proof *disclosure.Proof, verifierDID string) error {
	inserted, err := v.ledger.InsertIfAbsent(ctx, proof.NullifierHash, verifierDID, proof.ProofId)
	if err != nil {
		return disclosure.Wrap(reasoncodes.ErrLedger, err, "")
	}
	if !inserted {
		return disclosure.NewError(reasoncodes.ErrProofReplayed, "proof %s was already presented to %s", proof.ProofId, verifierDID)
	}
	return nil
}

func (v *Verifier) logFailure(proof *disclosure.Proof, verifierDID string, de *disclosure.Error) {
	proofID := ""
	if proof != nil {
		proofID = proof.ProofId
	}
	switch de.Code {
	case reasoncodes.ErrCryptographicVerificationFailed, reasoncodes.ErrProvingBackend, reasoncodes.ErrLedger:
		v.logger.Errorf(de, "Verification of proof %s for %s failed", proofID, verifierDID)
	default:
		v.logger.Infof("Proof %s rejected for %s: %s", proofID, verifierDID, de.Code)
	}
}

func (v *Verifier) publish(proof *disclosure.Proof, circuit *catalog.Circuit, verifierDID string, result disclosure.VerificationResult) {
	if v.publisher == nil || proof == nil {
		return
	}

	event := dtocommon.VerificationEventDto{
		EventId:            uuid.NewString(),
		ProofId:            proof.ProofId,
		CircuitName:        proof.CircuitName,
		VerifierDid:        verifierDID,
		NullifierHash:      proof.NullifierHash,
		IsValid:            result.IsValid,
		ReasonCode:         reasoncodes.InfoVerified,
		VerifiedAttributes: result.VerifiedAttributes,
		VerifiedAt:         timeutil.FromTime(result.ProofMetadata.VerificationTime),
	}
	if circuit != nil {
		event.CircuitName = circuit.Name
	}
	if result.Err != nil {
		event.ReasonCode = result.Err.Code
	}

	if err := v.publisher.Publish(event); err != nil {
		v.logger.Error(err, "Could not publish verification event")
	}
}

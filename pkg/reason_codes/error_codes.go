package reasoncodes

type ReasonCode string

const (
	ErrUnmarshal ReasonCode = "UnmarshalError"

	ErrValidation                ReasonCode = "ValidationError"
	ErrEssentialClaimUnsatisfied ReasonCode = "EssentialClaimUnsatisfied"

	ErrMissingAttribute   ReasonCode = "MissingAttribute"
	ErrTypeMismatch       ReasonCode = "TypeMismatch"
	ErrUnsupportedPurpose ReasonCode = "UnsupportedPurpose"
	ErrUnknownCircuit     ReasonCode = "UnknownCircuit"

	ErrProvingBackendTimeout ReasonCode = "ProvingBackendTimeout"
	ErrProvingBackend        ReasonCode = "ProvingBackendError"

	ErrInvalidStructure                ReasonCode = "InvalidStructure"
	ErrExpired                         ReasonCode = "Expired"
	ErrChallengeMismatch               ReasonCode = "ChallengeMismatch"
	ErrVerifierMismatch                ReasonCode = "VerifierMismatch"
	ErrRequestMismatch                 ReasonCode = "RequestMismatch"
	ErrProofReplayed                   ReasonCode = "ProofReplayed"
	ErrCryptographicVerificationFailed ReasonCode = "CryptographicVerificationFailed"
	ErrMissingRequiredAttributes       ReasonCode = "MissingRequiredAttributes"

	ErrCredentialNotFound ReasonCode = "CredentialNotFound"
	ErrLedger             ReasonCode = "LedgerError"
	ErrCanceled           ReasonCode = "Canceled"
)

const (
	InfoVerified ReasonCode = "Verified"
)

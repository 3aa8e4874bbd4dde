package disclosure

import (
	"errors"
	"fmt"

	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
)

// Error is the typed failure returned by every engine operation.
type Error struct {
	Code    reasoncodes.ReasonCode
	Message string
	Details []string
	Err     error
}

var (
	ErrValidation                      = &Error{Code: reasoncodes.ErrValidation}
	ErrEssentialClaimUnsatisfied       = &Error{Code: reasoncodes.ErrEssentialClaimUnsatisfied}
	ErrMissingAttribute                = &Error{Code: reasoncodes.ErrMissingAttribute}
	ErrTypeMismatch                    = &Error{Code: reasoncodes.ErrTypeMismatch}
	ErrUnsupportedPurpose              = &Error{Code: reasoncodes.ErrUnsupportedPurpose}
	ErrUnknownCircuit                  = &Error{Code: reasoncodes.ErrUnknownCircuit}
	ErrProvingBackendTimeout           = &Error{Code: reasoncodes.ErrProvingBackendTimeout}
	ErrProvingBackend                  = &Error{Code: reasoncodes.ErrProvingBackend}
	ErrInvalidStructure                = &Error{Code: reasoncodes.ErrInvalidStructure}
	ErrExpired                         = &Error{Code: reasoncodes.ErrExpired}
	ErrChallengeMismatch               = &Error{Code: reasoncodes.ErrChallengeMismatch}
	ErrProofReplayed                   = &Error{Code: reasoncodes.ErrProofReplayed}
	ErrCryptographicVerificationFailed = &Error{Code: reasoncodes.ErrCryptographicVerificationFailed}
	ErrMissingRequiredAttributes       = &Error{Code: reasoncodes.ErrMissingRequiredAttributes}
	ErrCredentialNotFound              = &Error{Code: reasoncodes.ErrCredentialNotFound}
	ErrLedger                          = &Error{Code: reasoncodes.ErrLedger}
	ErrCanceled                        = &Error{Code: reasoncodes.ErrCanceled}
)

func NewError(code reasoncodes.ReasonCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code reasoncodes.ReasonCode, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Retryable() bool {
	switch e.Code {
	case reasoncodes.ErrProvingBackendTimeout, reasoncodes.ErrProvingBackend, reasoncodes.ErrLedger:
		return true
	}
	return false
}

// Public is the message safe to hand to callers; infrastructure and
// cryptographic failures are reduced to a generic reason.
func (e *Error) Public() string {
	switch e.Code {
	case reasoncodes.ErrProvingBackend:
		return "proof generation failed"
	case reasoncodes.ErrProvingBackendTimeout:
		return "proof generation timed out, retry later"
	case reasoncodes.ErrCryptographicVerificationFailed:
		return "proof verification failed"
	case reasoncodes.ErrLedger:
		return "verification temporarily unavailable"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

type ErrorBody struct {
	Code    reasoncodes.ReasonCode `json:"code"`
	Message string                 `json:"message"`
	Details []string               `json:"details,omitempty"`
}

func (e *Error) Body() *ErrorBody {
	return &ErrorBody{Code: e.Code, Message: e.Public(), Details: e.Details}
}

// AsError converts any error into an *Error, defaulting to code.
func AsError(err error, code reasoncodes.ReasonCode) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Wrap(code, err, "")
}

func CodeOf(err error) reasoncodes.ReasonCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

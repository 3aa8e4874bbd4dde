package dtocommon

import (
	reasoncodes "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/reason_codes"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
)

type VerifyFailureDtoFactory interface {
	CreateErrorDto(error, reasoncodes.ReasonCode) utilities.Serializable
}

type verifyFailureDtoFactory struct {
	EventId     string
	RequestBody []byte
}

func NewVerifyFailureFactory(eventId string, requestBody []byte) VerifyFailureDtoFactory {
	return verifyFailureDtoFactory{
		EventId:     eventId,
		RequestBody: requestBody,
	}
}

func (f verifyFailureDtoFactory) CreateErrorDto(err error, reasonCode reasoncodes.ReasonCode) utilities.Serializable {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return VerifyFailureDto{
		EventId:     f.EventId,
		RequestBody: f.RequestBody,
		Error:       message,
		ReasonCode:  reasonCode,
	}
}

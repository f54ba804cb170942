package api

import (
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of every JSON response body.
const EnvelopeVersion = 1

// APIEnvelope wraps every JSON response.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error"`
}

// ErrorBody is the error half of a failed envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in an APIEnvelope. Errors become
// success=false envelopes carrying the error code and message.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if err, ok := v.(error); ok {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return APIEnvelope{
				Version: EnvelopeVersion,
				Error: &ErrorBody{
					Code:    apiErr.Code,
					Message: apiErr.Message,
					Details: apiErr.Details,
				},
			}, nil
		}

		code, _ := strconv.Atoi(status)
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error: &ErrorBody{
				Code:    statusToCode(code),
				Message: err.Error(),
			},
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}

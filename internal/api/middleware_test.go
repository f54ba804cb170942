package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "no content response", status: "204", input: nil},
		{name: "bad request error", status: "400", input: errors.New("invalid input")},
		{name: "not found error", status: "404", input: errors.New("resource not found")},
		{
			name:   "conflict error with details",
			status: "409",
			input: &APIError{
				Code:    "CONFLICT",
				Message: "Entity already exists",
				Details: map[string]string{"existing_id": "123"},
			},
		},
		{name: "internal server error", status: "500", input: errors.New("internal error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			jsonBytes, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(jsonBytes, &envelope))

			require.Contains(t, envelope, "v", "Envelope must contain version field 'v'")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
			assert.Contains(t, envelope, "success")
			assert.Contains(t, envelope, "data")
			assert.Contains(t, envelope, "error")
			assert.NotContains(t, envelope, "version")
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"title": "Quack"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "Expected APIEnvelope type")

	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Nil(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorResponse(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "400", errors.New("validation failed"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "Expected APIEnvelope type")

	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, string(domainerrors.CodeValidation), envelope.Error.Code)
	assert.Equal(t, "validation failed", envelope.Error.Message)
}

func TestEnvelopeTransformer_ErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		Code:    "VALIDATION",
		Message: "Bad fields",
		Details: []string{"title", "content"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope := result.(APIEnvelope)
	assert.Equal(t, "VALIDATION", envelope.Error.Code)
	assert.Equal(t, "Bad fields", envelope.Error.Message)
	assert.Equal(t, []string{"title", "content"}, envelope.Error.Details)
}

func TestNewAPIError_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   domainerrors.Code
	}{
		{domainerrors.NotFound("post not found"), http.StatusNotFound, domainerrors.CodeNotFound},
		{domainerrors.Conflict("slug taken"), http.StatusConflict, domainerrors.CodeConflict},
		{domainerrors.Forbidden("admins only"), http.StatusForbidden, domainerrors.CodeForbidden},
		{domainerrors.Unavailable("store down", nil), http.StatusServiceUnavailable, domainerrors.CodeUnavailable},
		{domainerrors.RateLimited("slow down"), http.StatusTooManyRequests, domainerrors.CodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			// huma reports handler errors as 500 until mapped.
			got := newAPIError(http.StatusInternalServerError, "unexpected error", tt.err)
			assert.Equal(t, tt.status, got.GetStatus())

			apiErr := got.(*APIError)
			assert.Equal(t, string(tt.code), apiErr.Code)
			assert.Equal(t, tt.err.(*domainerrors.Error).Message, apiErr.Message)
		})
	}

	t.Run("plain error keeps status", func(t *testing.T) {
		got := newAPIError(http.StatusUnprocessableEntity, "validation failed", errors.New("body.title: required"))
		assert.Equal(t, http.StatusUnprocessableEntity, got.GetStatus())
		assert.Equal(t, []string{"body.title: required"}, got.(*APIError).Details)
	})
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, sessionToken(r))

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", sessionToken(r))

	// The header wins over the cookie.
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", sessionToken(r))

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Empty(t, sessionToken(r))
}

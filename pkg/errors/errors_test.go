package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeStateConflict, CodeInvalidTransition, CodeIdempotency, CodeRateLimit,
		CodeInternal, CodeDependency,
	}
	for _, code := range codes {
		_, ok := metadataByCode[code]
		assert.True(t, ok, "no metadata for %s", code)
	}
	assert.Len(t, metadataByCode, len(codes))
}

func TestMetadataStatuses(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeInvalidTransition).HTTPStatus)
	assert.Equal(t, http.StatusConflict, MetadataFor(CodeIdempotency).HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, MetadataFor(CodeRateLimit).HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, MetadataFor(CodeDependency).HTTPStatus)

	unknown := MetadataFor("NOPE")
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus)
	assert.False(t, unknown.ExposeMessage)
}

func TestServerCodesHideTheirMessage(t *testing.T) {
	for code, meta := range metadataByCode {
		if meta.HTTPStatus >= http.StatusInternalServerError {
			assert.False(t, meta.ExposeMessage, code)
			assert.True(t, meta.Retryable, code)
		}
	}
}

func TestConstructors(t *testing.T) {
	err := Newf(CodeValidation, "quantity %d exceeds %d", 9, 5)
	assert.Equal(t, "quantity 9 exceeds 5", err.Message())
	assert.Equal(t, "VALIDATION_ERROR: quantity 9 exceeds 5", err.Error())
	assert.Nil(t, err.Details())

	err.WithDetails(map[string]int{"remaining": 5})
	assert.Equal(t, map[string]int{"remaining": 5}, err.Details())

	cause := stdErrors.New("connection refused")
	wrapped := Wrapf(CodeDependency, cause, "load item %s", "abc")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "DEPENDENCY_ERROR: load item abc: connection refused", wrapped.Error())

	bare := Wrap(CodeNotFound, nil, "gone")
	assert.Equal(t, "NOT_FOUND: gone", bare.Error())
	assert.NoError(t, bare.Unwrap())
}

func TestNilReceivers(t *testing.T) {
	var err *Error
	assert.Equal(t, CodeInternal, err.Code())
	assert.Empty(t, err.Message())
	assert.Empty(t, err.Error())
	assert.Nil(t, err.WithDetails("x"))
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("approve: %w", New(CodeInvalidTransition, "request already fulfilled"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInvalidTransition, typed.Code())
	assert.True(t, IsCode(err, CodeInvalidTransition))
	assert.False(t, IsCode(err, CodeConflict))

	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("x: %w", New(CodeNotFound, "missing"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stdErrors.New("boom")))
}

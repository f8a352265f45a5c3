package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]int{"created": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[SuccessEnvelope](t, rec)
	assert.Equal(t, map[string]any{"created": float64(3)}, body.Data)

	rec = httptest.NewRecorder()
	WriteSuccess(rec, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]string{"field": "quantity"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "quantity must be positive",
			wantDetails: true,
		},
		{
			name:        "wrapped transition error",
			err:         fmt.Errorf("approve: %w", pkgerrors.New(pkgerrors.CodeInvalidTransition, "request is fulfilled").WithDetails(map[string]string{"status": "fulfilled"})),
			status:      http.StatusUnprocessableEntity,
			code:        pkgerrors.CodeInvalidTransition,
			message:     "request is fulfilled",
			wantDetails: true,
		},
		{
			name:    "forbidden hides details",
			err:     pkgerrors.New(pkgerrors.CodeForbidden, "admins only").WithDetails("role=employee"),
			status:  http.StatusForbidden,
			code:    pkgerrors.CodeForbidden,
			message: "admins only",
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("pq: connection reset"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "dependency message replaced",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis down"),
			status:  http.StatusServiceUnavailable,
			code:    pkgerrors.CodeDependency,
			message: "dependency unavailable",
		},
		{
			name:    "nil error",
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decode[ErrorEnvelope](t, rec)
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
			if tc.wantDetails {
				assert.NotNil(t, body.Error.Details)
			} else {
				assert.Nil(t, body.Error.Details)
			}
		})
	}
}

func TestWriteErrorLogsBySeverity(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "no such request"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"http_status":404`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error_code":"INTERNAL_ERROR"`)
	assert.Contains(t, buf.String(), `"error_message":"INTERNAL_ERROR: unexpected error: boom"`)
	assert.Equal(t, 1, strings.Count(buf.String(), `"error":`))
}

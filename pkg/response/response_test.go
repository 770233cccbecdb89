package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"constraint", fmt.Errorf("create users: %w", repository.ErrConstraintViolation), http.StatusConflict, CodeConflict},
		{"unavailable", fmt.Errorf("find: %w", repository.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"credentials", auth.ErrUnauthorizedCredentials, http.StatusUnauthorized, CodeUnauthorized},
		{"token", auth.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken},
		{"validation", &request.ValidationError{Fields: map[string]string{"email": "email"}}, http.StatusBadRequest, CodeInvalidInput},
		{"malformed", &request.MalformedError{Err: request.ErrEmptyBody}, http.StatusBadRequest, CodeInvalidInput},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestError_CredentialMessageIsUniform(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil),
		fmt.Errorf("verify: %w", auth.ErrUnauthorizedCredentials))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, MsgInvalidCredentials, body.Error)
}

func TestError_InternalDoesNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password=hunter2"))

	assert.NotContains(t, rec.Body.String(), "hunter2")
}

package jwtguard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultErrorHandler(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "missing token",
			err:            ErrJWTMissing,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       `{"message":"JWT is missing."}`,
		},
		{
			name:           "invalid token",
			err:            ErrJWTInvalid,
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"message":"JWT is invalid."}`,
		},
		{
			name:           "wrapped invalid token",
			err:            &invalidError{details: errors.New("expired")},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"message":"JWT is invalid."}`,
		},
		{
			name:           "any other error",
			err:            errors.New("something broke"),
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `{"message":"Something went wrong while checking the JWT."}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)

			DefaultErrorHandler(recorder, request, testCase.err)

			assert.Equal(t, testCase.wantStatusCode, recorder.Code)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
			assert.Equal(t, testCase.wantBody, recorder.Body.String())
		})
	}
}

func Test_InvalidError(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := &invalidError{details: cause}

	t.Run("It matches ErrJWTInvalid", func(t *testing.T) {
		assert.ErrorIs(t, err, ErrJWTInvalid)
	})

	t.Run("It keeps the cause reachable", func(t *testing.T) {
		assert.ErrorIs(t, err, cause)
		require.EqualError(t, err, "jwt invalid: signature is invalid")
	})

	t.Run("It does not match ErrJWTMissing", func(t *testing.T) {
		assert.NotErrorIs(t, err, ErrJWTMissing)
	})
}

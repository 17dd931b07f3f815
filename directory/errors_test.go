package directory

import (
	"errors"
	"testing"

	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/stretchr/testify/assert"
)

func odataError(code, message string) error {
	mainErr := odataerrors.NewMainError()
	mainErr.SetCode(&code)
	mainErr.SetMessage(&message)
	odataErr := odataerrors.NewODataError()
	odataErr.SetErrorEscaped(mainErr)
	return odataErr
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"request resource not found", "Request_ResourceNotFound", ErrNotFound},
		{"resource not found", "ResourceNotFound", ErrNotFound},
		{"item not found", "ErrorItemNotFound", ErrNotFound},
		{"item not found lowercase", "itemNotFound", ErrNotFound},
		{"invalid user", "ErrorInvalidUser", ErrInvalidUser},
		{"auth failure", "AuthenticationFailure", ErrAuthFailure},
		{"token not found", "TokenNotFound", ErrTokenExpired},
		{"invalid auth token", "InvalidAuthenticationToken", ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(odataError(tt.code, "provider message"))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "provider message")
		})
	}
}

func TestClassify_UnknownCode(t *testing.T) {
	err := classify(odataError("SomethingElse", "boom"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidUser)
	assert.NotErrorIs(t, err, ErrAuthFailure)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestClassify_NonODataError(t *testing.T) {
	cause := errors.New("connection refused")
	err := classify(cause)
	assert.ErrorIs(t, err, cause)
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify(nil))
}

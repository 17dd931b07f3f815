package directory

import (
	"errors"
	"fmt"

	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// Directory errors. Provider error codes are folded into this closed set so
// callers can branch with errors.Is instead of matching code strings.
var (
	ErrNotFound     = errors.New("directory resource not found")
	ErrInvalidUser  = errors.New("requested user is invalid")
	ErrAuthFailure  = errors.New("directory authentication failed")
	ErrTokenExpired = errors.New("access token expired")
)

// classify maps a Graph OData error onto the tagged error set. Errors that
// are not OData errors, or whose code is unknown, are returned wrapped but
// untagged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var odataErr *odataerrors.ODataError
	if !errors.As(err, &odataErr) {
		return fmt.Errorf("graph request failed: %w", err)
	}

	code := ""
	message := ""
	if main := odataErr.GetErrorEscaped(); main != nil {
		if c := main.GetCode(); c != nil {
			code = *c
		}
		if m := main.GetMessage(); m != nil {
			message = *m
		}
	}

	switch code {
	case "Request_ResourceNotFound", "ResourceNotFound", "ErrorItemNotFound", "itemNotFound":
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case "ErrorInvalidUser":
		return fmt.Errorf("%w: %s", ErrInvalidUser, message)
	case "AuthenticationFailure":
		return fmt.Errorf("%w: %s", ErrAuthFailure, message)
	case "TokenNotFound", "InvalidAuthenticationToken":
		return fmt.Errorf("%w: %s", ErrTokenExpired, message)
	default:
		return fmt.Errorf("graph request failed (%s): %s", code, message)
	}
}

package relatics

import (
	"errors"
	"fmt"

	"relatics.dev/relatics/internal/importdata"
)

// Sentinel errors for argument and response validation. Use errors.Is() to
// check for them.
var (
	// ErrEmptyOperation indicates that no operation name was supplied.
	ErrEmptyOperation = errors.New("operation name is empty")

	// ErrEmptyData indicates that an import was attempted without data.
	ErrEmptyData = errors.New("import data is empty")

	// ErrUnsupportedExtension indicates a data file whose extension the
	// import does not accept.
	ErrUnsupportedExtension = importdata.ErrUnsupportedExtension

	// ErrUnrecognizedResponse indicates that the webservice answered with a
	// body that is neither a result nor a known error shape.
	ErrUnrecognizedResponse = errors.New("unrecognized response from webservice")
)

// ServiceError is an error response from the webservice itself, such as an
// unknown operation name or a rejected import file.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return "webservice returned an undefined error"
	}
	return fmt.Sprintf("webservice returned an error: %s", e.Message)
}

// TokenError is a failed OAuth2 token request. Known codes include
// "invalid_client", which Relatics sends for an unknown client_id, a wrong
// client_secret, or a client that was disabled in the workspace.
type TokenError struct {
	Code        string
	Description string
	Err         error
}

func (e *TokenError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token request failed: %s (%s)", e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token request failed: %s", e.Code)
	default:
		return fmt.Sprintf("token request failed: %v", e.Err)
	}
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

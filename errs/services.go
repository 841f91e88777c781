package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// External Service & Configuration Errors
var (
	ErrExternalService     = errors.New("external service error")
	ErrConfiguration       = errors.New("configuration error")
	ErrEnvironmentVariable = errors.New("missing environment variable")
	ErrTokenExpired        = errors.New("token expired")
)

func NewExternalServiceError(service string, statusCode int, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrExternalService,
		Details:    fmt.Sprintf("%s responded with status %d", service, statusCode),
		Cause:      cause,
		Field:      service,
	}
}

func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfiguration,
		Details:    fmt.Sprintf("Configuration error for %s", configName),
		Cause:      cause,
		Field:      configName,
	}
}

func NewEnvironmentVariableError(varName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrEnvironmentVariable,
		Details:    fmt.Sprintf("Missing required environment variable: %s", varName),
		Field:      varName,
	}
}

// NewLinkExpiredError is returned for one-time links (e.g. newsletter
// confirmation) used after their expiry.
func NewLinkExpiredError(what string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrTokenExpired,
		Details:    fmt.Sprintf("%s link has expired", what),
	}
}


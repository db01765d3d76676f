package chat

import (
	"errors"
	"strings"

	"github.com/fpang/asset-classifier/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Classifier failure kinds. Use errors.Is to test for them.
var (
	ErrService         = errors.New("classification service error")
	ErrSchemaViolation = errors.New("classification reply violates schema")
)

// ServiceErrorType categorizes a failed call to Gemini.
type ServiceErrorType int

const (
	// ErrTypeUnknown indicates an unclassified failure.
	ErrTypeUnknown ServiceErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid, revoked, or lacks permissions.
	ErrTypeInvalidKey
	// ErrTypeQuotaExceeded indicates rate limiting or an exhausted quota.
	ErrTypeQuotaExceeded
	// ErrTypeNetworkError indicates a connectivity problem or a server-side outage.
	ErrTypeNetworkError
	// ErrTypeEmptyResponse indicates the call succeeded but carried no text (blocked, truncated).
	ErrTypeEmptyResponse
)

func (t ServiceErrorType) String() string {
	switch t {
	case ErrTypeInvalidKey:
		return "invalid_key"
	case ErrTypeQuotaExceeded:
		return "quota"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeEmptyResponse:
		return "empty_response"
	default:
		return "unknown"
	}
}

// ServiceError is returned when the Gemini call itself fails.
type ServiceError struct {
	Type    ServiceErrorType
	Message string
	// Snippet is a truncated copy of any partial text the service returned.
	Snippet string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += " (raw response: " + e.Snippet + ")"
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports ErrService as the kind of every ServiceError.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

// SchemaError is returned when the reply is not JSON or lacks a required field.
type SchemaError struct {
	// Field is the offending field, empty when the reply did not parse at all.
	Field   string
	Reason  string
	Snippet string
	Err     error
}

func (e *SchemaError) Error() string {
	msg := "schema violation"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += " (raw response: " + e.Snippet + ")"
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports ErrSchemaViolation as the kind of every SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchemaViolation }

// classifyServiceError analyzes a GenerateContent error and returns a typed ServiceError.
func classifyServiceError(err error, partial string) *ServiceError {
	snippet := jsonutil.Snippet(partial, jsonutil.SnippetLimit)

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		se := classifyAPIError(apiErr)
		se.Err = err
		se.Snippet = snippet
		log.Debug().Err(err).Int("code", apiErr.Code).Str("type", se.Type.String()).Msg("Classified Gemini API error")
		return se
	}

	errLower := strings.ToLower(err.Error())
	se := &ServiceError{Err: err, Snippet: snippet}

	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "permission denied"):
		se.Type = ErrTypeInvalidKey
		se.Message = "API key is invalid or has been revoked"

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		se.Type = ErrTypeQuotaExceeded
		se.Message = "API quota exceeded or rate limited"

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "deadline exceeded") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		se.Type = ErrTypeNetworkError
		se.Message = "network error calling Gemini"

	default:
		se.Type = ErrTypeUnknown
		se.Message = "Gemini API call failed"
	}

	log.Debug().Err(err).Str("type", se.Type.String()).Msg("Classified Gemini error")
	return se
}

// classifyAPIError categorizes an HTTP-level Gemini API error.
func classifyAPIError(err *genai.APIError) *ServiceError {
	switch err.Code {
	case 401, 403:
		return &ServiceError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid, expired, or lacks permissions",
			Err:     err,
		}
	case 429:
		return &ServiceError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API rate limit exceeded",
			Err:     err,
		}
	case 500, 502, 503, 504:
		return &ServiceError{
			Type:    ErrTypeNetworkError,
			Message: "Gemini API server error",
			Err:     err,
		}
	default:
		return &ServiceError{
			Type:    ErrTypeUnknown,
			Message: "Gemini API error",
			Err:     err,
		}
	}
}

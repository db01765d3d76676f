package chat

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassifyServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ServiceErrorType
	}{
		{"api 401", &genai.APIError{Code: 401, Message: "unauthenticated"}, ErrTypeInvalidKey},
		{"api 403", &genai.APIError{Code: 403, Message: "forbidden"}, ErrTypeInvalidKey},
		{"api 429", &genai.APIError{Code: 429, Message: "slow down"}, ErrTypeQuotaExceeded},
		{"api 503", &genai.APIError{Code: 503, Message: "overloaded"}, ErrTypeNetworkError},
		{"api 400", &genai.APIError{Code: 400, Message: "bad"}, ErrTypeUnknown},
		{"wrapped api", fmt.Errorf("generate: %w", &genai.APIError{Code: 429}), ErrTypeQuotaExceeded},
		{"key text", errors.New("API key not valid. Please pass a valid API key."), ErrTypeInvalidKey},
		{"quota text", errors.New("Resource exhausted: quota"), ErrTypeQuotaExceeded},
		{"timeout text", errors.New("context deadline exceeded"), ErrTypeNetworkError},
		{"dns text", errors.New("dial tcp: lookup x: no such host"), ErrTypeNetworkError},
		{"other", errors.New("something odd"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := classifyServiceError(tt.err, "")
			if se.Type != tt.want {
				t.Errorf("Type = %v, want %v", se.Type, tt.want)
			}
			if !errors.Is(se, ErrService) {
				t.Error("ServiceError should match ErrService")
			}
			if !errors.Is(se, tt.err) {
				t.Error("ServiceError should unwrap to the original error")
			}
		})
	}
}

func TestServiceErrorTypeString(t *testing.T) {
	tests := map[ServiceErrorType]string{
		ErrTypeUnknown:       "unknown",
		ErrTypeInvalidKey:    "invalid_key",
		ErrTypeQuotaExceeded: "quota",
		ErrTypeNetworkError:  "network_error",
		ErrTypeEmptyResponse: "empty_response",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Field: "category", Reason: "required field missing", Snippet: `{"filename":"a.png"}`}
	want := `schema violation in category: required field missing (raw response: {"filename":"a.png"})`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

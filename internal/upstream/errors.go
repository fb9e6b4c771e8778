package upstream

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound indicates the backend had no such resource.
var ErrNotFound = errors.New("upstream: resource not found")

// APIError is a non-2xx backend response. The backend reports failures as
// either {message} or {errors:[{msg}]}; whichever is present is surfaced.
type APIError struct {
	Status  int
	Message string
	Msgs    []string
}

func (e *APIError) Error() string {
	if len(e.Msgs) > 0 {
		return strings.Join(e.Msgs, "; ")
	}
	if e.Message != "" {
		return e.Message
	}
	return "request failed"
}

type errorEnvelope struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	apiErr.Message = env.Message
	for _, e := range env.Errors {
		if e.Msg != "" {
			apiErr.Msgs = append(apiErr.Msgs, e.Msg)
		}
	}
	return apiErr
}

package downstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout      = errors.New("downstream_timeout")
	ErrUnavailable  = errors.New("downstream_unavailable")
	ErrNotFound     = errors.New("resource_not_found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadPayload   = errors.New("downstream_bad_payload")
)

type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// upstreamError is the loose error body the directory upstream sends.
type upstreamError struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func decodeError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}

	var body upstreamError
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		msg := body.Message
		if msg == "" {
			if s, ok := body.Error.(string); ok {
				msg = s
			}
		}
		if msg != "" {
			return &StatusError{
				StatusCode: resp.StatusCode,
				Code:       "downstream_error",
				Message:    msg,
			}
		}
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "downstream_error",
		Message:    fmt.Sprintf("unexpected status: %d", resp.StatusCode),
	}
}

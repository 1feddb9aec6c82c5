package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidResponse is returned when a 2xx body is not valid JSON.
var ErrInvalidResponse = errors.New("invalid response format from server")

// StatusError reports a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
	// Message is the server's own explanation when it supplied one, otherwise
	// the raw body text, otherwise a generic "HTTP error! status: N".
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// newStatusError extracts the most useful message from an error body. JSON
// bodies contribute their "error" or "message" field; anything else is used
// verbatim.
func newStatusError(code int, body []byte) *StatusError {
	msg := fmt.Sprintf("HTTP error! status: %d", code)

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	text := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	} else if text != "" {
		msg = text
	}

	return &StatusError{StatusCode: code, Message: msg}
}

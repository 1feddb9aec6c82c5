package orchestrator

import (
	"errors"
	"net/http"

	"contentgrab/internal/remote"
)

var (
	// ErrRecordNotFound is returned when a history entry does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnexpectedResponse is the failure for a 2xx submission body that is
	// neither an immediate result nor a job identifier.
	ErrUnexpectedResponse = errors.New("unexpected response format from server")

	// ErrPollTimeout is the failure for a job that never reached a terminal
	// status within the poll budget.
	ErrPollTimeout = errors.New("poll attempts exhausted")
)

// RemoteFailureError is a failure the status endpoint reported for a job.
type RemoteFailureError struct {
	Message string
}

func (e *RemoteFailureError) Error() string {
	if e.Message == "" {
		return msgGenericFailure
	}
	return e.Message
}

// FailureKind is the taxonomy class of a failed job. It is used as a metrics
// label and in logs.
type FailureKind string

const (
	KindBadRequest         FailureKind = "bad_request"
	KindForbidden          FailureKind = "forbidden"
	KindNotFound           FailureKind = "not_found"
	KindRateLimited        FailureKind = "rate_limited"
	KindServerError        FailureKind = "server_error"
	KindHTTPError          FailureKind = "http_error"
	KindInvalidResponse    FailureKind = "invalid_response"
	KindUnexpectedResponse FailureKind = "unexpected_response"
	KindTimeout            FailureKind = "timeout"
	KindRemoteFailed       FailureKind = "remote_failed"
	KindOther              FailureKind = "other"
)

const (
	msgFacebookBadRequest = "Facebook content may not be supported or the URL format is invalid. Try using a direct video link."
	msgBadRequest         = "Invalid URL or unsupported content. Please check the URL and try again."
	msgForbidden          = "Access denied. The content may be private or require authentication."
	msgNotFound           = "Content not found. The URL may be incorrect or the content has been removed."
	msgRateLimited        = "Too many requests. Please wait a moment before trying again."
	msgServerError        = "Server error. The backend service may be temporarily unavailable."
	msgInvalidResponse    = "Invalid response format from server"
	msgUnexpected         = "Unexpected response format from server"
	msgTimeout            = "Download timeout - the process took too long"
	msgGenericFailure     = "Download failed. Please try again."
)

// Classify maps a job failure onto its taxonomy class and the message stored
// on the failed record. The status code decides first; the error's own text
// is used only when nothing structured is available. jobURL is the URL the
// job was submitted with and selects platform-specific guidance.
func Classify(err error, jobURL string) (FailureKind, string) {
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusBadRequest:
			if msg := quirkyGuidance(jobURL); msg != "" {
				return KindBadRequest, msg
			}
			return KindBadRequest, msgBadRequest
		case http.StatusForbidden:
			return KindForbidden, msgForbidden
		case http.StatusNotFound:
			return KindNotFound, msgNotFound
		case http.StatusTooManyRequests:
			return KindRateLimited, msgRateLimited
		case http.StatusInternalServerError:
			return KindServerError, msgServerError
		}
		return KindHTTPError, orGeneric(statusErr.Message)
	}

	var remoteErr *RemoteFailureError
	switch {
	case errors.Is(err, ErrPollTimeout):
		return KindTimeout, msgTimeout
	case errors.Is(err, ErrUnexpectedResponse):
		return KindUnexpectedResponse, msgUnexpected
	case errors.Is(err, remote.ErrInvalidResponse):
		return KindInvalidResponse, msgInvalidResponse
	case errors.As(err, &remoteErr):
		return KindRemoteFailed, remoteErr.Error()
	case err == nil:
		return KindOther, msgGenericFailure
	}
	return KindOther, orGeneric(err.Error())
}

func quirkyGuidance(jobURL string) string {
	u, ok := parseAbsolute(jobURL)
	if !ok {
		return ""
	}
	return lookupHost(quirkyHosts, u.Hostname())
}

func orGeneric(msg string) string {
	if msg == "" {
		return msgGenericFailure
	}
	return msg
}

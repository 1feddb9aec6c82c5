package remote

import (
	"encoding/json"
	"math"
	"strconv"
)

// SubmitRequest is the body of a submission call.
type SubmitRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

// SubmitResult is exactly one of Immediate, Deferred or Unrecognized.
type SubmitResult interface {
	isSubmitResult()
}

// Immediate means the service finished the job synchronously.
type Immediate struct {
	DownloadURL string
	Title       string
}

// Deferred means the job continues remotely and must be polled by JobID.
type Deferred struct {
	JobID string
}

// Unrecognized is a 2xx body that matches neither known shape.
type Unrecognized struct {
	Body string
}

func (Immediate) isSubmitResult()    {}
func (Deferred) isSubmitResult()     {}
func (Unrecognized) isSubmitResult() {}

// parseSubmitResponse is the single place where a submission body is mapped
// onto a SubmitResult. Only a body that is not JSON at all is an error; any
// other shape is Unrecognized. Immediate wins over Deferred when both are
// present.
func parseSubmitResponse(body []byte) (SubmitResult, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}

	f, ok := decodeFields(body)
	if !ok {
		return Unrecognized{Body: string(body)}, nil
	}

	if url := f.str("downloadUrl"); url != "" && f.truthy("success") {
		return Immediate{DownloadURL: url, Title: f.str("title")}, nil
	}
	if id := f.id("jobId"); id != "" {
		return Deferred{JobID: id}, nil
	}
	return Unrecognized{Body: string(body)}, nil
}

// StatusResult is exactly one of JobCompleted, JobFailed or JobRunning.
type StatusResult interface {
	isStatusResult()
}

// JobCompleted is a terminal success reported by the status endpoint.
type JobCompleted struct {
	DownloadURL string
	Title       string
}

// JobFailed is a terminal failure reported by the status endpoint. Error may
// be empty.
type JobFailed struct {
	Error string
}

// JobRunning is any non-terminal status. Progress is nil when the service did
// not report one.
type JobRunning struct {
	Status   string
	Progress *int
}

func (JobCompleted) isStatusResult() {}
func (JobFailed) isStatusResult()    {}
func (JobRunning) isStatusResult()   {}

const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// parseStatusResponse maps a status body onto a StatusResult. Fields of an
// unexpected type are ignored, so a JSON body that is not a terminal status
// reads as still running.
func parseStatusResponse(body []byte) (StatusResult, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}

	f, _ := decodeFields(body)
	status := f.str("status")
	switch status {
	case statusCompleted:
		return JobCompleted{DownloadURL: f.str("downloadUrl"), Title: f.str("title")}, nil
	case statusFailed:
		return JobFailed{Error: f.str("error")}, nil
	}

	running := JobRunning{Status: status}
	if v, ok := f.number("progress"); ok {
		p := int(math.Round(v))
		running.Progress = &p
	}
	return running, nil
}

// String is used in logs.
func (r JobRunning) String() string {
	if r.Progress == nil {
		return r.Status
	}
	return r.Status + " " + strconv.Itoa(*r.Progress) + "%"
}

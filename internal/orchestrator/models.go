package orchestrator

import (
	"errors"
	"net/url"
	"strconv"
	"time"
)

// Format is the requested output container.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatMP3  Format = "mp3"
	FormatWebM Format = "webm"
	FormatAVI  Format = "avi"
	FormatMOV  Format = "mov"
)

// IsValid reports whether f is one of the supported formats.
func (f Format) IsValid() bool {
	switch f {
	case FormatMP4, FormatMP3, FormatWebM, FormatAVI, FormatMOV:
		return true
	}
	return false
}

// Quality is the requested output resolution.
type Quality string

const (
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"
	QualityBest  Quality = "best"
)

// IsValid reports whether q is one of the supported qualities.
func (q Quality) IsValid() bool {
	switch q {
	case Quality1080p, Quality720p, Quality480p, Quality360p, QualityBest:
		return true
	}
	return false
}

const (
	DefaultFormat  = FormatMP4
	DefaultQuality = Quality720p
)

// Status is the lifecycle state of a DownloadRecord.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrInvalidURL     = errors.New("url must be an absolute http or https URL")
	ErrInvalidFormat  = errors.New("unsupported format")
	ErrInvalidQuality = errors.New("unsupported quality")
)

// DownloadRequest is the input of a submission. It is passed by value and
// never modified after Submit is called.
type DownloadRequest struct {
	URL     string  `json:"url"`
	Format  Format  `json:"format"`
	Quality Quality `json:"quality"`
}

// WithDefaults fills an empty format or quality with the form defaults.
func (r DownloadRequest) WithDefaults() DownloadRequest {
	if r.Format == "" {
		r.Format = DefaultFormat
	}
	if r.Quality == "" {
		r.Quality = DefaultQuality
	}
	return r
}

// Validate checks the request the way the input form does before it allows a
// submission. Submit itself does not call it.
func (r DownloadRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	if !r.Format.IsValid() {
		return ErrInvalidFormat
	}
	if !r.Quality.IsValid() {
		return ErrInvalidQuality
	}
	return nil
}

// DownloadRecord is one job as seen by observers and stored in history.
type DownloadRecord struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Format      Format    `json:"format"`
	Quality     Quality   `json:"quality"`
	Status      Status    `json:"status"`
	Progress    *int      `json:"progress,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Request rebuilds the request that produced the record.
func (r DownloadRecord) Request() DownloadRequest {
	return DownloadRequest{URL: r.URL, Format: r.Format, Quality: r.Quality}
}

// clone returns a copy that shares no memory with r.
func (r DownloadRecord) clone() DownloadRecord {
	if r.Progress != nil {
		p := *r.Progress
		r.Progress = &p
	}
	return r
}

// StatusLabel is the one-line progress caption shown for the current record.
func (r DownloadRecord) StatusLabel() string {
	switch {
	case r.Progress == nil:
		return "Starting download..."
	case *r.Progress < 100:
		return "Downloading... " + strconv.Itoa(*r.Progress) + "%"
	default:
		return "Download complete!"
	}
}

func intPtr(v int) *int {
	return &v
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://try-back-end.onrender.com"
	DefaultTimeout = 60 * time.Second

	submitPath = "/api/download"
	statusPath = "/api/status/"
)

// Config configures the transport used to reach the download service.
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// Client talks to the remote download service. It never interprets outcomes
// beyond turning response bodies into SubmitResult and StatusResult values.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewClient builds a Client. RetryMax defaults to zero, so every non-2xx
// answer is final.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.HTTPClient.Timeout = cfg.Timeout
	// Hand non-2xx responses back to us instead of a "giving up" error.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	if log != nil {
		c.Logger = log.With(slog.String("component", "remote"))
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: c,
	}
}

// Submit posts a download job and returns the disambiguated outcome.
func (c *Client) Submit(ctx context.Context, in SubmitRequest) (SubmitResult, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, errors.Wrap(err, "submit download")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.baseURL+submitPath, payload)
	if err != nil {
		return nil, errors.Wrap(err, "submit download")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "submit download")
	}

	return parseSubmitResponse(body)
}

// Status fetches the current state of a deferred job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResult, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.baseURL+statusPath+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "check job status")
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "check job status")
	}

	return parseStatusResponse(body)
}

// do executes req and returns the body of a 2xx response. Any other status is
// reported as a *StatusError carrying the server's message.
func (c *Client) do(req *retryablehttp.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if !isSuccessStatusCode(resp) {
		return nil, newStatusError(resp.StatusCode, body)
	}

	return bytes.TrimSpace(body), nil
}

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// Package artifact saves the file behind a completed job's download URL to
// local disk.
package artifact

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/pkg/errors"
)

const (
	defaultProgressInterval = time.Second
	defaultStallTimeout     = 30 * time.Second
)

// Config selects the target directory and tunes transfers.
type Config struct {
	Dir              string        `yaml:"dir"`
	BufferSize       int           `yaml:"buffer_size"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	StallTimeout     time.Duration `yaml:"stall_timeout"`
}

// Request names one file to fetch. Name is the file name inside the target
// directory; when empty it is taken from the response.
type Request struct {
	URL      string
	Name     string
	Progress func(complete, total int64)
}

// Result describes a finished transfer.
type Result struct {
	Path     string
	Size     int64
	Duration time.Duration
}

// Fetcher downloads artifacts with grab, logging progress as it goes.
type Fetcher struct {
	grabClient *grab.Client
	cfg        Config
	log        *slog.Logger
}

// NewFetcher returns a Fetcher. Zero intervals select the defaults.
func NewFetcher(cfg Config, log *slog.Logger) *Fetcher {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = defaultStallTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c := grab.NewClient()
	c.BufferSize = cfg.BufferSize
	c.UserAgent = "contentgrab"

	return &Fetcher{
		grabClient: c,
		cfg:        cfg,
		log:        log.With(slog.String("component", "artifact")),
	}
}

// Fetch downloads in.URL into the configured directory. A transfer that
// makes no progress for the stall timeout is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, in Request) (Result, error) {
	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "artifact create dir")
	}

	dst := f.cfg.Dir
	if in.Name != "" {
		dst = filepath.Join(f.cfg.Dir, in.Name)
	}

	req, err := grab.NewRequest(dst, in.URL)
	if err != nil {
		return Result{}, errors.Wrap(err, "artifact create request")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	req = req.WithContext(ctx)

	f.log.Info("fetching artifact", slog.String("url", in.URL), slog.String("dst", dst))
	resp := f.grabClient.Do(req)

	go f.watchStall(resp, cancel)

	t := time.NewTicker(f.cfg.ProgressInterval)
	defer t.Stop()

Loop:
	for {
		select {
		case <-t.C:
			f.report(in, resp)
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		f.log.Error("artifact fetch failed", slog.String("url", in.URL), slog.String("error", err.Error()))
		return Result{}, errors.Wrap(err, "artifact fetch")
	}
	f.report(in, resp)

	return Result{
		Path:     resp.Filename,
		Size:     resp.BytesComplete(),
		Duration: resp.Duration(),
	}, nil
}

// watchStall cancels the transfer when the byte count stops moving.
func (f *Fetcher) watchStall(resp *grab.Response, cancel context.CancelFunc) {
	t := time.NewTicker(f.cfg.StallTimeout)
	defer t.Stop()

	prev := resp.BytesComplete()
	for {
		select {
		case <-t.C:
			curr := resp.BytesComplete()
			if curr == prev {
				f.log.Error("artifact transfer stalled, cancelling", slog.String("url", resp.Request.URL().String()))
				cancel()
				return
			}
			prev = curr
		case <-resp.Done:
			return
		}
	}
}

func (f *Fetcher) report(in Request, resp *grab.Response) {
	f.log.Debug("artifact progress",
		slog.Int64("bytes", resp.BytesComplete()),
		slog.Int64("size", resp.Size()),
		slog.Float64("percent", 100*resp.Progress()))
	if in.Progress != nil {
		in.Progress(resp.BytesComplete(), resp.Size())
	}
}

// FileName builds a file name from a job title and format, dropping
// characters that are not safe in a path component.
func FileName(title, format string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "download"
	}
	if format == "" || strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(format)) {
		return name
	}
	return name + "." + format
}

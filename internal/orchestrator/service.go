package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"contentgrab/internal/platform/logger"
	"contentgrab/internal/platform/metrics"
	"contentgrab/internal/remote"

	"go.uber.org/atomic"
)

// Config tunes the polling of deferred jobs. Zero values select the defaults.
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
}

// RemoteClient is the download service as seen by the orchestrator.
type RemoteClient interface {
	StatusChecker
	Submit(ctx context.Context, req remote.SubmitRequest) (remote.SubmitResult, error)
}

// Service owns the current record and the history. Its methods are the only
// way to change either; every record it returns is a copy.
//
// Each submission runs as its own job: it is never cancelled and ends in
// exactly one history append. Submitting while another job is in flight
// replaces the current record, the older job keeps running unobserved.
type Service struct {
	client  RemoteClient
	ledger  Ledger
	cfg     Config
	sched   Scheduler
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *DownloadRecord
	changes chan struct{}

	inflight sync.WaitGroup
	active   *atomic.Int32

	now   func() time.Time
	newID func() string
}

// NewService returns a Service that submits through client and records
// outcomes in ledger. m may be nil to disable metric recording.
func NewService(client RemoteClient, ledger Ledger, cfg Config, log *slog.Logger, m *metrics.Metrics) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Service{
		client:  client,
		ledger:  ledger,
		cfg:     cfg,
		sched:   timerScheduler{},
		log:     log,
		metrics: m,
		changes: make(chan struct{}, 1),
		active:  atomic.NewInt32(0),
		now:     time.Now,
		newID:   newRecordID,
	}
}

// Submit starts a job for req and returns its pending record. The job is
// detached from ctx cancellation and reports through Current, ListHistory
// and Changes.
func (s *Service) Submit(ctx context.Context, req DownloadRequest) DownloadRecord {
	normalized := NormalizeURL(req.URL)
	rec := &DownloadRecord{
		ID:        s.newID(),
		URL:       normalized,
		Title:     defaultTitle(normalized),
		Format:    req.Format,
		Quality:   req.Quality,
		Status:    StatusPending,
		Progress:  intPtr(0),
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.current = rec
	pending := rec.clone()
	s.mu.Unlock()
	s.signal()

	s.metrics.IncJobsSubmitted()
	s.metrics.SetActiveJobs(int(s.active.Inc()))
	s.log.Info("download submitted",
		slog.String("record_id", rec.ID),
		slog.String("url", rec.URL),
		slog.String("format", string(rec.Format)),
		slog.String("quality", string(rec.Quality)))

	s.inflight.Add(1)
	go s.run(context.WithoutCancel(ctx), rec)

	return pending
}

// Retry submits a fresh job with the url, format and quality of rec. rec
// itself is left untouched.
func (s *Service) Retry(ctx context.Context, rec DownloadRecord) DownloadRecord {
	return s.Submit(ctx, rec.Request())
}

// RetryByID is Retry for a history entry identified by id.
func (s *Service) RetryByID(ctx context.Context, id string) (DownloadRecord, error) {
	rec, ok := s.ledger.Get(id)
	if !ok {
		return DownloadRecord{}, ErrRecordNotFound
	}
	return s.Retry(ctx, rec), nil
}

// Current returns the record of the most recent submission while it is in
// flight.
func (s *Service) Current() (DownloadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return DownloadRecord{}, false
	}
	return s.current.clone(), true
}

// ListHistory returns finalized records, newest first.
func (s *Service) ListHistory() []DownloadRecord {
	return s.ledger.List()
}

// HistoryCounts summarizes the history by status.
func (s *Service) HistoryCounts() HistoryCounts {
	return s.ledger.Counts()
}

// DeleteRecord removes a history entry. Unknown ids and in-flight jobs are
// not affected.
func (s *Service) DeleteRecord(id string) {
	if s.ledger.Delete(id) {
		s.log.Debug("history record deleted", slog.String("record_id", id))
		s.signal()
	}
}

// Changes signals after any observable change of the current record or the
// history. Signals coalesce: one pending signal may stand for many changes.
func (s *Service) Changes() <-chan struct{} {
	return s.changes
}

// ActiveJobs returns the number of jobs that have not finalized yet.
func (s *Service) ActiveJobs() int {
	return int(s.active.Load())
}

// Wait blocks until every submitted job has finalized.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Drain is Wait bounded by ctx.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(ctx context.Context, rec *DownloadRecord) {
	defer s.inflight.Done()
	defer func() {
		s.metrics.SetActiveJobs(int(s.active.Dec()))
	}()

	res, err := s.client.Submit(ctx, remote.SubmitRequest{
		URL:     rec.URL,
		Format:  string(rec.Format),
		Quality: string(rec.Quality),
	})
	if err != nil {
		s.fail(rec, err)
		return
	}

	switch r := res.(type) {
	case remote.Immediate:
		s.complete(rec, r.DownloadURL, r.Title)
	case remote.Deferred:
		s.poll(ctx, rec, r.JobID)
	default:
		s.fail(rec, ErrUnexpectedResponse)
	}
}

func (s *Service) poll(ctx context.Context, rec *DownloadRecord, jobID string) {
	s.log.Debug("polling job status", slog.String("record_id", rec.ID), slog.String("job_id", jobID))

	p := &poller{
		jobID:       jobID,
		client:      s.client,
		sched:       s.sched,
		interval:    s.cfg.PollInterval,
		maxAttempts: s.cfg.MaxPollAttempts,
		log:         s.log.With(slog.String("record_id", rec.ID), slog.String("job_id", jobID)),
		onProgress:  func(v int) { s.updateProgress(rec, v) },
		onPoll:      s.metrics.IncPolls,
	}

	done, err := p.run(ctx)
	if err != nil {
		s.fail(rec, err)
		return
	}
	s.complete(rec, done.DownloadURL, done.Title)
}

// updateProgress applies a reported progress value. Values are clamped to
// 0..100 and never move progress backwards.
func (s *Service) updateProgress(rec *DownloadRecord, v int) {
	v = min(max(v, 0), 100)

	s.mu.Lock()
	changed := rec.Progress == nil || v > *rec.Progress
	if changed {
		rec.Progress = intPtr(v)
	}
	s.mu.Unlock()

	if changed {
		s.signal()
	}
}

func (s *Service) complete(rec *DownloadRecord, downloadURL, title string) {
	final := s.finalize(rec, func(r *DownloadRecord) {
		r.Status = StatusCompleted
		r.DownloadURL = downloadURL
		if title != "" {
			r.Title = title
		}
		r.Progress = intPtr(100)
	})

	s.metrics.IncJobsCompleted()
	s.log.Info("download completed",
		slog.String("record_id", final.ID),
		slog.String("title", final.Title),
		slog.String("download_url", final.DownloadURL))
}

func (s *Service) fail(rec *DownloadRecord, err error) {
	kind, msg := Classify(err, rec.URL)
	final := s.finalize(rec, func(r *DownloadRecord) {
		r.Status = StatusFailed
		r.Error = msg
		r.Progress = nil
	})

	s.metrics.IncJobsFailed(string(kind))
	s.log.Warn("download failed",
		slog.String("record_id", final.ID),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))
}

// finalize applies the terminal transition, frees the current slot if rec
// still holds it and appends the result to history, all in one step.
func (s *Service) finalize(rec *DownloadRecord, apply func(*DownloadRecord)) DownloadRecord {
	s.mu.Lock()
	apply(rec)
	final := rec.clone()
	if s.current == rec {
		s.current = nil
	}
	err := s.ledger.Append(final)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("history append failed", slog.String("record_id", final.ID), slog.String("error", err.Error()))
	}
	s.signal()
	return final
}

// signal notifies observers without blocking. A signal that is already
// pending covers this change too.
func (s *Service) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

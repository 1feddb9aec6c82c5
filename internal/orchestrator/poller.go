package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"contentgrab/internal/remote"
)

const (
	// DefaultPollInterval is the fixed delay between two status checks.
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxPollAttempts bounds a deferred job to five minutes at the
	// default interval.
	DefaultMaxPollAttempts = 60
)

// StatusChecker queries the status endpoint for a deferred job.
type StatusChecker interface {
	Status(ctx context.Context, jobID string) (remote.StatusResult, error)
}

// Scheduler delays the next poll. All waiting done by a poller goes through
// it, so a cancellation hook only has to be added here.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

type timerScheduler struct{}

func (timerScheduler) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type pollState int

const (
	statePolling pollState = iota
	stateCompleted
	stateFailed
)

func (s pollState) String() string {
	switch s {
	case statePolling:
		return "polling"
	case stateCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// poller drives one deferred job from polling to completed or failed.
// It owns no record; progress is reported through onProgress.
type poller struct {
	jobID       string
	client      StatusChecker
	sched       Scheduler
	interval    time.Duration
	maxAttempts int
	log         *slog.Logger

	onProgress func(progress int)
	onPoll     func()

	state    pollState
	attempts int
	result   remote.JobCompleted
	err      error
}

// run polls until the job is terminal and returns the completion, or the
// error that failed it.
func (p *poller) run(ctx context.Context) (remote.JobCompleted, error) {
	for p.state == statePolling {
		p.step(ctx)
		if p.state != statePolling {
			break
		}
		if err := p.sched.Wait(ctx, p.interval); err != nil {
			p.fail(err)
		}
	}

	if p.state == stateFailed {
		return remote.JobCompleted{}, p.err
	}
	return p.result, nil
}

// step performs exactly one status check and applies its transition.
func (p *poller) step(ctx context.Context) {
	res, err := p.client.Status(ctx, p.jobID)
	if p.onPoll != nil {
		p.onPoll()
	}
	if err != nil {
		p.fail(err)
		return
	}

	switch r := res.(type) {
	case remote.JobCompleted:
		p.state = stateCompleted
		p.result = r
	case remote.JobFailed:
		p.fail(&RemoteFailureError{Message: r.Error})
	case remote.JobRunning:
		if r.Progress != nil && p.onProgress != nil {
			p.onProgress(*r.Progress)
		}
		p.attempts++
		p.log.Debug("job still running", slog.String("status", r.String()), slog.Int("attempt", p.attempts))
		if p.attempts >= p.maxAttempts {
			p.fail(ErrPollTimeout)
		}
	default:
		p.fail(ErrUnexpectedResponse)
	}
}

func (p *poller) fail(err error) {
	p.state = stateFailed
	p.err = err
}

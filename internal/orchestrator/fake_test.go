package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"contentgrab/internal/remote"
)

type statusReply struct {
	res remote.StatusResult
	err error
}

// fakeRemote answers submissions with submitFn and status checks with the
// replies in order, repeating the last one.
type fakeRemote struct {
	mu       sync.Mutex
	submitFn func(remote.SubmitRequest) (remote.SubmitResult, error)
	replies  []statusReply
	submits  []remote.SubmitRequest
	jobIDs   []string
}

func (f *fakeRemote) Submit(_ context.Context, req remote.SubmitRequest) (remote.SubmitResult, error) {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	fn := f.submitFn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeRemote) Status(_ context.Context, jobID string) (remote.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(len(f.jobIDs), len(f.replies)-1)
	f.jobIDs = append(f.jobIDs, jobID)
	return f.replies[i].res, f.replies[i].err
}

func (f *fakeRemote) submitted() []remote.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.SubmitRequest(nil), f.submits...)
}

func (f *fakeRemote) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobIDs)
}

func immediate(url, title string) func(remote.SubmitRequest) (remote.SubmitResult, error) {
	return func(remote.SubmitRequest) (remote.SubmitResult, error) {
		return remote.Immediate{DownloadURL: url, Title: title}, nil
	}
}

func deferred(jobID string) func(remote.SubmitRequest) (remote.SubmitResult, error) {
	return func(remote.SubmitRequest) (remote.SubmitResult, error) {
		return remote.Deferred{JobID: jobID}, nil
	}
}

func failing(err error) func(remote.SubmitRequest) (remote.SubmitResult, error) {
	return func(remote.SubmitRequest) (remote.SubmitResult, error) {
		return nil, err
	}
}

func running(progress int) statusReply {
	return statusReply{res: remote.JobRunning{Status: "running", Progress: &progress}}
}

// fakeScheduler never sleeps; it records requested delays and runs onWait
// between polls.
type fakeScheduler struct {
	mu     sync.Mutex
	waits  []time.Duration
	onWait func()
}

func (s *fakeScheduler) Wait(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	hook := s.onWait
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newTestService(t *testing.T, client RemoteClient) (*Service, *fakeScheduler) {
	t.Helper()
	svc := NewService(client, NewInMemoryLedger(), Config{}, nil, nil)
	sched := &fakeScheduler{}
	svc.sched = sched
	return svc, sched
}

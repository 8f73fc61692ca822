package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/atomic"
)

// Status is the state of a PendingRequest.
type Status int32

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// PendingRequest is a single in-flight exchange with the scheduler.
// It has one owner, is advanced with Process and must be released with
// Release once it is no longer needed.
type PendingRequest struct {
	id string

	status   atomic.Int32
	released atomic.Bool
	polls    int64

	cancel context.CancelFunc
	doneCh chan struct{}

	// Written by the exchange goroutine before status leaves StatusPending.
	statusCode   int
	reasonPhrase string
	responseData []byte
}

func newPendingRequest(id string, doer Doer, req *http.Request) *PendingRequest {
	ctx, cancel := context.WithCancel(req.Context())
	r := &PendingRequest{
		id:     id,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	go r.run(doer, req.WithContext(ctx))
	return r
}

// run performs the exchange. The network I/O is driven by the runtime
// netpoller; Process only observes the outcome.
func (r *PendingRequest) run(doer Doer, req *http.Request) {
	defer close(r.doneCh)

	resp, err := doer.Do(req)
	if err != nil {
		r.finish(StatusFailed, 0, reasonFromError(err), nil)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		r.finish(StatusFailed, resp.StatusCode, reasonFromError(err), nil)
		return
	}

	status := StatusCompleted
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		status = StatusFailed
	}
	r.finish(status, resp.StatusCode, reasonPhrase(resp), data)
}

func (r *PendingRequest) finish(status Status, code int, reason string, data []byte) {
	r.statusCode = code
	r.reasonPhrase = reason
	r.responseData = data
	r.status.Store(int32(status))
}

// Process advances the request by one step without blocking and returns
// its current status.
func (r *PendingRequest) Process() Status {
	r.polls++
	return Status(r.status.Load())
}

// Release cancels the exchange if it is still running, waits for it to
// stop and drops the response. Only the first call has an effect.
func (r *PendingRequest) Release() {
	if r.released.Swap(true) {
		return
	}
	r.cancel()
	<-r.doneCh
	r.responseData = nil
}

// ID returns the dispatch id of the request.
func (r *PendingRequest) ID() string {
	return r.id
}

// Polls returns how many times Process has been called.
func (r *PendingRequest) Polls() int64 {
	return r.polls
}

// StatusCode returns the HTTP status code, or 0 if no response was received.
// Only meaningful once Process reported a terminal status.
func (r *PendingRequest) StatusCode() int {
	return r.statusCode
}

// ReasonPhrase returns the HTTP reason phrase, or the transport error when
// no response was received.
func (r *PendingRequest) ReasonPhrase() string {
	return r.reasonPhrase
}

// ResponseData returns the raw response body.
func (r *PendingRequest) ResponseData() []byte {
	return r.responseData
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

func reasonFromError(err error) string {
	if uerr, ok := err.(*url.Error); ok {
		err = uerr.Err
	}
	return err.Error()
}

package client

import (
	"bytes"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/sendtask/model"
	"github.com/hanfei1991/sendtask/pkg/config"
	derrors "github.com/hanfei1991/sendtask/pkg/errors"
)

// Exit codes reported when the job's own rc is not available.
const (
	ExitTransportFailure = 1
	ExitProtocolFailure  = 2
)

// Dispatcher forwards job specs to the scheduler and waits for the reply.
// There is no timeout: a scheduler that never answers blocks Dispatch
// forever, the same way a hung recipe blocks the build.
type Dispatcher struct {
	endpoint string
	doer     Doer
	clock    clock.Clock
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDoer replaces the HTTP client.
func WithDoer(doer Doer) DispatcherOption {
	return func(d *Dispatcher) {
		d.doer = doer
	}
}

// WithClock replaces the clock used to measure waits.
func WithClock(clk clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clk
	}
}

// NewDispatcher creates a Dispatcher posting to cfg.Endpoint().
func NewDispatcher(cfg config.Config, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		endpoint: cfg.Endpoint(),
		doer:     newHTTPClient(),
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newHTTPClient returns a client for a single exchange with a loopback
// address: no proxy, no keep-alive, no timeout. Redirects are not followed;
// a 3xx reply is a failed request like any other non-2xx status.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             nil,
			DisableKeepAlives: true,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Submit starts posting payload to the scheduler and returns at once.
// It fails only when the request cannot be constructed.
func (d *Dispatcher) Submit(payload []byte) (*PendingRequest, error) {
	req, err := http.NewRequest(http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrInvalidRequest, err, d.endpoint)
	}

	id := uuid.New().String()
	log.L().Debug("submit job spec",
		zap.String("dispatch-id", id),
		zap.String("endpoint", d.endpoint),
		zap.Int("payload-size", len(payload)))
	return newPendingRequest(id, d.doer, req), nil
}

// Wait polls req until it reaches a terminal status.
func (d *Dispatcher) Wait(req *PendingRequest) Status {
	start := d.clock.Now()
	status := StatusPending
	for status == StatusPending {
		status = req.Process()
	}
	log.L().Debug("request finished",
		zap.String("dispatch-id", req.ID()),
		zap.Stringer("status", status),
		zap.Int64("polls", req.Polls()),
		zap.Duration("elapsed", d.clock.Since(start)))
	return status
}

// Dispatch submits the job described by processArgs, waits for the
// scheduler and returns the process exit code. A non-nil error is the
// diagnostic for exit codes produced by send-task itself; the job's own
// rc comes with a nil error.
func (d *Dispatcher) Dispatch(processArgs []string) (int, error) {
	payload := model.BuildPayload(processArgs)
	req, err := d.Submit(payload)
	if err != nil {
		return ExitCode(err), err
	}
	defer req.Release()

	if d.Wait(req) == StatusFailed {
		err := derrors.ErrRequestFailed.GenWithStackByArgs(req.StatusCode(), req.ReasonPhrase())
		log.L().Info("dispatch failed", zap.String("dispatch-id", req.ID()), zap.Error(err))
		return ExitCode(err), err
	}

	reply, err := model.ParseJobReply(req.ResponseData())
	if err != nil {
		log.L().Info("unexpected reply",
			zap.String("dispatch-id", req.ID()),
			zap.ByteString("body", req.ResponseData()),
			zap.Error(err))
		return ExitCode(err), err
	}
	log.L().Debug("job finished", zap.String("dispatch-id", req.ID()), zap.Float64("rc", reply.RC))
	return reply.ExitCode(), nil
}

// ExitCode maps an error returned by Dispatch to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case derrors.Is(err, derrors.ErrReplyMalformed),
		derrors.Is(err, derrors.ErrReplyMissingRC),
		derrors.Is(err, derrors.ErrReplyInvalidRC):
		return ExitProtocolFailure
	default:
		return ExitTransportFailure
	}
}

// Package scheduler provides an in-process job scheduler for tests. It
// speaks the send-task wire protocol and records every submission.
package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/pingcap/errors"

	"github.com/hanfei1991/sendtask/model"
	"github.com/hanfei1991/sendtask/pkg/config"
)

// Submission is one request received by the scheduler.
type Submission struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JobSpec decodes the submitted body.
func (s Submission) JobSpec() (*model.JobSpec, error) {
	spec := &model.JobSpec{}
	if err := json.Unmarshal(s.Body, spec); err != nil {
		return nil, errors.Trace(err)
	}
	return spec, nil
}

// ReplyFunc decides the status code and body for a submission.
type ReplyFunc func(w http.ResponseWriter, sub Submission)

// Reply answers every submission with status and body.
func Reply(status int, body string) ReplyFunc {
	return func(w http.ResponseWriter, _ Submission) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// ExitWith answers every submission with rc.
func ExitWith(rc float64) ReplyFunc {
	return Reply(http.StatusOK, fmt.Sprintf(`{"rc": %v}`, rc))
}

// Scheduler is a fake job scheduler listening on the loopback address.
type Scheduler struct {
	server *httptest.Server
	reply  ReplyFunc

	mu          sync.Mutex
	submissions []Submission
}

// Start starts a scheduler on port, or on a random port if port is 0.
func Start(port int, reply ReplyFunc) (*Scheduler, error) {
	s := &Scheduler{reply: reply}
	s.server = httptest.NewUnstartedServer(http.HandlerFunc(s.handle))
	if port != 0 {
		l, err := net.Listen("tcp", net.JoinHostPort(config.SchedulerHost, strconv.Itoa(port)))
		if err != nil {
			return nil, errors.Trace(err)
		}
		_ = s.server.Listener.Close()
		s.server.Listener = l
	}
	s.server.Start()
	return s, nil
}

func (s *Scheduler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub := Submission{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	}
	s.mu.Lock()
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()

	s.reply(w, sub)
}

// Port returns the port the scheduler listens on.
func (s *Scheduler) Port() string {
	_, port, _ := net.SplitHostPort(s.server.Listener.Addr().String())
	return port
}

// Config returns a send-task config pointing at the scheduler.
func (s *Scheduler) Config() config.Config {
	cfg := config.NewConfig()
	cfg.Port = s.Port()
	return cfg
}

// Submissions returns a copy of the received submissions.
func (s *Scheduler) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Close shuts the scheduler down.
func (s *Scheduler) Close() {
	s.server.Close()
}

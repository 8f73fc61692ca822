package main

import (
	"bytes"
	"net/http"
	"strconv"
	"testing"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hanfei1991/sendtask/pkg/config"
	"github.com/hanfei1991/sendtask/test/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func envWithPort(port string) config.LookupEnvFunc {
	return func(key string) (string, bool) {
		if key == config.PortEnvKey {
			return port, true
		}
		return "", false
	}
}

func TestRunExitsWithJobRC(t *testing.T) {
	s, err := scheduler.Start(0, scheduler.ExitWith(17))
	require.NoError(t, err)
	defer s.Close()

	var stderr bytes.Buffer
	code := run([]string{"send-task", "-c", "cc -o main main.c"}, envWithPort(s.Port()), &stderr)
	require.Equal(t, 17, code)
	require.Empty(t, stderr.String())

	subs := s.Submissions()
	require.Len(t, subs, 1)
	require.Equal(t, `{"argv":["cc -o main main.c"]}`, string(subs[0].Body))
}

func TestRunForwardsFlagsAsArguments(t *testing.T) {
	s, err := scheduler.Start(0, scheduler.ExitWith(0))
	require.NoError(t, err)
	defer s.Close()

	var stderr bytes.Buffer
	code := run([]string{"send-task", "--help", "-v", "--version", "help"}, envWithPort(s.Port()), &stderr)
	require.Equal(t, 0, code)

	spec, err := s.Submissions()[0].JobSpec()
	require.NoError(t, err)
	require.Equal(t, []string{"-v", "--version", "help"}, spec.Argv)
}

func TestRunWithoutJobArgs(t *testing.T) {
	s, err := scheduler.Start(0, scheduler.ExitWith(0))
	require.NoError(t, err)
	defer s.Close()

	var stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"send-task"}, envWithPort(s.Port()), &stderr))
	require.Equal(t, 0, run(nil, envWithPort(s.Port()), &stderr))

	for _, sub := range s.Submissions() {
		require.Equal(t, `{"argv":[]}`, string(sub.Body))
	}
}

func TestRunSchedulerUnreachable(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	var stderr bytes.Buffer
	code := run([]string{"send-task", "-c", "true"}, envWithPort(strconv.Itoa(port)), &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "HTTP request failed (0)")
}

func TestRunProtocolFailure(t *testing.T) {
	for _, body := range []string{"not json", `{"status":"ok"}`} {
		s, err := scheduler.Start(0, scheduler.Reply(http.StatusOK, body))
		require.NoError(t, err)

		var stderr bytes.Buffer
		code := run([]string{"send-task", "-c", "true"}, envWithPort(s.Port()), &stderr)
		require.Equal(t, 2, code, body)
		require.NotEmpty(t, stderr.String())
		s.Close()
	}
}

func TestRunBadConfig(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == config.ConfigFileEnvKey {
			return "testdata/not-exist.toml", true
		}
		return "", false
	}
	var stderr bytes.Buffer
	code := run([]string{"send-task", "-c", "true"}, lookup, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "ErrConfigDecodeFile")
}

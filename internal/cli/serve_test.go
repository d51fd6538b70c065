package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/telemetryd/internal/store"
)

// runningServer is a serve command running in the background.
type runningServer struct {
	addr   string
	cancel context.CancelFunc
	done   chan error
}

// stop cancels the command and waits for it to return.
func (s *runningServer) stop(t *testing.T) error {
	t.Helper()
	s.cancel()
	select {
	case err := <-s.done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
		return nil
	}
}

// syncBuffer guards a buffer written by the serve goroutine and read by the
// test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func startServe(t *testing.T, args ...string) *runningServer {
	t.Helper()
	t.Setenv("TELEMETRYD_ADDR", "127.0.0.1:0")

	ready := make(chan string, 1)
	cmd := newServeCommand(&ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		Ready:       func(addr string) { ready <- addr },
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &runningServer{cancel: cancel, done: make(chan error, 1)}
	cmd.SetOut(&syncBuffer{})
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs(args)

	go func() { s.done <- cmd.ExecuteContext(ctx) }()

	select {
	case s.addr = <-ready:
	case err := <-s.done:
		cancel()
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("serve did not become ready")
	}
	return s
}

func postMessage(t *testing.T, addr, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post("http://"+addr+"/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

const launchBody = `{
  "metadata": {"channel": "r1", "messageNumber": 1, "messageTime": "2022-02-02T19:39:05Z", "messageType": "RocketLaunched"},
  "message": {"type": "Falcon-9", "launchSpeed": 500, "mission": "ARTEMIS"}
}`

const increaseBody = `{
  "metadata": {"channel": "r1", "messageNumber": 2, "messageTime": "2022-02-02T19:39:06Z", "messageType": "RocketSpeedIncreased"},
  "message": {"by": 300}
}`

func TestServeInvalidConfiguration(t *testing.T) {
	t.Setenv("TELEMETRYD_LOG_LEVEL", "loud")

	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestServeNegativeRateFlag(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--rate", "-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TELEMETRYD_ADDR", ":7000")
	t.Setenv("TELEMETRYD_JOURNAL", "env.db")

	opts := &ServeOptions{RootOptions: &RootOptions{}}
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "")
	cmd.Flags().IntVar(&opts.Burst, "burst", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--addr", ":9000", "--rate", "5"}))

	cfg, err := serveConfig(opts, cmd)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "env.db", cfg.Journal, "unset flag keeps env value")
	assert.Equal(t, 5.0, cfg.Rate)
	assert.Equal(t, 100, cfg.Burst, "burst default")
}

func TestServe_AcceptsMessagesAndStopsGracefully(t *testing.T) {
	s := startServe(t)

	status, ack := postMessage(t, s.addr, increaseBody)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "buffered", ack["outcome"])

	status, ack = postMessage(t, s.addr, launchBody)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "applied", ack["outcome"])

	resp, err := http.Get("http://" + s.addr + "/rockets/r1")
	require.NoError(t, err)
	var view map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	assert.Equal(t, 800.0, view["speed"])
	assert.Equal(t, 2.0, view["lastMessageNumber"])

	status, _ = postMessage(t, s.addr, `{"metadata": {"channel": "", "messageNumber": 1, "messageType": "RocketLaunched"}, "message": {}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	require.NoError(t, s.stop(t))
}

func TestServe_JournalContinuesArrivalNumbering(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "arrivals.db")

	s := startServe(t, "--journal", journal)
	_, ack := postMessage(t, s.addr, launchBody)
	assert.Equal(t, 1.0, ack["arrival"])
	require.NoError(t, s.stop(t))

	s = startServe(t, "--journal", journal)
	_, ack = postMessage(t, s.addr, increaseBody)
	assert.Equal(t, 2.0, ack["arrival"])
	require.NoError(t, s.stop(t))

	st, err := store.Open(journal)
	require.NoError(t, err)
	defer st.Close()

	last, err := st.MaxArrival(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)

	arrivals, err := st.ReadArrivals(context.Background(), "r1", store.ByArrival)
	require.NoError(t, err)
	require.Len(t, arrivals, 2)
	assert.Equal(t, "applied", arrivals[0].Outcome)
	assert.Equal(t, "buffered", arrivals[1].Outcome, "the restarted registry holds no state for r1")
}

package logflux

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/logflux/logflux-go/config"
	"github.com/logflux/logflux-go/crypto"
	"github.com/logflux/logflux-go/pkg/types"
	"github.com/logflux/logflux-go/transport"
)

// fakeSender records delivered entries and fails according to script.
type fakeSender struct {
	mu       sync.Mutex
	received []*types.Entry
	calls    int

	// failFirst makes the first N calls fail with failErr.
	failFirst int
	failErr   error

	// block, when non-nil, parks every Send until the channel closes.
	block chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, e *types.Entry) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return &transport.Error{Kind: transport.KindTimeout, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return f.failErr
	}
	f.received = append(f.received, e)
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) entries() []*types.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Entry, len(f.received))
	copy(out, f.received)
	return out
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default("https://ingest.example.com", "test-node", "lf_testkey", "test-secret")
	if err != nil {
		t.Fatalf("config.Default: %v", err)
	}
	cfg.WorkerCount = 1
	cfg.MaxRetries = 3
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 10 * time.Millisecond
	cfg.FlushInterval = 0
	return cfg
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestPipeline_DeliversEncryptedEntry(t *testing.T) {
	sender := &fakeSender{}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Info("hello from the pipeline"); err != nil {
		t.Fatalf("Info: %v", err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return len(sender.entries()) == 1 }) {
		t.Fatal("entry was not delivered")
	}

	e := sender.entries()[0]
	if e.Node != "test-node" {
		t.Errorf("Node = %q, want test-node", e.Node)
	}
	if e.Level != types.LevelInfo {
		t.Errorf("Level = %v, want INFO", e.Level)
	}
	if e.EncryptionMode != 1 {
		t.Errorf("EncryptionMode = %d, want 1", e.EncryptionMode)
	}
	if e.Payload == "hello from the pipeline" {
		t.Error("payload was delivered unencrypted")
	}

	// The payload must decrypt back to the submitted message under the
	// configured secret.
	enc, err := crypto.NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	got, err := enc.Decrypt(&crypto.Result{
		Payload: e.Payload,
		IV:      e.IV,
		Salt:    e.Salt,
		Mode:    crypto.Mode(e.EncryptionMode),
	})
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "hello from the pipeline" {
		t.Errorf("decrypted payload = %q", got)
	}

	s := p.Stats()
	if s.TotalSent != 1 || s.TotalFailed != 0 || s.TotalDropped != 0 {
		t.Errorf("Stats = %+v, want 1 sent only", s)
	}
}

func TestPipeline_FailsafeDropsWhenSaturated(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	cfg := testConfig(t)
	cfg.QueueSize = 2

	p, err := New(cfg, WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		close(sender.block)
		p.Close()
	}()

	// First submission is picked up by the single worker and parks in
	// the blocked sender.
	if err := p.Info("in flight"); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !waitFor(t, 5*time.Second, func() bool { return p.Stats().QueueSize == 0 }) {
		t.Fatal("worker did not pick up the first entry")
	}

	// Two more fill the queue; the fourth has nowhere to go.
	for i := 0; i < 3; i++ {
		if err := p.Info("backlog"); err != nil {
			t.Fatalf("Info: %v", err)
		}
	}

	s := p.Stats()
	if s.QueueSize != 2 {
		t.Errorf("QueueSize = %d, want 2", s.QueueSize)
	}
	if s.TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", s.TotalDropped)
	}
	if s.QueueCapacity != 2 {
		t.Errorf("QueueCapacity = %d, want 2", s.QueueCapacity)
	}
}

func TestPipeline_RetriesTransientFailure(t *testing.T) {
	sender := &fakeSender{
		failFirst: 2,
		failErr:   &transport.Error{Kind: transport.KindUnavailable, Status: 503},
	}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Error("flaky delivery"); err != nil {
		t.Fatalf("Error: %v", err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return p.Stats().TotalSent == 1 }) {
		t.Fatalf("entry never delivered; stats = %+v", p.Stats())
	}

	s := p.Stats()
	if s.TotalFailed != 0 {
		t.Errorf("TotalFailed = %d, want 0", s.TotalFailed)
	}
	if got := sender.callCount(); got != 3 {
		t.Errorf("sender called %d times, want 3 (two failures, one success)", got)
	}
}

func TestPipeline_PermanentFailureSingleAttempt(t *testing.T) {
	sender := &fakeSender{
		failFirst: 1 << 20,
		failErr:   &transport.Error{Kind: transport.KindInvalid, Status: 400, Message: "rejected"},
	}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Warn("doomed entry"); err != nil {
		t.Fatalf("Warn: %v", err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return p.Stats().TotalFailed == 1 }) {
		t.Fatalf("failure never recorded; stats = %+v", p.Stats())
	}
	if got := sender.callCount(); got != 1 {
		t.Errorf("sender called %d times, want exactly 1 (no retries)", got)
	}
	if s := p.Stats(); s.TotalSent != 0 {
		t.Errorf("TotalSent = %d, want 0", s.TotalSent)
	}
}

func TestPipeline_SubmitBatch(t *testing.T) {
	sender := &fakeSender{}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	msgs := []string{"one", "two", "three"}
	if err := p.SubmitBatch(msgs, types.LevelDebug); err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}

	if !waitFor(t, 10*time.Second, func() bool { return len(sender.entries()) == 3 }) {
		t.Fatalf("delivered %d entries, want 3", len(sender.entries()))
	}
	for _, e := range sender.entries() {
		if e.Level != types.LevelDebug {
			t.Errorf("Level = %v, want DEBUG", e.Level)
		}
	}
}

func TestPipeline_FlushTimesOutWhenStuck(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	cfg := testConfig(t)
	cfg.QueueSize = 8

	p, err := New(cfg, WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		close(sender.block)
		p.Close()
	}()

	for i := 0; i < 3; i++ {
		if err := p.Info("stuck"); err != nil {
			t.Fatalf("Info: %v", err)
		}
	}

	if err := p.Flush(50 * time.Millisecond); !errors.Is(err, ErrFlushTimeout) {
		t.Errorf("Flush = %v, want ErrFlushTimeout", err)
	}
}

func TestPipeline_CloseDrainsAndStops(t *testing.T) {
	sender := &fakeSender{}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := p.Info("final words"); err != nil {
			t.Fatalf("Info: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Running() {
		t.Error("Running after Close")
	}

	s := p.Stats()
	if s.TotalSent != 5 {
		t.Errorf("TotalSent = %d, want 5", s.TotalSent)
	}
	if s.QueueSize != 0 {
		t.Errorf("QueueSize = %d, want 0 after drain", s.QueueSize)
	}

	// Idempotent.
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPipeline_SubmitAfterClose(t *testing.T) {
	t.Run("failsafe swallows", func(t *testing.T) {
		p, err := New(testConfig(t), WithSender(&fakeSender{}))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := p.Info("too late"); err != nil {
			t.Errorf("Submit after close in failsafe mode: %v, want nil", err)
		}
	})

	t.Run("strict rejects", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Failsafe = false
		p, err := New(cfg, WithSender(&fakeSender{}))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := p.Info("too late"); !errors.Is(err, ErrClosed) {
			t.Errorf("Submit after close in strict mode: %v, want ErrClosed", err)
		}
	})
}

func TestPipeline_StrictEnqueueTimeout(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	cfg := testConfig(t)
	cfg.Failsafe = false
	cfg.QueueSize = 1
	cfg.EnqueueTimeout = 30 * time.Millisecond

	p, err := New(cfg, WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		close(sender.block)
		p.Close()
	}()

	// Occupy the worker, then fill the single queue slot.
	if err := p.Info("in flight"); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !waitFor(t, 5*time.Second, func() bool { return p.Stats().QueueSize == 0 }) {
		t.Fatal("worker did not pick up the first entry")
	}
	if err := p.Info("queued"); err != nil {
		t.Fatalf("Info: %v", err)
	}

	if err := p.Info("no room"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit on full strict queue = %v, want ErrQueueFull", err)
	}
	if got := p.Stats().TotalDropped; got != 0 {
		t.Errorf("TotalDropped = %d, want 0 in strict mode", got)
	}
}

func TestPipeline_LevelHelpers(t *testing.T) {
	sender := &fakeSender{}
	p, err := New(testConfig(t), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	calls := []struct {
		submit func(string) error
		want   types.Level
	}{
		{p.Debug, types.LevelDebug},
		{p.Info, types.LevelInfo},
		{p.Notice, types.LevelInfo},
		{p.Warn, types.LevelWarn},
		{p.Error, types.LevelError},
		{p.Critical, types.LevelError},
		{p.Alert, types.LevelFatal},
		{p.Fatal, types.LevelFatal},
	}
	for i, c := range calls {
		if err := c.submit("leveled"); err != nil {
			t.Fatalf("helper %d: %v", i, err)
		}
	}

	if !waitFor(t, 15*time.Second, func() bool { return len(sender.entries()) == len(calls) }) {
		t.Fatalf("delivered %d entries, want %d", len(sender.entries()), len(calls))
	}
	for i, e := range sender.entries() {
		if e.Level != calls[i].want {
			t.Errorf("entry %d Level = %v, want %v", i, e.Level, calls[i].want)
		}
	}
}

func TestGlobal_InitAndTeardown(t *testing.T) {
	if _, err := Default(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Default before Init = %v, want ErrNotInitialized", err)
	}
	if err := Log("nowhere", types.LevelInfo); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Log before Init = %v, want ErrNotInitialized", err)
	}

	sender := &fakeSender{}
	if err := Init(testConfig(t), WithSender(sender)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := Log("through the global", types.LevelWarn); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if !waitFor(t, 5*time.Second, func() bool { return len(sender.entries()) == 1 }) {
		t.Fatal("global pipeline did not deliver")
	}

	if err := Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, err := Default(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Default after Teardown = %v, want ErrNotInitialized", err)
	}
	// Idempotent.
	if err := Teardown(); err != nil {
		t.Errorf("second Teardown: %v", err)
	}
}

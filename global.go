package logflux

import (
	"sync"
	"time"

	"github.com/logflux/logflux-go/config"
	"github.com/logflux/logflux-go/pkg/types"
)

// Optional process-wide pipeline for applications that want a single
// shared instance without threading it everywhere. It is purely a
// convenience holder: nothing inside the library depends on it, and it
// must be explicitly initialized and torn down.
var (
	globalMu sync.Mutex
	global   *Pipeline
)

// Init installs a process-wide pipeline built from cfg, closing any
// previously installed one.
func Init(cfg *config.Config, opts ...Option) error {
	p, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	globalMu.Lock()
	old := global
	global = p
	globalMu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// InitFromEnv is Init with a config built from LOGFLUX_* environment
// variables.
func InitFromEnv(node, secret string, opts ...Option) error {
	cfg, err := config.FromEnv(node, secret)
	if err != nil {
		return err
	}
	return Init(cfg, opts...)
}

// Default returns the process-wide pipeline installed by Init.
func Default() (*Pipeline, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		return nil, ErrNotInitialized
	}
	return global, nil
}

// Teardown closes and removes the process-wide pipeline. Safe to call
// when none is installed.
func Teardown() error {
	globalMu.Lock()
	old := global
	global = nil
	globalMu.Unlock()

	if old == nil {
		return nil
	}
	return old.Close()
}

// Log submits message through the process-wide pipeline.
func Log(message string, level types.Level) error {
	p, err := Default()
	if err != nil {
		return err
	}
	return p.Submit(message, level)
}

// LogAt submits message with an explicit timestamp through the
// process-wide pipeline.
func LogAt(message string, level types.Level, at time.Time) error {
	p, err := Default()
	if err != nil {
		return err
	}
	return p.SubmitAt(message, level, at)
}

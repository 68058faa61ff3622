package transport

import (
	"context"
	"fmt"

	"github.com/logflux/logflux-go/pkg/types"
)

// Sender is the delivery port: it transmits one serialized entry and
// reports success or a classifiable failure. Implementations must be
// safe for concurrent use by all pipeline workers.
type Sender interface {
	// Send delivers one entry. A nil return means the endpoint
	// acknowledged it; otherwise the error should be (or wrap) an
	// *Error so the retry layer can classify it.
	Send(ctx context.Context, e *types.Entry) error

	// Close releases the underlying connections. Idempotent.
	Close() error
}

// Kind classifies a delivery failure.
type Kind int

const (
	// KindNetwork: connection refused/reset, DNS or routing failure.
	KindNetwork Kind = iota

	// KindTimeout: the attempt exceeded its deadline.
	KindTimeout

	// KindThrottled: the endpoint returned HTTP 429.
	KindThrottled

	// KindUnavailable: the endpoint reported itself temporarily
	// unavailable (502/503/504).
	KindUnavailable

	// KindServer: any other 5xx.
	KindServer

	// KindAuth: 401/403, the credentials are wrong and retrying cannot
	// help.
	KindAuth

	// KindInvalid: 4xx other than 429/401/403, the entry itself was
	// rejected.
	KindInvalid
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindThrottled:
		return "throttled"
	case KindUnavailable:
		return "unavailable"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Temporary reports whether failures of this kind may succeed on a
// later attempt.
func (k Kind) Temporary() bool {
	switch k {
	case KindNetwork, KindTimeout, KindThrottled, KindUnavailable, KindServer:
		return true
	default:
		return false
	}
}

// Error is a structured delivery failure. Status is the HTTP status
// code when one was received, 0 otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transport: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether the failure may clear on retry.
func (e *Error) Temporary() bool { return e.Kind.Temporary() }

// StatusKind maps an HTTP status code to a failure Kind.
func StatusKind(status int) Kind {
	switch {
	case status == 429:
		return KindThrottled
	case status == 401 || status == 403:
		return KindAuth
	case status == 502 || status == 503 || status == 504:
		return KindUnavailable
	case status >= 500:
		return KindServer
	default:
		return KindInvalid
	}
}

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxNodeLength is the maximum length of the node identifier accepted
// by the ingestion endpoint.
const MaxNodeLength = 255

// Timestamp is a wall-clock instant that marshals as Unix epoch
// seconds with nanosecond precision, e.g. 1718967641.000123456.
// Integer arithmetic is used on both sides so nanoseconds survive the
// round trip (a float64 cannot hold epoch nanoseconds exactly).
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t as a wire Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON encodes the instant as a decimal-seconds JSON number.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	sec := ts.Unix()
	nsec := ts.Nanosecond()
	if sec < 0 {
		return nil, fmt.Errorf("types: timestamp %v predates the epoch", ts.Time)
	}
	return []byte(fmt.Sprintf("%d.%09d", sec, nsec)), nil
}

// UnmarshalJSON accepts a decimal-seconds JSON number (or the same as
// a string) and restores full nanosecond precision.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return fmt.Errorf("types: timestamp cannot be null")
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return fmt.Errorf("types: parse timestamp %q: %w", s, err)
	}

	var nsec int64
	if fracPart != "" {
		// Right-pad to nanosecond resolution; truncate anything finer.
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nsec, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return fmt.Errorf("types: parse timestamp fraction %q: %w", s, err)
		}
	}

	ts.Time = time.Unix(sec, nsec)
	return nil
}

// Entry is one encrypted, timestamped, leveled log message in the
// shape accepted by the ingestion endpoint. Entries are immutable
// after construction: they are owned by the queue slot holding them,
// then briefly by the delivering worker, then discarded.
type Entry struct {
	// Node identifies the origin of the message (host, service, ...).
	Node string `json:"node"`

	// Payload is the base64-encoded AEAD ciphertext of the message.
	Payload string `json:"payload"`

	// Level is the severity ordinal, 0-4.
	Level Level `json:"loglevel"`

	// Timestamp is the message instant, sub-second precision.
	Timestamp Timestamp `json:"timestamp"`

	// EncryptionMode tags the scheme the payload was sealed with.
	EncryptionMode int `json:"encryption_mode"`

	// IV and Salt are the base64-encoded per-message nonce and KDF salt.
	IV   string `json:"iv"`
	Salt string `json:"salt"`
}

// NewEntry builds a validated Entry.
func NewEntry(node, payload string, level Level, at time.Time, mode int, iv, salt string) (*Entry, error) {
	e := &Entry{
		Node:           node,
		Payload:        payload,
		Level:          level,
		Timestamp:      NewTimestamp(at),
		EncryptionMode: mode,
		IV:             iv,
		Salt:           salt,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the invariants the ingestion endpoint enforces.
func (e *Entry) Validate() error {
	if e.Node == "" {
		return fmt.Errorf("types: entry node cannot be empty")
	}
	if len(e.Node) > MaxNodeLength {
		return fmt.Errorf("types: entry node exceeds %d characters", MaxNodeLength)
	}
	if e.Payload == "" {
		return fmt.Errorf("types: entry payload cannot be empty")
	}
	if !e.Level.Valid() {
		return fmt.Errorf("types: entry level %d out of range 0-4", int(e.Level))
	}
	if e.EncryptionMode < 1 || e.EncryptionMode > 4 {
		return fmt.Errorf("types: entry encryption mode %d out of range 1-4", e.EncryptionMode)
	}
	return nil
}

// Ack is the ingestion endpoint's acknowledgement for one entry.
type Ack struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status,omitempty"`
	ID        int64     `json:"id,omitempty"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Stats is a point-in-time snapshot of pipeline health. The counters
// are monotonic over the pipeline's lifetime; QueueSize is the only
// field that can decrease between snapshots.
type Stats struct {
	TotalSent     uint64 `json:"total_sent"`
	TotalFailed   uint64 `json:"total_failed"`
	TotalDropped  uint64 `json:"total_dropped"`
	QueueSize     int    `json:"queue_size"`
	QueueCapacity int    `json:"queue_capacity"`
}

// InFlightOrDone is the number of entries accounted for by terminal
// counters plus those still queued. Useful in shutdown assertions.
func (s Stats) InFlightOrDone() uint64 {
	return s.TotalSent + s.TotalFailed + s.TotalDropped + uint64(s.QueueSize)
}

var _ json.Marshaler = Timestamp{}
var _ json.Unmarshaler = (*Timestamp)(nil)

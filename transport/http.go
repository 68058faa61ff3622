package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"

	"github.com/logflux/logflux-go/pkg/types"
)

const (
	ingestPath  = "/v1/ingest"
	healthPath  = "/health"
	versionPath = "/version"

	// maxResponseBytes bounds how much of a response body is read when
	// extracting an error message.
	maxResponseBytes = 64 << 10
)

// Options configures an HTTPSender.
type Options struct {
	// ServerURL is the base URL of the ingestion service, e.g.
	// "https://ingest.example.com".
	ServerURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// Timeout bounds each HTTP request end to end.
	Timeout time.Duration

	// Compress gzips request bodies when true.
	Compress bool

	// RateLimit caps deliveries per second across all workers;
	// 0 disables the limiter. Burst defaults to 1 when RateLimit is
	// set and Burst is 0.
	RateLimit float64
	Burst     int
}

// HTTPSender delivers entries to the ingestion endpoint over HTTP.
// Safe for concurrent use by all workers; the underlying http.Client
// pools connections.
type HTTPSender struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter

	gzPool sync.Pool // *gzip.Writer

	parsers fastjson.ParserPool
}

// NewHTTPSender creates a sender for the given options.
func NewHTTPSender(opts Options) *HTTPSender {
	opts.ServerURL = strings.TrimRight(opts.ServerURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &HTTPSender{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	s.gzPool.New = func() any { return gzip.NewWriter(io.Discard) }
	return s
}

// Send delivers one entry to POST /v1/ingest.
func (s *HTTPSender) Send(ctx context.Context, e *types.Entry) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindTimeout, Message: "rate limiter wait cancelled", Err: err}
		}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return &Error{Kind: KindInvalid, Message: "marshal entry", Err: err}
	}

	body, encoding, err := s.encodeBody(payload)
	if err != nil {
		return &Error{Kind: KindInvalid, Message: "compress entry", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.ServerURL+ingestPath, body)
	if err != nil {
		return &Error{Kind: KindInvalid, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if ok, msg := s.ackAccepted(raw); !ok {
			return &Error{Kind: KindInvalid, Status: resp.StatusCode, Message: msg}
		}
		return nil
	}

	return &Error{
		Kind:    StatusKind(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: s.errorMessage(raw, resp.StatusCode),
	}
}

// Health probes GET /health and returns the endpoint's status line.
func (s *HTTPSender) Health(ctx context.Context) (string, error) {
	raw, err := s.get(ctx, healthPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Version fetches GET /version as a loosely-typed map.
func (s *HTTPSender) Version(ctx context.Context) (map[string]any, error) {
	raw, err := s.get(ctx, versionPath)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Kind: KindInvalid, Message: "parse version response", Err: err}
	}
	return out, nil
}

// Close releases pooled connections. Idempotent.
func (s *HTTPSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPSender) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.ServerURL+path, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:    StatusKind(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: s.errorMessage(raw, resp.StatusCode),
		}
	}
	return raw, nil
}

// encodeBody returns the request body and its Content-Encoding.
func (s *HTTPSender) encodeBody(payload []byte) (io.Reader, string, error) {
	if !s.opts.Compress {
		return bytes.NewReader(payload), "", nil
	}
	var buf bytes.Buffer
	zw := s.gzPool.Get().(*gzip.Writer)
	defer s.gzPool.Put(zw)
	zw.Reset(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, "gzip", nil
}

// ackAccepted inspects a 2xx ingest response. An explicit
// {"success": false} counts as a rejection even under a 2xx status.
func (s *HTTPSender) ackAccepted(raw []byte) (bool, string) {
	if len(raw) == 0 {
		return true, ""
	}
	p := s.parsers.Get()
	defer s.parsers.Put(p)
	v, err := p.ParseBytes(raw)
	if err != nil {
		// Unparseable ack bodies are tolerated; the status code already
		// said yes.
		return true, ""
	}
	if sv := v.Get("success"); sv != nil && sv.Type() == fastjson.TypeFalse {
		return false, string(v.GetStringBytes("message"))
	}
	return true, ""
}

// errorMessage extracts a human-readable message from an error
// response body, falling back to the raw body or the status text.
func (s *HTTPSender) errorMessage(raw []byte, status int) string {
	if len(raw) > 0 {
		p := s.parsers.Get()
		defer s.parsers.Put(p)
		if v, err := p.ParseBytes(raw); err == nil {
			if msg := v.GetStringBytes("message"); len(msg) > 0 {
				return string(msg)
			}
			if msg := v.GetStringBytes("error"); len(msg) > 0 {
				return string(msg)
			}
		}
		return strings.TrimSpace(string(raw))
	}
	return http.StatusText(status)
}

// classifyTransportErr maps an http.Client error into a structured
// *Error: deadline/cancellation becomes KindTimeout, everything else
// (refused connections, resets, DNS failures) KindNetwork.
func classifyTransportErr(err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
	case errors.As(err, &nerr) && nerr.Timeout():
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
}

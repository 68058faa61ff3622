package logflux

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/logflux/logflux-go/pkg/types"
)

// Handler adapts a Pipeline to log/slog, so an application's existing
// structured logging flows into the encrypted delivery pipeline.
// Attributes are folded into the message text as key=value pairs;
// the record's own timestamp is preserved.
//
//	slog.SetDefault(slog.New(logflux.NewHandler(p, slog.LevelInfo)))
type Handler struct {
	p        *Pipeline
	minLevel slog.Level
	attrs    []slog.Attr
	groups   []string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a slog.Handler forwarding records at or above
// minLevel into p.
func NewHandler(p *Pipeline, minLevel slog.Level) *Handler {
	return &Handler{p: p, minLevel: minLevel}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

// Handle implements slog.Handler. Submission errors are returned to
// slog, which reports them through its own machinery; in failsafe mode
// they never occur.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&sb, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.qualify(a.Key)
		appendAttr(&sb, a)
		return true
	})

	at := r.Time
	if at.IsZero() {
		// slog allows zero times for records built by hand.
		return h.p.Submit(sb.String(), mapLevel(r.Level))
	}
	return h.p.SubmitAt(sb.String(), mapLevel(r.Level), at)
}

// WithAttrs implements slog.Handler. Keys are qualified with the
// groups open at the time the attribute is added, so attributes from
// before a WithGroup keep their bare names.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}

// qualify prefixes key with the open group names, dot-separated.
func (h *Handler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

// appendAttr writes one already-qualified attribute as " key=value".
func appendAttr(sb *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	fmt.Fprintf(sb, "%v", a.Value.Any())
}

// mapLevel converts an slog level to the wire severity. slog has no
// FATAL; levels above ERROR map onto it.
func mapLevel(l slog.Level) types.Level {
	switch {
	case l < slog.LevelInfo:
		return types.LevelDebug
	case l < slog.LevelWarn:
		return types.LevelInfo
	case l < slog.LevelError:
		return types.LevelWarn
	case l < slog.LevelError+4:
		return types.LevelError
	default:
		return types.LevelFatal
	}
}

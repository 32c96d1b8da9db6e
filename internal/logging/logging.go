package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Key constants for structured log fields.
const (
	KeyComponent  = "component"
	KeySession    = "session"
	KeyTarget     = "target"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
)

type contextKey struct{}

// built pairs a handler with the root generation it was derived from.
type built struct {
	gen     uint64
	handler slog.Handler
}

// root is the process-wide handler slot. Every Init publishes a new
// generation so derived handlers know their cached chain is stale.
type root struct {
	mu  sync.Mutex
	cur atomic.Pointer[built]
}

func (r *root) load() *built {
	return r.cur.Load()
}

func (r *root) store(h slog.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var gen uint64
	if prev := r.cur.Load(); prev != nil {
		gen = prev.gen + 1
	}
	r.cur.Store(&built{gen: gen, handler: h})
}

// chainOp is one With or WithGroup call, replayed in order onto the root.
type chainOp struct {
	group string
	attrs []slog.Attr
}

// switchableHandler lets package-level loggers created before Init pick up
// the configured handler. The With/Group chain is replayed onto the root
// once per Init and cached, so the frame path does not rebuild it per call.
type switchableHandler struct {
	root  *root
	chain []chainOp
	cache atomic.Pointer[built]
}

func newSwitchableHandler(h slog.Handler) *switchableHandler {
	r := &root{}
	r.store(h)
	return &switchableHandler{root: r}
}

func (h *switchableHandler) set(handler slog.Handler) {
	h.root.store(handler)
}

func (h *switchableHandler) resolve() slog.Handler {
	base := h.root.load()
	if c := h.cache.Load(); c != nil && c.gen == base.gen {
		return c.handler
	}
	handler := base.handler
	for _, op := range h.chain {
		if op.group != "" {
			handler = handler.WithGroup(op.group)
		} else {
			handler = handler.WithAttrs(op.attrs)
		}
	}
	h.cache.Store(&built{gen: base.gen, handler: handler})
	return handler
}

// Enabled only depends on the level, which the chain cannot change.
func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.root.load().handler.Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.resolve().Handle(ctx, record)
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.extend(chainOp{attrs: slices.Clone(attrs)})
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.extend(chainOp{group: name})
}

func (h *switchableHandler) extend(op chainOp) *switchableHandler {
	return &switchableHandler{root: h.root, chain: append(slices.Clip(h.chain), op)}
}

var (
	rootHandler   = newSwitchableHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	defaultLogger = slog.New(rootHandler)
)

func init() {
	slog.SetDefault(defaultLogger)
}

// Init installs the process-wide handler. Call once after config is loaded.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// output: writer to log to (nil = os.Stderr)
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	rootHandler.set(handler)
	slog.SetDefault(defaultLogger)
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return defaultLogger.With(slog.String(KeyComponent, component))
}

// WithSession returns a child logger carrying a capture session id.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(slog.String(KeySession, sessionID))
}

// NewContext returns a new context carrying the given logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from context, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// ParseLevel maps a level name onto slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

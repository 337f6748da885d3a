package window

import (
	"context"

	"pkt.systems/pslog"
)

// Reader routes window reads to the matching strategy. Each Reader owns the
// marker registry for its terminal; markers are never shared between
// terminals.
type Reader struct {
	source          Source
	markers         *Registry
	defaultMaxLines int
	log             pslog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	defaultMaxLines  int
	cleanupThreshold int
	log              pslog.Logger
}

// WithDefaultMaxLines sets the Tail budget used when a read does not give
// one.
func WithDefaultMaxLines(n int) ReaderOption {
	return func(c *readerConfig) {
		if n > 0 {
			c.defaultMaxLines = n
		}
	}
}

// WithReaderCleanupThreshold sets the cleanup threshold of the owned
// registry.
func WithReaderCleanupThreshold(n int) ReaderOption {
	return func(c *readerConfig) {
		c.cleanupThreshold = n
	}
}

// WithLogger sets the logger for the reader and its registry.
func WithLogger(log pslog.Logger) ReaderOption {
	return func(c *readerConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewReader creates a reader over source with its own marker registry.
func NewReader(source Source, opts ...ReaderOption) *Reader {
	cfg := readerConfig{defaultMaxLines: DefaultMaxLines}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = pslog.Ctx(context.Background())
	}

	return &Reader{
		source: source,
		markers: NewRegistry(
			WithCleanupThreshold(cfg.cleanupThreshold),
			WithRegistryLogger(cfg.log),
		),
		defaultMaxLines: cfg.defaultMaxLines,
		log:             cfg.log,
	}
}

// Markers returns the registry owned by the reader.
func (r *Reader) Markers() *Registry {
	return r.markers
}

// Read performs a read in the given mode. Unknown modes read Tail. When the
// terminal shows its alternate buffer every mode reads Tail.
func (r *Reader) Read(mode Mode, opts ...Option) Snapshot {
	o := buildOptions(r.defaultMaxLines, opts)

	var snap Snapshot
	r.source.View(func(term Terminal) {
		if term.ActiveBuffer().Type() == BufferAlternate {
			snap = readTail(term, o)
			return
		}
		switch mode {
		case ModeViewport:
			snap = readViewport(term, o)
		case ModeDelta:
			snap = readDelta(term, r.markers, o)
		default:
			snap = readTail(term, o)
		}
	})

	r.log.Debug("window read",
		"mode", mode.String(),
		"buffer", string(snap.BufferType),
		"lines", len(snap.Lines),
		"marker", markerField(snap.MarkerID),
	)
	return snap
}

// Tail reads the last lines ending at the cursor.
func (r *Reader) Tail(opts ...Option) Snapshot {
	return r.Read(ModeTail, opts...)
}

// Viewport reads the visible rows.
func (r *Reader) Viewport(opts ...Option) Snapshot {
	return r.Read(ModeViewport, opts...)
}

// Delta reads the lines written since a marker.
func (r *Reader) Delta(opts ...Option) Snapshot {
	return r.Read(ModeDelta, opts...)
}

func markerField(id *int) any {
	if id == nil {
		return nil
	}
	return *id
}

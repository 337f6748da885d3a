package window

// Mode selects a read strategy.
type Mode string

const (
	// ModeTail reads the last lines ending at the cursor.
	ModeTail Mode = "tail"

	// ModeViewport reads the visible rows.
	ModeViewport Mode = "viewport"

	// ModeDelta reads the lines written since a marker.
	ModeDelta Mode = "delta"
)

// DefaultMaxLines is the Tail line budget when none is given.
const DefaultMaxLines = 40

// ParseMode parses a mode name. It returns false for unknown names.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeTail, ModeViewport, ModeDelta:
		return Mode(s), true
	default:
		return ModeTail, false
	}
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// readOptions holds the per-read settings after defaults are applied.
type readOptions struct {
	maxLines     int
	mergeWrapped bool
	markerID     int
	hasMarker    bool
}

// Option configures a single read.
type Option func(*readOptions)

// WithMaxLines sets the Tail line budget. Non-positive values keep the
// default.
func WithMaxLines(n int) Option {
	return func(o *readOptions) {
		if n > 0 {
			o.maxLines = n
		}
	}
}

// WithMergeWrapped controls whether wrapped rows are merged into logical
// lines. Merging is on by default.
func WithMergeWrapped(merge bool) Option {
	return func(o *readOptions) {
		o.mergeWrapped = merge
	}
}

// WithMarker supplies the marker id returned by a previous Delta read.
func WithMarker(id int) Option {
	return func(o *readOptions) {
		o.markerID = id
		o.hasMarker = true
	}
}

// WithMarkerID is WithMarker for an optional id; nil means no marker.
func WithMarkerID(id *int) Option {
	return func(o *readOptions) {
		if id == nil {
			o.hasMarker = false
			return
		}
		o.markerID = *id
		o.hasMarker = true
	}
}

func buildOptions(defaultMaxLines int, opts []Option) readOptions {
	o := readOptions{
		maxLines:     defaultMaxLines,
		mergeWrapped: true,
	}
	if o.maxLines <= 0 {
		o.maxLines = DefaultMaxLines
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

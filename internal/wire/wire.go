// Package wire encodes window snapshots for output streams.
//
// JSON output holds one object per line. CBOR output is a sequence of
// Core Deterministic Encoding items (RFC 8949 §4.2), so equal snapshots
// always produce identical bytes.
package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/termwindow/internal/window"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat indicates an unsupported encoding name.
var ErrUnknownFormat = errors.New("unknown format")

// Encoder writes snapshots to a stream.
type Encoder interface {
	Encode(snap window.Snapshot) error
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
}

// NewEncoder returns an encoder for format writing to w.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch Format(format) {
	case FormatJSON:
		return jsonEncoder{enc: jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)}, nil
	case FormatCBOR:
		return cborEncoder{enc: encMode.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type jsonEncoder struct {
	enc *jsoniter.Encoder
}

func (e jsonEncoder) Encode(snap window.Snapshot) error {
	if err := e.enc.Encode(snap); err != nil {
		return fmt.Errorf("encode json snapshot: %w", err)
	}
	return nil
}

type cborEncoder struct {
	enc *cbor.Encoder
}

func (e cborEncoder) Encode(snap window.Snapshot) error {
	if err := e.enc.Encode(snap); err != nil {
		return fmt.Errorf("encode cbor snapshot: %w", err)
	}
	return nil
}

package decoder

import (
	"context"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

// HeaderDecoder turns a PUSH_PROMISE frame's HPACK header block fragment
// into decoded name/value pairs. HEADERS frames do not go through it: they
// arrive already decoded as *http2.MetaHeadersFrame. The HPACK table
// itself lives behind this interface and is configured, not implemented,
// by this package.
type HeaderDecoder interface {
	Decode(block []byte) ([]listener.HeaderField, error)
}

// handleHeaders implements spec.md section 4.2's HEADERS handler. f
// arrives as a *http2.MetaHeadersFrame: the bound frame reader configures
// http2.Framer.ReadMetaHeaders with an HPACK decoder, so CONTINUATION
// reassembly and header decoding both happen before dispatch ever sees
// the frame, matching this module's "HPACK table configured, not
// implemented here" boundary. The short-form HEADERS (no PRIORITY
// fields) is handled by frames whose HasPriority() is false, which
// delegates to connstate.DefaultPriority exactly as the long form would
// with dependency=0, weight=16, exclusive=false.
func (d *Decoder) handleHeaders(ctx context.Context, f *http2.MetaHeadersFrame) error {
	if err := d.checkFrameSize(f.StreamID, int(f.Header().Length)); err != nil {
		return err
	}
	if f.Truncated {
		return herr.NewConnection(herr.CompressionError, "header list for stream %d exceeded max header list size", f.StreamID)
	}

	stream := d.stream(f.StreamID)

	if err := d.verifyGoAwayNotReceived(); err != nil {
		return err
	}
	if d.shouldIgnore(stream, false) {
		return nil
	}

	endOfStream := f.StreamEnded()

	if stream == nil {
		created, err := d.conn.Remote().CreateStream(f.StreamID)
		if err != nil {
			return herr.NewConnection(herr.ProtocolError, "cannot create stream %d: %v", f.StreamID, err)
		}
		created.Open(endOfStream)
		stream = created
	} else {
		switch stream.State() {
		case connstate.ReservedRemote, connstate.Idle:
			stream.Open(endOfStream)
		case connstate.Open, connstate.HalfClosedLocal:
			// trailers; no state change.
		case connstate.HalfClosedRemote, connstate.Closed:
			return herr.NewStream(stream.ID(), herr.StreamClosed, "HEADERS on stream in state %s", stream.State())
		default:
			return herr.NewConnection(herr.ProtocolError, "HEADERS on stream in state %s", stream.State())
		}
	}

	fields := make([]listener.HeaderField, 0, len(f.Fields))
	for _, hf := range f.Fields {
		fields = append(fields, listener.HeaderField{Name: hf.Name, Value: hf.Value})
	}

	priority := connstate.DefaultPriority
	if f.HasPriority() {
		priority = connstate.Priority{
			Dependency: f.Priority.StreamDep,
			Weight:     f.Priority.Weight,
			Exclusive:  f.Priority.Exclusive,
		}
	}

	if err := d.lst.OnHeadersRead(stream, fields, priority, endOfStream); err != nil {
		return err
	}

	stream.SetPriority(priority)

	if endOfStream {
		d.lifecycle.CloseRemoteSide(stream)
	}
	return nil
}

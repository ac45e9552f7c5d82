package decoder

import (
	"context"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
)

// handleData implements spec.md section 4.2's DATA handler, including the
// nested-control-flow finalizer that must run on every exit path: the
// receiveFlowControlledFrame call always runs first; consumeBytes and
// closeRemoteSide run last, regardless of whether a state-validity error
// or a listener panic intervenes.
func (d *Decoder) handleData(ctx context.Context, f *http2.DataFrame) error {
	if err := d.checkFrameSize(f.StreamID, int(f.Header().Length)); err != nil {
		return err
	}
	stream, err := d.requireStream(f.StreamID)
	if err != nil {
		return err
	}
	if err := d.verifyGoAwayNotReceived(); err != nil {
		return err
	}

	ignore := d.shouldIgnore(stream, false)
	stateErr := dataStateError(stream, ignore)

	payload := f.Data()
	padding := int(f.Header().Length) - len(payload)
	endOfStream := f.StreamEnded()

	// Mandatory: runs even for ignored or invalid frames so the window
	// never drifts out of sync with what actually crossed the wire.
	if err := d.flow.ReceiveFlowControlledFrame(stream, len(payload), padding, endOfStream); err != nil {
		return err
	}

	unconsumed0 := d.flow.UnconsumedBytes(stream)
	bytesToReturn := len(payload) + padding

	finalize := func() {
		if bytesToReturn > 0 {
			_ = d.flow.ConsumeBytes(stream, bytesToReturn)
		}
		if endOfStream {
			d.lifecycle.CloseRemoteSide(stream)
		}
	}

	if ignore {
		finalize()
		return nil
	}
	if stateErr != nil {
		finalize()
		return stateErr
	}

	processed, listenerErr := d.invokeOnDataRead(stream, payload, padding, endOfStream)
	if listenerErr != nil {
		// Failure adjustment: subtract however much the listener's
		// failed attempt marked unconsumed before it raised, so we
		// don't double-return bytes the listener is still holding.
		delta := unconsumed0 - d.flow.UnconsumedBytes(stream)
		bytesToReturn -= delta
		finalize()
		if p, ok := listenerErr.(*panicAsError); ok {
			panic(p.v)
		}
		return listenerErr
	}

	bytesToReturn = processed
	finalize()
	return nil
}

// invokeOnDataRead isolates the application callback so a panic inside it
// is recovered exactly on this path, per spec.md section 7's "non-error
// listener exceptions are caught only in the DATA path" rule, then
// re-raised unchanged after the caller's finalizer has already run.
func (d *Decoder) invokeOnDataRead(stream *connstate.Stream, payload []byte, padding int, endOfStream bool) (processed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicAsError{v: r}
		}
	}()
	return d.lst.OnDataRead(stream, payload, padding, endOfStream)
}

type panicAsError struct{ v any }

func (p *panicAsError) Error() string { return "panic in listener: " + formatPanic(p.v) }

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// dataStateError implements the state-validity table from spec.md
// section 4.2's DATA handler.
func dataStateError(stream *connstate.Stream, ignore bool) error {
	switch stream.State() {
	case connstate.Open, connstate.HalfClosedLocal:
		return nil
	case connstate.HalfClosedRemote:
		return herr.NewStream(stream.ID(), herr.StreamClosed, "DATA after remote half-close")
	case connstate.Closed:
		if ignore {
			return nil
		}
		return herr.NewStream(stream.ID(), herr.StreamClosed, "DATA on closed stream")
	default:
		if ignore {
			return nil
		}
		return herr.NewStream(stream.ID(), herr.ProtocolError, "DATA on stream in state %s", stream.State())
	}
}

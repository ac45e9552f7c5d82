// Package flowcontrol implements the inbound flow-control accounting
// contract the dispatch core's DATA handler relies on: every byte that
// crosses the wire is either returned to the window immediately or
// tracked as "unconsumed" until the application reports it processed.
package flowcontrol

import (
	"sync"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
)

// WindowWriter is the narrow slice of the outbound frame writer the flow
// controller needs to emit WINDOW_UPDATE frames as windows are replenished.
type WindowWriter interface {
	WriteWindowUpdate(streamID uint32, increment uint32) error
}

// Controller is the inbound flow controller collaborator interface from
// spec.md section 4.3. The dispatch core's DATA handler is the only
// caller of ReceiveFlowControlledFrame, UnconsumedBytes, and ConsumeBytes;
// the SETTINGS path calls InitialWindowSize.
type Controller interface {
	ReceiveFlowControlledFrame(stream *connstate.Stream, dataLen int, padding int, endOfStream bool) error
	UnconsumedBytes(stream *connstate.Stream) int
	ConsumeBytes(stream *connstate.Stream, n int) error
	InitialWindowSize(n int32)
}

type streamWindow struct {
	window     int32
	unconsumed int
}

// Default is the flow controller wired by the decoder builder when no
// other implementation is supplied. It tracks one connection-level window
// and one window per stream, replenishing both via WindowWriter as bytes
// are consumed.
type Default struct {
	mu sync.Mutex

	writer WindowWriter

	connWindow     int32
	initialWindow  int32
	perStream      map[uint32]*streamWindow
}

// NewDefault builds a Default flow controller bound to writer, which it
// uses to emit WINDOW_UPDATE frames as bytes are returned to the window.
func NewDefault(writer WindowWriter) *Default {
	return &Default{
		writer:        writer,
		connWindow:    65535,
		initialWindow: 65535,
		perStream:     make(map[uint32]*streamWindow),
	}
}

func (d *Default) windowFor(stream *connstate.Stream) *streamWindow {
	w, ok := d.perStream[stream.ID()]
	if !ok {
		w = &streamWindow{window: d.initialWindow}
		d.perStream[stream.ID()] = w
	}
	return w
}

// ReceiveFlowControlledFrame is the sole point where the connection- and
// stream-level windows decrease. It must run for every DATA frame
// regardless of whether the frame will ultimately be ignored or found
// invalid, so the window never drifts out of sync with the wire.
func (d *Default) ReceiveFlowControlledFrame(stream *connstate.Stream, dataLen int, padding int, endOfStream bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := dataLen + padding
	d.connWindow -= int32(total)
	sw := d.windowFor(stream)
	sw.window -= int32(total)
	sw.unconsumed += total

	if d.connWindow < 0 {
		return herr.NewConnection(herr.FlowControlError, "connection flow control window exceeded")
	}
	if sw.window < 0 {
		return herr.NewStream(stream.ID(), herr.FlowControlError, "stream flow control window exceeded")
	}
	return nil
}

// UnconsumedBytes returns the bytes received on stream that the
// application has not yet reported as processed.
func (d *Default) UnconsumedBytes(stream *connstate.Stream) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	sw, ok := d.perStream[stream.ID()]
	if !ok {
		return 0
	}
	return sw.unconsumed
}

// ConsumeBytes returns n bytes to the stream and connection windows and
// emits one WINDOW_UPDATE for the stream and one for the connection,
// returning the full amount immediately. n is clamped to the stream's
// current unconsumed count.
func (d *Default) ConsumeBytes(stream *connstate.Stream, n int) error {
	if n <= 0 {
		return nil
	}
	d.mu.Lock()
	sw := d.windowFor(stream)
	if n > sw.unconsumed {
		n = sw.unconsumed
	}
	sw.unconsumed -= n
	sw.window += int32(n)
	d.connWindow += int32(n)
	d.mu.Unlock()

	if d.writer == nil {
		return nil
	}
	if err := d.writer.WriteWindowUpdate(stream.ID(), uint32(n)); err != nil {
		return err
	}
	return d.writer.WriteWindowUpdate(0, uint32(n))
}

// InitialWindowSize changes the initial window for new streams and
// retroactively adjusts existing streams by the delta, per RFC 7540
// section 6.9.2.
func (d *Default) InitialWindowSize(n int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delta := n - d.initialWindow
	d.initialWindow = n
	for _, sw := range d.perStream {
		sw.window += delta
	}
}

package decoder

import (
	"context"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
)

// handlePriority implements spec.md section 4.2's PRIORITY handler.
// PRIORITY is informational but may implicitly create streams — both the
// target and, via the dependency, its parent — in IDLE.
func (d *Decoder) handlePriority(ctx context.Context, f *http2.PriorityFrame) error {
	stream := d.stream(f.StreamID)

	if err := d.verifyGoAwayNotReceived(); err != nil {
		return err
	}
	// The reset-sent gate is relaxed here: PRIORITY is still meaningful
	// for streams we have RST_STREAM'd locally.
	if d.shouldIgnore(stream, true) {
		return nil
	}

	// CreateStream refuses ids at or below the highest id already created,
	// so a lower-numbered parent is created before the target.
	if f.StreamDep != 0 && f.StreamDep < f.StreamID && d.stream(f.StreamDep) == nil {
		if _, err := d.conn.Remote().CreateStream(f.StreamDep); err != nil && !herr.IsClosedStreamCreation(err) {
			return herr.NewConnection(herr.ProtocolError, "cannot create parent stream %d: %v", f.StreamDep, err)
		}
	}

	if stream == nil {
		created, err := d.conn.Remote().CreateStream(f.StreamID)
		if herr.IsClosedStreamCreation(err) {
			return nil
		}
		if err != nil {
			return herr.NewConnection(herr.ProtocolError, "cannot create stream %d: %v", f.StreamID, err)
		}
		stream = created
	}

	priority := connstate.Priority{
		Dependency: f.StreamDep,
		Weight:     f.Weight,
		Exclusive:  f.Exclusive,
	}

	if priority.Dependency != 0 && d.stream(priority.Dependency) == nil {
		_, err := d.conn.Remote().CreateStream(priority.Dependency)
		if err != nil && !herr.IsClosedStreamCreation(err) {
			return herr.NewConnection(herr.ProtocolError, "cannot create parent stream %d: %v", priority.Dependency, err)
		}
		// ErrClosedStreamCreation on the parent is swallowed too: a
		// PRIORITY naming an already-closed parent is still benign.
	}

	stream.SetPriority(priority)

	return d.lst.OnPriorityRead(stream, priority)
}

// handleRSTStream implements spec.md section 4.2's RST_STREAM handler.
func (d *Decoder) handleRSTStream(ctx context.Context, f *http2.RSTStreamFrame) error {
	stream, err := d.requireStream(f.StreamID)
	if err != nil {
		return err
	}
	if stream.State() == connstate.Closed {
		return nil
	}
	stream.SetResetReceived()
	if err := d.lst.OnRstStreamRead(stream, f.ErrCode); err != nil {
		return err
	}
	d.lifecycle.CloseStream(stream)
	return nil
}

// handlePing implements spec.md section 4.2's PING handler. The opaque
// data is retained in the frame itself (http2.PingFrame.Data is a value
// array, not a borrowed slice), so there is nothing further to copy
// before scheduling the deferred ack write.
func (d *Decoder) handlePing(ctx context.Context, f *http2.PingFrame) error {
	if f.IsAck() {
		return d.lst.OnPingAckRead(f.Data)
	}
	if err := d.enc.WritePing(true, f.Data); err != nil {
		return err
	}
	if err := d.enc.FrameWriter().Flush(); err != nil {
		return err
	}
	return d.lst.OnPingRead(f.Data)
}

// handleGoAway implements spec.md section 4.2's GOAWAY handler. It always
// runs and never re-checks the goaway-received latch before overwriting
// it: repeat GOAWAYs are tolerated, per this module's open-question
// decision recorded in DESIGN.md.
func (d *Decoder) handleGoAway(ctx context.Context, f http2.Frame) error {
	gf := f.(*http2.GoAwayFrame)
	d.conn.ReceiveGoAway(gf.LastStreamID)
	return d.lst.OnGoAwayRead(gf.LastStreamID, gf.ErrCode, gf.DebugData())
}

// handleWindowUpdate implements spec.md section 4.2's WINDOW_UPDATE
// handler. Overflow and zero-increment policy belong to the outbound flow
// controller, reached through the encoder.
func (d *Decoder) handleWindowUpdate(ctx context.Context, f *http2.WindowUpdateFrame) error {
	stream, err := d.requireStream(f.StreamID)
	if err != nil {
		return err
	}
	if err := d.verifyGoAwayNotReceived(); err != nil {
		return err
	}
	if stream.State() == connstate.Closed || d.shouldIgnore(stream, false) {
		return nil
	}
	if err := d.enc.FlowController().AddWindowIncrement(f.StreamID, f.Increment); err != nil {
		return err
	}
	return d.lst.OnWindowUpdateRead(stream, f.Increment)
}

// handleUnknown implements spec.md section 4.2's UNKNOWN handler: always
// delivered, never an error.
func (d *Decoder) handleUnknown(ctx context.Context, f http2.Frame) error {
	h := f.Header()
	var raw []byte
	if uf, ok := f.(*http2.UnknownFrame); ok {
		raw = uf.Payload()
	}
	return d.lst.OnUnknownFrame(uint8(h.Type), h.StreamID, uint8(h.Flags), raw)
}

// handlePushPromise implements spec.md section 4.2's PUSH_PROMISE
// handler.
func (d *Decoder) handlePushPromise(ctx context.Context, f *http2.PushPromiseFrame) error {
	parent, err := d.requireStream(f.StreamID)
	if err != nil {
		return err
	}
	if err := d.verifyGoAwayNotReceived(); err != nil {
		return err
	}
	if d.shouldIgnore(parent, false) {
		return nil
	}
	switch parent.State() {
	case connstate.Open, connstate.HalfClosedLocal:
	default:
		return herr.NewConnection(herr.ProtocolError, "PUSH_PROMISE on parent stream in state %s", parent.State())
	}

	fields, err := d.headerDecoder.Decode(f.HeaderBlockFragment())
	if err != nil {
		return herr.NewConnection(herr.CompressionError, "header block decode failed: %v", err)
	}

	if !d.verifier.IsAuthoritative(fields) {
		return herr.NewStream(f.PromiseID, herr.ProtocolError, "promised request is not authoritative")
	}
	if !d.verifier.IsCacheable(fields) {
		return herr.NewStream(f.PromiseID, herr.ProtocolError, "promised request is not cacheable")
	}
	if !d.verifier.IsSafe(fields) {
		return herr.NewStream(f.PromiseID, herr.ProtocolError, "promised request is not safe")
	}

	promised, err := d.conn.Remote().ReservePushStream(f.PromiseID, parent)
	if err != nil {
		return herr.NewConnection(herr.ProtocolError, "cannot reserve promised stream %d: %v", f.PromiseID, err)
	}

	return d.lst.OnPushPromiseRead(parent, promised, fields)
}

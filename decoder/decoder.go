// Package decoder implements the inbound HTTP/2 connection decoder core:
// the preface gate, per-frame validation and dispatch, stream-state
// transitions, inbound flow-control accounting, SETTINGS coordination,
// and push-promise verification described by this module's design
// documents. It is the direct generalization of Netty's
// DefaultHttp2ConnectionDecoder into idiomatic Go.
package decoder

import (
	"context"
	"fmt"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/encoder"
	"github.com/i4oolish/h2decode/flowcontrol"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/lifecycle"
	"github.com/i4oolish/h2decode/listener"
	"github.com/i4oolish/h2decode/pushverify"
)

// FrameSource is the frame reader collaborator from spec.md section 6,
// narrowed to the one method the dispatch core drives. A concrete
// implementation lives in this module's frame package, wrapping
// golang.org/x/net/http2.Framer.
type FrameSource interface {
	ReadFrame() (http2.Frame, error)
}

// Decoder is the connection decoder core. One instance serves exactly one
// connection and is driven frame-by-frame, synchronously, by a single
// goroutine; see the module's concurrency notes for why it carries no
// internal locking of its own.
type Decoder struct {
	conn      *connstate.Connection
	lifecycle lifecycle.Manager
	enc       encoder.Encoder
	lst       listener.FrameListener
	verifier  pushverify.Verifier
	flow      flowcontrol.Controller
	headerDecoder HeaderDecoder

	mode DispatchMode

	localPushEnable bool // true only while local endpoint may legally advertise PUSH_ENABLE
}

// Builder assembles a Decoder from its required collaborators, mirroring
// the source's Builder but expressed as a plain Go struct with chained
// setters rather than an abstract builder hierarchy.
type Builder struct {
	conn      *connstate.Connection
	lifecycle lifecycle.Manager
	enc       encoder.Encoder
	lst       listener.FrameListener
	verifier  pushverify.Verifier
	flow      flowcontrol.Controller
	headerDecoder HeaderDecoder
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Connection(c *connstate.Connection) *Builder { b.conn = c; return b }
func (b *Builder) Lifecycle(l lifecycle.Manager) *Builder      { b.lifecycle = l; return b }
func (b *Builder) Encoder(e encoder.Encoder) *Builder          { b.enc = e; return b }
func (b *Builder) Listener(l listener.FrameListener) *Builder  { b.lst = l; return b }
func (b *Builder) RequestVerifier(v pushverify.Verifier) *Builder { b.verifier = v; return b }
func (b *Builder) FlowController(f flowcontrol.Controller) *Builder { b.flow = f; return b }
func (b *Builder) HeaderDecoder(hd HeaderDecoder) *Builder { b.headerDecoder = hd; return b }

// Build validates that the required collaborators are present and
// applies spec.md's defaults for the optional ones: accept-all push
// verification, and a default inbound flow controller bound to the
// encoder's frame writer if none was supplied.
func (b *Builder) Build() (*Decoder, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("decoder: connection is required")
	}
	if b.lifecycle == nil {
		return nil, fmt.Errorf("decoder: lifecycle manager is required")
	}
	if b.enc == nil {
		return nil, fmt.Errorf("decoder: encoder is required")
	}
	if b.lst == nil {
		return nil, fmt.Errorf("decoder: listener is required")
	}
	if b.verifier == nil {
		b.verifier = pushverify.AlwaysVerify{}
	}
	if b.flow == nil {
		b.flow = flowcontrol.NewDefault(b.enc.FrameWriter())
	}
	if b.headerDecoder == nil {
		b.headerDecoder = newDefaultHeaderDecoder(b.conn.Local().MaxHeaderListSize)
	}
	return &Decoder{
		conn:          b.conn,
		lifecycle:     b.lifecycle,
		enc:           b.enc,
		lst:           b.lst,
		verifier:      b.verifier,
		flow:          b.flow,
		headerDecoder: b.headerDecoder,
		mode:          AwaitingPreface,
	}, nil
}

// PrefaceReceived reports whether the first SETTINGS frame has already
// been accepted. It is observable from within a nested listener callback
// invoked during that same SETTINGS frame's processing, because the mode
// flip happens before the listener is invoked.
func (d *Decoder) PrefaceReceived() bool { return d.mode == Running }

func (d *Decoder) Connection() *connstate.Connection { return d.conn }

func (d *Decoder) Listener() listener.FrameListener { return d.lst }

func (d *Decoder) FlowController() flowcontrol.Controller { return d.flow }

// Close releases any resources the decoder itself owns. The frame source
// is owned by the caller and is not closed here.
func (d *Decoder) Close() error { return nil }

// LocalSettings assembles a snapshot of the decoder's current inbound
// settings from the header-table, frame-size policy, the flow
// controller's initial window, and the remote max-active-streams bound.
func (d *Decoder) LocalSettings() map[listener.SettingID]uint32 {
	local := d.conn.Local()
	return map[listener.SettingID]uint32{
		listener.SettingHeaderTableSize:      local.HeaderTableSize,
		listener.SettingMaxHeaderListSize:    local.MaxHeaderListSize,
		listener.SettingMaxFrameSize:         local.MaxFrameSize,
		listener.SettingInitialWindowSize:    uint32(local.FlowControlInitialWindow),
		listener.SettingMaxConcurrentStreams: d.conn.Remote().MaxActiveStreams,
	}
}

// ApplyLocalSettings applies the given fields to the decoder's inbound
// settings, with the same PUSH_ENABLE server-check the SETTINGS-ack path
// uses. This is the synchronous "apply now" path used when the
// application changes its own advertised settings outside of the
// ack-driven FIFO (e.g. at startup).
func (d *Decoder) ApplyLocalSettings(s *encoder.PendingSettings) error {
	return d.applySettings(s)
}

// DecodeFrame drives exactly one iteration of the reader: it pulls the
// next frame from src and runs it through the preface gate or the
// running dispatcher, as appropriate. ctx is accepted for cancellation of
// blocking collaborator calls (e.g. a listener performing I/O); the
// dispatch core itself never suspends.
func (d *Decoder) DecodeFrame(ctx context.Context, src FrameSource) error {
	f, err := src.ReadFrame()
	if err != nil {
		return err
	}
	return d.dispatch(ctx, f)
}

func (d *Decoder) dispatch(ctx context.Context, f http2.Frame) error {
	if d.mode == AwaitingPreface {
		return d.dispatchPreface(ctx, f)
	}
	return d.dispatchRunning(ctx, f)
}

// dispatchPreface implements the one-shot filter of spec.md section 4.1.
func (d *Decoder) dispatchPreface(ctx context.Context, f http2.Frame) error {
	switch sf := f.(type) {
	case *http2.SettingsFrame:
		if sf.IsAck() {
			return herr.NewConnection(herr.ProtocolError, "first frame must be SETTINGS")
		}
		// Flip the mode before running the settings handler so that
		// PrefaceReceived observed from within onSettingsRead (or any
		// nested call it triggers) already reports true.
		d.mode = Running
		return d.handleSettings(ctx, sf)
	case *http2.GoAwayFrame:
		return d.handleGoAway(ctx, f)
	case *http2.UnknownFrame:
		return d.handleUnknown(ctx, f)
	default:
		return herr.NewConnection(herr.ProtocolError, "first frame must be SETTINGS")
	}
}

// dispatchRunning implements the steady-state per-frame-kind dispatch of
// spec.md section 4.2.
func (d *Decoder) dispatchRunning(ctx context.Context, f http2.Frame) error {
	switch tf := f.(type) {
	case *http2.DataFrame:
		return d.handleData(ctx, tf)
	case *http2.MetaHeadersFrame:
		return d.handleHeaders(ctx, tf)
	case *http2.PriorityFrame:
		return d.handlePriority(ctx, tf)
	case *http2.RSTStreamFrame:
		return d.handleRSTStream(ctx, tf)
	case *http2.SettingsFrame:
		if tf.IsAck() {
			return d.handleSettingsAck(ctx, tf)
		}
		return d.handleSettings(ctx, tf)
	case *http2.PingFrame:
		return d.handlePing(ctx, tf)
	case *http2.PushPromiseFrame:
		return d.handlePushPromise(ctx, tf)
	case *http2.GoAwayFrame:
		return d.handleGoAway(ctx, f)
	case *http2.WindowUpdateFrame:
		return d.handleWindowUpdate(ctx, tf)
	default:
		return d.handleUnknown(ctx, f)
	}
}

// shouldIgnore implements spec.md section 4.2's predicate exactly.
func (d *Decoder) shouldIgnore(stream *connstate.Stream, allowAfterReset bool) bool {
	if stream != nil && stream.ID() == 0 {
		return false
	}
	if d.conn.GoAwaySent() {
		if stream == nil || d.conn.Remote().LastStreamCreated() <= streamIDOrZero(stream) {
			return true
		}
	}
	if !allowAfterReset && stream != nil && stream.ResetSent() {
		return true
	}
	return false
}

func streamIDOrZero(s *connstate.Stream) uint32 {
	if s == nil {
		return 0
	}
	return s.ID()
}

// verifyGoAwayNotReceived implements spec.md section 4.2's predicate,
// called by the DATA, HEADERS, PRIORITY, PUSH_PROMISE, and WINDOW_UPDATE
// handlers. RST_STREAM, SETTINGS, PING, GOAWAY, and UNKNOWN do not call it.
func (d *Decoder) verifyGoAwayNotReceived() error {
	if d.conn.GoAwayReceived() {
		return herr.NewConnection(herr.ProtocolError, "received frames after receiving GO_AWAY")
	}
	return nil
}

// stream looks up a stream by id, returning nil if unknown. HEADERS and
// PRIORITY use this because they may create the stream themselves.
func (d *Decoder) stream(id uint32) *connstate.Stream {
	return d.conn.Stream(id)
}

// requireStream looks up a stream by id, raising a connection error if it
// does not exist. DATA, RST_STREAM, PUSH_PROMISE, and WINDOW_UPDATE all
// require the stream to have been created already.
func (d *Decoder) requireStream(id uint32) (*connstate.Stream, error) {
	s := d.stream(id)
	if s == nil {
		return nil, herr.NewConnection(herr.ProtocolError, "stream %d does not exist", id)
	}
	return s, nil
}

// checkFrameSize rejects a DATA or HEADERS payload that exceeds the
// locally configured max frame size before any state-machine handling
// runs: a connection error on stream 0, a stream error otherwise. The
// frame reader this module wires rejects frames above the size it was
// built with; this check uses the local MaxFrameSize as it stands now,
// including changes applied from SETTINGS acks.
func (d *Decoder) checkFrameSize(streamID uint32, payloadLen int) error {
	limit := int(d.conn.Local().MaxFrameSize)
	if payloadLen <= limit {
		return nil
	}
	if streamID == 0 {
		return herr.NewConnection(herr.FrameSizeError, "frame payload %d exceeds max frame size %d", payloadLen, limit)
	}
	return herr.NewStream(streamID, herr.FrameSizeError, "frame payload %d exceeds max frame size %d", payloadLen, limit)
}

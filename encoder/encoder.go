// Package encoder implements the symmetric outbound collaborator the
// decoder core consults to acknowledge SETTINGS and PING, apply remote
// SETTINGS to our own outbound behavior, and track the FIFO of locally
// sent SETTINGS awaiting acknowledgement.
package encoder

import (
	"sync"

	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

// maxUint31 is the largest value a 31-bit flow-control window field can
// hold (RFC 7540 section 6.9).
const maxUint31 = 1<<31 - 1

// FrameWriter is the outbound half of the frame codec: the narrow slice
// the decoder core's Encoder collaborator needs, grounded on the frame
// package's Writer.
type FrameWriter interface {
	WriteSettingsAck() error
	WritePing(ack bool, data [8]byte) error
	WriteWindowUpdate(streamID uint32, increment uint32) error
	Flush() error
}

// OutboundFlowController is the mirror of flowcontrol.Controller for the
// direction we write in: it owns the windows the remote peer has granted
// us and is the thing WINDOW_UPDATE frames replenish.
type OutboundFlowController interface {
	AddWindowIncrement(streamID uint32, increment uint32) error
}

// PendingSettings is one SETTINGS payload we have sent and not yet seen
// acknowledged.
type PendingSettings struct {
	PushEnabled          *bool
	MaxConcurrentStreams *uint32
	HeaderTableSize      *uint32
	MaxHeaderListSize    *uint32
	MaxFrameSize         *uint32
	InitialWindowSize    *int32
}

// Encoder is the collaborator interface spec.md section 6 names: the
// decoder core writes SETTINGS acks and PING acks through it, applies
// remote SETTINGS through it, and drains its pending-local-settings FIFO
// on every inbound SETTINGS ack.
type Encoder interface {
	WriteSettingsAck() error
	WritePing(ack bool, data [8]byte) error
	RemoteSettings(settings map[listener.SettingID]uint32) error
	PollSentSettings() (*PendingSettings, bool)
	PushSentSettings(s *PendingSettings)
	FlowController() OutboundFlowController
	FrameWriter() FrameWriter
}

// Default is the Encoder wired by the decoder builder's default
// collaborator set. It is grounded on the teacher's frame.Writer for the
// wire-level writes and on its stream.Manager window fields for the
// outbound flow-control side.
type Default struct {
	mu sync.Mutex

	writer FrameWriter
	outFC  OutboundFlowController
	queue  []*PendingSettings

	remoteHeaderTableSize   uint32
	remoteMaxFrameSize      uint32
	remoteInitialWindowSize int32
	remoteMaxConcurrent     uint32
	remoteAllowPush         bool
}

// NewDefault builds a Default encoder bound to writer for wire output and
// outFC for outbound window bookkeeping.
func NewDefault(writer FrameWriter, outFC OutboundFlowController) *Default {
	return &Default{
		writer:                  writer,
		outFC:                   outFC,
		remoteHeaderTableSize:   4096,
		remoteMaxFrameSize:      16384,
		remoteInitialWindowSize: 65535,
		remoteMaxConcurrent:     0xffffffff,
	}
}

func (d *Default) WriteSettingsAck() error { return d.writer.WriteSettingsAck() }

func (d *Default) WritePing(ack bool, data [8]byte) error { return d.writer.WritePing(ack, data) }

// RemoteSettings updates our outbound-side bookkeeping (the remote's
// advertised header table, frame size, window, and max concurrent stream
// limits) in response to a SETTINGS frame the remote sent us.
func (d *Default) RemoteSettings(settings map[listener.SettingID]uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, v := range settings {
		switch id {
		case listener.SettingHeaderTableSize:
			d.remoteHeaderTableSize = v
		case listener.SettingEnablePush:
			d.remoteAllowPush = v != 0
		case listener.SettingMaxConcurrentStreams:
			d.remoteMaxConcurrent = v
		case listener.SettingInitialWindowSize:
			if v > uint32(1<<31-1) {
				return herr.NewConnection(herr.FlowControlError, "initial window size too large: %d", v)
			}
			d.remoteInitialWindowSize = int32(v)
		case listener.SettingMaxFrameSize:
			if v < 16384 || v > 16777215 {
				return herr.NewConnection(herr.ProtocolError, "invalid max frame size: %d", v)
			}
			d.remoteMaxFrameSize = v
		case listener.SettingMaxHeaderListSize:
			// advisory; nothing further to enforce outbound.
		}
	}
	return nil
}

// PollSentSettings pops the oldest unacknowledged locally sent SETTINGS
// payload, or reports false if the FIFO is empty.
func (d *Default) PollSentSettings() (*PendingSettings, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	s := d.queue[0]
	d.queue = d.queue[1:]
	return s, true
}

// PushSentSettings enqueues a SETTINGS payload the local endpoint has
// just written, to be matched against the next inbound ack.
func (d *Default) PushSentSettings(s *PendingSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, s)
}

func (d *Default) FlowController() OutboundFlowController { return d.outFC }

func (d *Default) FrameWriter() FrameWriter { return d.writer }

// RemoteMaxFrameSize is the max frame size the remote has most recently
// advertised.
func (d *Default) RemoteMaxFrameSize() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remoteMaxFrameSize
}

// defaultOutboundFlowController is a minimal OutboundFlowController
// grounded on the teacher's ConsumeSendWindow/GetSendWindowsAndMaxFrame
// bookkeeping, adapted to the narrower contract this module needs.
type defaultOutboundFlowController struct {
	mu      sync.Mutex
	windows map[uint32]int64
}

// NewDefaultOutboundFlowController builds the flow controller the decoder
// builder installs by default for the encoder side.
func NewDefaultOutboundFlowController() *defaultOutboundFlowController {
	return &defaultOutboundFlowController{windows: make(map[uint32]int64)}
}

func (f *defaultOutboundFlowController) AddWindowIncrement(streamID uint32, increment uint32) error {
	if increment == 0 {
		if streamID == 0 {
			return herr.NewConnection(herr.ProtocolError, "zero-length WINDOW_UPDATE increment on connection")
		}
		return herr.NewStream(streamID, herr.ProtocolError, "zero-length WINDOW_UPDATE increment")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.windows[streamID] + int64(increment)
	if next > int64(maxUint31) {
		if streamID == 0 {
			return herr.NewConnection(herr.FlowControlError, "connection window overflow")
		}
		return herr.NewStream(streamID, herr.FlowControlError, "stream window overflow")
	}
	f.windows[streamID] = next
	return nil
}

// Window reports the sum of the WINDOW_UPDATE increments recorded for
// streamID (0 for the connection window). It starts at 0 and does not
// include the initial window size.
func (f *defaultOutboundFlowController) Window(streamID uint32) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[streamID]
}

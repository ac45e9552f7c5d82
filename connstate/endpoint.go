package connstate

import "github.com/i4oolish/h2decode/herr"

// Endpoint is one direction's view of the connection: the settings that
// direction has advertised plus its own stream registry and stream-id
// allocator. Local and remote are two instances of this one type, kept
// separate because several decoder invariants ("remote.lastStreamCreated",
// "local.flowControlInitialWindow") are inherently per-direction.
type Endpoint struct {
	FlowControlInitialWindow int32
	MaxActiveStreams         uint32
	HeaderTableSize          uint32
	MaxHeaderListSize        uint32
	MaxFrameSize             uint32
	AllowPush                bool

	server bool

	streams            map[uint32]*Stream
	lastStreamCreated   uint32
	nextExpectedStreamID uint32
}

// NewEndpoint constructs an endpoint with RFC 7540 defaults. server marks
// whether this endpoint represents the server role, which gates the
// PUSH_ENABLE-in-ack check.
func NewEndpoint(server bool) *Endpoint {
	return &Endpoint{
		FlowControlInitialWindow: 65535,
		MaxActiveStreams:         0xffffffff,
		HeaderTableSize:          4096,
		MaxHeaderListSize:        0xffffffff,
		MaxFrameSize:             16384,
		AllowPush:                !server,
		server:                   server,
		streams:                  make(map[uint32]*Stream),
	}
}

// Stream returns the stream with id, or nil if no such stream is known.
func (e *Endpoint) Stream(id uint32) *Stream {
	return e.streams[id]
}

// LastStreamCreated is the highest stream id this endpoint has created
// (via CreateStream or ReservePushStream).
func (e *Endpoint) LastStreamCreated() uint32 {
	return e.lastStreamCreated
}

// CreateStream creates a new stream in IDLE, owned by this endpoint, or
// returns the existing stream if id is already registered and not CLOSED.
// It returns ErrClosedStreamCreation if the registered stream is CLOSED,
// or if id is unknown and at or below the highest id this endpoint has
// created — callers that want that swallowed (PRIORITY) check for it
// explicitly.
func (e *Endpoint) CreateStream(id uint32) (*Stream, error) {
	if existing := e.streams[id]; existing != nil {
		if existing.State() == Closed {
			return nil, herr.ErrClosedStreamCreation
		}
		return existing, nil
	}
	if id <= e.lastStreamCreated && e.lastStreamCreated != 0 {
		return nil, herr.ErrClosedStreamCreation
	}
	s := NewStream(id)
	e.streams[id] = s
	e.lastStreamCreated = id
	return s, nil
}

// ReservePushStream reserves id as a server push, inheriting the parent's
// priority dependency per RFC 7540 section 8.2.2.
func (e *Endpoint) ReservePushStream(id uint32, parent *Stream) (*Stream, error) {
	s, err := e.CreateStream(id)
	if err != nil {
		return nil, err
	}
	s.Reserve()
	if parent != nil {
		s.SetPriority(Priority{Dependency: parent.ID(), Weight: DefaultPriorityWeight, Exclusive: false})
	}
	return s, nil
}

// Forget removes a stream from the registry once it has been fully closed
// and its resources reclaimed by the lifecycle manager.
func (e *Endpoint) Forget(id uint32) {
	delete(e.streams, id)
}

// IsServer reports whether this endpoint plays the server role.
func (e *Endpoint) IsServer() bool { return e.server }

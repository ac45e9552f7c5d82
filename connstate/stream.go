package connstate

// Stream carries the state tag, priority triple, and reset latches the
// dispatch core needs to validate an inbound frame against RFC 7540's
// state-transition rules.
type Stream struct {
	id           uint32
	state        State
	priority     Priority
	resetSent    bool
	resetReceived bool
}

// NewStream creates a stream in IDLE with the default priority triple.
func NewStream(id uint32) *Stream {
	return &Stream{id: id, state: Idle, priority: DefaultPriority}
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() State { return s.state }

// Open transitions an IDLE/RESERVED_REMOTE stream to OPEN, or directly to
// HALF_CLOSED_REMOTE if the triggering frame already carried END_STREAM.
// It never moves a stream backward; callers are expected to have already
// checked the current state is a valid predecessor.
func (s *Stream) Open(endOfStream bool) *Stream {
	if endOfStream {
		s.state = HalfClosedRemote
	} else {
		s.state = Open
	}
	return s
}

// CloseRemoteSide moves OPEN to HALF_CLOSED_REMOTE and HALF_CLOSED_LOCAL to
// CLOSED; it is a no-op from any other state (idempotent on repeat calls).
func (s *Stream) CloseRemoteSide() {
	switch s.state {
	case Open:
		s.state = HalfClosedRemote
	case HalfClosedLocal:
		s.state = Closed
	}
}

// CloseLocalSide is the mirror of CloseRemoteSide for locally-initiated
// half-close (e.g. after RST_STREAM sent or the application ending its
// own response).
func (s *Stream) CloseLocalSide() {
	switch s.state {
	case Open:
		s.state = HalfClosedLocal
	case HalfClosedRemote:
		s.state = Closed
	}
}

// Close forces the stream fully CLOSED regardless of current state; used
// for RST_STREAM (both directions reset at once).
func (s *Stream) Close() {
	s.state = Closed
}

// Reserve moves an IDLE stream to RESERVED_REMOTE, used for push promises.
func (s *Stream) Reserve() {
	s.state = ReservedRemote
}

func (s *Stream) Priority() Priority { return s.priority }

func (s *Stream) SetPriority(p Priority) { s.priority = p }

func (s *Stream) ResetSent() bool { return s.resetSent }

func (s *Stream) SetResetSent() { s.resetSent = true }

func (s *Stream) ResetReceived() bool { return s.resetReceived }

func (s *Stream) SetResetReceived() { s.resetReceived = true }

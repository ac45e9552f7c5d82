package connstate

// Connection is the per-connection registry the decoder core validates
// every inbound frame against: the local and remote endpoints and the two
// GOAWAY latches.
type Connection struct {
	local  *Endpoint
	remote *Endpoint

	goAwaySent       bool
	goAwayReceived   bool
	localLastStreamID  uint32
	remoteLastStreamID uint32
}

// NewConnection builds a Connection. isServer marks the local endpoint's
// role, which flows through to PUSH_ENABLE handling.
func NewConnection(isServer bool) *Connection {
	return &Connection{
		local:  NewEndpoint(isServer),
		remote: NewEndpoint(!isServer),
	}
}

func (c *Connection) Local() *Endpoint  { return c.local }
func (c *Connection) Remote() *Endpoint { return c.remote }

// Stream looks up a stream by id across whichever endpoint created it.
// Returns nil if unknown — this is the "may return null" lookup spec.md
// distinguishes from RequireStream.
func (c *Connection) Stream(id uint32) *Stream {
	if s := c.local.Stream(id); s != nil {
		return s
	}
	return c.remote.Stream(id)
}

func (c *Connection) GoAwaySent() bool     { return c.goAwaySent }
func (c *Connection) GoAwayReceived() bool { return c.goAwayReceived }

// SendGoAway latches goaway-sent with the last stream id the local side
// is willing to process. Per spec.md's invariants this gates whether
// further remote-created streams may reach the listener.
func (c *Connection) SendGoAway(lastStreamID uint32) {
	c.goAwaySent = true
	c.localLastStreamID = lastStreamID
}

// ReceiveGoAway latches goaway-received. Repeat calls are tolerated —
// the handler never re-checks the latch before overwriting it, matching
// spec.md's open-question decision (see DESIGN.md).
func (c *Connection) ReceiveGoAway(lastStreamID uint32) {
	c.goAwayReceived = true
	c.remoteLastStreamID = lastStreamID
}

// LastStreamIDSentGoAway is the last stream id recorded on the most
// recent local GOAWAY.
func (c *Connection) LastStreamIDSentGoAway() uint32 { return c.localLastStreamID }

// LastStreamIDReceivedGoAway is the last stream id recorded on the most
// recent remote GOAWAY.
func (c *Connection) LastStreamIDReceivedGoAway() uint32 { return c.remoteLastStreamID }

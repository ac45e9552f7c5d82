// Package connstate holds the connection- and stream-state registry the
// decoder core validates frames against: stream identities, their state
// tags, priority triples, and the two connection-wide GOAWAY latches.
package connstate

// State is one of the seven stream-state labels from RFC 7540 section 5.1.
type State uint8

const (
	Idle State = iota
	ReservedLocal
	ReservedRemote
	Open
	HalfClosedLocal
	HalfClosedRemote
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ReservedLocal:
		return "RESERVED_LOCAL"
	case ReservedRemote:
		return "RESERVED_REMOTE"
	case Open:
		return "OPEN"
	case HalfClosedLocal:
		return "HALF_CLOSED_LOCAL"
	case HalfClosedRemote:
		return "HALF_CLOSED_REMOTE"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DefaultPriorityWeight is RFC 7540's default weight for a stream with no
// explicit PRIORITY frame.
const DefaultPriorityWeight = 16

// Priority is the dependency/weight/exclusive triple HTTP/2 attaches to a
// stream. The decoder only ever records this triple; it never rebalances
// a dependency tree.
type Priority struct {
	Dependency uint32
	Weight     uint8
	Exclusive  bool
}

// DefaultPriority is the triple implied by a HEADERS frame that carries no
// PRIORITY fields.
var DefaultPriority = Priority{Dependency: 0, Weight: DefaultPriorityWeight, Exclusive: false}

// Package lifecycle implements the collaborator the dispatch core asks
// to actually transition a stream out of existence once its protocol
// lifetime has ended, grounded on the teacher's
// sendRSTStreamAndMarkClosed/handleGoAway bookkeeping, generalized into a
// narrow two-method interface.
package lifecycle

import "github.com/i4oolish/h2decode/connstate"

// Manager is the lifecycle manager collaborator interface from spec.md
// section 6.
type Manager interface {
	// CloseRemoteSide half-closes the remote-writing side of stream,
	// called after DATA/HEADERS carrying END_STREAM.
	CloseRemoteSide(stream *connstate.Stream)
	// CloseStream fully closes stream in both directions, called after
	// RST_STREAM.
	CloseStream(stream *connstate.Stream)
}

// Default only transitions stream state; it deliberately does not evict
// the stream from its owning endpoint's registry. The dispatch core still
// needs to find a CLOSED stream (e.g. to silently no-op a repeat
// RST_STREAM per spec.md's idempotence property), so eviction is left to
// a separate reaper outside this module's scope.
type Default struct{}

// NewDefault builds the lifecycle manager the decoder builder installs
// when the caller supplies none.
func NewDefault() *Default { return &Default{} }

func (d *Default) CloseRemoteSide(stream *connstate.Stream) {
	stream.CloseRemoteSide()
}

func (d *Default) CloseStream(stream *connstate.Stream) {
	stream.Close()
}

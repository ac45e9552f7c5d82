// Package frame wraps golang.org/x/net/http2.Framer into the concrete
// FrameSource/FrameWriter collaborators the decoder and encoder packages
// consume, grounded on the teacher's internal/h2/frame package.
package frame

import (
	"io"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"
)

// Reader binds a persistent io.Reader to an http2.Framer configured with
// ReadMetaHeaders, so HEADERS frames arrive at the decoder already
// reassembled across CONTINUATION and HPACK-decoded into
// *http2.MetaHeadersFrame — the concrete shape of the "frame reader
// produces typed callbacks" collaborator this module's decoder core
// depends on.
type Reader struct {
	framer *http2.Framer
}

// NewReader builds a Reader over r. maxHeaderListSize bounds the HPACK
// decoder's advisory header-list limit; maxReadFrameSize bounds the
// largest single frame the framer will accept.
func NewReader(r io.Reader, maxHeaderListSize, maxReadFrameSize uint32) *Reader {
	fr := http2.NewFramer(io.Discard, r)
	fr.SetMaxReadFrameSize(maxReadFrameSize)
	fr.ReadMetaHeaders = hpack.NewDecoder(4096, nil)
	fr.MaxHeaderListSize = maxHeaderListSize
	return &Reader{framer: fr}
}

// ReadFrame reads and returns the next frame, satisfying
// decoder.FrameSource.
func (r *Reader) ReadFrame() (http2.Frame, error) {
	return r.framer.ReadFrame()
}

// SetMaxDynamicTableSize resizes the HPACK decoder's dynamic table.
// Nothing in this module calls it when the local endpoint's
// SETTINGS_HEADER_TABLE_SIZE changes.
func (r *Reader) SetMaxDynamicTableSize(size uint32) {
	r.framer.ReadMetaHeaders.SetMaxDynamicTableSize(size)
}

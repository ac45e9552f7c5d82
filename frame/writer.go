package frame

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"
)

// Writer wraps http2.Framer for outbound writes, grounded on the
// teacher's internal/h2/frame.Writer: a mutex-guarded facade so
// concurrent goroutines (e.g. a demo's request handler and its PING
// responder) can write without corrupting frame boundaries, even though
// the decoder core itself drives only one goroutine per connection.
type Writer struct {
	mu     sync.Mutex
	framer *http2.Framer
	w      io.Writer
}

// NewWriter builds a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{framer: http2.NewFramer(w, nil), w: w}
}

func (w *Writer) Flush() error {
	if f, ok := w.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (w *Writer) WriteSettings(settings ...http2.Setting) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WriteSettings(settings...)
}

func (w *Writer) WriteSettingsAck() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WriteSettingsAck()
}

func (w *Writer) WritePing(ack bool, data [8]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WritePing(ack, data)
}

func (w *Writer) WriteWindowUpdate(streamID uint32, increment uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if increment == 0 {
		return nil
	}
	return w.framer.WriteWindowUpdate(streamID, increment)
}

func (w *Writer) WriteRSTStream(streamID uint32, code http2.ErrCode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WriteRSTStream(streamID, code)
}

func (w *Writer) WriteGoAway(lastStreamID uint32, code http2.ErrCode, debugData []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WriteGoAway(lastStreamID, code, debugData)
}

func (w *Writer) WriteData(streamID uint32, endStream bool, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framer.WriteData(streamID, endStream, data)
}

// WriteHeaders writes HEADERS followed by CONTINUATION frames,
// fragmenting headerBlock by maxFrameSize — the outbound half of the
// reassembly the Reader performs on the way in.
func (w *Writer) WriteHeaders(streamID uint32, endStream bool, headerBlock []byte, maxFrameSize uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if maxFrameSize == 0 {
		maxFrameSize = 16384
	}

	remaining := headerBlock
	first := true
	for len(remaining) > 0 || first {
		chunkLen := int(maxFrameSize)
		if len(remaining) < chunkLen {
			chunkLen = len(remaining)
		}
		frag := remaining[:chunkLen]
		remaining = remaining[chunkLen:]

		if first {
			err := w.framer.WriteHeaders(http2.HeadersFrameParam{
				StreamID:      streamID,
				BlockFragment: frag,
				EndStream:     endStream,
				EndHeaders:    len(remaining) == 0,
			})
			if err != nil {
				return err
			}
			first = false
			continue
		}
		if err := w.framer.WriteContinuation(streamID, len(remaining) == 0, frag); err != nil {
			return err
		}
	}
	return nil
}

// headerBufPool reuses the scratch buffers HeaderEncoder writes HPACK
// output into, grounded on the teacher's pooling of HPACK encode buffers.
var headerBufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// HeaderEncoder encodes outbound headers to an HPACK block. Its dynamic
// table starts at the HPACK default size and changes only through
// SetMaxDynamicTableSize.
type HeaderEncoder struct {
	enc *hpack.Encoder
	buf *bytes.Buffer
}

// NewHeaderEncoder builds a HeaderEncoder, borrowing a scratch buffer
// from the shared pool.
func NewHeaderEncoder() *HeaderEncoder {
	buf := headerBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return &HeaderEncoder{enc: hpack.NewEncoder(buf), buf: buf}
}

// Encode appends fields to the HPACK block and returns a copy of the
// resulting bytes, safe to retain after Close.
func (e *HeaderEncoder) Encode(fields []HeaderField) ([]byte, error) {
	e.buf.Reset()
	for _, f := range fields {
		if err := e.enc.WriteField(hpack.HeaderField{Name: f.Name, Value: f.Value}); err != nil {
			return nil, err
		}
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}

// SetMaxDynamicTableSize resizes the outbound HPACK table. Nothing in
// this module calls it when a SETTINGS_HEADER_TABLE_SIZE is applied.
func (e *HeaderEncoder) SetMaxDynamicTableSize(size uint32) {
	e.enc.SetMaxDynamicTableSize(size)
}

// Close returns the scratch buffer to the pool. The encoder must not be
// used afterward.
func (e *HeaderEncoder) Close() {
	headerBufPool.Put(e.buf)
	e.buf = nil
	e.enc = nil
}

// HeaderField mirrors listener.HeaderField without importing that
// package, keeping frame free of a dependency on the decoder's public
// surface.
type HeaderField struct {
	Name  string
	Value string
}

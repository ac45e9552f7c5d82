package decoder

import (
	"bytes"
	"context"
	"testing"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
)

// metaHeadersFrame builds a *http2.MetaHeadersFrame the way frame.Reader
// would hand one to the decoder: HEADERS bytes plus a Framer configured
// with ReadMetaHeaders.
func metaHeadersFrame(t *testing.T, streamID uint32, endStream bool, fields []hpack.HeaderField) *http2.MetaHeadersFrame {
	var headerBlock bytes.Buffer
	enc := hpack.NewEncoder(&headerBlock)
	for _, f := range fields {
		if err := enc.WriteField(f); err != nil {
			t.Fatalf("hpack encode: %v", err)
		}
	}

	var wire bytes.Buffer
	writer := http2.NewFramer(&wire, nil)
	if err := writer.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      streamID,
		BlockFragment: headerBlock.Bytes(),
		EndHeaders:    true,
		EndStream:     endStream,
	}); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}

	reader := http2.NewFramer(nil, &wire)
	reader.ReadMetaHeaders = hpack.NewDecoder(4096, nil)
	f, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	return f.(*http2.MetaHeadersFrame)
}

func requestFields() []hpack.HeaderField {
	return []hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}
}

func TestHandleHeaders_CreatesStream(t *testing.T) {
	dec, lst, _ := newTestDecoder(true)
	dec.mode = Running

	f := metaHeadersFrame(t, 1, false, requestFields())
	if err := dec.handleHeaders(context.Background(), f); err != nil {
		t.Fatalf("handleHeaders() error = %v", err)
	}

	s := dec.conn.Stream(1)
	if s == nil {
		t.Fatalf("stream 1 was not created")
	}
	if s.State() != connstate.Open {
		t.Errorf("stream state = %s, want OPEN", s.State())
	}
	if len(lst.headerReads) != 1 || len(lst.headerReads[0].headers) != 3 {
		t.Fatalf("OnHeadersRead not dispatched with 3 fields: %+v", lst.headerReads)
	}
}

func TestHandleHeaders_EndStreamGoesHalfClosedRemote(t *testing.T) {
	dec, _, _ := newTestDecoder(true)
	dec.mode = Running

	f := metaHeadersFrame(t, 1, true, requestFields())
	if err := dec.handleHeaders(context.Background(), f); err != nil {
		t.Fatalf("handleHeaders() error = %v", err)
	}
	s := dec.conn.Stream(1)
	if s.State() != connstate.HalfClosedRemote {
		t.Errorf("stream state = %s, want HALF_CLOSED_REMOTE", s.State())
	}
}

func TestHandleHeaders_TrailersOnOpenStream(t *testing.T) {
	dec, lst, _ := newTestDecoder(true)
	dec.mode = Running
	s, _ := dec.conn.Remote().CreateStream(1)
	s.Open(false)

	trailer := metaHeadersFrame(t, 1, true, []hpack.HeaderField{{Name: "x-checksum", Value: "abc"}})
	if err := dec.handleHeaders(context.Background(), trailer); err != nil {
		t.Fatalf("handleHeaders(trailer) error = %v", err)
	}
	if s.State() != connstate.HalfClosedRemote {
		t.Errorf("stream state after trailer with END_STREAM = %s, want HALF_CLOSED_REMOTE", s.State())
	}
	if len(lst.headerReads) != 1 {
		t.Fatalf("OnHeadersRead call count = %d, want 1", len(lst.headerReads))
	}
}

func TestHandleHeaders_OnClosedStreamIsStreamError(t *testing.T) {
	dec, _, _ := newTestDecoder(true)
	dec.mode = Running
	s, _ := dec.conn.Remote().CreateStream(1)
	s.Close()

	f := metaHeadersFrame(t, 1, false, requestFields())
	err := dec.handleHeaders(context.Background(), f)
	if err == nil {
		t.Fatalf("expected an error for HEADERS on a closed stream, got nil")
	}
	serr, ok := err.(*herr.StreamError)
	if !ok || serr.Code != herr.StreamClosed {
		t.Errorf("error = %v, want a StreamError with STREAM_CLOSED", err)
	}
}

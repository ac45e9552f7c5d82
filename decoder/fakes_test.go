package decoder

import (
	"bytes"
	"testing"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/encoder"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

// recordingListener captures every dispatched event for assertions,
// and lets a test inject a forced return value/panic for OnDataRead.
type recordingListener struct {
	dataReads     []dataRead
	headerReads   []headerRead
	priorityReads []priorityRead
	rstReads      []rstRead
	settingsReads []map[listener.SettingID]uint32
	settingsAcks  int
	pings         int
	pingAcks      int
	pushPromises  []pushPromiseRead
	goAways       []goAwayRead
	windowUpdates []windowUpdateRead
	unknownFrames []unknownRead

	dataReturn int
	dataErr    error
	dataPanic  any
	headersErr error
}

type dataRead struct {
	stream      *connstate.Stream
	data        []byte
	padding     int
	endOfStream bool
}

type headerRead struct {
	stream      *connstate.Stream
	headers     []listener.HeaderField
	priority    connstate.Priority
	endOfStream bool
}

type priorityRead struct {
	stream   *connstate.Stream
	priority connstate.Priority
}

type rstRead struct {
	stream    *connstate.Stream
	errorCode herr.Code
}

type pushPromiseRead struct {
	stream, promised *connstate.Stream
	headers          []listener.HeaderField
}

type goAwayRead struct {
	lastStreamID uint32
	errorCode    herr.Code
	debugData    []byte
}

type windowUpdateRead struct {
	stream    *connstate.Stream
	increment uint32
}

type unknownRead struct {
	frameType uint8
	streamID  uint32
	flags     uint8
	payload   []byte
}

func (l *recordingListener) OnDataRead(stream *connstate.Stream, data []byte, padding int, endOfStream bool) (int, error) {
	l.dataReads = append(l.dataReads, dataRead{stream, data, padding, endOfStream})
	if l.dataPanic != nil {
		panic(l.dataPanic)
	}
	if l.dataErr != nil {
		return l.dataReturn, l.dataErr
	}
	if l.dataReturn != 0 {
		return l.dataReturn, nil
	}
	return len(data), nil
}

func (l *recordingListener) OnHeadersRead(stream *connstate.Stream, headers []listener.HeaderField, priority connstate.Priority, endOfStream bool) error {
	l.headerReads = append(l.headerReads, headerRead{stream, headers, priority, endOfStream})
	return l.headersErr
}

func (l *recordingListener) OnPriorityRead(stream *connstate.Stream, priority connstate.Priority) error {
	l.priorityReads = append(l.priorityReads, priorityRead{stream, priority})
	return nil
}

func (l *recordingListener) OnRstStreamRead(stream *connstate.Stream, errorCode herr.Code) error {
	l.rstReads = append(l.rstReads, rstRead{stream, errorCode})
	return nil
}

func (l *recordingListener) OnSettingsRead(settings map[listener.SettingID]uint32) error {
	l.settingsReads = append(l.settingsReads, settings)
	return nil
}

func (l *recordingListener) OnSettingsAckRead() error {
	l.settingsAcks++
	return nil
}

func (l *recordingListener) OnPingRead(data [8]byte) error {
	l.pings++
	return nil
}

func (l *recordingListener) OnPingAckRead(data [8]byte) error {
	l.pingAcks++
	return nil
}

func (l *recordingListener) OnPushPromiseRead(stream, promised *connstate.Stream, headers []listener.HeaderField) error {
	l.pushPromises = append(l.pushPromises, pushPromiseRead{stream, promised, headers})
	return nil
}

func (l *recordingListener) OnGoAwayRead(lastStreamID uint32, errorCode herr.Code, debugData []byte) error {
	l.goAways = append(l.goAways, goAwayRead{lastStreamID, errorCode, debugData})
	return nil
}

func (l *recordingListener) OnWindowUpdateRead(stream *connstate.Stream, increment uint32) error {
	l.windowUpdates = append(l.windowUpdates, windowUpdateRead{stream, increment})
	return nil
}

func (l *recordingListener) OnUnknownFrame(frameType uint8, streamID uint32, flags uint8, payload []byte) error {
	l.unknownFrames = append(l.unknownFrames, unknownRead{frameType, streamID, flags, payload})
	return nil
}

var _ listener.FrameListener = (*recordingListener)(nil)

// fakeFrameWriter satisfies both encoder.FrameWriter and
// flowcontrol.WindowWriter without touching a real connection.
type fakeFrameWriter struct {
	settingsAcked bool
	pings         []pingCall
	windowUpdates []windowUpdateCall
	flushed       int
}

type pingCall struct {
	ack  bool
	data [8]byte
}

type windowUpdateCall struct {
	streamID  uint32
	increment uint32
}

func (f *fakeFrameWriter) WriteSettingsAck() error { f.settingsAcked = true; return nil }

func (f *fakeFrameWriter) WritePing(ack bool, data [8]byte) error {
	f.pings = append(f.pings, pingCall{ack, data})
	return nil
}

func (f *fakeFrameWriter) WriteWindowUpdate(streamID uint32, increment uint32) error {
	f.windowUpdates = append(f.windowUpdates, windowUpdateCall{streamID, increment})
	return nil
}

func (f *fakeFrameWriter) Flush() error { f.flushed++; return nil }

// newTestDecoder builds a Decoder wired to real connstate/flowcontrol but a
// recordingListener, ready to dispatch frames directly via dispatchRunning
// or dispatchPreface, bypassing a real FrameSource.
func newTestDecoder(isServer bool) (*Decoder, *recordingListener, *fakeFrameWriter) {
	conn := connstate.NewConnection(isServer)
	lst := &recordingListener{}
	fw := &fakeFrameWriter{}
	outFC := encoder.NewDefaultOutboundFlowController()
	enc := encoder.NewDefault(fw, outFC)

	dec, err := NewBuilder().
		Connection(conn).
		Lifecycle(newNoopLifecycle()).
		Encoder(enc).
		Listener(lst).
		Build()
	if err != nil {
		panic(err)
	}
	return dec, lst, fw
}

// noopLifecycle mirrors lifecycle.Default exactly: it only transitions
// stream state and evicts nothing from the registry.
type noopLifecycle struct{}

func newNoopLifecycle() *noopLifecycle { return &noopLifecycle{} }

func (noopLifecycle) CloseRemoteSide(stream *connstate.Stream) { stream.CloseRemoteSide() }
func (noopLifecycle) CloseStream(stream *connstate.Stream)     { stream.Close() }

// writeAndReadBack round-trips a single frame through a real http2.Framer
// pair so its exact field layout (including derived fields like Data() and
// padding) matches what the production frame.Reader would hand the
// decoder, instead of hand-constructing a frame struct.
func writeAndReadBack(t *testing.T, write func(*http2.Framer) error) http2.Frame {
	var buf bytes.Buffer
	writer := http2.NewFramer(&buf, nil)
	if err := write(writer); err != nil {
		t.Fatalf("writing test frame: %v", err)
	}
	reader := http2.NewFramer(nil, &buf)
	f, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("reading back test frame: %v", err)
	}
	return f
}

func dataFrame(t *testing.T, streamID uint32, payload []byte, endStream bool) *http2.DataFrame {
	f := writeAndReadBack(t, func(fr *http2.Framer) error {
		return fr.WriteData(streamID, endStream, payload)
	})
	return f.(*http2.DataFrame)
}

// Command h2decodedemo wires the decoder core to a real TCP listener
// using gnet as the serial event source, exercising the module end to
// end: bytes arrive via OnTraffic, get framed by the frame package, and
// flow through decoder.Decoder.DecodeFrame, called repeatedly per
// callback until the buffered bytes run out, matching this module's
// single-threaded-per-connection concurrency
// model. It logs every dispatched event instead of serving real
// responses; it exists to prove the wiring, not to be a production
// server.
package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/decoder"
	"github.com/i4oolish/h2decode/encoder"
	"github.com/i4oolish/h2decode/frame"
	"github.com/i4oolish/h2decode/h2config"
	"github.com/i4oolish/h2decode/headervalidate"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/lifecycle"
	"github.com/i4oolish/h2decode/listener"
	"github.com/i4oolish/h2decode/metrics"
	"github.com/i4oolish/h2decode/tracing"
)

func main() {
	addr := flag.String("addr", ":8443", "listen address")
	metricsAddr := flag.String("metrics-addr", ":9443", "Prometheus /metrics listen address")
	flag.Parse()

	cfg := h2config.DefaultConfig()
	cfg.Addr = *addr
	if err := cfg.Validate(); err != nil {
		log.Fatalf("h2decodedemo: invalid config: %v", err)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rec := metrics.NewRecorder(metrics.DefaultConfig())

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		cfg.Logger.Printf("metrics listening on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			cfg.Logger.Printf("metrics server stopped: %v", err)
		}
	}()

	h := &demoHandler{cfg: cfg, rec: rec, sessions: make(map[gnet.Conn]*session)}
	cfg.Logger.Printf("h2decode demo listening on %s", cfg.Addr)
	if err := gnet.Run(h, "tcp://"+cfg.Addr, gnet.WithMulticore(true)); err != nil {
		log.Fatalf("h2decodedemo: gnet.Run: %v", err)
	}
}

// session holds the per-connection decoder wiring. Exactly one session
// exists per gnet.Conn, and gnet guarantees OnTraffic for a given
// connection never runs concurrently with itself, which is what lets the
// decoder core stay lock-free.
type session struct {
	conn    gnet.Conn
	inbound *bytes.Buffer
	reader  *frame.Reader
	dec     *decoder.Decoder
}

type demoHandler struct {
	gnet.BuiltinEventEngine
	cfg      *h2config.Config
	rec      *metrics.Recorder
	sessions map[gnet.Conn]*session
}

func (h *demoHandler) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	conn := connstate.NewConnection(h.cfg.IsServer)
	conn.Local().MaxFrameSize = h.cfg.MaxFrameSize
	conn.Local().MaxHeaderListSize = h.cfg.MaxHeaderListSize
	conn.Local().HeaderTableSize = h.cfg.HeaderTableSize
	conn.Local().FlowControlInitialWindow = h.cfg.InitialWindowSize
	conn.Local().AllowPush = h.cfg.AllowPush
	conn.Remote().MaxActiveStreams = h.cfg.MaxConcurrentStreams

	inbound := new(bytes.Buffer)
	fr := frame.NewReader(inbound, h.cfg.MaxHeaderListSize, h.cfg.MaxFrameSize)

	writer := frame.NewWriter(newFlushWriter(c))
	outFC := encoder.NewDefaultOutboundFlowController()
	enc := encoder.NewDefault(writer, outFC)
	lc := newMetricsLifecycle(lifecycle.NewDefault(), h.rec)
	lst := newLoggingListener(h.cfg.Logger, h.rec)

	dec, err := decoder.NewBuilder().
		Connection(conn).
		Lifecycle(lc).
		Encoder(enc).
		Listener(lst).
		Build()
	if err != nil {
		h.cfg.Logger.Printf("h2decodedemo: failed to build decoder: %v", err)
		return nil, gnet.Close
	}

	if err := writer.WriteSettings(
		http2.Setting{ID: http2.SettingMaxConcurrentStreams, Val: h.cfg.MaxConcurrentStreams},
		http2.Setting{ID: http2.SettingInitialWindowSize, Val: uint32(h.cfg.InitialWindowSize)},
		http2.Setting{ID: http2.SettingMaxFrameSize, Val: h.cfg.MaxFrameSize},
	); err != nil {
		h.cfg.Logger.Printf("h2decodedemo: failed to write initial SETTINGS: %v", err)
		return nil, gnet.Close
	}
	_ = writer.Flush()

	h.sessions[c] = &session{conn: c, inbound: inbound, reader: fr, dec: dec}
	return nil, gnet.None
}

func (h *demoHandler) OnTraffic(c gnet.Conn) gnet.Action {
	s, ok := h.sessions[c]
	if !ok {
		return gnet.Close
	}

	buf, _ := c.Next(-1)
	s.inbound.Write(buf)

	for {
		ctx, span := tracing.StartDecodeSpan(context.Background(), connID(c))
		start := time.Now()
		err := s.dec.DecodeFrame(ctx, s.reader)
		h.rec.DecodeDuration.Observe(time.Since(start).Seconds())
		tracing.EndDecodeSpan(span, err)

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return gnet.None
		}
		if err != nil {
			h.cfg.Logger.Printf("h2decodedemo: connection %s: %v", connID(c), err)
			h.rec.FramesErrored.WithLabelValues(errorKind(err)).Inc()
			return gnet.Close
		}
	}
}

func (h *demoHandler) OnClose(c gnet.Conn, _ error) gnet.Action {
	delete(h.sessions, c)
	return gnet.None
}

func connID(c gnet.Conn) string {
	return c.RemoteAddr().String()
}

// flushWriter adapts gnet.Conn's async write queue into the plain
// io.Writer the frame.Writer wants: Write copies and queues, Flush
// hands the queued segments to AsyncWritev, grounded on the teacher's
// connWriter but without its per-frame closed-stream filtering, which
// this decoder-focused demo has no use for.
type flushWriter struct {
	conn gnet.Conn
	mu   sync.Mutex
	pending [][]byte
}

func newFlushWriter(c gnet.Conn) *flushWriter { return &flushWriter{conn: c} }

func (f *flushWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data := make([]byte, len(p))
	copy(data, p)
	f.mu.Lock()
	f.pending = append(f.pending, data)
	f.mu.Unlock()
	return len(p), nil
}

func (f *flushWriter) Flush() error {
	f.mu.Lock()
	parts := f.pending
	f.pending = nil
	f.mu.Unlock()
	if len(parts) == 0 {
		return nil
	}
	return f.conn.AsyncWritev(parts, func(_ gnet.Conn, err error) error { return err })
}

var _ io.Writer = (*flushWriter)(nil)

func errorKind(err error) string {
	if err == nil {
		return "none"
	}
	return "decode_error"
}

// metricsLifecycle wraps a lifecycle.Manager to keep the active-streams
// gauge in step with streams actually leaving the connection, rather than
// guessing at closure from the listener side.
type metricsLifecycle struct {
	inner lifecycle.Manager
	rec   *metrics.Recorder
}

func newMetricsLifecycle(inner lifecycle.Manager, rec *metrics.Recorder) *metricsLifecycle {
	return &metricsLifecycle{inner: inner, rec: rec}
}

func (m *metricsLifecycle) CloseRemoteSide(stream *connstate.Stream) {
	before := stream.State()
	m.inner.CloseRemoteSide(stream)
	if before != connstate.Closed && stream.State() == connstate.Closed {
		m.rec.ActiveStreams.Dec()
	}
}

func (m *metricsLifecycle) CloseStream(stream *connstate.Stream) {
	before := stream.State()
	m.inner.CloseStream(stream)
	if before != connstate.Closed && stream.State() == connstate.Closed {
		m.rec.ActiveStreams.Dec()
	}
}

var _ lifecycle.Manager = (*metricsLifecycle)(nil)

// loggingListener satisfies listener.FrameListener by counting every
// dispatched event in the frames-decoded counter and logging the DATA,
// HEADERS, RST_STREAM, and GOAWAY events. It is
// the application collaborator this demo supplies in place of real
// request handling. It also runs the header and content-length checks
// from headervalidate, since that package's job is listener-side
// validation, not decoder-core state tracking.
type loggingListener struct {
	logger *log.Logger
	rec    *metrics.Recorder

	seenHeaders    map[uint32]bool
	pendingHeaders map[uint32][]listener.HeaderField
	observed       map[uint32]int64
}

func newLoggingListener(logger *log.Logger, rec *metrics.Recorder) *loggingListener {
	return &loggingListener{
		logger:         logger,
		rec:            rec,
		seenHeaders:    make(map[uint32]bool),
		pendingHeaders: make(map[uint32][]listener.HeaderField),
		observed:       make(map[uint32]int64),
	}
}

func (l *loggingListener) OnDataRead(stream *connstate.Stream, data []byte, padding int, endOfStream bool) (int, error) {
	l.rec.FramesDecoded.WithLabelValues("DATA").Inc()
	l.logger.Printf("stream %d: DATA %d bytes (padding=%d end=%v)", stream.ID(), len(data), padding, endOfStream)

	id := stream.ID()
	l.observed[id] += int64(len(data))

	if endOfStream {
		headers, ok := l.pendingHeaders[id]
		delete(l.pendingHeaders, id)
		if ok {
			if err := headervalidate.ValidateContentLength(headers, l.observed[id]); err != nil {
				return len(data), herr.NewStream(id, herr.ProtocolError, "content-length mismatch: %v", err)
			}
		}
	}
	return len(data), nil
}

func (l *loggingListener) OnHeadersRead(stream *connstate.Stream, headers []listener.HeaderField, priority connstate.Priority, endOfStream bool) error {
	l.rec.FramesDecoded.WithLabelValues("HEADERS").Inc()
	l.logger.Printf("stream %d: HEADERS %d fields (end=%v)", stream.ID(), len(headers), endOfStream)

	id := stream.ID()
	if l.seenHeaders[id] {
		if err := headervalidate.ValidateTrailerHeaders(headers); err != nil {
			return herr.NewStream(id, herr.ProtocolError, "invalid trailers: %v", err)
		}
		if endOfStream {
			if pending, ok := l.pendingHeaders[id]; ok {
				delete(l.pendingHeaders, id)
				if err := headervalidate.ValidateContentLength(pending, l.observed[id]); err != nil {
					return herr.NewStream(id, herr.ProtocolError, "content-length mismatch: %v", err)
				}
			}
		}
		return nil
	}
	l.seenHeaders[id] = true
	l.rec.ActiveStreams.Inc()

	if err := headervalidate.ValidateRequestHeaders(headers); err != nil {
		return herr.NewStream(id, herr.ProtocolError, "invalid request headers: %v", err)
	}
	if endOfStream {
		if err := headervalidate.ValidateContentLength(headers, l.observed[id]); err != nil {
			return herr.NewStream(id, herr.ProtocolError, "content-length mismatch: %v", err)
		}
		return nil
	}
	l.pendingHeaders[id] = headers
	return nil
}

func (l *loggingListener) OnPriorityRead(stream *connstate.Stream, priority connstate.Priority) error {
	l.rec.FramesDecoded.WithLabelValues("PRIORITY").Inc()
	return nil
}

func (l *loggingListener) OnRstStreamRead(stream *connstate.Stream, errorCode herr.Code) error {
	l.rec.FramesDecoded.WithLabelValues("RST_STREAM").Inc()
	l.logger.Printf("stream %d: RST_STREAM %s", stream.ID(), errorCode)
	return nil
}

func (l *loggingListener) OnSettingsRead(settings map[listener.SettingID]uint32) error {
	l.rec.FramesDecoded.WithLabelValues("SETTINGS").Inc()
	return nil
}

func (l *loggingListener) OnSettingsAckRead() error {
	l.rec.FramesDecoded.WithLabelValues("SETTINGS_ACK").Inc()
	return nil
}

func (l *loggingListener) OnPingRead(data [8]byte) error {
	l.rec.FramesDecoded.WithLabelValues("PING").Inc()
	return nil
}

func (l *loggingListener) OnPingAckRead(data [8]byte) error {
	l.rec.FramesDecoded.WithLabelValues("PING_ACK").Inc()
	return nil
}

func (l *loggingListener) OnPushPromiseRead(stream, promised *connstate.Stream, headers []listener.HeaderField) error {
	l.rec.FramesDecoded.WithLabelValues("PUSH_PROMISE").Inc()
	return nil
}

func (l *loggingListener) OnGoAwayRead(lastStreamID uint32, errorCode herr.Code, debugData []byte) error {
	l.rec.FramesDecoded.WithLabelValues("GOAWAY").Inc()
	l.logger.Printf("GOAWAY lastStreamID=%d code=%s", lastStreamID, errorCode)
	return nil
}

func (l *loggingListener) OnWindowUpdateRead(stream *connstate.Stream, increment uint32) error {
	l.rec.FramesDecoded.WithLabelValues("WINDOW_UPDATE").Inc()
	return nil
}

func (l *loggingListener) OnUnknownFrame(frameType uint8, streamID uint32, flags uint8, payload []byte) error {
	l.rec.FramesDecoded.WithLabelValues("UNKNOWN").Inc()
	return nil
}

var _ listener.FrameListener = (*loggingListener)(nil)

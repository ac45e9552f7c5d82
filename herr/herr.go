// Package herr defines the two error kinds the decoder core raises:
// connection-fatal errors and stream-fatal errors, plus the sentinel the
// PRIORITY handler swallows.
package herr

import (
	"errors"
	"fmt"

	"golang.org/x/net/http2"
)

// Code is an HTTP/2 error code as defined in RFC 7540 section 7. We reuse
// golang.org/x/net/http2's ErrCode rather than redeclare the table.
type Code = http2.ErrCode

const (
	NoError            Code = http2.ErrCodeNo
	ProtocolError      Code = http2.ErrCodeProtocol
	InternalError      Code = http2.ErrCodeInternal
	FlowControlError   Code = http2.ErrCodeFlowControl
	SettingsTimeout    Code = http2.ErrCodeSettingsTimeout
	StreamClosed       Code = http2.ErrCodeStreamClosed
	FrameSizeError     Code = http2.ErrCodeFrameSize
	RefusedStream      Code = http2.ErrCodeRefusedStream
	Cancel             Code = http2.ErrCodeCancel
	CompressionError   Code = http2.ErrCodeCompression
	ConnectError       Code = http2.ErrCodeConnect
	EnhanceYourCalm    Code = http2.ErrCodeEnhanceYourCalm
	InadequateSecurity Code = http2.ErrCodeInadequateSecurity
	HTTP11Required     Code = http2.ErrCodeHTTP11Required
)

// ConnectionError terminates the whole connection. The decoder never
// recovers from one; the caller is expected to emit GOAWAY and tear down.
type ConnectionError struct {
	Code Code
	Msg  string
}

func (e *ConnectionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("connection error: %s", e.Code)
	}
	return fmt.Sprintf("connection error: %s: %s", e.Code, e.Msg)
}

// NewConnection builds a ConnectionError with a formatted message.
func NewConnection(code Code, format string, args ...any) *ConnectionError {
	return &ConnectionError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// StreamError terminates only the named stream; the connection continues.
type StreamError struct {
	StreamID uint32
	Code     Code
	Msg      string
}

func (e *StreamError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("stream error on %d: %s", e.StreamID, e.Code)
	}
	return fmt.Sprintf("stream error on %d: %s: %s", e.StreamID, e.Code, e.Msg)
}

// NewStream builds a StreamError with a formatted message.
func NewStream(streamID uint32, code Code, format string, args ...any) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrClosedStreamCreation is returned by Endpoint.CreateStream when the id
// names a CLOSED stream or an unknown id at or below the highest id already
// created. Only the PRIORITY handler swallows it as benign.
var ErrClosedStreamCreation = errors.New("cannot create a stream that has already been closed")

// IsClosedStreamCreation reports whether err is, or wraps,
// ErrClosedStreamCreation.
func IsClosedStreamCreation(err error) bool {
	return errors.Is(err, ErrClosedStreamCreation)
}

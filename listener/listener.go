// Package listener defines the typed callback surface the decoder core
// dispatches validated frame events to. Applications implement
// FrameListener; the decoder core never inspects payload bytes beyond
// what it needs for state-machine and flow-control bookkeeping.
package listener

import (
	"github.com/i4oolish/h2decode/connstate"
	"github.com/i4oolish/h2decode/herr"
)

// HeaderField is a single decoded HTTP header name/value pair, passed
// through from HPACK decoding without further interpretation.
type HeaderField struct {
	Name  string
	Value string
}

// FrameListener is the application-supplied collaborator the dispatch
// core delivers well-typed events to. Every method runs synchronously on
// the decoder's single thread; implementations must not block
// indefinitely or migrate the passed state to another goroutine.
type FrameListener interface {
	// OnDataRead is invoked for a valid, non-ignored DATA frame. Its
	// return value is the number of bytes the application considers
	// immediately processed; bytes above that are tracked as
	// unconsumed until a later ConsumeBytes call returns them.
	OnDataRead(stream *connstate.Stream, data []byte, padding int, endOfStream bool) (int, error)

	OnHeadersRead(stream *connstate.Stream, headers []HeaderField, priority connstate.Priority, endOfStream bool) error

	OnPriorityRead(stream *connstate.Stream, priority connstate.Priority) error

	OnRstStreamRead(stream *connstate.Stream, errorCode herr.Code) error

	OnSettingsRead(settings map[SettingID]uint32) error

	OnSettingsAckRead() error

	OnPingRead(data [8]byte) error
	OnPingAckRead(data [8]byte) error

	OnPushPromiseRead(stream, promised *connstate.Stream, headers []HeaderField) error

	OnGoAwayRead(lastStreamID uint32, errorCode herr.Code, debugData []byte) error

	OnWindowUpdateRead(stream *connstate.Stream, increment uint32) error

	OnUnknownFrame(frameType uint8, streamID uint32, flags uint8, payload []byte) error
}

// SettingID names a SETTINGS parameter by its wire identifier (RFC 7540
// section 6.5.2).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

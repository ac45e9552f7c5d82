package encoder

import (
	"testing"

	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

type fakeFrameWriter struct {
	acked       bool
	pinged      bool
	pingAck     bool
	windowCalls []struct{ streamID, increment uint32 }
}

func (f *fakeFrameWriter) WriteSettingsAck() error { f.acked = true; return nil }
func (f *fakeFrameWriter) WritePing(ack bool, data [8]byte) error {
	if ack {
		f.pingAck = true
	} else {
		f.pinged = true
	}
	return nil
}
func (f *fakeFrameWriter) WriteWindowUpdate(streamID uint32, increment uint32) error {
	f.windowCalls = append(f.windowCalls, struct{ streamID, increment uint32 }{streamID, increment})
	return nil
}
func (f *fakeFrameWriter) Flush() error { return nil }

func TestDefault_RemoteSettings(t *testing.T) {
	d := NewDefault(&fakeFrameWriter{}, NewDefaultOutboundFlowController())

	err := d.RemoteSettings(map[listener.SettingID]uint32{
		listener.SettingMaxFrameSize:      32768,
		listener.SettingInitialWindowSize: 100000,
		listener.SettingEnablePush:        0,
	})
	if err != nil {
		t.Fatalf("RemoteSettings() error = %v", err)
	}
	if got := d.RemoteMaxFrameSize(); got != 32768 {
		t.Errorf("RemoteMaxFrameSize() = %d, want 32768", got)
	}
}

func TestDefault_RemoteSettings_InvalidMaxFrameSize(t *testing.T) {
	d := NewDefault(&fakeFrameWriter{}, NewDefaultOutboundFlowController())
	err := d.RemoteSettings(map[listener.SettingID]uint32{listener.SettingMaxFrameSize: 10})
	if err == nil {
		t.Fatalf("expected an error for an out-of-range max frame size, got nil")
	}
	cerr, ok := err.(*herr.ConnectionError)
	if !ok || cerr.Code != herr.ProtocolError {
		t.Errorf("error = %v, want a ConnectionError with PROTOCOL_ERROR", err)
	}
}

func TestDefault_RemoteSettings_WindowTooLarge(t *testing.T) {
	d := NewDefault(&fakeFrameWriter{}, NewDefaultOutboundFlowController())
	err := d.RemoteSettings(map[listener.SettingID]uint32{listener.SettingInitialWindowSize: 1 << 31})
	if err == nil {
		t.Fatalf("expected an error for an overlarge initial window, got nil")
	}
	if cerr, ok := err.(*herr.ConnectionError); !ok || cerr.Code != herr.FlowControlError {
		t.Errorf("error = %v, want a ConnectionError with FLOW_CONTROL_ERROR", err)
	}
}

func TestDefault_SentSettingsFIFO(t *testing.T) {
	d := NewDefault(&fakeFrameWriter{}, NewDefaultOutboundFlowController())
	if _, ok := d.PollSentSettings(); ok {
		t.Fatalf("PollSentSettings() on empty queue returned ok = true")
	}

	first := &PendingSettings{}
	second := &PendingSettings{}
	d.PushSentSettings(first)
	d.PushSentSettings(second)

	got, ok := d.PollSentSettings()
	if !ok || got != first {
		t.Errorf("PollSentSettings() = %v, %v, want the first pushed settings", got, ok)
	}
	got, ok = d.PollSentSettings()
	if !ok || got != second {
		t.Errorf("PollSentSettings() = %v, %v, want the second pushed settings", got, ok)
	}
	if _, ok := d.PollSentSettings(); ok {
		t.Errorf("PollSentSettings() after draining the queue returned ok = true")
	}
}

func TestDefaultOutboundFlowController_AddWindowIncrement(t *testing.T) {
	f := NewDefaultOutboundFlowController()
	if err := f.AddWindowIncrement(1, 1000); err != nil {
		t.Fatalf("AddWindowIncrement() error = %v", err)
	}
	if got := f.Window(1); got != 1000 {
		t.Errorf("Window(1) = %d, want 1000", got)
	}
}

func TestDefaultOutboundFlowController_ZeroIncrementRejected(t *testing.T) {
	f := NewDefaultOutboundFlowController()
	if err := f.AddWindowIncrement(1, 0); err == nil {
		t.Errorf("AddWindowIncrement(stream, 0) should error, got nil")
	}
	if err := f.AddWindowIncrement(0, 0); err == nil {
		t.Errorf("AddWindowIncrement(connection, 0) should error, got nil")
	}
}

func TestDefaultOutboundFlowController_OverflowRejected(t *testing.T) {
	f := NewDefaultOutboundFlowController()
	if err := f.AddWindowIncrement(1, maxUint31); err != nil {
		t.Fatalf("first AddWindowIncrement() error = %v", err)
	}
	err := f.AddWindowIncrement(1, 1)
	if err == nil {
		t.Fatalf("expected overflow error, got nil")
	}
	if serr, ok := err.(*herr.StreamError); !ok || serr.Code != herr.FlowControlError {
		t.Errorf("error = %v, want a StreamError with FLOW_CONTROL_ERROR", err)
	}
}

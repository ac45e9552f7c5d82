package decoder

import (
	"context"
	"testing"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/encoder"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

func TestHandleSettings_AcksAndAppliesRemote(t *testing.T) {
	dec, lst, fw := newTestDecoder(true)
	dec.mode = Running

	f := writeAndReadBack(t, func(fr *http2.Framer) error {
		return fr.WriteSettings(
			http2.Setting{ID: http2.SettingMaxFrameSize, Val: 32768},
			http2.Setting{ID: http2.SettingMaxConcurrentStreams, Val: 50},
		)
	}).(*http2.SettingsFrame)

	if err := dec.handleSettings(context.Background(), f); err != nil {
		t.Fatalf("handleSettings() error = %v", err)
	}
	if !fw.settingsAcked {
		t.Errorf("SETTINGS ack was not written")
	}
	if fw.flushed == 0 {
		t.Errorf("Flush() was not called after the SETTINGS ack")
	}
	if len(lst.settingsReads) != 1 || lst.settingsReads[0][listener.SettingMaxFrameSize] != 32768 {
		t.Errorf("OnSettingsRead not dispatched correctly: %+v", lst.settingsReads)
	}
}

func TestHandleSettingsAck_DrainsFIFOAndApplies(t *testing.T) {
	dec, lst, _ := newTestDecoder(true)
	dec.mode = Running

	newWindow := int32(200000)
	dec.enc.PushSentSettings(&encoder.PendingSettings{InitialWindowSize: &newWindow})

	f := writeAndReadBack(t, func(fr *http2.Framer) error {
		return fr.WriteSettingsAck()
	}).(*http2.SettingsFrame)

	if err := dec.handleSettingsAck(context.Background(), f); err != nil {
		t.Fatalf("handleSettingsAck() error = %v", err)
	}
	if dec.conn.Local().FlowControlInitialWindow != newWindow {
		t.Errorf("FlowControlInitialWindow = %d, want %d", dec.conn.Local().FlowControlInitialWindow, newWindow)
	}
	if lst.settingsAcks != 1 {
		t.Errorf("OnSettingsAckRead call count = %d, want 1", lst.settingsAcks)
	}
}

func TestHandleSettingsAck_EmptyFIFOStillDispatches(t *testing.T) {
	dec, lst, _ := newTestDecoder(true)
	dec.mode = Running

	f := writeAndReadBack(t, func(fr *http2.Framer) error {
		return fr.WriteSettingsAck()
	}).(*http2.SettingsFrame)

	if err := dec.handleSettingsAck(context.Background(), f); err != nil {
		t.Fatalf("handleSettingsAck() with an empty FIFO error = %v", err)
	}
	if lst.settingsAcks != 1 {
		t.Errorf("OnSettingsAckRead call count = %d, want 1", lst.settingsAcks)
	}
}

func TestApplySettings_PushEnableOnServerRejected(t *testing.T) {
	dec, _, _ := newTestDecoder(true) // server
	pushEnabled := true
	err := dec.ApplyLocalSettings(&encoder.PendingSettings{PushEnabled: &pushEnabled})
	if err == nil {
		t.Fatalf("expected an error applying PUSH_ENABLE on a server's local settings, got nil")
	}
	if cerr, ok := err.(*herr.ConnectionError); !ok || cerr.Code != herr.ProtocolError {
		t.Errorf("error = %v, want a ConnectionError with PROTOCOL_ERROR", err)
	}
}

func TestApplySettings_PushEnableOnClientAccepted(t *testing.T) {
	dec, _, _ := newTestDecoder(false) // client
	pushEnabled := false
	if err := dec.ApplyLocalSettings(&encoder.PendingSettings{PushEnabled: &pushEnabled}); err != nil {
		t.Fatalf("ApplyLocalSettings() on a client error = %v", err)
	}
	if dec.conn.Local().AllowPush {
		t.Errorf("AllowPush = true, want false after ApplyLocalSettings")
	}
}

func TestDecoder_LocalSettings(t *testing.T) {
	dec, _, _ := newTestDecoder(true)
	snap := dec.LocalSettings()
	if snap[listener.SettingHeaderTableSize] != dec.conn.Local().HeaderTableSize {
		t.Errorf("LocalSettings()[HeaderTableSize] = %d, want %d", snap[listener.SettingHeaderTableSize], dec.conn.Local().HeaderTableSize)
	}
}

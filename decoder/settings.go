package decoder

import (
	"context"

	"golang.org/x/net/http2"

	"github.com/i4oolish/h2decode/encoder"
	"github.com/i4oolish/h2decode/herr"
	"github.com/i4oolish/h2decode/listener"
)

// handleSettings implements spec.md section 4.2's SETTINGS (non-ack)
// handler. The ack is written before the listener runs, so any outbound
// write the listener issues follows the ack on the wire, per this
// module's ordering guarantee.
func (d *Decoder) handleSettings(ctx context.Context, f *http2.SettingsFrame) error {
	settings := make(map[listener.SettingID]uint32)
	if err := f.ForeachSetting(func(s http2.Setting) error {
		settings[listener.SettingID(s.ID)] = s.Val
		return nil
	}); err != nil {
		return herr.NewConnection(herr.ProtocolError, "malformed SETTINGS frame: %v", err)
	}

	if err := d.enc.RemoteSettings(settings); err != nil {
		return err
	}

	if err := d.enc.WriteSettingsAck(); err != nil {
		return err
	}
	if err := d.enc.FrameWriter().Flush(); err != nil {
		return err
	}

	return d.lst.OnSettingsRead(settings)
}

// handleSettingsAck implements spec.md section 4.2's SETTINGS-ack
// handler. SETTINGS apply asymmetrically: a peer's SETTINGS constrain our
// outbound behavior and install immediately (handleSettings, above); our
// own SETTINGS constrain the peer's outbound behavior and only take
// effect once acknowledged, hence the FIFO drained here one entry per
// ack.
func (d *Decoder) handleSettingsAck(ctx context.Context, f *http2.SettingsFrame) error {
	popped, ok := d.enc.PollSentSettings()
	if ok {
		if err := d.applySettings(popped); err != nil {
			return err
		}
	}
	return d.lst.OnSettingsAckRead()
}

// applySettings applies the non-absent fields of s to the local inbound
// side, with the PUSH_ENABLE server-check both the ack path and
// Decoder.ApplyLocalSettings rely on.
func (d *Decoder) applySettings(s *encoder.PendingSettings) error {
	local := d.conn.Local()

	if s.PushEnabled != nil {
		if local.IsServer() {
			return herr.NewConnection(herr.ProtocolError, "PUSH_ENABLE must not appear in a server's local settings")
		}
		local.AllowPush = *s.PushEnabled
	}
	if s.MaxConcurrentStreams != nil {
		d.conn.Remote().MaxActiveStreams = *s.MaxConcurrentStreams
	}
	if s.HeaderTableSize != nil {
		local.HeaderTableSize = *s.HeaderTableSize
	}
	if s.MaxHeaderListSize != nil {
		local.MaxHeaderListSize = *s.MaxHeaderListSize
	}
	if s.MaxFrameSize != nil {
		local.MaxFrameSize = *s.MaxFrameSize
	}
	if s.InitialWindowSize != nil {
		local.FlowControlInitialWindow = *s.InitialWindowSize
		d.flow.InitialWindowSize(*s.InitialWindowSize)
	}
	return nil
}

package h2config

import "testing"

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate_MaxFrameSizeOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFrameSize = 100
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected an error for an undersized MaxFrameSize, got nil")
	}

	cfg = DefaultConfig()
	cfg.MaxFrameSize = 1 << 25
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected an error for an oversized MaxFrameSize, got nil")
	}
}

func TestValidate_InitialWindowSizeOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialWindowSize = -1
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected an error for a negative InitialWindowSize, got nil")
	}
}

func TestValidate_HeaderTableSizeZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeaderTableSize = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected an error for a zero HeaderTableSize, got nil")
	}
}

func TestValidate_AllowPushRequiresServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IsServer = false
	cfg.AllowPush = true
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected an error for AllowPush on a non-server config, got nil")
	}
}

func TestValidate_DefaultsNilLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Logger == nil {
		t.Errorf("Validate() left Logger nil")
	}
}

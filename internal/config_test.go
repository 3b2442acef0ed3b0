package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_config.toml")
	content := []byte("protocol = \"udp\"\nport = 6000\nspeed_mbps = 100.0\npacket_size = 1200\nudp_target = \"192.168.2.114\"\nlog_level = \"debug\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Protocol != "udp" {
		t.Errorf("protocol: want udp, got %q", cfg.Protocol)
	}
	if cfg.Port != 6000 {
		t.Errorf("port: want 6000, got %d", cfg.Port)
	}
	if cfg.SpeedMbps != 100.0 {
		t.Errorf("speed: want 100, got %g", cfg.SpeedMbps)
	}
	if cfg.PacketSize != 1200 {
		t.Errorf("packet size: want 1200, got %d", cfg.PacketSize)
	}
	if cfg.UDPTarget != "192.168.2.114" {
		t.Errorf("udp target: want 192.168.2.114, got %q", cfg.UDPTarget)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: want debug, got %q", cfg.LogLevel)
	}
}

func TestLoadServerConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_config.toml")
	if err := os.WriteFile(path, []byte("port = 7000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("port: want 7000, got %d", cfg.Port)
	}
	if cfg.Protocol != "tcp" {
		t.Errorf("default protocol: want tcp, got %q", cfg.Protocol)
	}
	if cfg.SpeedMbps != 10.0 {
		t.Errorf("default speed: want 10, got %g", cfg.SpeedMbps)
	}
	if cfg.PacketSize != 1400 {
		t.Errorf("default packet size: want 1400, got %d", cfg.PacketSize)
	}
}

func TestServerConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_config.toml")
	in := &ServerConfig{
		Protocol:   "udp",
		Port:       5005,
		SpeedMbps:  25,
		PacketSize: 900,
		UDPTarget:  "10.0.0.2",
		LogLevel:   "warn",
	}
	if _, err := in.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *out != *in {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestClientConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_config.toml")
	in := &ClientConfig{
		Protocol:       "tcp",
		Host:           "192.168.1.10",
		Port:           5000,
		MeasureSeconds: 20,
		LogLevel:       "info",
	}
	if _, err := in.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *out != *in {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestConfigureLoggerRejectsUnknownLevel(t *testing.T) {
	defer SetLogLevel(LevelInfo)

	if err := ConfigureLogger("verbose"); err == nil {
		t.Error("unknown level must return an error")
	}
	if err := ConfigureLogger("debug"); err != nil {
		t.Errorf("debug is a valid level, got %v", err)
	}
	if err := ConfigureLogger(""); err != nil {
		t.Errorf("empty level defaults to info, got %v", err)
	}
}

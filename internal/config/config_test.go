package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Errorf("Domain = %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL)
	}
	if cfg.APIURL != "https://"+DefaultDomain {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("VOXCALL_DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "flag.example.com" {
		t.Errorf("flag should beat env, got %q", cfg.Domain)
	}
	if cfg.STUNServer != "stun:env.example.com:3478" {
		t.Errorf("env should beat default, got %q", cfg.STUNServer)
	}
}

func TestInsecureSchemes(t *testing.T) {
	cfg, err := Load(Options{Domain: "localhost:8080", Insecure: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebSocketURL != "ws://localhost:8080/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL)
	}
	if cfg.RoomSocketURL("AB12CD") != "ws://localhost:8080/ws/AB12CD" {
		t.Errorf("RoomSocketURL = %q", cfg.RoomSocketURL("AB12CD"))
	}
}

func TestTURNServers(t *testing.T) {
	cfg := &Config{}
	if cfg.GetTURNServers() != nil {
		t.Error("expected nil TURN servers when unconfigured")
	}
	if cfg.GetSTUNServers() != nil {
		t.Error("expected nil STUN servers when unconfigured")
	}

	cfg.TURNServer = "turn:relay.example.com"
	if got := cfg.GetTURNServers(); len(got) != 2 {
		t.Errorf("GetTURNServers = %v", got)
	}
}

package coordinator

import (
	"strings"
	"testing"
	"time"

	"DistributedFractals/rpc"
)

func TestParseSettings(t *testing.T) {
	data := []byte(`
run_name: gallery
server_address: 127.0.0.1:0
transport: http
heartbeat_interval: 5s
roll_call_interval: 2m
jobs:
  - kind: mandelbrot
    params:
      width: 64
      height: 48
  - kind: cantor_dust
    name: dust
    params:
      recursion_depth: 2
`)
	s, err := ParseSettings(data)
	if err != nil {
		t.Fatalf("ParseSettings returned error: %v", err)
	}
	if s.RunName != "gallery" {
		t.Errorf("RunName = %q, want gallery", s.RunName)
	}
	if s.Transport != rpc.HTTP {
		t.Errorf("Transport = %s, want http", s.Transport)
	}
	if s.HeartbeatInterval != 5*time.Second || s.RollCallInterval != 2*time.Minute {
		t.Errorf("intervals = %s/%s, want 5s/2m", s.HeartbeatInterval, s.RollCallInterval)
	}
	if len(s.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(s.Jobs))
	}
	if s.Jobs[0].Name != "mandelbrot-0" {
		t.Errorf("default job name = %q, want mandelbrot-0", s.Jobs[0].Name)
	}
	if s.Jobs[1].Name != "dust" {
		t.Errorf("job name = %q, want dust", s.Jobs[1].Name)
	}
}

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte("jobs:\n  - kind: julia\n"))
	if err != nil {
		t.Fatalf("ParseSettings returned error: %v", err)
	}
	if s.Transport != rpc.TCP {
		t.Errorf("Transport = %s, want tcp", s.Transport)
	}
	if s.HeartbeatInterval != 30*time.Second || s.RollCallInterval != time.Minute {
		t.Errorf("intervals = %s/%s, want 30s/1m", s.HeartbeatInterval, s.RollCallInterval)
	}
	if !strings.HasSuffix(s.ServerAddress, ":51000") {
		t.Errorf("ServerAddress = %q, want port 51000", s.ServerAddress)
	}
	if s.RunName == "" {
		t.Error("RunName left empty")
	}
	if s.Jobs[0].Params == nil {
		t.Error("job params left nil")
	}
}

func TestParseSettingsRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		message string
	}{
		{"no jobs", "run_name: empty\n", "no jobs"},
		{"unknown kind", "jobs:\n  - kind: sierpinski\n", "sierpinski"},
		{"invalid parameter", "jobs:\n  - kind: mandelbrot\n    params:\n      zoom: -1\n", "zoom"},
		{"unknown transport", "transport: udp\njobs:\n  - kind: julia\n", "udp"},
		{"not yaml", "jobs: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseSettings succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}
}

package rpc

import (
	"errors"
	"testing"
)

type Echo struct{}

func (e *Echo) Upper(request string, reply *string) error {
	out := []byte(request)
	for i, b := range out {
		if b >= 'a' && b <= 'z' {
			out[i] = b - 'a' + 'A'
		}
	}
	*reply = string(out)
	return nil
}

func (e *Echo) Fail(request string, reply *string) error {
	return errors.New("expected failure")
}

func TestServerClient(t *testing.T) {
	for _, transport := range []Transport{TCP, HTTP} {
		t.Run(transport.String(), func(t *testing.T) {
			server := NewServer(transport, &Echo{}, "127.0.0.1:0", "EchoServer")
			if err := server.Run(); err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			defer server.Stop()

			client := NewClient(transport, server.Address(), "EchoClient")
			client.ExpectedErrors = []string{"expected failure"}
			if err := client.Connect(); err != nil {
				t.Fatalf("Connect returned error: %v", err)
			}

			var reply string
			if err := client.Call("Echo.Upper", "fractal", &reply); err != nil {
				t.Fatalf("Call returned error: %v", err)
			}
			if reply != "FRACTAL" {
				t.Errorf("reply = %q, want FRACTAL", reply)
			}
			if err := client.Call("Echo.Fail", "", &reply); err == nil || err.Error() != "expected failure" {
				t.Errorf("Fail error = %v, want expected failure", err)
			}

			if err := client.Disconnect(); err != nil {
				t.Fatalf("Disconnect returned error: %v", err)
			}
			if err := client.Call("Echo.Upper", "x", &reply); err == nil {
				t.Error("Call succeeded after Disconnect")
			}
		})
	}
}

func TestParseTransport(t *testing.T) {
	tests := []struct {
		name    string
		want    Transport
		wantErr bool
	}{
		{"", TCP, false},
		{"TCP", TCP, false},
		{"http", HTTP, false},
		{"udp", TCP, true},
	}
	for _, tt := range tests {
		got, err := ParseTransport(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTransport(%q) = %s, %v", tt.name, got, err)
		}
	}
}

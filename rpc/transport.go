// Package rpc carries net/rpc calls between the coordinator and its workers
// over raw TCP or HTTP.
package rpc

import (
	"fmt"
	"strings"
)

const (
	TCP Transport = iota
	HTTP
)

type Transport int

func (t Transport) String() string {
	return []string{
		"tcp", "http",
	}[t]
}

func ParseTransport(name string) (Transport, error) {
	switch strings.ToLower(name) {
	case "", "tcp":
		return TCP, nil
	case "http":
		return HTTP, nil
	}
	return TCP, fmt.Errorf("unknown transport %q", name)
}

func (t Transport) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Transport) UnmarshalText(text []byte) error {
	parsed, err := ParseTransport(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Server exposes the exported methods of one object
type Server interface {
	Address() string
	Run() error
	Stop() error
}

func NewServer(transport Transport, object any, address string, name string) Server {
	if transport == HTTP {
		return NewHttpServer(object, address, name)
	}
	return NewTcpServer(object, address, name)
}

func NewClient(transport Transport, serverAddress string, name string) *Client {
	if transport == HTTP {
		return NewHttpClient(serverAddress, name)
	}
	return NewTcpClient(serverAddress, name)
}

package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

type TcpServer struct {
	address  string
	listener *net.TCPListener
	object   any
	shutdown chan bool
	stopOnce sync.Once

	Logger bslogger.Logger
	Name   string
}

func NewTcpServer(object any, address string, name string) *TcpServer {
	return &TcpServer{
		address:  address,
		object:   object,
		shutdown: make(chan bool, 1),
		Logger:   bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:     name,
	}
}

// Address is the bound address once Run succeeded, so port 0 resolves to the
// port the system picked
func (ts *TcpServer) Address() string {
	if ts.listener != nil {
		return ts.listener.Addr().String()
	}
	return ts.address
}

func (ts *TcpServer) Run() error {
	handler := rpc.NewServer()
	err := handler.Register(ts.object)
	if err != nil {
		ts.Logger.Error("Registering object")
		return err
	}

	tcpAddress, err := net.ResolveTCPAddr("tcp", ts.address)
	if err != nil {
		ts.Logger.Error(fmt.Sprintf("Resolving tcp address %s", ts.address))
		return err
	}

	ts.listener, err = net.ListenTCP("tcp", tcpAddress)
	if err != nil {
		ts.Logger.Error(fmt.Sprintf("Listening at address %s", ts.address))
		return err
	}
	ts.address = ts.listener.Addr().String()

	go func() {
		for {
			select {
			case <-ts.shutdown:
				// Server has been given the signal to shutdown
				err := ts.listener.Close()
				if err != nil {
					ts.Logger.Info(fmt.Sprintf("Server closed connection to client - %s", err))
				}
				return
			default:
				// Poll this connection periodically
				ts.listener.SetDeadline(time.Now().Add(1 * time.Second))
			}

			conn, err := ts.listener.Accept()
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					// Deadline timeout has occurred
					continue
				}
				ts.Logger.Warning(fmt.Sprintf("Accepting connection at address %s - %s", ts.address, err))
				continue
			}

			ts.Logger.Debug(fmt.Sprintf("Server opened connection to client at address %s", conn.RemoteAddr()))
			go handler.ServeConn(conn)
		}
	}()

	ts.Logger.Info(fmt.Sprintf("Running server at address %s", ts.address))
	return nil
}

func (ts *TcpServer) Stop() error {
	ts.stopOnce.Do(func() {
		ts.Logger.Info(fmt.Sprintf("Shutting down server at address %s", ts.address))
		close(ts.shutdown)
	})
	return nil
}

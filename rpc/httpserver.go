package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

// defaultMuxLock serializes the DefaultServeMux swap in Run
var defaultMuxLock sync.Mutex

type HttpServer struct {
	address  string
	listener net.Listener
	mux      *http.ServeMux
	object   any
	server   *http.Server

	Logger bslogger.Logger
	Name   string
}

func NewHttpServer(object any, address string, name string) *HttpServer {
	return &HttpServer{
		address: address,
		mux:     http.NewServeMux(),
		object:  object,
		Logger:  bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:    name,
	}
}

func (hs *HttpServer) Address() string {
	if hs.listener != nil {
		return hs.listener.Addr().String()
	}
	return hs.address
}

func (hs *HttpServer) Run() error {
	handler := rpc.NewServer()
	err := handler.Register(hs.object)
	if err != nil {
		hs.Logger.Error("Registering object")
		return err
	}

	// Make a new http request multiplexer for this object
	// https://github.com/golang/go/issues/13395
	defaultMuxLock.Lock()
	oldMux := http.DefaultServeMux
	http.DefaultServeMux = hs.mux
	handler.HandleHTTP(rpc.DefaultRPCPath, rpc.DefaultDebugPath)
	http.DefaultServeMux = oldMux
	defaultMuxLock.Unlock()

	// Make a new listener for this object
	hs.listener, err = net.Listen("tcp", hs.address)
	if err != nil {
		hs.Logger.Error(fmt.Sprintf("Listening at address %s", hs.address))
		return err
	}
	hs.address = hs.listener.Addr().String()

	// Start the server until a stop signal is received
	hs.server = &http.Server{Addr: hs.address, Handler: hs.mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.server.Serve(hs.listener); !errors.Is(err, http.ErrServerClosed) {
			hs.Logger.Error(fmt.Sprintf("Serving at address %s - %s", hs.address, err))
		}
	}()

	hs.Logger.Info(fmt.Sprintf("Running server at address %s", hs.address))
	return nil
}

func (hs *HttpServer) Stop() error {
	if hs.server == nil {
		return nil
	}
	if err := hs.server.Shutdown(context.Background()); err != nil {
		hs.Logger.Error(fmt.Sprintf("Shutting down server at address %s", hs.address))
		return err
	}
	hs.Logger.Info(fmt.Sprintf("Shutting down server at address %s", hs.address))
	return nil
}

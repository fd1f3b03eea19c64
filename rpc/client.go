package rpc

import (
	"errors"
	"fmt"
	"net/rpc"
	"slices"
	"sync"

	"github.com/BrugadaSyndrome/bslogger"
)

// Client calls methods on one server. Calls may be made from several
// goroutines.
type Client struct {
	client        *rpc.Client
	dial          func(network string, address string) (*rpc.Client, error)
	mutex         sync.Mutex
	serverAddress string

	// ExpectedErrors are server replies logged at debug level instead of as errors
	ExpectedErrors []string
	Logger         bslogger.Logger
	Name           string
}

func NewTcpClient(serverAddress string, name string) *Client {
	return newClient(rpc.Dial, serverAddress, name)
}

func NewHttpClient(serverAddress string, name string) *Client {
	return newClient(rpc.DialHTTP, serverAddress, name)
}

func newClient(dial func(string, string) (*rpc.Client, error), serverAddress string, name string) *Client {
	return &Client{
		dial:          dial,
		serverAddress: serverAddress,
		Logger:        bslogger.NewLogger(name, bslogger.Normal, nil),
		Name:          name,
	}
}

func (c *Client) Connect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.client != nil {
		c.Logger.Warning(fmt.Sprintf("Already connected to server at address %s", c.serverAddress))
		return nil
	}

	var err error
	c.client, err = c.dial("tcp", c.serverAddress)
	if err != nil {
		c.Logger.Error(fmt.Sprintf("Connecting to server at address %s : %s", c.serverAddress, err))
		return err
	}
	c.Logger.Info(fmt.Sprintf("Connected to server at %s", c.serverAddress))
	return nil
}

func (c *Client) Call(method string, request any, reply any) error {
	c.mutex.Lock()
	client := c.client
	c.mutex.Unlock()
	if client == nil {
		message := fmt.Sprintf("Not connected to server at address %s : method %s", c.serverAddress, method)
		c.Logger.Error(message)
		return errors.New(message)
	}

	err := client.Call(method, request, reply)
	if err != nil {
		if slices.Contains(c.ExpectedErrors, err.Error()) {
			c.Logger.Debug(fmt.Sprintf("Server [%s] %s replied: %s", c.serverAddress, method, err))
			return err
		}
		c.Logger.Error(fmt.Sprintf("Calling server at address: %s, method: %s - %s", c.serverAddress, method, err))
		return err
	}
	c.Logger.Debug(fmt.Sprintf("Calling server [%s] %s", c.serverAddress, method))
	return nil
}

func (c *Client) Disconnect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.client == nil {
		message := fmt.Sprintf("Already disconnected from server at address %s", c.serverAddress)
		c.Logger.Warning(message)
		return errors.New(message)
	}

	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.Logger.Error(fmt.Sprintf("Disconnecting from server at address %s", c.serverAddress))
		return err
	}
	c.Logger.Info(fmt.Sprintf("Disconnected from server at %s", c.serverAddress))
	return nil
}

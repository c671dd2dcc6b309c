package fused

import (
	"sync"

	"github.com/benmeehan/reactive-location/internal/utils"
	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/google/uuid"
)

// HostContext is a named application with a set of granted permissions.
type HostContext struct {
	name        string
	permissions map[platform.Permission]struct{}
}

// NewHostContext creates a HostContext holding permissions.
func NewHostContext(name string, permissions ...platform.Permission) *HostContext {
	return &HostContext{
		name:        name,
		permissions: utils.SliceToSet(permissions),
	}
}

func (h *HostContext) Name() string { return h.name }

func (h *HostContext) HasPermission(p platform.Permission) bool {
	_, ok := h.permissions[p]
	return ok
}

type clientState int

const (
	clientDisconnected clientState = iota
	clientConnecting
	clientConnected
)

// Client is a connection to the Service. It implements platform.Client.
type Client struct {
	id      string
	service *Service
	host    platform.HostContext
	apis    []platform.API

	mu        sync.Mutex
	state     clientState
	callbacks map[int]platform.ConnectionCallbacks
	nextCB    int
	listeners map[platform.LocationListener]*updateSession
}

func newClient(service *Service, host platform.HostContext, apis []platform.API) *Client {
	return &Client{
		id:        uuid.New().String(),
		service:   service,
		host:      host,
		apis:      apis,
		callbacks: make(map[int]platform.ConnectionCallbacks),
		listeners: make(map[platform.LocationListener]*updateSession),
	}
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

// Connect starts an asynchronous connect. The outcome arrives through the
// registered callbacks on the dispatch pool.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state != clientDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = clientConnecting
	c.mu.Unlock()

	if !c.service.dispatch(c.completeConnect) {
		c.mu.Lock()
		c.state = clientDisconnected
		c.mu.Unlock()
		return ErrServiceClosed
	}
	return nil
}

func (c *Client) completeConnect() {
	result := c.service.negotiate(c.apis)

	c.mu.Lock()
	if c.state != clientConnecting {
		// Disconnected while the attempt was queued.
		c.mu.Unlock()
		return
	}
	if result.IsSuccess() {
		c.state = clientConnected
		c.service.clients.Set(c.id, c)
	} else {
		c.state = clientDisconnected
	}
	callbacks := c.snapshotCallbacks()
	c.mu.Unlock()

	logger := c.service.logger.With().Str("client", c.id).Str("host", c.host.Name()).Logger()
	if result.IsSuccess() {
		logger.Debug().Msg("Client connected")
	} else {
		logger.Warn().Int("code", result.Code).Str("message", result.Message).Msg("Client connection failed")
	}

	for _, cb := range callbacks {
		switch {
		case result.IsSuccess() && cb.OnConnected != nil:
			cb.OnConnected()
		case !result.IsSuccess() && cb.OnConnectionFailed != nil:
			cb.OnConnectionFailed(result)
		}
	}
}

// Disconnect closes the connection and stops every listener registered on
// it. Mock mode held by the client is released.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == clientDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = clientDisconnected
	sessions := c.takeListeners()
	c.mu.Unlock()

	for _, session := range sessions {
		session.stop()
	}
	c.service.clients.Remove(c.id)
	c.service.releaseMockMode(c.id)
	c.service.logger.Debug().Str("client", c.id).Msg("Client disconnected")
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clientConnected
}

func (c *Client) IsConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clientConnecting
}

// RegisterConnectionCallbacks implements platform.Client.
func (c *Client) RegisterConnectionCallbacks(callbacks platform.ConnectionCallbacks) func() {
	c.mu.Lock()
	id := c.nextCB
	c.nextCB++
	c.callbacks[id] = callbacks
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.callbacks, id)
		c.mu.Unlock()
	}
}

// suspend drops an established connection and schedules a reconnect after
// the suspension has been reported.
func (c *Client) suspend(cause int) {
	c.mu.Lock()
	if c.state != clientConnected {
		c.mu.Unlock()
		return
	}
	c.state = clientConnecting
	sessions := c.takeListeners()
	callbacks := c.snapshotCallbacks()
	c.mu.Unlock()

	for _, session := range sessions {
		session.stop()
	}
	c.service.clients.Remove(c.id)

	c.service.dispatch(func() {
		for _, cb := range callbacks {
			if cb.OnConnectionSuspended != nil {
				cb.OnConnectionSuspended(cause)
			}
		}
		c.completeConnect()
	})
}

func (c *Client) snapshotCallbacks() []platform.ConnectionCallbacks {
	out := make([]platform.ConnectionCallbacks, 0, len(c.callbacks))
	for i := 0; i < c.nextCB; i++ {
		if cb, ok := c.callbacks[i]; ok {
			out = append(out, cb)
		}
	}
	return out
}

func (c *Client) takeListeners() []*updateSession {
	sessions := make([]*updateSession, 0, len(c.listeners))
	for _, session := range c.listeners {
		sessions = append(sessions, session)
	}
	c.listeners = make(map[platform.LocationListener]*updateSession)
	return sessions
}

// putListener replaces the session of listener and returns the previous one.
func (c *Client) putListener(listener platform.LocationListener, session *updateSession) (*updateSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != clientConnected {
		return nil, platform.ErrNotConnected
	}
	previous := c.listeners[listener]
	c.listeners[listener] = session
	return previous, nil
}

func (c *Client) takeListener(listener platform.LocationListener) (*updateSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != clientConnected {
		return nil, platform.ErrNotConnected
	}
	session := c.listeners[listener]
	delete(c.listeners, listener)
	return session, nil
}

package reactivelocation

import (
	"sync"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
)

type connectionState int

const (
	stateConnecting connectionState = iota
	stateConnected
	stateFailed
	stateReleased
)

// clientConnection tracks one subscription of the client stream. The
// platform may invoke the callbacks on any goroutine, so every transition
// goes through mu. Observer methods are called without holding mu.
type clientConnection struct {
	client     platform.Client
	subscriber *rx.Subscriber[platform.Client]
	logger     zerolog.Logger

	mu         sync.Mutex
	state      connectionState
	unregister func()
}

func newClientObservable(host platform.HostContext, factory platform.ClientFactory, apis []platform.API,
	logger zerolog.Logger) rx.Observable[platform.Client] {
	return rx.Create(func(s *rx.Subscriber[platform.Client]) {
		client, err := factory.NewClient(host, apis)
		if err != nil {
			s.OnError(platformError("create client", err))
			return
		}

		conn := &clientConnection{
			client:     client,
			subscriber: s,
			logger:     logger,
			state:      stateConnecting,
		}
		unregister := client.RegisterConnectionCallbacks(platform.ConnectionCallbacks{
			OnConnected:           conn.onConnected,
			OnConnectionSuspended: conn.onConnectionSuspended,
			OnConnectionFailed:    conn.onConnectionFailed,
		})
		conn.mu.Lock()
		conn.unregister = unregister
		conn.mu.Unlock()
		s.Add(conn.release)

		logger.Debug().Int("apis", len(apis)).Msg("Connecting location services client")
		if err := client.Connect(); err != nil {
			s.OnError(platformError("connect", err))
		}
	})
}

func (c *clientConnection) onConnected() {
	c.mu.Lock()
	switch c.state {
	case stateReleased:
		c.mu.Unlock()
		// Connected after the subscriber went away.
		if c.client.IsConnected() {
			c.logger.Debug().Msg("Client connected after unsubscribe, disconnecting")
			c.client.Disconnect()
		}
		return
	case stateConnecting:
		c.state = stateConnected
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.logger.Debug().Msg("Location services client connected")
	c.subscriber.OnNext(c.client)
}

func (c *clientConnection) onConnectionSuspended(cause int) {
	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		return
	}
	c.state = stateFailed
	c.mu.Unlock()

	c.logger.Warn().Int("cause", cause).Msg("Location services connection suspended")
	c.subscriber.OnError(&ConnectionSuspendedError{Cause: cause})
}

func (c *clientConnection) onConnectionFailed(result platform.ConnectionResult) {
	c.mu.Lock()
	if c.state != stateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = stateFailed
	c.mu.Unlock()

	c.logger.Warn().Int("code", result.Code).Str("message", result.Message).Msg("Location services connection failed")
	c.subscriber.OnError(&ConnectionError{Result: result})
}

// release runs on unsubscribe: callbacks are removed first so the disconnect
// below cannot feed events back into the finished subscription.
func (c *clientConnection) release() {
	c.mu.Lock()
	c.state = stateReleased
	unregister := c.unregister
	c.unregister = nil
	c.mu.Unlock()

	if unregister != nil {
		unregister()
	}
	if c.client.IsConnected() || c.client.IsConnecting() {
		c.logger.Debug().Msg("Disconnecting location services client")
		c.client.Disconnect()
	}
}

package fused

import (
	"context"
	"time"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const pushBuffer = 32

// updateSession delivers samples for one location request. Each session
// runs its own goroutine, so samples reach a listener or token in order.
type updateSession struct {
	id      string
	service *Service
	req     platform.LocationRequest
	deliver func(platform.Location) error
	logger  zerolog.Logger

	pushed chan platform.Location
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Service) startSession(req platform.LocationRequest, target string, deliver func(platform.Location) error) *updateSession {
	ctx, cancel := context.WithCancel(context.Background())
	session := &updateSession{
		id:      uuid.New().String(),
		service: s,
		req:     req,
		deliver: deliver,
		logger: s.logger.With().
			Str("target", target).
			Str("priority", req.Priority.String()).
			Logger(),
		pushed: make(chan platform.Location, pushBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	s.sessions.Set(session.id, session)
	go session.run()
	session.logger.Debug().Dur("interval", req.Interval).Msg("Update session started")
	return session
}

// stop ends the session without waiting for an in-flight delivery, so it is
// safe to call from inside a delivery.
func (u *updateSession) stop() {
	u.cancel()
	u.service.sessions.Remove(u.id)
}

// push queues a sample produced outside of the polling loop, such as a
// mock location.
func (u *updateSession) push(loc platform.Location) {
	select {
	case u.pushed <- loc:
	default:
		u.logger.Warn().Msg("Update session is not keeping up, dropping sample")
	}
}

func (u *updateSession) run() {
	defer u.stop()

	interval := u.req.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var expired <-chan time.Time
	if u.req.ExpirationDuration > 0 {
		timer := time.NewTimer(u.req.ExpirationDuration)
		defer timer.Stop()
		expired = timer.C
	}

	var (
		delivered   int
		lastFixTime time.Time
	)
	// emit returns false once the request has received all its updates.
	emit := func(loc platform.Location) bool {
		if u.ctx.Err() != nil {
			return false
		}
		if err := u.deliver(loc); err != nil {
			u.logger.Warn().Err(err).Msg("Failed to deliver location")
		}
		delivered++
		return u.req.NumUpdates == 0 || delivered < u.req.NumUpdates
	}
	poll := func() bool {
		if u.service.mockActive() {
			return true
		}
		loc, ok := u.service.fix(u.ctx, u.req.Priority)
		if !ok || !loc.Time.After(lastFixTime) {
			return true
		}
		lastFixTime = loc.Time
		return emit(loc)
	}

	if !poll() {
		return
	}
	for {
		select {
		case <-u.ctx.Done():
			return
		case <-expired:
			u.logger.Debug().Msg("Update session expired")
			return
		case loc := <-u.pushed:
			if !emit(loc) {
				return
			}
		case <-ticker.C:
			if !poll() {
				return
			}
		}
	}
}

package reactivelocation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benmeehan/reactive-location/pkg/platform"
)

// journal records platform calls in order across every fake.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.list() {
		if e == entry {
			n++
		}
	}
	return n
}

type fakeHost struct{}

func (fakeHost) Name() string                           { return "test-host" }
func (fakeHost) HasPermission(platform.Permission) bool { return true }

// fakeClient connects synchronously inside Connect unless manual is set, in
// which case the test drives the outcome with succeed or fail.
type fakeClient struct {
	journal *journal
	manual  bool
	result  platform.ConnectionResult

	mu         sync.Mutex
	connected  bool
	connecting bool
	callbacks  map[int]platform.ConnectionCallbacks
	nextID     int
}

func (c *fakeClient) Connect() error {
	c.journal.add("connect")
	c.mu.Lock()
	c.connecting = true
	c.mu.Unlock()
	if c.manual {
		return nil
	}
	if c.result.IsSuccess() {
		c.succeed()
	} else {
		c.fail(c.result)
	}
	return nil
}

func (c *fakeClient) Disconnect() {
	c.journal.add("disconnect")
	c.mu.Lock()
	c.connected = false
	c.connecting = false
	c.mu.Unlock()
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting
}

func (c *fakeClient) RegisterConnectionCallbacks(cb platform.ConnectionCallbacks) func() {
	c.journal.add("register-callbacks")
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.callbacks[id] = cb
	c.mu.Unlock()
	return func() {
		c.journal.add("unregister-callbacks")
		c.mu.Lock()
		delete(c.callbacks, id)
		c.mu.Unlock()
	}
}

func (c *fakeClient) snapshot() []platform.ConnectionCallbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]platform.ConnectionCallbacks, 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		out = append(out, cb)
	}
	return out
}

func (c *fakeClient) succeed() {
	c.mu.Lock()
	c.connected = true
	c.connecting = false
	c.mu.Unlock()
	for _, cb := range c.snapshot() {
		cb.OnConnected()
	}
}

func (c *fakeClient) fail(result platform.ConnectionResult) {
	c.mu.Lock()
	c.connected = false
	c.connecting = false
	c.mu.Unlock()
	for _, cb := range c.snapshot() {
		cb.OnConnectionFailed(result)
	}
}

// suspend drops the connection; the platform would reconnect on its own.
func (c *fakeClient) suspend(cause int) {
	c.mu.Lock()
	c.connected = false
	c.connecting = true
	c.mu.Unlock()
	for _, cb := range c.snapshot() {
		cb.OnConnectionSuspended(cause)
	}
}

type fakeFactory struct {
	journal *journal
	manual  bool
	result  platform.ConnectionResult
	err     error

	mu      sync.Mutex
	clients []*fakeClient
}

func (f *fakeFactory) NewClient(platform.HostContext, []platform.API) (platform.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeClient{
		journal:   f.journal,
		manual:    f.manual,
		result:    f.result,
		callbacks: make(map[int]platform.ConnectionCallbacks),
	}
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFactory) last() *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[len(f.clients)-1]
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// fakePending completes when complete is called, or immediately when built
// with completedPending.
type fakePending[T platform.Result] struct {
	mu       sync.Mutex
	result   *T
	callback func(T)
	canceled bool
	calls    int
}

func completedPending[T platform.Result](r T) *fakePending[T] {
	return &fakePending[T]{result: &r}
}

func (p *fakePending[T]) SetResultCallback(cb func(T)) {
	p.mu.Lock()
	p.callback = cb
	result := p.result
	canceled := p.canceled
	p.mu.Unlock()
	if result != nil && !canceled {
		p.deliver(*result)
	}
}

func (p *fakePending[T]) complete(r T) {
	p.mu.Lock()
	p.result = &r
	canceled := p.canceled
	p.mu.Unlock()
	if !canceled {
		p.deliver(r)
	}
}

// completeIgnoringCancel models a platform that delivers despite a cancel.
func (p *fakePending[T]) completeIgnoringCancel(r T) {
	p.mu.Lock()
	p.result = &r
	p.mu.Unlock()
	p.deliver(r)
}

func (p *fakePending[T]) deliver(r T) {
	p.mu.Lock()
	cb := p.callback
	p.calls++
	p.mu.Unlock()
	if cb != nil {
		cb(r)
	}
}

func (p *fakePending[T]) Cancel() {
	p.mu.Lock()
	if p.result == nil {
		p.canceled = true
	}
	p.mu.Unlock()
}

func (p *fakePending[T]) IsCanceled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canceled
}

var success = platform.Status{Code: platform.StatusSuccess}

type fakeFused struct {
	journal *journal

	mu            sync.Mutex
	last          *platform.Location
	lastErr       error
	requestErr    error
	mockModeErr   error
	listeners     []platform.LocationListener
	tokenStatus   platform.Status
	mockStatuses  []*fakePending[platform.Status]
	manualMock    bool
	mockLocations []platform.Location
}

func (f *fakeFused) GetLastLocation(platform.Client) (*platform.Location, error) {
	f.journal.add("get-last-location")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.lastErr
}

func (f *fakeFused) RequestLocationUpdates(_ platform.Client, _ platform.LocationRequest, l platform.LocationListener) error {
	f.journal.add("request-updates")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.listeners = append(f.listeners, l)
	return nil
}

func (f *fakeFused) RemoveLocationUpdates(_ platform.Client, l platform.LocationListener) error {
	f.journal.add("remove-updates")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.listeners {
		if existing == l {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			break
		}
	}
	return nil
}

// emit sends loc to every registered listener, plus any listener passed in
// stale, which models a callback racing with its removal.
func (f *fakeFused) emit(loc platform.Location, stale ...platform.LocationListener) {
	f.mu.Lock()
	listeners := append(append([]platform.LocationListener(nil), f.listeners...), stale...)
	f.mu.Unlock()
	for _, l := range listeners {
		l.OnLocationChanged(loc)
	}
}

func (f *fakeFused) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeFused) RequestLocationUpdatesToken(_ platform.Client, _ platform.LocationRequest, token platform.DeliveryToken) (platform.PendingResult[platform.Status], error) {
	f.journal.add("request-token:" + token.ID())
	f.mu.Lock()
	defer f.mu.Unlock()
	return completedPending(f.tokenStatus), nil
}

func (f *fakeFused) RemoveLocationUpdatesToken(_ platform.Client, token platform.DeliveryToken) (platform.PendingResult[platform.Status], error) {
	f.journal.add("remove-token:" + token.ID())
	f.mu.Lock()
	defer f.mu.Unlock()
	return completedPending(f.tokenStatus), nil
}

func (f *fakeFused) SetMockMode(_ platform.Client, enabled bool) (platform.PendingResult[platform.Status], error) {
	f.journal.add("mock-mode:%t", enabled)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mockModeErr != nil {
		return nil, f.mockModeErr
	}
	return completedPending(success), nil
}

func (f *fakeFused) SetMockLocation(_ platform.Client, loc platform.Location) (platform.PendingResult[platform.Status], error) {
	f.journal.add("mock-location")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mockLocations = append(f.mockLocations, loc)
	if f.manualMock {
		p := &fakePending[platform.Status]{}
		f.mockStatuses = append(f.mockStatuses, p)
		return p, nil
	}
	return completedPending(success), nil
}

type fakeSettings struct {
	journal *journal
	pending *fakePending[platform.LocationSettingsResult]
}

func (f *fakeSettings) CheckLocationSettings(platform.Client, platform.LocationSettingsRequest) (platform.PendingResult[platform.LocationSettingsResult], error) {
	f.journal.add("check-settings")
	return f.pending, nil
}

type fakeToken string

func (t fakeToken) ID() string                   { return string(t) }
func (t fakeToken) Send(platform.Location) error { return nil }

// fakePlatform bundles the fakes behind a Provider.
type fakePlatform struct {
	journal  *journal
	factory  *fakeFactory
	fused    *fakeFused
	settings *fakeSettings
}

func newFakePlatform() *fakePlatform {
	j := &journal{}
	return &fakePlatform{
		journal:  j,
		factory:  &fakeFactory{journal: j},
		fused:    &fakeFused{journal: j, tokenStatus: success},
		settings: &fakeSettings{journal: j, pending: &fakePending[platform.LocationSettingsResult]{}},
	}
}

func (f *fakePlatform) services() platform.LocationServices {
	return platform.LocationServices{Clients: f.factory, Fused: f.fused, Settings: f.settings}
}

var errBoom = errors.New("boom")

package reactivelocation

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/reactive-location/pkg/platform"
	"github.com/benmeehan/reactive-location/pkg/rx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	errs      []error
	completed int
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder[T]) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder[T]) got() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

// terminals returns how many terminal events were observed.
func (r *recorder[T]) terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs) + r.completed
}

func (r *recorder[T]) isCompleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed > 0
}

var (
	l1 = platform.Location{Provider: "gps", Latitude: 52.52, Longitude: 13.405, Time: time.Unix(1, 0)}
	l2 = platform.Location{Provider: "gps", Latitude: 52.53, Longitude: 13.406, Time: time.Unix(2, 0)}
	l3 = platform.Location{Provider: "gps", Latitude: 52.54, Longitude: 13.407, Time: time.Unix(3, 0)}

	updatesRequest = platform.LocationRequest{Priority: platform.PriorityHighAccuracy, Interval: time.Second}
)

func newTestProvider(fp *fakePlatform) *Provider {
	return NewProvider(fakeHost{}, fp.services(), zerolog.Nop())
}

func TestProvider_StreamsAreCold(t *testing.T) {
	fp := newFakePlatform()
	p := newTestProvider(fp)

	_ = p.LastKnownLocation()
	_ = p.UpdatedLocation(updatesRequest)
	_ = p.MockLocation(rx.Just(l1))
	_ = p.RequestLocationUpdates(updatesRequest, fakeToken("t"))
	_ = p.RemoveLocationUpdates(fakeToken("t"))
	_ = p.CheckLocationSettings(platform.LocationSettingsRequest{})
	_ = p.GoogleAPIClientObservable(platform.LocationServicesAPI)

	assert.Empty(t, fp.journal.list())
	assert.Equal(t, 0, fp.factory.created())
}

func TestLastKnownLocation_Present(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.last = &l1

	r := &recorder[platform.Location]{}
	newTestProvider(fp).LastKnownLocation().Subscribe(r)

	assert.Equal(t, []platform.Location{l1}, r.got())
	assert.True(t, r.isCompleted())
	assert.NoError(t, r.err())
	assert.Equal(t, []string{
		"register-callbacks",
		"connect",
		"get-last-location",
		"unregister-callbacks",
		"disconnect",
	}, fp.journal.list())
}

func TestLastKnownLocation_AbsentCompletesEmpty(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Location]{}
	newTestProvider(fp).LastKnownLocation().Subscribe(r)

	assert.Empty(t, r.got())
	assert.True(t, r.isCompleted())
	assert.NoError(t, r.err())
	assert.Equal(t, 1, fp.journal.count("connect"))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestLastKnownLocation_PlatformError(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.lastErr = errBoom

	r := &recorder[platform.Location]{}
	newTestProvider(fp).LastKnownLocation().Subscribe(r)

	err := r.err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlatform)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, KindPlatformError, KindOf(err))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestProvider_ClientCreationError(t *testing.T) {
	fp := newFakePlatform()
	fp.factory.err = errBoom

	r := &recorder[platform.Location]{}
	newTestProvider(fp).LastKnownLocation().Subscribe(r)

	assert.ErrorIs(t, r.err(), errBoom)
	assert.Equal(t, KindPlatformError, KindOf(r.err()))
	assert.Empty(t, fp.journal.list())
}

func TestUpdatedLocation_ConnectFails(t *testing.T) {
	fp := newFakePlatform()
	fp.factory.result = platform.ConnectionResult{Code: platform.ConnectionNetworkError, Message: "offline"}

	r := &recorder[platform.Location]{}
	newTestProvider(fp).UpdatedLocation(updatesRequest).Subscribe(r)

	err := r.err()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 7, connErr.Result.Code)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, KindConnectionFailed, KindOf(err))

	assert.Equal(t, 0, fp.journal.count("disconnect"))
	assert.Equal(t, 0, fp.journal.count("request-updates"))
	assert.Equal(t, 1, fp.journal.count("unregister-callbacks"))
	assert.Equal(t, 1, r.terminals())
}

func TestUpdatedLocation_UnsubscribeStopsDelivery(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Location]{}
	sub := newTestProvider(fp).UpdatedLocation(updatesRequest).Subscribe(r)
	require.Equal(t, 1, fp.fused.listenerCount())

	fp.fused.mu.Lock()
	listener := fp.fused.listeners[0]
	fp.fused.mu.Unlock()

	fp.fused.emit(l1)
	fp.fused.emit(l2)
	sub.Unsubscribe()
	fp.fused.emit(l3, listener)

	assert.Equal(t, []platform.Location{l1, l2}, r.got())
	assert.Equal(t, 0, r.terminals())
	assert.Equal(t, 0, fp.fused.listenerCount())
	assert.Equal(t, []string{
		"register-callbacks",
		"connect",
		"request-updates",
		"remove-updates",
		"unregister-callbacks",
		"disconnect",
	}, fp.journal.list())

	// Unsubscribing again is a no-op.
	sub.Unsubscribe()
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestUpdatedLocation_Suspension(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Location]{}
	newTestProvider(fp).UpdatedLocation(updatesRequest).Subscribe(r)

	fp.fused.emit(l1)
	fp.factory.last().suspend(platform.CauseNetworkLost)
	fp.fused.emit(l2)

	assert.Equal(t, []platform.Location{l1}, r.got())
	err := r.err()
	var suspended *ConnectionSuspendedError
	require.ErrorAs(t, err, &suspended)
	assert.Equal(t, 2, suspended.Cause)
	assert.Equal(t, KindConnectionSuspended, KindOf(err))
	assert.Equal(t, 1, r.terminals())

	entries := fp.journal.list()
	assert.Equal(t, []string{"remove-updates", "unregister-callbacks", "disconnect"}, entries[len(entries)-3:])
}

func TestUpdatedLocation_PreservesOrder(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Location]{}
	sub := newTestProvider(fp).UpdatedLocation(updatesRequest).Subscribe(r)
	defer sub.Unsubscribe()

	want := make([]platform.Location, 0, 100)
	for i := 0; i < 100; i++ {
		loc := platform.Location{Latitude: float64(i), Time: time.Unix(int64(i), 0)}
		want = append(want, loc)
		fp.fused.emit(loc)
	}

	assert.Equal(t, want, r.got())
}

func TestUpdatedLocation_RequestRejected(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.requestErr = fmt.Errorf("%w: missing ACCESS_FINE_LOCATION", platform.ErrPermissionDenied)

	r := &recorder[platform.Location]{}
	newTestProvider(fp).UpdatedLocation(updatesRequest).Subscribe(r)

	assert.ErrorIs(t, r.err(), ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, KindOf(r.err()))
	assert.Equal(t, 0, fp.journal.count("remove-updates"))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestProvider_ResubscribeStartsFreshLifecycle(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.last = &l1
	stream := newTestProvider(fp).LastKnownLocation()

	first, second := &recorder[platform.Location]{}, &recorder[platform.Location]{}
	stream.Subscribe(first)
	stream.Subscribe(second)

	assert.Equal(t, 2, fp.factory.created())
	assert.Equal(t, 2, fp.journal.count("connect"))
	assert.Equal(t, 2, fp.journal.count("disconnect"))
	assert.Equal(t, []platform.Location{l1}, second.got())
}

func TestClientObservable_EmitsOnceAndHoldsConnection(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Client]{}
	sub := newTestProvider(fp).GoogleAPIClientObservable(platform.LocationServicesAPI).Subscribe(r)

	client := fp.factory.last()
	require.Len(t, r.got(), 1)
	assert.Same(t, client, r.got()[0])
	assert.Equal(t, 0, r.terminals())
	assert.True(t, client.IsConnected())

	sub.Unsubscribe()
	assert.False(t, client.IsConnected())
	assert.Equal(t, []string{"register-callbacks", "connect", "unregister-callbacks", "disconnect"}, fp.journal.list())
}

func TestClientObservable_UnsubscribeWhileConnecting(t *testing.T) {
	fp := newFakePlatform()
	fp.factory.manual = true

	r := &recorder[platform.Client]{}
	sub := newTestProvider(fp).GoogleAPIClientObservable(platform.LocationServicesAPI).Subscribe(r)
	client := fp.factory.last()
	callbacks := client.snapshot()

	sub.Unsubscribe()
	assert.Equal(t, 1, fp.journal.count("disconnect"))

	// The platform raced the connect success with the unregistration.
	client.mu.Lock()
	client.connected = true
	client.mu.Unlock()
	for _, cb := range callbacks {
		cb.OnConnected()
	}

	assert.Empty(t, r.got())
	assert.Equal(t, 0, r.terminals())
	assert.False(t, client.IsConnected())
	assert.Equal(t, 2, fp.journal.count("disconnect"))
}

func TestClientObservable_LateFailureAfterConnectIsIgnored(t *testing.T) {
	fp := newFakePlatform()
	fp.factory.manual = true

	r := &recorder[platform.Client]{}
	sub := newTestProvider(fp).GoogleAPIClientObservable(platform.LocationServicesAPI).Subscribe(r)
	defer sub.Unsubscribe()

	client := fp.factory.last()
	client.succeed()
	client.fail(platform.ConnectionResult{Code: platform.ConnectionInternalError})

	assert.Len(t, r.got(), 1)
	assert.NoError(t, r.err())
}

func TestFromPendingResult_AlreadyCompleted(t *testing.T) {
	r := &recorder[platform.Status]{}
	FromPendingResult[platform.Status](completedPending(success)).Subscribe(r)

	assert.Equal(t, []platform.Status{success}, r.got())
	assert.True(t, r.isCompleted())
	assert.Equal(t, 1, r.terminals())
}

func TestFromPendingResult_CompletesLater(t *testing.T) {
	pending := &fakePending[platform.Status]{}
	r := &recorder[platform.Status]{}
	FromPendingResult[platform.Status](pending).Subscribe(r)
	assert.Empty(t, r.got())

	pending.complete(platform.Status{Code: platform.StatusSuccessCache})

	assert.Len(t, r.got(), 1)
	assert.True(t, r.isCompleted())
}

func TestFromPendingResult_FailedStatus(t *testing.T) {
	failed := platform.Status{Code: platform.StatusError, Message: "rejected"}
	r := &recorder[platform.Status]{}
	FromPendingResult[platform.Status](completedPending(failed)).Subscribe(r)

	err := r.err()
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, failed, statusErr.Status)
	assert.ErrorIs(t, err, ErrStatusFailed)
	assert.Equal(t, KindStatusFailed, KindOf(err))
	assert.Empty(t, r.got())
}

func TestFromPendingResult_UnsubscribeCancels(t *testing.T) {
	pending := &fakePending[platform.Status]{}
	r := &recorder[platform.Status]{}
	sub := FromPendingResult[platform.Status](pending).Subscribe(r)

	sub.Unsubscribe()
	assert.True(t, pending.IsCanceled())

	pending.completeIgnoringCancel(success)
	assert.Empty(t, r.got())
	assert.Equal(t, 0, r.terminals())
}

func TestFromPendingResult_NoCancelAfterCompletion(t *testing.T) {
	pending := completedPending(success)
	sub := FromPendingResult[platform.Status](pending).Subscribe(&recorder[platform.Status]{})
	sub.Unsubscribe()

	assert.False(t, pending.IsCanceled())
}

func TestRequestLocationUpdates_Token(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Status]{}
	newTestProvider(fp).RequestLocationUpdates(updatesRequest, fakeToken("token-1")).Subscribe(r)

	assert.Equal(t, []platform.Status{success}, r.got())
	assert.True(t, r.isCompleted())
	assert.Equal(t, []string{
		"register-callbacks",
		"connect",
		"request-token:token-1",
		"unregister-callbacks",
		"disconnect",
	}, fp.journal.list())
}

func TestRemoveLocationUpdates_FailedStatus(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.tokenStatus = platform.Status{Code: platform.StatusInternalError}

	r := &recorder[platform.Status]{}
	newTestProvider(fp).RemoveLocationUpdates(fakeToken("token-1")).Subscribe(r)

	assert.ErrorIs(t, r.err(), ErrStatusFailed)
	assert.Equal(t, 1, fp.journal.count("remove-token:token-1"))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestCheckLocationSettings_ForwardsResultVerbatim(t *testing.T) {
	fp := newFakePlatform()
	resolvable := platform.LocationSettingsResult{
		Status: platform.Status{Code: platform.StatusResolutionRequired, Resolvable: true},
		States: platform.LocationSettingsStates{GPSPresent: true},
	}

	r := &recorder[platform.LocationSettingsResult]{}
	newTestProvider(fp).CheckLocationSettings(platform.LocationSettingsRequest{
		Requests: []platform.LocationRequest{updatesRequest},
	}).Subscribe(r)
	assert.Empty(t, r.got())

	fp.settings.pending.complete(resolvable)

	assert.Equal(t, []platform.LocationSettingsResult{resolvable}, r.got())
	assert.True(t, r.isCompleted())
	assert.NoError(t, r.err())
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestMockLocation_FeedsSourceAndDisablesMockMode(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.From(l1, l2)).Subscribe(r)

	assert.Equal(t, []platform.Status{success, success}, r.got())
	assert.True(t, r.isCompleted())
	assert.Equal(t, []platform.Location{l1, l2}, fp.fused.mockLocations)
	assert.Equal(t, []string{
		"register-callbacks",
		"connect",
		"mock-mode:true",
		"mock-location",
		"mock-location",
		"mock-mode:false",
		"unregister-callbacks",
		"disconnect",
	}, fp.journal.list())
}

func TestMockLocation_PermissionDenied(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.mockModeErr = fmt.Errorf("%w: missing ACCESS_MOCK_LOCATION", platform.ErrPermissionDenied)

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.Just(l1)).Subscribe(r)

	assert.ErrorIs(t, r.err(), ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, KindOf(r.err()))
	assert.Equal(t, 0, fp.journal.count("mock-location"))
	assert.Equal(t, 0, fp.journal.count("mock-mode:false"))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestMockLocation_FailedStatusTerminates(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.manualMock = true

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.From(l1, l2)).Subscribe(r)
	require.Len(t, fp.fused.mockStatuses, 2)

	fp.fused.mockStatuses[0].complete(platform.Status{Code: platform.StatusError})
	fp.fused.mockStatuses[1].complete(success)

	assert.ErrorIs(t, r.err(), ErrStatusFailed)
	assert.Empty(t, r.got())
	assert.Equal(t, 1, r.terminals())
	assert.True(t, fp.fused.mockStatuses[1].IsCanceled())

	entries := fp.journal.list()
	assert.Equal(t, []string{"mock-mode:false", "unregister-callbacks", "disconnect"}, entries[len(entries)-3:])
}

func TestMockLocation_WaitsForPendingStatuses(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.manualMock = true

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.Just(l1)).Subscribe(r)
	assert.False(t, r.isCompleted())

	fp.fused.mockStatuses[0].complete(success)

	assert.Equal(t, []platform.Status{success}, r.got())
	assert.True(t, r.isCompleted())
}

func TestMockLocation_UnsubscribeCancelsPending(t *testing.T) {
	fp := newFakePlatform()
	fp.fused.manualMock = true

	r := &recorder[platform.Status]{}
	sub := newTestProvider(fp).MockLocation(rx.Just(l1)).Subscribe(r)
	sub.Unsubscribe()

	assert.True(t, fp.fused.mockStatuses[0].IsCanceled())
	assert.Equal(t, 0, r.terminals())
	entries := fp.journal.list()
	assert.Equal(t, []string{"mock-mode:false", "unregister-callbacks", "disconnect"}, entries[len(entries)-3:])
}

func TestMockLocation_SourceErrorPropagates(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.Error[platform.Location](errBoom)).Subscribe(r)

	assert.True(t, errors.Is(r.err(), errBoom))
	assert.Equal(t, 1, fp.journal.count("mock-mode:false"))
	assert.Equal(t, 1, fp.journal.count("disconnect"))
}

func TestMockLocation_Suspension(t *testing.T) {
	fp := newFakePlatform()

	r := &recorder[platform.Status]{}
	newTestProvider(fp).MockLocation(rx.Never[platform.Location]()).Subscribe(r)
	require.Equal(t, 1, fp.journal.count("mock-mode:true"))

	fp.factory.last().suspend(platform.CauseNetworkLost)

	var suspended *ConnectionSuspendedError
	require.ErrorAs(t, r.err(), &suspended)
	assert.Equal(t, platform.CauseNetworkLost, suspended.Cause)
	assert.Equal(t, 1, r.terminals())

	// The dropped connection no longer holds mock mode, so only the
	// disconnect is left to do.
	assert.Equal(t, 0, fp.journal.count("mock-mode:false"))
	entries := fp.journal.list()
	assert.Equal(t, []string{"unregister-callbacks", "disconnect"}, entries[len(entries)-2:])
}

func TestMockFeed_TrackAfterTeardownCancels(t *testing.T) {
	r := &recorder[platform.Status]{}
	f := &mockFeed{
		subscriber: rx.NewSubscriber[platform.Status](r),
		pending:    make(map[int]rx.Subscription),
	}
	f.cancelPending()

	late := &fakePending[platform.Status]{}
	f.track(late)
	late.complete(success)

	assert.True(t, late.IsCanceled())
	assert.Empty(t, f.pending)
	assert.Empty(t, r.got())
}

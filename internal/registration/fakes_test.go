package registration

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

func fastBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Millisecond
	b.MaxInterval = 5 * time.Millisecond
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

type fakeConn struct {
	mu sync.Mutex

	refreshErr error
	online     bool
	setupErr   error

	refreshCalls int
	suspendCalls int
}

func (f *fakeConn) Refresh(_ context.Context, server *ActiveServer, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr == nil {
		info := server.Info()
		info.ConnType = ConnTypeUDP
		server.SetInfo(info)
	}
	return f.refreshErr
}

func (f *fakeConn) SetupRegistrationConnection(_ context.Context, server *ActiveServer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setupErr == nil {
		info := server.Info()
		info.ConnType = ConnTypeUDP
		server.SetInfo(info)
	}
	return f.setupErr
}

func (f *fakeConn) IsOnline(*ActiveServer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeConn) Suspend(*ActiveServer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspendCalls++
}

type fakeProto struct {
	mu sync.Mutex

	registerErr       error
	registerLifetimeS int64
	updateResult      UpdateResult
	updateErr         error
	deregisterErr     error

	registerCalls   int
	updateCalls     int
	deregisterCalls int

	// registered is signaled (non-blocking) after every Register call so
	// tests that trigger registration through an async scheduler job can
	// wait on it deterministically, instead of waiting on the scheduler
	// itself (which would also wait on whatever Update job registration
	// schedules next, potentially minutes away).
	registered chan struct{}
}

func (f *fakeProto) Register(_ context.Context, server *ActiveServer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.registerErr == nil {
		lifetime := f.registerLifetimeS
		if lifetime == 0 {
			lifetime = 3600
		}
		server.SetInfo(RegistrationInfo{
			LifetimeS:            lifetime,
			RegistrationDeadline: time.Now().Add(time.Duration(lifetime) * time.Second),
			ConnType:             server.Info().ConnType,
		})
	}
	if f.registered != nil {
		select {
		case f.registered <- struct{}{}:
		default:
		}
	}
	return f.registerErr
}

func (f *fakeProto) Update(context.Context, *ActiveServer) (UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateResult, f.updateErr
}

func (f *fakeProto) Deregister(context.Context, *ActiveServer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deregisterCalls++
	return f.deregisterErr
}

type fakeStream struct {
	mu sync.Mutex

	bindErr error

	bindCalls                          int
	releaseCalls                       int
	releaseWithoutSchedulingQueueCalls int
}

func (f *fakeStream) Bind(context.Context, *ActiveServer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindCalls++
	return f.bindErr
}

func (f *fakeStream) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
}

func (f *fakeStream) ReleaseWithoutSchedulingQueue() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseWithoutSchedulingQueueCalls++
}

type fakeObserve struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeObserve) FlushCurrentConnection(*ActiveServer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

type fakeBootstrap struct {
	mu               sync.Mutex
	notifyCalls      int
	reconnectedCalls int
}

func (f *fakeBootstrap) NotifyRegularConnectionAvailable(*ActiveServer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyCalls++
}

func (f *fakeBootstrap) Reconnected(*ActiveServer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnectedCalls++
}

package capture

import "sync"

// CloseSignal is a one-shot notification that a capture target was
// destroyed. Fire may be called from any goroutine, any number of times.
type CloseSignal struct {
	fireOnce sync.Once
	done     chan struct{}

	mu          sync.Mutex
	released    bool
	releaseHook []func()
}

// NewCloseSignal returns an unfired, unrouted signal.
func NewCloseSignal() *CloseSignal {
	return &CloseSignal{done: make(chan struct{})}
}

// Fire marks the target as destroyed. Only the first call has an effect.
func (c *CloseSignal) Fire() {
	c.fireOnce.Do(func() { close(c.done) })
}

// Fired polls the signal without blocking.
func (c *CloseSignal) Fired() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once the signal fires.
func (c *CloseSignal) Done() <-chan struct{} {
	return c.done
}

// OnRelease registers fn to run when the signal is released. fn runs
// immediately if the signal was already released.
func (c *CloseSignal) OnRelease(fn func()) {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		fn()
		return
	}
	c.releaseHook = append(c.releaseHook, fn)
	c.mu.Unlock()
}

// Release detaches the signal from whatever routes to it. Idempotent.
func (c *CloseSignal) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	hooks := c.releaseHook
	c.releaseHook = nil
	c.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

type closeRoute struct {
	handle uintptr
	signal *CloseSignal
}

// CloseRouter maps an opaque backend token (e.g. a WinEvent hook handle) to
// the target identity and close signal registered under it. Destruction
// callbacks only receive the token and a raw handle, so this table is how
// they find the session to notify. Lookups from concurrent callbacks share
// the read lock.
type CloseRouter struct {
	mu     sync.RWMutex
	routes map[uintptr]closeRoute
}

func NewCloseRouter() *CloseRouter {
	return &CloseRouter{routes: make(map[uintptr]closeRoute)}
}

// Register routes token to a fresh signal for handle. A route already
// registered under the same token is replaced; its signal is never fired
// by this router again.
func (r *CloseRouter) Register(token, handle uintptr) *CloseSignal {
	sig := NewCloseSignal()

	r.mu.Lock()
	r.routes[token] = closeRoute{handle: handle, signal: sig}
	r.mu.Unlock()

	sig.OnRelease(func() { r.unregister(token, sig) })
	return sig
}

// Route fires the signal registered under token if it belongs to handle,
// then drops the route. Reports whether a signal fired.
func (r *CloseRouter) Route(token, handle uintptr) bool {
	r.mu.RLock()
	route, ok := r.routes[token]
	r.mu.RUnlock()
	if !ok || route.handle != handle {
		return false
	}

	route.signal.Fire()
	r.unregister(token, route.signal)
	return true
}

// Unregister drops whatever route is registered under token.
func (r *CloseRouter) Unregister(token uintptr) {
	r.mu.Lock()
	delete(r.routes, token)
	r.mu.Unlock()
}

// Len reports the number of live routes.
func (r *CloseRouter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// unregister removes the route only if it still points at sig, so a stale
// session cannot tear down a newer registration that reused the token.
func (r *CloseRouter) unregister(token uintptr, sig *CloseSignal) {
	r.mu.Lock()
	if route, ok := r.routes[token]; ok && route.signal == sig {
		delete(r.routes, token)
	}
	r.mu.Unlock()
}

// DefaultCloseRouter is the process-wide table consulted by the backend's
// destruction hook.
var DefaultCloseRouter = NewCloseRouter()

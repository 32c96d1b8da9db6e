package capture

import (
	"sync"
	"testing"
)

func TestCloseSignalFiresOnce(t *testing.T) {
	sig := NewCloseSignal()
	if sig.Fired() {
		t.Fatal("new signal reports fired")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig.Fire()
		}()
	}
	wg.Wait()

	if !sig.Fired() {
		t.Fatal("Fired() = false after Fire")
	}
	select {
	case <-sig.Done():
	default:
		t.Fatal("Done not closed after Fire")
	}
}

func TestCloseSignalReleaseHooks(t *testing.T) {
	sig := NewCloseSignal()
	var order []int
	sig.OnRelease(func() { order = append(order, 1) })
	sig.OnRelease(func() { order = append(order, 2) })

	sig.Release()
	sig.Release()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("hook order = %v, want [2 1]", order)
	}

	ran := false
	sig.OnRelease(func() { ran = true })
	if !ran {
		t.Fatal("hook added after Release should run immediately")
	}
}

func TestCloseRouterRoute(t *testing.T) {
	r := NewCloseRouter()
	sig := r.Register(1, 0xA)

	if r.Route(1, 0xB) {
		t.Fatal("Route fired for a different handle")
	}
	if r.Route(2, 0xA) {
		t.Fatal("Route fired for an unknown token")
	}
	if !r.Route(1, 0xA) {
		t.Fatal("Route did not fire for a matching token and handle")
	}
	if !sig.Fired() {
		t.Fatal("signal not fired")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after routing", r.Len())
	}
	if r.Route(1, 0xA) {
		t.Fatal("route should be removed after firing")
	}
}

func TestCloseRouterStaleRegistration(t *testing.T) {
	r := NewCloseRouter()
	stale := r.Register(7, 0xA)
	fresh := r.Register(7, 0xA)

	// The stale session going away must not remove the fresh route.
	stale.Release()
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	r.Route(7, 0xA)
	if stale.Fired() {
		t.Fatal("stale signal fired")
	}
	if !fresh.Fired() {
		t.Fatal("fresh signal not fired")
	}
}

func TestCloseRouterReleaseUnregisters(t *testing.T) {
	r := NewCloseRouter()
	sig := r.Register(3, 0xC)
	sig.Release()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Release", r.Len())
	}
	if r.Route(3, 0xC) {
		t.Fatal("released signal should not be routable")
	}
}

func TestCloseRouterConcurrentSessions(t *testing.T) {
	r := NewCloseRouter()
	sigs := make([]*CloseSignal, 16)
	for i := range sigs {
		sigs[i] = r.Register(uintptr(i+1), uintptr(0x100+i))
	}

	var wg sync.WaitGroup
	for i := range sigs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Route(uintptr(i+1), uintptr(0x100+i))
		}(i)
	}
	wg.Wait()

	for i, sig := range sigs {
		if !sig.Fired() {
			t.Fatalf("signal %d not fired", i)
		}
	}
}

// Global destroy hooks see every window's destruction; only the hook
// watching that window may fire.
func TestCloseRouterBroadcastEvents(t *testing.T) {
	r := NewCloseRouter()
	hooks := map[uintptr]uintptr{1: 0xA, 2: 0xB}
	sigs := map[uintptr]*CloseSignal{}
	for hook, hwnd := range hooks {
		sigs[hwnd] = r.Register(hook, hwnd)
	}

	broadcast := func(hwnd uintptr) int {
		fired := 0
		for hook := range hooks {
			if r.Route(hook, hwnd) {
				fired++
			}
		}
		return fired
	}

	for _, hwnd := range []uintptr{0xC, 0xD, 0xE} {
		if got := broadcast(hwnd); got != 0 {
			t.Fatalf("unrelated window 0x%X fired %d signals, want 0", hwnd, got)
		}
	}
	if got := broadcast(0xA); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
	if !sigs[0xA].Fired() || sigs[0xB].Fired() {
		t.Fatalf("fired A/B = %v/%v, want true/false", sigs[0xA].Fired(), sigs[0xB].Fired())
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

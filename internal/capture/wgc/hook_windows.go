//go:build windows

package wgc

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/wgcap/wgcap/internal/capture"
)

var (
	procSetWinEventHook    = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent     = user32.NewProc("UnhookWinEvent")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

const (
	eventObjectDestroy   = 0x8001
	winEventOutOfContext = 0x0000
	objidWindow          = 0
	childidSelf          = 0

	wmUser        = 0x0400
	wmHookRequest = 0x8000 + 1 // WM_APP + 1
	pmNoRemove    = 0x0000
)

// msg matches MSG.
type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// hookThread owns every EVENT_OBJECT_DESTROY hook. Out-of-context WinEvent
// callbacks are delivered to the thread that installed the hook while it
// pumps messages, so installs, removals and callbacks all run on one
// locked OS thread and the hooks map needs no lock.
type hookThread struct {
	hookQueue

	once     sync.Once
	startErr error
	tid      uint32
	hooks    map[uintptr]*capture.CloseSignal
}

var destroyHooks hookThread

var winEventProc = windows.NewCallback(onWinEvent)

// watch installs a system-wide destroy hook and routes it to a new close
// signal for handle. Events for other windows are dropped by the router.
// Releasing the signal removes the hook.
func (h *hookThread) watch(handle uintptr) (*capture.CloseSignal, error) {
	if err := h.start(); err != nil {
		return nil, err
	}
	r := h.do(hookRequest{handle: handle})
	return r.signal, r.err
}

func (h *hookThread) start() error {
	h.once.Do(func() {
		h.hookQueue = newHookQueue(h.post)
		h.hooks = make(map[uintptr]*capture.CloseSignal)
		ready := make(chan error, 1)
		go h.run(ready)
		h.startErr = <-ready
	})
	return h.startErr
}

func (h *hookThread) post() error {
	if r, _, err := procPostThreadMessageW.Call(uintptr(h.tid), wmHookRequest, 0, 0); r == 0 {
		return fmt.Errorf("PostThreadMessage: %w", err)
	}
	return nil
}

func (h *hookThread) run(ready chan<- error) {
	runtime.LockOSThread()
	defer h.hookQueue.close()
	h.tid = windows.GetCurrentThreadId()

	// Create the thread's message queue before anyone posts to it.
	var m msg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmUser, wmUser, pmNoRemove)
	ready <- nil

	for {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			log.Error("destroy hook message loop exited", "error", err)
			return
		}
		if m.Hwnd == 0 && m.Message == wmHookRequest {
			h.serve()
			continue
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// serve handles every queued request. Runs on the hook thread.
func (h *hookThread) serve() {
	for {
		req, ok := h.next()
		if !ok {
			return
		}
		if req.unhook != 0 {
			h.remove(req.unhook, req.owner)
			req.reply <- hookReply{}
			continue
		}
		req.reply <- h.install(req)
	}
}

func (h *hookThread) install(req hookRequest) hookReply {
	// Filtering by the owner's process and thread misses some destroys,
	// so the hook is global and Route matches the handle instead.
	hook, _, err := procSetWinEventHook.Call(
		eventObjectDestroy, eventObjectDestroy,
		0, // hmodWinEventProc
		winEventProc,
		0, 0, // all processes and threads
		winEventOutOfContext,
	)
	if hook == 0 {
		return hookReply{err: fmt.Errorf("SetWinEventHook: %w", err)}
	}
	// No callback can run before this returns to GetMessage, so the route
	// is in place before the first event.
	sig := capture.DefaultCloseRouter.Register(hook, req.handle)
	h.hooks[hook] = sig
	sig.OnRelease(func() {
		if r := h.do(hookRequest{unhook: hook, owner: sig}); r.err != nil {
			log.Debug("destroy hook removal skipped", "hook", hook, "error", r.err)
		}
	})
	log.Debug("destroy hook installed", "hook", hook, "hwnd", req.handle)
	return hookReply{signal: sig}
}

// remove unhooks hook if owner still owns it. A nil owner removes it
// unconditionally. Hook handles can be reused after removal.
func (h *hookThread) remove(hook uintptr, owner *capture.CloseSignal) {
	cur, ok := h.hooks[hook]
	if !ok || (owner != nil && cur != owner) {
		return
	}
	delete(h.hooks, hook)
	if r, _, err := procUnhookWinEvent.Call(hook); r == 0 {
		log.Debug("UnhookWinEvent failed", "hook", hook, "error", err)
	}
}

func onWinEvent(hook, event, hwnd, idObject, idChild, eventThread, eventTime uintptr) uintptr {
	if int32(idObject) != objidWindow || int32(idChild) != childidSelf {
		return 0
	}
	if capture.DefaultCloseRouter.Route(hook, hwnd) {
		log.Debug("capture target destroyed", "hwnd", hwnd)
		destroyHooks.remove(hook, nil)
	}
	return 0
}

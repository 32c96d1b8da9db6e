package wgc

import (
	"errors"

	"github.com/wgcap/wgcap/internal/capture"
)

var errHookThreadExited = errors.New("destroy hook thread exited")

// hookRequest installs a destroy hook routed to handle, or removes unhook
// when it is set.
type hookRequest struct {
	handle uintptr

	unhook uintptr
	owner  *capture.CloseSignal

	reply chan hookReply
}

type hookReply struct {
	signal *capture.CloseSignal
	err    error
}

// hookQueue hands requests to the hook thread. wake tells the thread that
// requests are pending. Once exited is closed every call fails fast.
type hookQueue struct {
	reqs   chan hookRequest
	exited chan struct{}
	wake   func() error
}

func newHookQueue(wake func() error) hookQueue {
	return hookQueue{
		reqs:   make(chan hookRequest, 16),
		exited: make(chan struct{}),
		wake:   wake,
	}
}

func (q *hookQueue) do(req hookRequest) hookReply {
	req.reply = make(chan hookReply, 1)
	select {
	case <-q.exited:
		return hookReply{err: errHookThreadExited}
	default:
	}
	select {
	case q.reqs <- req:
	case <-q.exited:
		return hookReply{err: errHookThreadExited}
	}
	if err := q.wake(); err != nil {
		return hookReply{err: err}
	}
	select {
	case r := <-req.reply:
		return r
	case <-q.exited:
		// The loop may have answered just before it stopped.
		select {
		case r := <-req.reply:
			return r
		default:
			return hookReply{err: errHookThreadExited}
		}
	}
}

// next returns a pending request without blocking.
func (q *hookQueue) next() (hookRequest, bool) {
	select {
	case req := <-q.reqs:
		return req, true
	default:
		return hookRequest{}, false
	}
}

// close marks the hook thread as gone. Called once, from the thread.
func (q *hookQueue) close() {
	close(q.exited)
}

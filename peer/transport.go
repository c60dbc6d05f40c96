package peer

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("peer: transport closed")

// Transport carries opaque frames between the two peers of a session.
// Frames arrive in the order they were sent. Frames() is closed once the
// transport is gone for good.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Frames() <-chan []byte
	Close() error
}

type pipeEnd struct {
	inbox  chan []byte
	frames chan []byte
	peer   *pipeEnd
	done   chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory transports. Closing either end closes both.
func Pipe() (Transport, Transport) {
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeEnd{inbox: make(chan []byte, 64), frames: make(chan []byte), done: done, once: once}
	b := &pipeEnd{inbox: make(chan []byte, 64), frames: make(chan []byte), done: done, once: once}
	a.peer, b.peer = b, a
	go a.pump()
	go b.pump()
	return a, b
}

func (p *pipeEnd) pump() {
	defer close(p.frames)
	for {
		select {
		case f := <-p.inbox:
			select {
			case p.frames <- f:
			case <-p.done:
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *pipeEnd) Send(ctx context.Context, frame []byte) error {
	buf := append([]byte(nil), frame...)
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.peer.inbox <- buf:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Frames() <-chan []byte { return p.frames }

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

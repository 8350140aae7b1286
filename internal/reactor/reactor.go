// Package reactor multiplexes non-blocking descriptors through epoll and
// fires one periodic timer. It knows nothing of the protocol, the keyspace
// or commands; it only reports "this descriptor is readable / writable /
// errored" and invokes the timer callback when its interval elapses.
package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Interest and readiness bits, decoupled from the epoll constants.
const (
	EventRead uint32 = 1 << iota
	EventWrite
	EventError
)

const maxEvents = 1024

// Event is one readiness report.
type Event struct {
	FD   int
	Mask uint32
}

type Reactor struct {
	epfd   int
	events [maxEvents]unix.EpollEvent
	ready  [maxEvents]Event

	timerCb       func()
	timerInterval time.Duration
	lastTimerFire time.Time
}

func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Reactor{epfd: epfd, lastTimerFire: time.Now()}, nil
}

func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

func toEpoll(mask uint32) uint32 {
	var ev uint32
	if mask&EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) uint32 {
	var mask uint32
	// EPOLLHUP may still carry final data, so it reads as readable.
	if ev&(unix.EPOLLIN|unix.EPOLLHUP) != 0 {
		mask |= EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= EventWrite
	}
	if ev&unix.EPOLLERR != 0 {
		mask |= EventError
	}
	return mask
}

// Add registers fd with the given interest mask.
func (r *Reactor) Add(fd int, mask uint32) error {
	ev := unix.EpollEvent{Events: toEpoll(mask), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Mod replaces fd's interest mask.
func (r *Reactor) Mod(fd int, mask uint32) error {
	ev := unix.EpollEvent{Events: toEpoll(mask), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Del unregisters fd.
func (r *Reactor) Del(fd int) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// SetTimer installs the single periodic timer slot.
func (r *Reactor) SetTimer(cb func(), interval time.Duration) {
	r.timerCb = cb
	r.timerInterval = interval
	r.lastTimerFire = time.Now()
}

// Poll waits at most timeout for readiness, clamped so the periodic timer
// never oversleeps, and fires the timer afterward if its interval elapsed.
// An interrupted wait reports zero events, not an error.
func (r *Reactor) Poll(timeout time.Duration) ([]Event, error) {
	effective := timeout
	if r.timerCb != nil && r.timerInterval > 0 {
		remaining := r.timerInterval - time.Since(r.lastTimerFire)
		if remaining <= 0 {
			effective = 0
		} else if remaining < effective {
			effective = remaining
		}
	}

	n, err := unix.EpollWait(r.epfd, r.events[:], int(effective.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			n = 0
		} else {
			return nil, fmt.Errorf("epoll_wait: %w", err)
		}
	}

	if r.timerCb != nil && r.timerInterval > 0 &&
		time.Since(r.lastTimerFire) >= r.timerInterval {
		r.timerCb()
		r.lastTimerFire = time.Now()
	}

	for i := 0; i < n; i++ {
		r.ready[i] = Event{FD: int(r.events[i].Fd), Mask: fromEpoll(r.events[i].Events)}
	}
	return r.ready[:n], nil
}

//go:build linux

package rest

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Readiness outcomes reported per registered descriptor.
const (
	eventReadable    = unix.POLLIN | unix.POLLHUP | unix.POLLRDHUP
	eventExceptional = unix.POLLERR | unix.POLLNVAL
)

// poller is a reusable readiness set built fresh on every event loop
// iteration. It is owned by the event loop goroutine.
type poller struct {
	fds []unix.PollFd
}

func newPoller(capacity int) *poller {
	return &poller{fds: make([]unix.PollFd, 0, capacity)}
}

func (p *poller) reset() {
	p.fds = p.fds[:0]
}

// add registers fd for read readiness and returns its slot.
func (p *poller) add(fd int) int {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLRDHUP})
	return len(p.fds) - 1
}

// wait blocks for at most timeout and returns the number of ready slots.
// A timeout is not an error. EINTR restarts the wait with the full timeout.
func (p *poller) wait(timeout time.Duration) (int, error) {
	for {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		n, err := unix.Ppoll(p.fds, &ts, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, &TransportError{Op: "poll", FD: -1, Err: err}
		}
		return n, nil
	}
}

func (p *poller) readable(slot int) bool {
	return p.fds[slot].Revents&eventReadable != 0
}

func (p *poller) exceptional(slot int) bool {
	return p.fds[slot].Revents&eventExceptional != 0
}

// waitWritable blocks until fd accepts more bytes or timeout elapses.
func waitWritable(fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrWriteTimeout
		}

		ts := unix.NsecToTimespec(remaining.Nanoseconds())
		n, err := unix.Ppoll(fds, &ts, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrWriteTimeout
		}

		re := fds[0].Revents
		if re&(unix.POLLERR|unix.POLLNVAL|unix.POLLHUP) != 0 {
			return fmt.Errorf("socket not writable (revents=%#x)", re)
		}
		if re&unix.POLLOUT != 0 {
			return nil
		}
	}
}

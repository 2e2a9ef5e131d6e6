//go:build !linux

package rest

import (
	"net/netip"
	"time"
)

func listenTCP(netip.Addr, int, int) (int, int, error) {
	return -1, 0, ErrUnsupportedPlatform
}

func acceptConn(int) (int, string, error) {
	return -1, "", ErrUnsupportedPlatform
}

func recvConn(int, []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func sendConn(int, []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func closeFD(int) error {
	return ErrUnsupportedPlatform
}

func isWouldBlock(error) bool {
	return false
}

type poller struct{}

func newPoller(int) *poller { return &poller{} }

func (p *poller) reset() {}

func (p *poller) add(int) int {
	return 0
}

func (p *poller) readable(int) bool {
	return false
}

func (p *poller) exceptional(int) bool {
	return false
}

func (p *poller) wait(time.Duration) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func waitWritable(int, time.Duration) error {
	return ErrUnsupportedPlatform
}

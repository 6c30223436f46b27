package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// wsaeconnrefused is the Winsock connection refused code, which Windows
// reports instead of syscall.ECONNREFUSED
const wsaeconnrefused = syscall.Errno(10061)

// TCP considers a host alive when any of its ports accepts or actively
// refuses a connection. Both prove a live TCP stack at the address.
type TCP struct {
	timeout time.Duration
	ports   []int
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCP creates a TCP connect prober, DefaultPorts are used when ports is empty
func NewTCP(timeout time.Duration, ports []int) *TCP {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &TCP{
		timeout: timeout,
		ports:   ports,
		dial:    dialer.DialContext,
	}
}

// Probe dials every port in parallel and returns on the first sign of life
func (p *TCP) Probe(ctx context.Context, address string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	answers := make(chan bool, len(p.ports))
	for _, port := range p.ports {
		go func(port int) {
			conn, err := p.dial(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
			if err == nil {
				_ = conn.Close()
				answers <- true
				return
			}
			answers <- isConnRefused(err)
		}(port)
	}

	for range p.ports {
		if <-answers {
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op
func (p *TCP) Close() error {
	return nil
}

// isConnRefused reports whether err is an active refusal from the peer
func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, wsaeconnrefused)
}

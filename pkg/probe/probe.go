// Package probe implements single-attempt host reachability checks.
//
// Three kinds are available:
//   - ping: runs the system ping binary once, no privileges needed
//   - icmp: echo requests over one shared ICMP socket, replies matched by sequence
//   - tcp:  TCP connect to a few common ports, a refused connection counts as alive
//
// Every prober answers alive or not alive; errors describe why a probe could
// not be carried out and are never fatal to a sweep.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kinds of probers
const (
	KindPing = "ping"
	KindICMP = "icmp"
	KindTCP  = "tcp"
)

// DefaultTimeout bounds a single probe
const DefaultTimeout = 2 * time.Second

// DefaultPorts are tried by the tcp prober
var DefaultPorts = []int{80, 443, 22, 445}

// Prober checks a single host and releases its resources on Close
type Prober interface {
	Probe(ctx context.Context, address string) (bool, error)
	Close() error
}

// Options configures a prober
type Options struct {
	Timeout time.Duration
	Ports   []int // tcp only
}

// Kinds returns the names accepted by New
func Kinds() []string {
	return []string{KindPing, KindICMP, KindTCP}
}

// New returns the prober of the given kind
func New(kind string, options Options) (Prober, error) {
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}

	switch kind {
	case KindPing, "":
		return NewPing(options.Timeout), nil
	case KindICMP:
		return NewICMP(options.Timeout)
	case KindTCP:
		return NewTCP(options.Timeout, options.Ports), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q (valid: %s)", kind, strings.Join(Kinds(), ", "))
	}
}

package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	osutils "github.com/projectdiscovery/utils/os"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Ping probes a host with a single echo request sent by the system ping binary
type Ping struct {
	timeout time.Duration
	windows bool
	darwin  bool
	run     runFunc
}

// NewPing creates a system ping prober
func NewPing(timeout time.Duration) *Ping {
	return &Ping{
		timeout: timeout,
		windows: osutils.IsWindows(),
		darwin:  osutils.IsOSX(),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Probe reports whether address answered one echo request within the timeout
func (p *Ping) Probe(ctx context.Context, address string) (bool, error) {
	output, err := p.run(ctx, "ping", p.args(address)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// non-zero exit: no reply
			return false, nil
		}
		return false, fmt.Errorf("could not run ping: %w", err)
	}

	// windows exits 0 on "Destination host unreachable" replies from the gateway
	if p.windows && !bytes.Contains(bytes.ToUpper(output), []byte("TTL=")) {
		return false, nil
	}
	return true, nil
}

// Close is a no-op
func (p *Ping) Close() error {
	return nil
}

func (p *Ping) args(address string) []string {
	switch {
	case p.windows:
		return []string{"-n", "1", "-w", strconv.FormatInt(p.timeout.Milliseconds(), 10), address}
	case p.darwin:
		return []string{"-c", "1", "-t", p.timeoutSeconds(), address}
	default:
		return []string{"-c", "1", "-W", p.timeoutSeconds(), address}
	}
}

// timeoutSeconds rounds the timeout up to whole seconds, at least 1
func (p *Ping) timeoutSeconds() string {
	seconds := int(math.Ceil(p.timeout.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/gologger"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ErrProberClosed is returned by probes issued after Close
var ErrProberClosed = errors.New("prober closed")

// pendingPing tracks a sent echo request waiting for its reply
type pendingPing struct {
	IP    net.IP
	Start time.Time
	reply chan struct{}
}

// ICMP sends echo requests over one shared ICMP socket. A single receiver
// goroutine reads every reply and hands it to the waiting probe.
type ICMP struct {
	timeout time.Duration
	conn    net.PacketConn
	// datagram is true for unprivileged "udp4" sockets: the kernel rewrites
	// the echo ID and peers are reported as *net.UDPAddr
	datagram bool
	id       int
	seq      atomic.Uint32
	pending  gcache.Cache[int, *pendingPing]

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewICMP opens a raw ICMP socket, falling back to an unprivileged datagram
// socket where the platform allows it
func NewICMP(timeout time.Duration) (*ICMP, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	datagram := false
	if err != nil {
		gologger.Verbose().Msgf("raw icmp socket unavailable (%v), trying unprivileged", err)
		var udpErr error
		conn, udpErr = icmp.ListenPacket("udp4", "0.0.0.0")
		if udpErr != nil {
			return nil, fmt.Errorf("failed to create shared ICMP connection: %w", err)
		}
		datagram = true
	}
	return newICMP(conn, datagram, timeout), nil
}

func newICMP(conn net.PacketConn, datagram bool, timeout time.Duration) *ICMP {
	p := &ICMP{
		timeout:  timeout,
		conn:     conn,
		datagram: datagram,
		id:       os.Getpid() & 0xffff,
		// entries outlive their probe only if Remove is skipped, expire them anyway
		pending: gcache.New[int, *pendingPing](1024).
			LRU().
			Expiration(2 * timeout).
			Build(),
		done: make(chan struct{}),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.receiveReplies()
	}()
	return p
}

// Probe sends one echo request to address and waits for the matching reply
func (p *ICMP) Probe(ctx context.Context, address string) (bool, error) {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		return false, fmt.Errorf("invalid IPv4 address %q", address)
	}

	select {
	case <-p.done:
		return false, ErrProberClosed
	default:
	}

	seq := int(p.seq.Add(1) & 0xffff)
	pending := &pendingPing{
		IP:    ip,
		Start: time.Now(),
		reply: make(chan struct{}, 1),
	}
	if err := p.pending.Set(seq, pending); err != nil {
		return false, fmt.Errorf("could not track echo %d: %w", seq, err)
	}
	defer p.pending.Remove(seq)

	if err := p.sendPing(ip, seq); err != nil {
		return false, err
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-pending.reply:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return false, ErrProberClosed
	}
}

// Close stops the receiver and releases the socket
func (p *ICMP) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
		p.wg.Wait()
	})
	return err
}

// sendPing sends an ICMP echo request through the shared connection
func (p *ICMP) sendPing(ip net.IP, seq int) error {
	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte("HELLO-R-U-THERE"),
		},
	}

	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	var dst net.Addr = &net.IPAddr{IP: ip}
	if p.datagram {
		dst = &net.UDPAddr{IP: ip}
	}
	if _, err := p.conn.WriteTo(msgBytes, dst); err != nil {
		return fmt.Errorf("failed to send echo to %s: %w", ip, err)
	}
	return nil
}

// receiveReplies reads echo replies until Close and wakes the matching probe
func (p *ICMP) receiveReplies() {
	protocol := ipv4.ICMPTypeEchoReply.Protocol()
	reply := make([]byte, 1500)

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if err := p.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			select {
			case <-p.done:
				return
			default:
				continue
			}
		}

		n, peer, err := p.conn.ReadFrom(reply)
		if err != nil {
			// Timeout or error, continue
			continue
		}

		rm, err := icmp.ParseMessage(protocol, reply[:n])
		if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		echo, ok := rm.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		if !p.datagram && echo.ID != p.id {
			continue
		}

		pending, err := p.pending.Get(echo.Seq)
		if err != nil || pending == nil {
			continue
		}
		if !pending.IP.Equal(peerIP(peer)) {
			continue
		}

		gologger.Debug().Msgf("echo reply from %s after %s", pending.IP, time.Since(pending.Start))
		select {
		case pending.reply <- struct{}{}:
		default:
		}
	}
}

func peerIP(peer net.Addr) net.IP {
	switch addr := peer.(type) {
	case *net.IPAddr:
		return addr.IP
	case *net.UDPAddr:
		return addr.IP
	}
	return nil
}

package sweep

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/mapcidr"
	syncutil "github.com/projectdiscovery/utils/sync"
	"github.com/rs/xid"
)

// MaxHosts is the number of candidate hosts in a /24 (.1 to .254)
const MaxHosts = 254

// ErrInvalidAddress is returned when the subnet cannot be derived from the local address
var ErrInvalidAddress = errors.New("invalid address")

// Prober checks whether a single host is reachable.
// A non-nil error is treated the same as a host that did not answer.
type Prober interface {
	Probe(ctx context.Context, address string) (bool, error)
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, address string) (bool, error)

// Probe calls f(ctx, address)
func (f ProberFunc) Probe(ctx context.Context, address string) (bool, error) {
	return f(ctx, address)
}

// Config controls the sweep behavior.
type Config struct {
	// Concurrency is the maximum number of probes in flight.
	// Defaults to MaxHosts (no throttling) if unset or <= 0. The value is
	// further capped by the process open-file limit where one is available.
	Concurrency int
}

func applyDefaults(cfg *Config) Config {
	var out Config
	if cfg != nil {
		out = *cfg
	}
	if out.Concurrency <= 0 || out.Concurrency > MaxHosts {
		out.Concurrency = MaxHosts
	}
	if limit := maxOpenProbes(); limit > 0 && out.Concurrency > limit {
		out.Concurrency = limit
	}
	return out
}

// Sweeper probes every host of the local /24 subnet
type Sweeper struct {
	prober Prober
	config Config
}

// New creates a sweeper using the given prober
func New(prober Prober, cfg *Config) *Sweeper {
	return &Sweeper{
		prober: prober,
		config: applyDefaults(cfg),
	}
}

// Concurrency returns the effective number of probes allowed in flight
func (s *Sweeper) Concurrency() int {
	return s.config.Concurrency
}

// Sweep probes every other host of localIP's /24 subnet and returns the hosts
// that answered, sorted by address. It returns only once every probe has
// settled. Individual probe failures never fail the sweep; a cancelled ctx
// does, and no partial outcome is returned.
func (s *Sweeper) Sweep(ctx context.Context, localIP string) (*Outcome, error) {
	candidates, err := Candidates(localIP)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		ID:           xid.New().String(),
		LocalAddress: localIP,
		Subnet:       subnet24(localIP),
		Started:      time.Now(),
	}

	gologger.Info().Msgf("Starting network scan for devices on the subnet %s...", localIP)
	gologger.Verbose().Msgf("sweep %s: %d candidates, %d probes in flight", outcome.ID, len(candidates), s.config.Concurrency)

	awg, err := syncutil.New(syncutil.WithSize(s.config.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	// Single collector: probe goroutines never touch outcome.Results
	results := make(chan Result)
	collected := make(chan []Result)
	go func() {
		var found []Result
		for result := range results {
			if result.Address == localIP {
				continue
			}
			found = append(found, result)
		}
		collected <- found
	}()

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		awg.Add()
		outcome.Probed++
		go func(address string) {
			defer awg.Done()

			start := time.Now()
			alive, err := s.prober.Probe(ctx, address)
			end := time.Now()

			if err != nil {
				gologger.Debug().Msgf("probe %s failed: %v", address, err)
				return
			}
			if !alive {
				return
			}
			results <- Result{
				Address: address,
				Latency: latencyMillis(start, end),
				RTT:     end.Sub(start),
			}
		}(candidate)
	}

	awg.Wait()
	close(results)
	outcome.Results = <-collected

	// cancelled probes report not alive, the partial result is not a scan result
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep %s interrupted after %d of %d probes: %w", outcome.ID, outcome.Probed, len(candidates), err)
	}
	outcome.Elapsed = time.Since(outcome.Started)
	outcome.Sort()

	gologger.Verbose().Msgf("sweep %s: %d of %d hosts answered in %s", outcome.ID, outcome.Len(), outcome.Probed, outcome.Elapsed)

	return outcome, nil
}

// Candidates returns the addresses probed for localIP: the first three octets
// of localIP followed by 1 through 254, in ascending order. The local address
// itself is included; it is removed from results, not from probing.
func Candidates(localIP string) ([]string, error) {
	if err := validate(localIP); err != nil {
		return nil, err
	}

	cidr := subnet24(localIP)
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, localIP, err)
	}

	ips, err := mapcidr.IPAddresses(cidr)
	if err != nil {
		return nil, fmt.Errorf("failed to expand CIDR %s: %w", cidr, err)
	}

	candidates := make([]string, 0, MaxHosts)
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		// Skip network and broadcast addresses
		if isNetworkOrBroadcast(ip, network) {
			continue
		}
		candidates = append(candidates, ip.String())
	}

	return candidates, nil
}

// SubnetPrefix returns localIP up to and including its last '.'
func SubnetPrefix(localIP string) (string, error) {
	if err := validate(localIP); err != nil {
		return "", err
	}
	return localIP[:strings.LastIndex(localIP, ".")+1], nil
}

// validate checks that localIP is a dotted-quad IPv4 address
func validate(localIP string) error {
	if !strings.Contains(localIP, ".") {
		return fmt.Errorf("%w: %q has no '.' separator", ErrInvalidAddress, localIP)
	}
	ip := net.ParseIP(localIP)
	if ip == nil || ip.To4() == nil || strings.Contains(localIP, ":") {
		return fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidAddress, localIP)
	}
	return nil
}

// subnet24 returns the /24 network of a validated address in CIDR notation
func subnet24(localIP string) string {
	mask := net.CIDRMask(24, 32)
	network := &net.IPNet{
		IP:   net.ParseIP(localIP).To4().Mask(mask),
		Mask: mask,
	}
	return network.String()
}

// isNetworkOrBroadcast checks if an IP is the network or broadcast address
func isNetworkOrBroadcast(ip net.IP, network *net.IPNet) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return true
	}

	if ip4.Equal(network.IP) {
		return true
	}

	broadcast := make(net.IP, len(network.IP))
	copy(broadcast, network.IP)
	for i := range broadcast {
		broadcast[i] |= ^network.Mask[i]
	}
	return ip4.Equal(broadcast)
}

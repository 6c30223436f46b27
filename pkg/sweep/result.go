package sweep

import (
	"encoding/binary"
	"math"
	"net"
	"sort"
	"time"
)

// Result represents one host that answered its probe
type Result struct {
	Address string        `json:"ip"`
	Latency float64       `json:"latency_ms"` // milliseconds, two decimals
	RTT     time.Duration `json:"-"`
}

// Outcome is the set of hosts discovered by a single sweep
type Outcome struct {
	ID           string
	LocalAddress string
	Subnet       string // CIDR notation, e.g. 192.168.1.0/24
	Probed       int
	Started      time.Time
	Elapsed      time.Duration
	Results      []Result
}

// Len returns the number of discovered hosts
func (o *Outcome) Len() int {
	return len(o.Results)
}

// Empty reports whether no host answered
func (o *Outcome) Empty() bool {
	return len(o.Results) == 0
}

// Addresses returns the discovered addresses in result order
func (o *Outcome) Addresses() []string {
	addresses := make([]string, 0, len(o.Results))
	for _, result := range o.Results {
		addresses = append(addresses, result.Address)
	}
	return addresses
}

// Sort orders the results by numeric IPv4 value
func (o *Outcome) Sort() {
	sort.SliceStable(o.Results, func(i, j int) bool {
		return ipv4Value(o.Results[i].Address) < ipv4Value(o.Results[j].Address)
	})
}

// ipv4Value returns the big-endian integer of a dotted-quad, 0 if unparsable
func ipv4Value(address string) uint32 {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}

// latencyMillis returns end-start in milliseconds rounded to two decimals
func latencyMillis(start, end time.Time) float64 {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return math.Round(float64(elapsed)/float64(time.Millisecond)*100) / 100
}

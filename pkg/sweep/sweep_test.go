package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// aliveSet answers true for the listed addresses only
func aliveSet(addresses ...string) ProberFunc {
	set := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		set[address] = struct{}{}
	}
	return func(ctx context.Context, address string) (bool, error) {
		_, ok := set[address]
		return ok, nil
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name      string
		localIP   string
		wantFirst string
		wantLast  string
		wantErr   bool
	}{
		{
			name:      "private class C",
			localIP:   "192.168.1.42",
			wantFirst: "192.168.1.1",
			wantLast:  "192.168.1.254",
		},
		{
			name:      "class A address uses only the last octet",
			localIP:   "10.20.30.7",
			wantFirst: "10.20.30.1",
			wantLast:  "10.20.30.254",
		},
		{
			name:      "local address is the first host",
			localIP:   "172.16.5.1",
			wantFirst: "172.16.5.1",
			wantLast:  "172.16.5.254",
		},
		{
			name:    "no separator",
			localIP: "localhost",
			wantErr: true,
		},
		{
			name:    "empty",
			localIP: "",
			wantErr: true,
		},
		{
			name:    "too few octets",
			localIP: "192.168.1",
			wantErr: true,
		},
		{
			name:    "ipv6",
			localIP: "fe80::1",
			wantErr: true,
		},
		{
			name:    "ipv4 mapped ipv6",
			localIP: "::ffff:192.168.1.42",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Candidates(tt.localIP)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Candidates(%q) error = %v, wantErr %v", tt.localIP, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("Candidates(%q) error = %v, want ErrInvalidAddress", tt.localIP, err)
				}
				return
			}
			if len(got) != MaxHosts {
				t.Fatalf("Candidates(%q) returned %d addresses, want %d", tt.localIP, len(got), MaxHosts)
			}
			if got[0] != tt.wantFirst {
				t.Errorf("first candidate = %s, want %s", got[0], tt.wantFirst)
			}
			if got[len(got)-1] != tt.wantLast {
				t.Errorf("last candidate = %s, want %s", got[len(got)-1], tt.wantLast)
			}
			prefix, _ := SubnetPrefix(tt.localIP)
			for i, candidate := range got {
				if want := prefix + strconv.Itoa(i+1); candidate != want {
					t.Fatalf("candidate[%d] = %s, want %s", i, candidate, want)
				}
			}
		})
	}
}

func TestSubnetPrefix(t *testing.T) {
	got, err := SubnetPrefix("192.168.1.42")
	if err != nil {
		t.Fatalf("SubnetPrefix() error = %v", err)
	}
	if got != "192.168.1." {
		t.Errorf("SubnetPrefix() = %q, want %q", got, "192.168.1.")
	}
}

func TestSweepInvalidAddress(t *testing.T) {
	var probes atomic.Int32
	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		probes.Add(1)
		return true, nil
	})

	outcome, err := New(prober, nil).Sweep(context.Background(), "19216811")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("Sweep() error = %v, want ErrInvalidAddress", err)
	}
	if outcome != nil {
		t.Errorf("Sweep() outcome = %+v, want nil", outcome)
	}
	if n := probes.Load(); n != 0 {
		t.Errorf("Sweep() issued %d probes for an invalid address, want 0", n)
	}
}

func TestSweepExcludesLocalAddress(t *testing.T) {
	// .42 answers as well: only the collector filter keeps it out
	prober := aliveSet("192.168.1.1", "192.168.1.10", "192.168.1.42", "192.168.1.254")

	outcome, err := New(prober, nil).Sweep(context.Background(), "192.168.1.42")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	got := outcome.Addresses()
	want := []string{"192.168.1.1", "192.168.1.10", "192.168.1.254"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Sweep() addresses = %v, want %v", got, want)
	}
	if outcome.Probed != MaxHosts {
		t.Errorf("Sweep() probed = %d, want %d", outcome.Probed, MaxHosts)
	}
	if outcome.Subnet != "192.168.1.0/24" {
		t.Errorf("Sweep() subnet = %s, want 192.168.1.0/24", outcome.Subnet)
	}
	if outcome.ID == "" {
		t.Error("Sweep() outcome has no ID")
	}
	for _, result := range outcome.Results {
		if result.Latency < 0 {
			t.Errorf("%s latency = %v, want >= 0", result.Address, result.Latency)
		}
	}
}

func TestSweepOnlyProbesSubnet(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		mu.Lock()
		seen[address]++
		mu.Unlock()
		return false, nil
	})

	if _, err := New(prober, nil).Sweep(context.Background(), "10.0.7.99"); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if len(seen) != MaxHosts {
		t.Fatalf("probed %d distinct addresses, want %d", len(seen), MaxHosts)
	}
	for address, count := range seen {
		if count != 1 {
			t.Errorf("%s probed %d times, want 1", address, count)
		}
		if !strings.HasPrefix(address, "10.0.7.") {
			t.Errorf("%s is outside 10.0.7.0/24", address)
			continue
		}
		suffix, err := strconv.Atoi(strings.TrimPrefix(address, "10.0.7."))
		if err != nil || suffix < 1 || suffix > 254 {
			t.Errorf("%s has a suffix outside [1,254]", address)
		}
	}
}

func TestSweepWaitsForSlowProbes(t *testing.T) {
	const delay = 100 * time.Millisecond

	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		switch address {
		case "192.168.1.1":
			return true, nil
		case "192.168.1.10", "192.168.1.254":
			time.Sleep(delay)
			return true, nil
		default:
			time.Sleep(delay)
			return false, nil
		}
	})

	start := time.Now()
	outcome, err := New(prober, nil).Sweep(context.Background(), "192.168.1.42")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("Sweep() returned after %s, before the slow probes settled", elapsed)
	}

	got := outcome.Addresses()
	sort.Strings(got)
	want := []string{"192.168.1.1", "192.168.1.10", "192.168.1.254"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Sweep() addresses = %v, want %v", got, want)
	}

	for _, result := range outcome.Results {
		if result.Address == "192.168.1.10" && result.RTT < delay {
			t.Errorf("slow probe RTT = %s, want >= %s", result.RTT, delay)
		}
	}
}

func TestSweepCancelled(t *testing.T) {
	var running atomic.Int32
	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		running.Add(1)
		defer running.Add(-1)
		select {
		case <-time.After(200 * time.Millisecond):
			return true, nil
		case <-ctx.Done():
			// a killed ping exits non-zero, which reads as not alive
			return false, nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	outcome, err := New(prober, nil).Sweep(ctx, "192.168.1.42")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sweep() error = %v, want context.Canceled", err)
	}
	if outcome != nil {
		t.Errorf("Sweep() outcome = %+v, want nil for a cancelled sweep", outcome)
	}
	if n := running.Load(); n != 0 {
		t.Errorf("Sweep() returned with %d probes still running", n)
	}
}

func TestSweepAllUnreachable(t *testing.T) {
	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		if strings.HasSuffix(address, "0") {
			return false, fmt.Errorf("timeout waiting for %s", address)
		}
		return false, nil
	})

	outcome, err := New(prober, nil).Sweep(context.Background(), "192.168.1.42")
	if err != nil {
		t.Fatalf("Sweep() error = %v, probe failures must not fail the sweep", err)
	}
	if !outcome.Empty() {
		t.Errorf("Sweep() found %v, want none", outcome.Addresses())
	}
}

func TestSweepConcurrencyLimit(t *testing.T) {
	const limit = 4

	var inFlight, peak atomic.Int32
	prober := ProberFunc(func(ctx context.Context, address string) (bool, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			current := peak.Load()
			if n <= current || peak.CompareAndSwap(current, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return true, nil
	})

	sweeper := New(prober, &Config{Concurrency: limit})
	if sweeper.Concurrency() > limit {
		t.Fatalf("Concurrency() = %d, want <= %d", sweeper.Concurrency(), limit)
	}

	outcome, err := sweeper.Sweep(context.Background(), "192.168.50.2")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if p := peak.Load(); p > limit {
		t.Errorf("peak in-flight probes = %d, want <= %d", p, limit)
	}
	if outcome.Len() != MaxHosts-1 {
		t.Errorf("Sweep() found %d hosts, want %d", outcome.Len(), MaxHosts-1)
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "zero concurrency", cfg: &Config{}},
		{name: "negative concurrency", cfg: &Config{Concurrency: -3}},
		{name: "above host count", cfg: &Config{Concurrency: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyDefaults(tt.cfg)
			if got.Concurrency < 1 || got.Concurrency > MaxHosts {
				t.Errorf("applyDefaults() concurrency = %d, want in [1,%d]", got.Concurrency, MaxHosts)
			}
		})
	}
}

func TestLatencyMillis(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{name: "zero", elapsed: 0, want: 0},
		{name: "whole milliseconds", elapsed: 12 * time.Millisecond, want: 12},
		{name: "rounded down", elapsed: 1234 * time.Microsecond, want: 1.23},
		{name: "rounded up", elapsed: 1236 * time.Microsecond, want: 1.24},
		{name: "seconds", elapsed: 2*time.Second + 500*time.Microsecond, want: 2000.5},
		{name: "clock went backwards", elapsed: -time.Millisecond, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := latencyMillis(start, start.Add(tt.elapsed)); got != tt.want {
				t.Errorf("latencyMillis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeSort(t *testing.T) {
	outcome := &Outcome{
		Results: []Result{
			{Address: "192.168.1.254"},
			{Address: "192.168.1.10"},
			{Address: "192.168.1.2"},
			{Address: "192.168.1.100"},
		},
	}
	outcome.Sort()

	want := []string{"192.168.1.2", "192.168.1.10", "192.168.1.100", "192.168.1.254"}
	if got := outcome.Addresses(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

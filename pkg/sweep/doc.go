// Package sweep discovers live hosts on a local IPv4 /24 subnet.
//
// Given the local address a.b.c.d, the sweeper probes every host a.b.c.1
// through a.b.c.254 concurrently through a Prober, measures the elapsed time
// of each probe and returns the hosts that answered.
//
// Discovery is performed by:
//   - Expanding the /24 network to individual IPs (network and broadcast dropped)
//   - Probing each IP in parallel using an adaptive waitgroup
//   - Funnelling every alive answer into a single collector
//   - Removing the local address from the collected set
//
// Example usage:
//
//	sweeper := sweep.New(prober, nil)
//	outcome, err := sweeper.Sweep(ctx, "192.168.1.42")
//
// Limitations:
//   - Only /24 networks are swept; the prefix is always the first three octets
//   - Each address is probed exactly once, there are no retries
//   - Up to 254 probes may be outstanding at the same time unless capped
package sweep

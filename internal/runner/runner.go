package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/probe"
	"github.com/projectdiscovery/netsweep/pkg/report"
	"github.com/projectdiscovery/netsweep/pkg/resolver"
	"github.com/projectdiscovery/netsweep/pkg/sweep"
)

// Runner contains the internal logic of the program
type Runner struct {
	options  *Options
	resolver resolver.AddressResolver
	prober   probe.Prober
	sweeper  *sweep.Sweeper
	reporter *report.Writer
	output   io.Writer
}

// NewRunner wires the resolver, prober, sweeper and reporter selected by options
func NewRunner(options *Options) (*Runner, error) {
	target := options.Interface
	if options.Resolver == resolver.StrategyStatic {
		target = options.LocalIP
	}
	addressResolver, err := resolver.New(options.Resolver, target)
	if err != nil {
		return nil, fmt.Errorf("could not create address resolver: %w", err)
	}

	ports, err := options.parsePorts()
	if err != nil {
		return nil, err
	}
	prober, err := probe.New(options.Probe, probe.Options{
		Timeout: options.Timeout,
		Ports:   ports,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create %s prober: %w", options.Probe, err)
	}

	return &Runner{
		options:  options,
		resolver: addressResolver,
		prober:   prober,
		sweeper:  sweep.New(prober, &sweep.Config{Concurrency: options.Concurrency}),
		reporter: report.New(report.Options{JSON: options.JSON, NoColor: options.NoColor}),
		output:   os.Stdout,
	}, nil
}

// Run resolves the local address, sweeps its subnet and writes the report
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()

	localIP, err := r.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("could not get local IPv4 address: %w", err)
	}
	gologger.Verbose().Msgf("using local address %s (%s probe, %d in flight)", localIP, r.options.Probe, r.sweeper.Concurrency())

	outcome, err := r.sweeper.Sweep(ctx, localIP)
	if err != nil {
		return fmt.Errorf("could not sweep subnet of %s: %w", localIP, err)
	}

	return r.reporter.Write(r.output, outcome, time.Since(start))
}

// Close the runner instance
func (r *Runner) Close() {
	if r.prober == nil {
		return
	}
	if err := r.prober.Close(); err != nil {
		gologger.Warning().Msgf("could not close prober: %s", err)
	}
}

// NotifyInterrupt tells the user an interrupted sweep writes no report.
// It goes through the logger so stdout only ever carries reports.
func NotifyInterrupt() {
	gologger.Info().Msgf("CTRL+C pressed: waiting for outstanding probes, no report will be written")
}

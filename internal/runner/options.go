package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/netsweep/pkg/probe"
	"github.com/projectdiscovery/netsweep/pkg/resolver"
	"github.com/projectdiscovery/netsweep/pkg/sweep"
	"github.com/projectdiscovery/netsweep/pkg/version"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

var au *aurora.Aurora

var (
	InterfaceEnv = envutil.GetEnvOrDefault("NETSWEEP_INTERFACE", resolver.DefaultInterface)
	ResolverEnv  = envutil.GetEnvOrDefault("NETSWEEP_RESOLVER", resolver.StrategyInterface)
	ProbeEnv     = envutil.GetEnvOrDefault("NETSWEEP_PROBE", probe.KindPing)
)

// Options contains the configuration options for a sweep.
type Options struct {
	ConfigFile string

	Interface string
	Resolver  string
	LocalIP   string

	Probe       string
	Timeout     time.Duration
	Concurrency int
	Ports       goflags.StringSlice

	JSON    bool
	NoColor bool
	Silent  bool
	Verbose bool
	Debug   bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`netsweep discovers live hosts on the local /24 subnet of the wireless interface`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&options.Interface, "interface", "i", InterfaceEnv, "interface whose IPv4 address anchors the sweep"),
		flagSet.StringVarP(&options.Resolver, "resolver", "r", ResolverEnv, fmt.Sprintf("local address lookup strategy (%s)", strings.Join(resolver.Strategies(), ","))),
		flagSet.StringVar(&options.LocalIP, "ip", "", "local IPv4 address to sweep around (skips the interface lookup)"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.StringVarP(&options.Probe, "probe", "p", ProbeEnv, fmt.Sprintf("reachability probe (%s)", strings.Join(probe.Kinds(), ","))),
		flagSet.DurationVarP(&options.Timeout, "timeout", "t", probe.DefaultTimeout, "timeout of a single probe"),
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", sweep.MaxHosts, "maximum number of probes in flight"),
		flagSet.StringSliceVar(&options.Ports, "ports", nil, "ports tried by the tcp probe (comma separated)", goflags.NormalizedStringSliceOptions),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.BoolVarP(&options.JSON, "json", "j", false, "write the report as JSON"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only the report"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show every failed probe"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&options.ConfigFile, "config", "", "path to the netsweep configuration file"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	if options.ConfigFile != "" {
		if !fileutil.FileExists(options.ConfigFile) {
			gologger.Fatal().Msgf("config file %s does not exist\n", options.ConfigFile)
		}
		if err := flagSet.MergeConfigFile(options.ConfigFile); err != nil {
			gologger.Fatal().Msgf("could not read config: %s\n", err)
		}
	}

	// configure aurora for logging
	au = aurora.New(aurora.WithColors(!options.NoColor))

	options.configureOutput()

	if !options.Silent {
		showBanner()
	}

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.Debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

// validate checks option values and derives the implied ones
func (options *Options) validate() error {
	if options.LocalIP != "" {
		options.Resolver = resolver.StrategyStatic
	}
	if options.Resolver == resolver.StrategyStatic && options.LocalIP == "" {
		return fmt.Errorf("the %s resolver needs -ip", resolver.StrategyStatic)
	}
	if !sliceutil.Contains(resolver.Strategies(), options.Resolver) {
		return fmt.Errorf("unknown resolver %q (valid: %s)", options.Resolver, strings.Join(resolver.Strategies(), ", "))
	}
	if !sliceutil.Contains(probe.Kinds(), options.Probe) {
		return fmt.Errorf("unknown probe %q (valid: %s)", options.Probe, strings.Join(probe.Kinds(), ", "))
	}
	if options.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", options.Timeout)
	}
	if options.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", options.Concurrency)
	}
	if _, err := options.parsePorts(); err != nil {
		return err
	}
	return nil
}

// parsePorts converts the ports flag into a deduplicated port list
func (options *Options) parsePorts() ([]int, error) {
	var ports []int
	for _, value := range sliceutil.Dedupe([]string(options.Ports)) {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", value)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

package resolver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/projectdiscovery/gologger"
	osutils "github.com/projectdiscovery/utils/os"
)

// runFunc executes a command and returns its combined output
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandResolver looks the address up by parsing the output of the
// platform's interface command (ip on Linux, ifconfig on macOS)
type CommandResolver struct {
	name   string
	linux  bool
	darwin bool
	run    runFunc
}

// NewCommandResolver creates a command based resolver for the named interface
func NewCommandResolver(name string) *CommandResolver {
	return &CommandResolver{
		name:   interfaceName(name),
		linux:  osutils.IsLinux(),
		darwin: osutils.IsOSX(),
		run:    runCommand,
	}
}

// Resolve runs the interface command and extracts the first IPv4 address
func (r *CommandResolver) Resolve(ctx context.Context) (string, error) {
	var (
		args  []string
		parse func([]byte) (string, error)
	)
	switch {
	case r.linux:
		// "up" restricts the listing to interfaces that are up
		args = []string{"ip", "-o", "-4", "addr", "show", "dev", r.name, "up"}
		parse = parseIPAddrOutput
	case r.darwin:
		args = []string{"ifconfig", r.name}
		parse = parseIfconfigOutput
	default:
		return "", fmt.Errorf("%w: no interface command for this OS", ErrLookupFailed)
	}

	gologger.Verbose().Msgf("looking up %s with: %s", r.name, strings.Join(args, " "))

	output, err := r.run(ctx, args[0], args[1:]...)
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr) && bytes.Contains(output, []byte("does not exist")):
			return "", fmt.Errorf("%w: %s does not exist", ErrInterfaceNotFound, r.name)
		case errors.As(err, &exitErr):
			return "", fmt.Errorf("%w: %s exited with %v: %s", ErrLookupFailed, args[0], err, strings.TrimSpace(string(output)))
		default:
			return "", fmt.Errorf("%w: could not run %s: %v", ErrLookupFailed, args[0], err)
		}
	}

	// parse errors carry their sentinel: unreadable output is a failed
	// lookup, readable output without an address is a missing interface
	ip, err := parse(output)
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.name, err)
	}
	return ip, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// parseIPAddrOutput extracts the address from `ip -o -4 addr show` output:
//
//	3: wlan0    inet 192.168.1.42/24 brd 192.168.1.255 scope global dynamic wlan0\ ...
func parseIPAddrOutput(output []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] != "inet" {
				continue
			}
			if ip, ok := parseIPv4(fields[i+1]); ok {
				return ip, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: could not read ip output: %v", ErrLookupFailed, err)
	}
	return "", fmt.Errorf("%w: interface is down or has no IPv4 address", ErrInterfaceNotFound)
}

// parseIfconfigOutput extracts the address from macOS `ifconfig <iface>` output:
//
//	en0: flags=8863<UP,BROADCAST,SMART,RUNNING,SIMPLEX,MULTICAST> mtu 1500
//		inet 192.168.1.42 netmask 0xffffff00 broadcast 192.168.1.255
func parseIfconfigOutput(output []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	up := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "flags=") {
			flagsStart := strings.Index(line, "<")
			flagsEnd := strings.Index(line, ">")
			if flagsStart != -1 && flagsEnd > flagsStart {
				for _, flag := range strings.Split(line[flagsStart+1:flagsEnd], ",") {
					if flag == "UP" {
						up = true
					}
				}
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "inet" {
			continue
		}
		if !up {
			return "", fmt.Errorf("%w: interface is down", ErrInterfaceNotFound)
		}
		if ip, ok := parseIPv4(fields[1]); ok {
			return ip, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: could not read ifconfig output: %v", ErrLookupFailed, err)
	}
	if !up {
		return "", fmt.Errorf("%w: interface is down", ErrInterfaceNotFound)
	}
	return "", fmt.Errorf("%w: interface has no IPv4 address", ErrInterfaceNotFound)
}

// Package resolver finds the local IPv4 address the sweep is anchored on.
//
// Two host lookups are provided, both bound to a named interface (wlan0 by
// default): structured enumeration of the OS interfaces, and parsing of the
// output of the platform's interface command. A static resolver skips the
// host entirely and returns an operator supplied address.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// DefaultInterface is the wireless interface looked up when none is given
const DefaultInterface = "wlan0"

// Resolver strategies
const (
	StrategyInterface = "interface"
	StrategyCommand   = "command"
	StrategyStatic    = "static"
)

var (
	// ErrInterfaceNotFound is returned when the interface is missing, down or has no IPv4 binding
	ErrInterfaceNotFound = errors.New("interface not found")
	// ErrLookupFailed is returned when the platform query itself fails
	ErrLookupFailed = errors.New("lookup failed")
)

// AddressResolver returns the local IPv4 address as a dotted-quad
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Strategies returns the names accepted by New
func Strategies() []string {
	return []string{StrategyInterface, StrategyCommand, StrategyStatic}
}

// New returns the resolver for strategy. For the static strategy, target is
// the address to return; otherwise it is the interface name.
func New(strategy, target string) (AddressResolver, error) {
	switch strategy {
	case StrategyInterface, "":
		return NewInterfaceResolver(target), nil
	case StrategyCommand:
		return NewCommandResolver(target), nil
	case StrategyStatic:
		return NewStaticResolver(target)
	default:
		return nil, fmt.Errorf("unknown resolver strategy %q (valid: %s)", strategy, strings.Join(Strategies(), ", "))
	}
}

// StaticResolver always returns the same address
type StaticResolver struct {
	address string
}

// NewStaticResolver validates address and wraps it in a resolver
func NewStaticResolver(address string) (*StaticResolver, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil || strings.Contains(address, ":") {
		return nil, fmt.Errorf("%q is not an IPv4 address", address)
	}
	return &StaticResolver{address: ip.To4().String()}, nil
}

// Resolve returns the configured address
func (s *StaticResolver) Resolve(ctx context.Context) (string, error) {
	return s.address, nil
}

// interfaceName falls back to DefaultInterface
func interfaceName(name string) string {
	if name == "" {
		return DefaultInterface
	}
	return name
}

// parseIPv4 accepts "a.b.c.d" or "a.b.c.d/nn" and returns the dotted-quad
func parseIPv4(value string) (string, bool) {
	if ip, _, err := net.ParseCIDR(value); err == nil {
		value = ip.String()
	}
	if strings.Contains(value, ":") {
		return "", false
	}
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		return "", false
	}
	return ip.To4().String(), true
}

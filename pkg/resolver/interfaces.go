package resolver

import (
	"context"
	"fmt"

	"github.com/projectdiscovery/gologger"
	sliceutil "github.com/projectdiscovery/utils/slice"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// InterfaceResolver looks the address up through structured OS interface enumeration
type InterfaceResolver struct {
	name       string
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
}

// NewInterfaceResolver creates a resolver for the named interface
func NewInterfaceResolver(name string) *InterfaceResolver {
	return &InterfaceResolver{
		name:       interfaceName(name),
		interfaces: psnet.InterfacesWithContext,
	}
}

// Resolve returns the first IPv4 address bound to the interface
func (r *InterfaceResolver) Resolve(ctx context.Context) (string, error) {
	interfaces, err := r.interfaces(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: could not enumerate interfaces: %v", ErrLookupFailed, err)
	}

	for _, iface := range interfaces {
		if iface.Name != r.name {
			continue
		}
		gologger.Verbose().Msgf("found interface %s (flags: %v)", iface.Name, iface.Flags)

		if !sliceutil.Contains(iface.Flags, "up") {
			return "", fmt.Errorf("%w: %s is down", ErrInterfaceNotFound, r.name)
		}

		for _, addr := range iface.Addrs {
			if ip, ok := parseIPv4(addr.Addr); ok {
				return ip, nil
			}
		}
		return "", fmt.Errorf("%w: %s has no IPv4 address", ErrInterfaceNotFound, r.name)
	}

	return "", fmt.Errorf("%w: %s does not exist", ErrInterfaceNotFound, r.name)
}

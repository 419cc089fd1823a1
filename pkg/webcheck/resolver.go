package webcheck

import (
	"context"
	"fmt"
	"net"

	"webfetch/pkg/utils"
)

// Resolver resolves a hostname to its IPv4 and IPv6 addresses.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (ipv4, ipv6 []net.IP, err error)
}

// NetResolver is a Resolver backed by the system DNS resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver creates a NetResolver using the default system resolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

// Resolve looks up all addresses for hostname and splits them by family.
// A total lookup failure is wrapped with utils.ErrResolution so callers can
// fail closed.
func (r *NetResolver) Resolve(ctx context.Context, hostname string) (ipv4, ipv6 []net.IP, err error) {
	addrs, lookupErr := r.resolver.LookupIPAddr(ctx, hostname)
	if lookupErr != nil {
		return nil, nil, fmt.Errorf("%w: %q: %v", utils.ErrResolution, hostname, lookupErr)
	}

	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			ipv4 = append(ipv4, ip4)
		} else {
			ipv6 = append(ipv6, addr.IP)
		}
	}
	return ipv4, ipv6, nil
}

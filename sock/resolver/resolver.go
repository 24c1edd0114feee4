package resolver

import (
	"context"
	"net"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
)

var Logger = common.GetLogger("sock/resolver")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IAddressResolver turns a (host, port) pair into a connectable TCP address
type IAddressResolver interface {
	// Resolve returns the first candidate address for host and port.
	// An empty host yields the passive any-interface address used for binding.
	Resolve(host string, port int) (*net.TCPAddr, error)

	// Candidates returns every address the lookup produced, in selection order
	Candidates(host string, port int) ([]*net.TCPAddr, error)
}

// -----------------------------------------------------------
// Default implementation
// -----------------------------------------------------------

// dnsResolver resolves names with the system resolver
type dnsResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewResolver creates a resolver backed by net.DefaultResolver
func NewResolver() IAddressResolver {
	return NewResolverWithTimeout(common.DefaultResolveTimeout)
}

// NewResolverWithTimeout creates a resolver whose lookups give up after timeout
func NewResolverWithTimeout(timeout time.Duration) IAddressResolver {
	return &dnsResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IAddressResolver)
// --------------------------------------------------------------------------

func (r *dnsResolver) Resolve(host string, port int) (*net.TCPAddr, error) {
	candidates, err := r.Candidates(host, port)
	if err != nil {
		return nil, err
	}

	// the first entry is always selected, there is no ranking beyond the
	// order established by Candidates
	addr := candidates[0]
	Logger.Debugf("Resolved %q to %s (%d candidates)", host, addr, len(candidates))
	return addr, nil
}

func (r *dnsResolver) Candidates(host string, port int) ([]*net.TCPAddr, error) {
	if port < 0 || port > 65535 {
		return nil, common.NewOperationalError(common.ErrAddressResolution, nil,
			"invalid port %d", port)
	}

	// passive lookup: any local address suitable for binding
	if host == "" {
		return []*net.TCPAddr{
			{IP: net.IPv4zero, Port: port},
			{IP: net.IPv6unspecified, Port: port},
		}, nil
	}

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ips, err := r.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, common.NewOperationalError(common.ErrAddressResolution, err,
			"failed to get host address for %s", net.JoinHostPort(host, strconv.Itoa(port)))
	}
	if len(ips) == 0 {
		return nil, common.NewOperationalError(common.ErrAddressResolution, nil,
			"no addresses found for %s", host)
	}

	// IPv4 before IPv6, otherwise keep the order of the system resolver
	sort.SliceStable(ips, func(i, j int) bool {
		return ips[i].IP.To4() != nil && ips[j].IP.To4() == nil
	})

	candidates := make([]*net.TCPAddr, 0, len(ips))
	for _, ip := range ips {
		candidates = append(candidates, &net.TCPAddr{IP: ip.IP, Port: port, Zone: ip.Zone})
	}
	return candidates, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// HostName returns the name of the local host
func HostName() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", common.NewOperationalError(common.ErrAddressResolution, err, "failed to get host name")
	}
	return name, nil
}

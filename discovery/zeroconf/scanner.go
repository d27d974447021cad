// Package zeroconf provides a Scanner backed by the github.com/grandcat/zeroconf package
package zeroconf

import (
	"context"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/discovery"
	"github.com/stream2cast/stream2cast/log"
)

const (
	service = "_googlecast._tcp"
	domain  = "local"
)

// Scanner backed by the github.com/grandcat/zeroconf package
// Nil values uses the default
type Scanner struct {
	ClientOptions []zeroconf.ClientOption
}

// Scan repeatedly scans the network and sends the chromecast found into the results channel.
// It finishes when the context is done.
func (s Scanner) Scan(ctx context.Context, results chan<- *discovery.Device) error {
	// Discover all services on the network (e.g. _workstation._tcp)
	resolver, err := zeroconf.NewResolver(s.ClientOptions...)
	if err != nil {
		return errors.Wrap(err, "failed to initialize resolver")
	}

	entries := make(chan *zeroconf.ServiceEntry, 5)
	err = resolver.Browse(ctx, service, domain, entries)
	if err != nil {
		return errors.Wrap(err, "fail to browse services")
	}

	go func() {
		defer close(results)
		for e := range entries {
			c, err := decode(e)
			if err != nil {
				log.WithField("package", "zeroconf").WithError(err).Debug("could not decode service entry")
				continue
			}
			select {
			case results <- c:
				continue
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// decode turns an zeroconf.ServiceEntry into a discovery.Device. IPv4 is
// preferred since media is served on the address of the control socket.
func decode(entry *zeroconf.ServiceEntry) (*discovery.Device, error) {
	if !strings.Contains(entry.Service, "_googlecast.") {
		return nil, errors.Errorf("fqdn '%s' does not contain '_googlecast.'", entry.Service)
	}

	var ip net.IP
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0]
	} else {
		return nil, errors.Errorf("no address for '%s'", entry.Instance)
	}

	return discovery.NewDevice(ip, entry.Port, entry.Text), nil
}

package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/osc-protocol/osc-go/pkg/discovery"
)

// ResolveInstance looks up an advertised endpoint by instance name
// and returns a dialable "host:port" address. Resolution prefers a
// resolved IP over the mDNS hostname.
func ResolveInstance(ctx context.Context, browser discovery.Browser, instance string) (string, error) {
	peer, err := browser.Find(ctx, instance)
	if err != nil {
		return "", err
	}
	return PeerAddr(peer)
}

// PeerAddr returns a dialable "host:port" address for a discovered
// peer.
func PeerAddr(peer *discovery.Peer) (string, error) {
	var host string
	switch {
	case len(peer.Addresses) > 0:
		host = peer.Addresses[0]
	case peer.Host != "":
		host = strings.TrimSuffix(peer.Host, ".")
	default:
		return "", fmt.Errorf("peer %q has no resolvable address", peer.InstanceName)
	}
	return net.JoinHostPort(host, strconv.Itoa(int(peer.Port))), nil
}

// DialInstance resolves an instance name and returns a client
// targeted at it. The config's Target is overwritten with the
// resolved address.
func DialInstance(ctx context.Context, browser discovery.Browser, instance string, config ClientConfig) (*Client, error) {
	target, err := ResolveInstance(ctx, browser, instance)
	if err != nil {
		return nil, err
	}
	config.Target = target
	return NewClient(config)
}

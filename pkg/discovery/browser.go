package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/osc-protocol/osc-go/pkg/version"
)

// Browser discovers OSC endpoints over mDNS.
type Browser interface {
	// Browse searches for OSC endpoints. Discovered peers arrive on
	// added; peers whose last address expired arrive on removed. Both
	// channels are closed when the context is cancelled or the browser
	// is stopped.
	Browse(ctx context.Context) (added, removed <-chan *Peer, err error)

	// Find searches for a specific endpoint by instance name.
	// Returns when found or when the context is cancelled.
	Find(ctx context.Context, instance string) (*Peer, error)

	// Stop cancels all active browse operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// FindTimeout bounds Find when the caller's context carries no
	// deadline of its own. Default: 10 seconds.
	FindTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		FindTimeout: DefaultFindTimeout,
		Interface:   "",
	}
}

// FilterFunc filters discovered peers.
type FilterFunc func(*Peer) bool

// FilterByAddress returns a filter matching peers whose namespace root
// covers addr. A peer with no advertised root covers every address.
func FilterByAddress(addr string) FilterFunc {
	return func(p *Peer) bool {
		if p.Root == "" {
			return true
		}
		return addr == p.Root || strings.HasPrefix(addr, p.Root+"/")
	}
}

// FilterByVersion returns a filter matching peers advertising exactly
// the given OSC protocol version.
func FilterByVersion(v string) FilterFunc {
	return func(p *Peer) bool {
		return p.Version == v
	}
}

// FilterCompatible returns a filter matching peers whose advertised
// protocol version shares a major version with v. Peers advertising no
// version or an unparseable one are excluded.
func FilterCompatible(v string) FilterFunc {
	want, err := version.Parse(v)
	return func(p *Peer) bool {
		if err != nil {
			return false
		}
		got, perr := version.Parse(p.Version)
		return perr == nil && want.Compatible(got)
	}
}

// FilterPeers filters a channel of discovered peers.
func FilterPeers(in <-chan *Peer, filter FilterFunc) <-chan *Peer {
	out := make(chan *Peer)
	go func() {
		defer close(out)
		for p := range in {
			if filter(p) {
				out <- p
			}
		}
	}()
	return out
}

// ServiceEntry is raw mDNS service entry data, the bridge between a
// Browser implementation and the Peer type.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToPeer converts a ServiceEntry to a Peer.
func (e *ServiceEntry) ToPeer() (*Peer, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodeEndpointTXT(txt)
	if err != nil {
		return nil, err
	}

	return &Peer{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Version:      info.Version,
		Root:         info.Root,
	}, nil
}

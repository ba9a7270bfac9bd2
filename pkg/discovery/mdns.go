package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu sync.Mutex

	// Active services keyed by instance name.
	servers map[string]*zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config:  config,
		servers: make(map[string]*zeroconf.Server),
	}, nil
}

// Advertise starts advertising an endpoint under ep.Name.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, ep *Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Replace an existing announcement for this name.
	if server, exists := a.servers[ep.Name]; exists {
		server.Shutdown()
		delete(a.servers, ep.Name)
	}

	port := int(ep.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		ep.Name,
		ServiceTypeOSC,
		Domain,
		port,
		TXTRecordsToStrings(EncodeEndpointTXT(ep)),
		selectInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", ep.Name, err)
	}

	a.servers[ep.Name] = server
	return nil
}

// Update replaces the TXT records of an advertised endpoint.
func (a *MDNSAdvertiser) Update(instance string, ep *Endpoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instance]
	if !exists {
		return ErrNotFound
	}

	server.SetText(TXTRecordsToStrings(EncodeEndpointTXT(ep)))
	return nil
}

// Stop stops advertising a single endpoint.
func (a *MDNSAdvertiser) Stop(instance string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instance]
	if !exists {
		return ErrNotFound
	}

	server.Shutdown()
	delete(a.servers, instance)
	return nil
}

// StopAll stops all advertisements.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, server := range a.servers {
		server.Shutdown()
		delete(a.servers, name)
	}
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{
		config: config,
	}, nil
}

// Browse searches for OSC endpoints.
// Peers are aggregated by instance name: addresses from multiple
// interfaces combine into a single entry, and a peer is reported
// removed only when its last address disappears.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Peer, <-chan *Peer, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, nil, ErrBrowserStopped
	}
	bctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	added := make(chan *Peer)
	removed := make(chan *Peer)

	entries := make(chan *zeroconf.ServiceEntry)
	gone := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(added)
		defer close(removed)

		// Track peers by instance name, aggregating addresses.
		peers := make(map[string]*Peer)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				peer := entryToPeer(entry)
				if peer == nil {
					continue
				}

				existing, found := peers[peer.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, peer.Addresses)
					continue
				}

				peers[peer.InstanceName] = peer
				select {
				case added <- peer.clone():
				case <-bctx.Done():
					return
				}

			case entry, ok := <-gone:
				if !ok {
					continue
				}
				existing, found := peers[entry.Instance]
				if !found {
					continue
				}
				existing.Addresses = removeAddresses(existing.Addresses, entryAddresses(entry))
				if len(existing.Addresses) > 0 {
					continue
				}
				delete(peers, entry.Instance)
				select {
				case removed <- existing.clone():
				case <-bctx.Done():
					return
				}

			case <-bctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(bctx, ServiceTypeOSC, Domain, entries, gone, b.options()...)
	}()

	return added, removed, nil
}

// Find searches for a specific endpoint by instance name. Instance
// names compare case-insensitively, as DNS-SD requires.
func (b *MDNSBrowser) Find(ctx context.Context, instance string) (*Peer, error) {
	if _, ok := ctx.Deadline(); !ok && b.config.FindTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.FindTimeout)
		defer cancel()
	}

	added, _, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case peer, ok := <-added:
			if !ok {
				return nil, ErrNotFound
			}
			if strings.EqualFold(peer.InstanceName, instance) {
				return peer, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop cancels all active browse operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// options returns zeroconf client options based on config.
func (b *MDNSBrowser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := selectInterfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// selectInterfaces resolves a configured interface name. Nil means all
// interfaces, including for names that do not resolve.
func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// entryToPeer converts a zeroconf entry to a Peer. Entries whose TXT
// records do not parse are dropped.
func entryToPeer(entry *zeroconf.ServiceEntry) *Peer {
	se := &ServiceEntry{
		Instance: entry.Instance,
		Service:  ServiceTypeOSC,
		Domain:   Domain,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    entryAddresses(entry),
	}

	peer, err := se.ToPeer()
	if err != nil {
		return nil
	}
	return peer
}

// entryAddresses collects the IP addresses carried by a zeroconf entry.
func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses appends addresses not already present. The lists are a
// handful of entries at most, so linear scans are fine.
func mergeAddresses(existing, found []string) []string {
	for _, addr := range found {
		if !slices.Contains(existing, addr) {
			existing = append(existing, addr)
		}
	}
	return existing
}

// removeAddresses drops every address in gone from addresses.
func removeAddresses(addresses, gone []string) []string {
	kept := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !slices.Contains(gone, addr) {
			kept = append(kept, addr)
		}
	}
	return kept
}

var (
	_ Advertiser = (*MDNSAdvertiser)(nil)
	_ Browser    = (*MDNSBrowser)(nil)
)

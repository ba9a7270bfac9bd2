package discovery

import (
	"context"
	"time"
)

// Advertiser announces OSC endpoints over mDNS.
type Advertiser interface {
	// Advertise starts advertising an endpoint under ep.Name.
	// Advertising a name that is already announced replaces the
	// earlier announcement.
	Advertise(ctx context.Context, ep *Endpoint) error

	// Update replaces the TXT records of an advertised endpoint.
	Update(instance string, ep *Endpoint) error

	// Stop stops advertising a single endpoint.
	Stop(instance string) error

	// StopAll stops all advertisements.
	StopAll()
}

// AdvertiserConfig controls how announcements are published.
type AdvertiserConfig struct {
	// Interface restricts announcements to a single network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record time-to-live. Zero keeps the zeroconf
	// default; DefaultAdvertiserConfig sets DefaultTTL.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

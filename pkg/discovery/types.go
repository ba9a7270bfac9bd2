package discovery

import (
	"errors"
	"strings"
	"time"

	"github.com/osc-protocol/osc-go/pkg/address"
	"github.com/osc-protocol/osc-go/pkg/version"
)

// Service type constants for mDNS.
const (
	// ServiceTypeOSC is the DNS-SD service type for OSC endpoints.
	ServiceTypeOSC = "_osc._udp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the conventional OSC port, advertised when an
	// Endpoint does not name one.
	DefaultPort = 8000
)

// TXT record key constants.
const (
	// TXTKeyTxtVers is the TXT format version key. Always "1".
	TXTKeyTxtVers = "txtvers"

	// TXTKeyVersion is the OSC protocol version key (e.g. "1.0").
	TXTKeyVersion = "v"

	// TXTKeyRoot is the optional namespace root key (e.g. "/synth").
	TXTKeyRoot = "root"
)

const (
	// TXTVers is the TXT record format version this package writes.
	TXTVers = "1"

	// DefaultVersion is the OSC protocol version advertised when an
	// Endpoint does not name one.
	DefaultVersion = version.Current
)

// Timing constants.
const (
	// DefaultTTL is the DNS record TTL for advertised services.
	DefaultTTL = 120 * time.Second

	// DefaultFindTimeout bounds Find when the caller's context carries
	// no deadline of its own.
	DefaultFindTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidRoot         = errors.New("invalid namespace root")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrBrowserStopped      = errors.New("browser stopped")
)

// Endpoint describes an OSC endpoint to advertise.
type Endpoint struct {
	// Name is the mDNS instance name (e.g. "BigSynth").
	Name string

	// Port is the UDP port the endpoint listens on.
	// Zero means DefaultPort.
	Port uint16

	// Version is the OSC protocol version. Empty means DefaultVersion.
	Version string

	// Root is the optional namespace root served by this endpoint
	// (e.g. "/synth"). Empty means the whole address space.
	Root string
}

// Validate checks that the Endpoint can be advertised.
func (e *Endpoint) Validate() error {
	if e.Name == "" {
		return ErrMissingRequired
	}
	if len(e.Name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return validateRoot(e.Root)
}

// Peer represents an OSC endpoint found via mDNS.
type Peer struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname (e.g. "bigsynth.local.").
	Host string

	// Port is the UDP port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// Version is the OSC protocol version (from TXT "v"), or empty.
	Version string

	// Root is the namespace root (from TXT "root"), or empty.
	Root string
}

// clone returns a copy safe to hand to another goroutine.
func (p *Peer) clone() *Peer {
	c := *p
	c.Addresses = append([]string(nil), p.Addresses...)
	return &c
}

// validateRoot checks that root is a plain container path: absolute,
// no trailing slash, no matcher syntax, no reserved characters.
func validateRoot(root string) error {
	if root == "" {
		return nil
	}
	if !strings.HasPrefix(root, "/") || strings.HasSuffix(root, "/") {
		return ErrInvalidRoot
	}
	a := address.New(root)
	if a.HasPattern() {
		return ErrInvalidRoot
	}
	for _, seg := range a.Split('/') {
		if seg.HasReserved() {
			return ErrInvalidRoot
		}
	}
	return nil
}

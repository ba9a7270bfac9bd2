package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/osc-protocol/osc-go/pkg/discovery"
	"github.com/osc-protocol/osc-go/pkg/discovery/mocks"
)

func TestResolveInstance(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.EXPECT().Find(mock.Anything, "Big Synth").Return(&discovery.Peer{
		InstanceName: "Big Synth",
		Host:         "bigsynth.local.",
		Port:         9000,
		Addresses:    []string{"192.168.1.40", "192.168.1.41"},
	}, nil).Once()

	addr, err := ResolveInstance(context.Background(), browser, "Big Synth")
	if err != nil {
		t.Fatalf("ResolveInstance failed: %v", err)
	}
	if addr != "192.168.1.40:9000" {
		t.Errorf("ResolveInstance() = %q, want %q", addr, "192.168.1.40:9000")
	}
}

func TestResolveInstanceFallsBackToHostname(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.EXPECT().Find(mock.Anything, "Big Synth").Return(&discovery.Peer{
		InstanceName: "Big Synth",
		Host:         "bigsynth.local.",
		Port:         8000,
	}, nil).Once()

	addr, err := ResolveInstance(context.Background(), browser, "Big Synth")
	if err != nil {
		t.Fatalf("ResolveInstance failed: %v", err)
	}
	if addr != "bigsynth.local:8000" {
		t.Errorf("ResolveInstance() = %q, want %q", addr, "bigsynth.local:8000")
	}
}

func TestResolveInstancePropagatesFindError(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.EXPECT().Find(mock.Anything, "Missing").
		Return(nil, discovery.ErrNotFound).Once()

	_, err := ResolveInstance(context.Background(), browser, "Missing")
	if !errors.Is(err, discovery.ErrNotFound) {
		t.Errorf("ResolveInstance() error = %v, want ErrNotFound", err)
	}
}

func TestPeerAddr(t *testing.T) {
	tests := []struct {
		name    string
		peer    discovery.Peer
		want    string
		wantErr bool
	}{
		{
			name: "PrefersResolvedIP",
			peer: discovery.Peer{
				Host:      "synth.local.",
				Port:      8000,
				Addresses: []string{"10.0.0.7"},
			},
			want: "10.0.0.7:8000",
		},
		{
			name: "IPv6Bracketed",
			peer: discovery.Peer{
				Port:      8000,
				Addresses: []string{"fe80::1"},
			},
			want: "[fe80::1]:8000",
		},
		{
			name: "HostnameTrimmed",
			peer: discovery.Peer{
				Host: "synth.local.",
				Port: 8001,
			},
			want: "synth.local:8001",
		},
		{
			name:    "NothingResolvable",
			peer:    discovery.Peer{InstanceName: "Ghost", Port: 8000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeerAddr(&tt.peer)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PeerAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PeerAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialInstance(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.EXPECT().Find(mock.Anything, "Big Synth").Return(&discovery.Peer{
		InstanceName: "Big Synth",
		Port:         9000,
		Addresses:    []string{"127.0.0.1"},
	}, nil).Once()

	c, err := DialInstance(context.Background(), browser, "Big Synth", ClientConfig{})
	if err != nil {
		t.Fatalf("DialInstance failed: %v", err)
	}
	defer c.Close()

	if got := c.RemoteAddr().String(); got != "127.0.0.1:9000" {
		t.Errorf("RemoteAddr() = %q, want %q", got, "127.0.0.1:9000")
	}
}

func TestDialInstanceFindError(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.EXPECT().Find(mock.Anything, "Missing").
		Return(nil, discovery.ErrNotFound).Once()

	if _, err := DialInstance(context.Background(), browser, "Missing", ClientConfig{}); !errors.Is(err, discovery.ErrNotFound) {
		t.Errorf("DialInstance() error = %v, want ErrNotFound", err)
	}
}

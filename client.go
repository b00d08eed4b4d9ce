// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SignerClient is the only surface consumers use to talk to a hardware
// signer. Operations on one device are serialised; different devices may be
// used concurrently.
type SignerClient interface {
	// DiscoverDevices lists attached devices. A missing transport or an
	// enumeration failure yields an empty list.
	DiscoverDevices(ctx context.Context) ([]Device, error)
	// GetDeviceInfo returns display attributes, or nil when the device has
	// no hardware behind it.
	GetDeviceInfo(ctx context.Context, device Device) (*DeviceInfo, error)
	// OpenApp switches the device to the network's app. The device drops
	// its session afterwards; the next operation reconnects.
	OpenApp(ctx context.Context, device Device, network Network) error
	// DiscoverAccounts derives the account at the network's standard path.
	// A device status error yields an empty list.
	DiscoverAccounts(ctx context.Context, device Device, network Network) ([]Account, error)
	// SignMessage streams msg to the device and returns its signature.
	SignMessage(ctx context.Context, device Device, network Network, msg []byte) (*SignatureResult, error)
}

// Options configure New.
type Options struct {
	// Mock selects the deterministic in-memory client.
	Mock bool
	// Admin overrides the HID admin of the hardware client.
	Admin           LedgerAdmin
	VendorID        uint16
	ExchangeTimeout time.Duration
	// Reconnect overrides DefaultReconnectPolicy when set. A zero policy
	// reopens immediately without retrying.
	Reconnect      *ReconnectPolicy
	DisplayAddress bool
	ChainCode      bool
	BitcoinPath    DerivationPath
	EthereumPath   DerivationPath
}

// New builds the client variant selected by opts.
func New(opts Options) SignerClient {
	if opts.Mock {
		return NewMockClient()
	}
	admin := opts.Admin
	if admin == nil {
		admin = NewHIDAdmin(opts.VendorID, opts.ExchangeTimeout)
	}
	return NewHardwareClient(admin, opts)
}

// DiscoverAll opens the network's app and discovers accounts on every device
// concurrently. Each device is still driven sequentially.
func DiscoverAll(ctx context.Context, client SignerClient, devices []Device, network Network) (map[Device][]Account, error) {
	var mu sync.Mutex
	result := make(map[Device][]Account, len(devices))

	g, ctx := errgroup.WithContext(ctx)
	for _, device := range devices {
		g.Go(func() error {
			if err := client.OpenApp(ctx, device, network); err != nil {
				return errors.Wrapf(err, "open %s app on %s", network, device)
			}
			accounts, err := client.DiscoverAccounts(ctx, device, network)
			if err != nil {
				return errors.Wrapf(err, "discover %s accounts on %s", network, device)
			}
			mu.Lock()
			result[device] = accounts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

const (
	claDashboard     = 0xb0
	insAppAndVersion = 0x01
)

type deviceState struct {
	mu          sync.Mutex
	appSwitched bool
}

// HardwareClient drives real devices through a LedgerAdmin. No transport is
// held between operations.
type HardwareClient struct {
	admin     LedgerAdmin
	reconnect ReconnectPolicy
	adapters  map[Network]AdapterOptions

	mu     sync.Mutex
	states map[Device]*deviceState
}

var _ SignerClient = (*HardwareClient)(nil)

// NewHardwareClient returns a client using admin for enumeration and I/O.
func NewHardwareClient(admin LedgerAdmin, opts Options) *HardwareClient {
	reconnect := DefaultReconnectPolicy()
	if opts.Reconnect != nil {
		reconnect = *opts.Reconnect
	}
	return &HardwareClient{
		admin:     admin,
		reconnect: reconnect,
		adapters: map[Network]AdapterOptions{
			Bitcoin:  {Path: opts.BitcoinPath},
			Ethereum: {Path: opts.EthereumPath, DisplayAddress: opts.DisplayAddress, ChainCode: opts.ChainCode},
		},
		states: make(map[Device]*deviceState),
	}
}

// acquire locks the device for one operation. The caller must call release.
func (c *HardwareClient) acquire(device Device) *deviceState {
	c.mu.Lock()
	st, ok := c.states[device]
	if !ok {
		st = &deviceState{}
		c.states[device] = st
	}
	c.mu.Unlock()

	st.mu.Lock()
	return st
}

func (st *deviceState) release() {
	st.mu.Unlock()
}

// open returns a fresh transport, applying the reconnect policy when the
// previous operation switched apps.
func (c *HardwareClient) open(ctx context.Context, st *deviceState, device Device) (LedgerDevice, error) {
	if !st.appSwitched {
		return c.admin.Open(device)
	}
	dev, err := c.reconnect.Reopen(ctx, func() (LedgerDevice, error) {
		return c.admin.Open(device)
	})
	if err != nil {
		return nil, err
	}
	st.appSwitched = false
	return dev, nil
}

func exchange(ctx context.Context, dev LedgerDevice, cmd Command) (Response, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return Response{}, err
	}
	answer, err := dev.Exchange(ctx, raw)
	if err != nil {
		return Response{}, err
	}
	return ParseResponse(answer)
}

func closeDevice(dev LedgerDevice) {
	if err := dev.Close(); err != nil {
		log.Debugf("close device: %v", err)
	}
}

func (c *HardwareClient) adapter(network Network) (Adapter, error) {
	return AdapterFor(network, c.adapters[network])
}

func (c *HardwareClient) DiscoverDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices, err := c.admin.Enumerate()
	if err != nil {
		if errors.Is(err, ErrTransportUnavailable) {
			log.Warn("HID transport unavailable on this host, no devices will be listed")
		} else {
			log.Warnf("enumerate devices: %v", err)
		}
		return []Device{}, nil
	}
	log.Debugf("discovered %d device(s)", len(devices))
	return devices, nil
}

func (c *HardwareClient) GetDeviceInfo(ctx context.Context, device Device) (*DeviceInfo, error) {
	if device.IsMock() {
		return nil, nil
	}
	st := c.acquire(device)
	defer st.release()

	info, err := c.admin.Info(device)
	if err != nil {
		return nil, err
	}

	dev, err := c.open(ctx, st, device)
	if err != nil {
		return nil, err
	}
	defer closeDevice(dev)

	resp, err := exchange(ctx, dev, BuildCommand(claDashboard, insAppAndVersion, 0x00, 0x00, nil))
	switch {
	case err != nil:
		log.Debugf("app and version on %s: %v", device, err)
	case !resp.OK():
		log.Debugf("app and version on %s: %v", device, resp.Err())
	default:
		name, version, err := parseAppAndVersion(resp.Data)
		if err != nil {
			return nil, err
		}
		info.AppName, info.AppVersion = name, version
	}
	return &info, nil
}

// parseAppAndVersion decodes [format][name_len][name][version_len][version]...
func parseAppAndVersion(data []byte) (string, string, error) {
	const op = "app and version"
	if len(data) < 2 || data[0] != 0x01 {
		return "", "", decodeErrorf(op, "unexpected format in %x", data)
	}
	offset := 1
	field := func(what string) (string, error) {
		if offset >= len(data) {
			return "", decodeErrorf(op, "missing %s length", what)
		}
		n := int(data[offset])
		offset++
		if offset+n > len(data) {
			return "", decodeErrorf(op, "%s length %d exceeds %d remaining bytes", what, n, len(data)-offset)
		}
		v := string(data[offset : offset+n])
		offset += n
		return v, nil
	}
	name, err := field("name")
	if err != nil {
		return "", "", err
	}
	version, err := field("version")
	if err != nil {
		return "", "", err
	}
	return name, version, nil
}

func (c *HardwareClient) OpenApp(ctx context.Context, device Device, network Network) error {
	if network.AppName() == "" {
		return errors.Wrapf(ErrUnknownNetwork, "%d", int(network))
	}
	st := c.acquire(device)
	defer st.release()

	dev, err := c.open(ctx, st, device)
	if err != nil {
		return err
	}
	resp, err := exchange(ctx, dev, selectAppCommand(network))
	closeDevice(dev)
	// the session is gone whether or not the switch succeeded
	st.appSwitched = true
	if err != nil {
		return err
	}
	if !resp.OK() {
		log.Warnf("open %s app on %s: %v", network.AppName(), device, resp.Err())
	}
	return nil
}

func (c *HardwareClient) DiscoverAccounts(ctx context.Context, device Device, network Network) ([]Account, error) {
	adapter, err := c.adapter(network)
	if err != nil {
		return nil, err
	}
	cmd, err := adapter.BuildDiscoveryRequest()
	if err != nil {
		return nil, err
	}

	st := c.acquire(device)
	defer st.release()

	dev, err := c.open(ctx, st, device)
	if err != nil {
		return nil, err
	}
	defer closeDevice(dev)

	resp, err := exchange(ctx, dev, cmd)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		log.Infof("no %s accounts on %s: %v", network, device, resp.Err())
		return []Account{}, nil
	}
	return adapter.DecodeDiscoveryResponse(resp.Data)
}

func (c *HardwareClient) SignMessage(ctx context.Context, device Device, network Network, msg []byte) (*SignatureResult, error) {
	adapter, err := c.adapter(network)
	if err != nil {
		return nil, err
	}
	frames, err := adapter.BuildSignFrames(msg)
	if err != nil {
		return nil, err
	}

	st := c.acquire(device)
	defer st.release()

	dev, err := c.open(ctx, st, device)
	if err != nil {
		return nil, err
	}
	defer closeDevice(dev)

	var last Response
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "signing aborted before frame %d/%d", i+1, len(frames))
		}
		last, err = exchange(ctx, dev, frame)
		if err != nil {
			return nil, errors.Wrapf(err, "signing aborted at frame %d/%d", i+1, len(frames))
		}
		if !last.OK() {
			return nil, errors.Wrapf(last.Err(), "signing aborted at frame %d/%d", i+1, len(frames))
		}
	}
	return adapter.DecodeSignResponse(last.Data)
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

var mockAccounts = map[int]map[Network]string{
	1: {
		Bitcoin:  "03a1af804ac108a8a51782198c2d034b28bf90c8803f5a53f76276fa69a4eae77f",
		Ethereum: "0x9858effd232b4033e47d90003d41ec34ecaeda94",
	},
	2: {
		Bitcoin:  "02e7ab2537b5d49e970309aae06e9e49f36ce1c9febbd44ec8e0d1cca0b4f9c319",
		Ethereum: "0x6fac4d18c912343bf86fa7049364dd4e424ab9c0",
	},
}

// MockClient is a deterministic SignerClient without hardware. Accounts for
// a network are only served after OpenApp selected that network on the
// device, mirroring what real firmware accepts.
type MockClient struct {
	mu      sync.Mutex
	openApp map[int]Network
}

var _ SignerClient = (*MockClient)(nil)

// NewMockClient returns a client exposing two fixed devices.
func NewMockClient() *MockClient {
	return &MockClient{openApp: make(map[int]Network)}
}

func (m *MockClient) known(device Device) error {
	if _, ok := mockAccounts[device.MockID]; !ok {
		return errors.Wrapf(ErrDeviceNotFound, "%s", device)
	}
	return nil
}

// requireApp enforces that OpenApp(device, network) preceded the call.
func (m *MockClient) requireApp(device Device, network Network) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.openApp[device.MockID]
	if !ok || current != network {
		return errors.Wrapf(ErrAppNotOpen, "%s on %s", network, device)
	}
	return nil
}

func (m *MockClient) DiscoverDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Device{{MockID: 1}, {MockID: 2}}, nil
}

func (m *MockClient) GetDeviceInfo(ctx context.Context, device Device) (*DeviceInfo, error) {
	if err := m.known(device); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *MockClient) OpenApp(ctx context.Context, device Device, network Network) error {
	if err := m.known(device); err != nil {
		return err
	}
	if network.AppName() == "" {
		return errors.Wrapf(ErrUnknownNetwork, "%d", int(network))
	}
	m.mu.Lock()
	m.openApp[device.MockID] = network
	m.mu.Unlock()
	return nil
}

func (m *MockClient) DiscoverAccounts(ctx context.Context, device Device, network Network) ([]Account, error) {
	if err := m.known(device); err != nil {
		return nil, err
	}
	if err := m.requireApp(device, network); err != nil {
		return nil, err
	}

	account := Account{Address: mockAccounts[device.MockID][network], Network: network}
	switch network {
	case Bitcoin:
		account.Path = BitcoinPath
		account.PublicKey, _ = hex.DecodeString(account.Address)
	case Ethereum:
		account.Path = EthereumPath
	}
	return []Account{account}, nil
}

// SignMessage returns a Keccak-derived signature that depends only on the
// device and the message.
func (m *MockClient) SignMessage(ctx context.Context, device Device, network Network, msg []byte) (*SignatureResult, error) {
	if err := m.known(device); err != nil {
		return nil, err
	}
	if network == Bitcoin {
		return nil, errors.Wrap(ErrNotSupported, "bitcoin message signing")
	}
	if err := m.requireApp(device, network); err != nil {
		return nil, err
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{byte(device.MockID)})
	h.Write(msg)
	r := h.Sum(nil)

	h.Reset()
	h.Write(r)
	s := h.Sum(nil)

	sig := &SignatureResult{V: 27 + r[0]&1}
	copy(sig.R[:], r)
	copy(sig.S[:], s)
	return sig, nil
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Network selects the on-device app, derivation path and wire format.
type Network int

const (
	Bitcoin Network = iota
	Ethereum
)

// Networks lists every supported network.
var Networks = []Network{Bitcoin, Ethereum}

func (n Network) String() string {
	switch n {
	case Bitcoin:
		return "bitcoin"
	case Ethereum:
		return "ethereum"
	default:
		return "unknown"
	}
}

// AppName is the on-device application name used by the select app command.
func (n Network) AppName() string {
	switch n {
	case Bitcoin:
		return "Bitcoin"
	case Ethereum:
		return "Ethereum"
	default:
		return ""
	}
}

// ParseNetwork accepts the String form and common tickers.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return Bitcoin, nil
	case "ethereum", "eth":
		return Ethereum, nil
	}
	return 0, errors.Wrapf(ErrUnknownNetwork, "%q", s)
}

// Account is an address derived on a device.
type Account struct {
	Address   string
	Network   Network
	Path      DerivationPath
	PublicKey []byte
	ChainCode []byte
}

// Checksummed returns the EIP-55 form of an Ethereum address. Other
// networks, and addresses that are not 20-byte hex, are returned unchanged.
func (a Account) Checksummed() string {
	if a.Network != Ethereum || !common.IsHexAddress(a.Address) {
		return a.Address
	}
	return common.HexToAddress(a.Address).Hex()
}

// SignatureResult is a recoverable ECDSA signature.
type SignatureResult struct {
	V byte
	R [32]byte
	S [32]byte
}

// Bytes returns r || s || v.
func (s *SignatureResult) Bytes() []byte {
	out := make([]byte, 0, 65)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

func (s *SignatureResult) String() string {
	return "0x" + hex.EncodeToString(s.Bytes())
}

// Adapter builds requests and decodes responses for one network.
type Adapter interface {
	Network() Network
	BuildDiscoveryRequest() (Command, error)
	DecodeDiscoveryResponse(data []byte) ([]Account, error)
	BuildSignFrames(msg []byte) ([]Command, error)
	DecodeSignResponse(data []byte) (*SignatureResult, error)
}

// AdapterOptions tune request building. Zero values select the standard
// path without on-device confirmation.
type AdapterOptions struct {
	Path           DerivationPath
	DisplayAddress bool
	ChainCode      bool
}

// AdapterFor returns the adapter for network.
func AdapterFor(network Network, opts AdapterOptions) (Adapter, error) {
	switch network {
	case Bitcoin:
		return newBitcoinAdapter(opts), nil
	case Ethereum:
		return newEthereumAdapter(opts), nil
	}
	return nil, errors.Wrapf(ErrUnknownNetwork, "%d", int(network))
}

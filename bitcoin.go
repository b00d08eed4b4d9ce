// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
)

const (
	claBitcoin     = 0xe1
	insGetXPub     = 0x00
	extendedKeyLen = 78
)

// ExtendedKey is a decoded BIP32 serialized key.
type ExtendedKey struct {
	Version           [4]byte
	Depth             byte
	ParentFingerprint [4]byte
	ChildNumber       uint32
	ChainCode         [32]byte
	Key               [33]byte
}

// ParseExtendedKey decodes a base58check serialized public extended key.
func ParseExtendedKey(s string) (*ExtendedKey, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return nil, decodeErrorf("extended key", "%v", err)
	}
	raw := append([]byte{version}, payload...)
	if len(raw) != extendedKeyLen {
		return nil, decodeErrorf("extended key", "length %d, want %d", len(raw), extendedKeyLen)
	}

	k := &ExtendedKey{Depth: raw[4]}
	copy(k.Version[:], raw[0:4])
	copy(k.ParentFingerprint[:], raw[5:9])
	k.ChildNumber = binary.BigEndian.Uint32(raw[9:13])
	copy(k.ChainCode[:], raw[13:45])
	copy(k.Key[:], raw[45:78])
	if k.Key[0] != 0x02 && k.Key[0] != 0x03 {
		return nil, decodeErrorf("extended key", "not a compressed public key (prefix 0x%02x)", k.Key[0])
	}
	return k, nil
}

type bitcoinAdapter struct {
	path DerivationPath
}

func newBitcoinAdapter(opts AdapterOptions) *bitcoinAdapter {
	path := opts.Path
	if len(path) == 0 {
		path = BitcoinPath
	}
	return &bitcoinAdapter{path: path}
}

func (a *bitcoinAdapter) Network() Network { return Bitcoin }

func (a *bitcoinAdapter) BuildDiscoveryRequest() (Command, error) {
	pathBytes, err := a.path.Encode(MaxBitcoinPathLength)
	if err != nil {
		return Command{}, err
	}
	return BuildCommand(claBitcoin, insGetXPub, 0x00, 0x00, pathBytes), nil
}

func (a *bitcoinAdapter) DecodeDiscoveryResponse(data []byte) ([]Account, error) {
	if len(data) == 0 {
		return nil, decodeErrorf("xpub", "empty payload")
	}
	xpub, err := ParseExtendedKey(string(data))
	if err != nil {
		return nil, err
	}
	return []Account{{
		Address:   hex.EncodeToString(xpub.Key[:]),
		Network:   Bitcoin,
		Path:      a.path,
		PublicKey: append([]byte(nil), xpub.Key[:]...),
		ChainCode: append([]byte(nil), xpub.ChainCode[:]...),
	}}, nil
}

func (a *bitcoinAdapter) BuildSignFrames([]byte) ([]Command, error) {
	return nil, errors.Wrap(ErrNotSupported, "bitcoin message signing")
}

func (a *bitcoinAdapter) DecodeSignResponse([]byte) (*SignatureResult, error) {
	return nil, errors.Wrap(ErrNotSupported, "bitcoin message signing")
}

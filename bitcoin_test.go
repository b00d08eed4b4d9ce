// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testXPub serialises an extended public key the way the Bitcoin app does.
func testXPub(key []byte) string {
	raw := make([]byte, 0, extendedKeyLen)
	raw = append(raw, 0x04, 0xb2, 0x47, 0x46) // zpub
	raw = append(raw, 0x05)
	raw = append(raw, 0xde, 0xad, 0xbe, 0xef)
	raw = binary.BigEndian.AppendUint32(raw, 0)
	raw = append(raw, bytes.Repeat([]byte{0x42}, 32)...)
	raw = append(raw, key...)
	return base58.CheckEncode(raw[1:], raw[0])
}

func testPubKey() []byte {
	return append([]byte{0x02}, bytes.Repeat([]byte{0x7e}, 32)...)
}

func TestParseExtendedKey(t *testing.T) {
	key := testPubKey()
	xpub, err := ParseExtendedKey(testXPub(key))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0x04, 0xb2, 0x47, 0x46}, xpub.Version)
	assert.Equal(t, byte(5), xpub.Depth)
	assert.Equal(t, [4]byte{0xde, 0xad, 0xbe, 0xef}, xpub.ParentFingerprint)
	assert.Equal(t, uint32(0), xpub.ChildNumber)
	assert.Equal(t, bytes.Repeat([]byte{0x42}, 32), xpub.ChainCode[:])
	assert.Equal(t, key, xpub.Key[:])
}

func TestParseExtendedKeyMalformed(t *testing.T) {
	good := testXPub(testPubKey())

	corrupt := base58.Decode(good)
	corrupt[20] ^= 0xff
	_, err := ParseExtendedKey(base58.Encode(corrupt))
	assert.True(t, IsDecodeError(err), "checksum")

	_, err = ParseExtendedKey(base58.CheckEncode(make([]byte, 40), 0x04))
	assert.True(t, IsDecodeError(err), "length")

	private := append([]byte{0x00}, bytes.Repeat([]byte{0x01}, 32)...)
	_, err = ParseExtendedKey(testXPub(private))
	assert.True(t, IsDecodeError(err), "private key prefix")
}

func TestBitcoinDiscovery(t *testing.T) {
	adapter := newBitcoinAdapter(AdapterOptions{})
	cmd, err := adapter.BuildDiscoveryRequest()
	require.NoError(t, err)
	assert.Equal(t, byte(0xe1), cmd.CLA)
	assert.Equal(t, byte(0x00), cmd.INS)
	assert.Equal(t, byte(0x00), cmd.P1)
	assert.Equal(t, byte(0x00), cmd.P2)
	expected, _ := BitcoinPath.Encode(MaxBitcoinPathLength)
	assert.Equal(t, expected, cmd.Data)

	key := testPubKey()
	accounts, err := adapter.DecodeDiscoveryResponse([]byte(testXPub(key)))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, hex.EncodeToString(key), accounts[0].Address)
	assert.Equal(t, Bitcoin, accounts[0].Network)
	assert.Equal(t, BitcoinPath, accounts[0].Path)
	assert.Equal(t, accounts[0].Address, accounts[0].Checksummed())

	_, err = adapter.DecodeDiscoveryResponse(nil)
	assert.True(t, IsDecodeError(err))
}

func TestBitcoinPathTooLong(t *testing.T) {
	adapter := newBitcoinAdapter(AdapterOptions{Path: make(DerivationPath, MaxBitcoinPathLength+1)})
	_, err := adapter.BuildDiscoveryRequest()
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestBitcoinSignNotSupported(t *testing.T) {
	adapter := newBitcoinAdapter(AdapterOptions{})
	frames, err := adapter.BuildSignFrames([]byte("hello"))
	assert.Nil(t, frames)
	assert.True(t, errors.Is(err, ErrNotSupported))

	_, err = adapter.DecodeSignResponse(make([]byte, 65))
	assert.True(t, errors.Is(err, ErrNotSupported))
}

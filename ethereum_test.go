// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethAddressResponse(pubKey, addr, chainCode []byte) []byte {
	out := []byte{byte(len(pubKey))}
	out = append(out, pubKey...)
	out = append(out, byte(len(addr)))
	out = append(out, addr...)
	return append(out, chainCode...)
}

func TestEthereumDiscoveryRequest(t *testing.T) {
	cmd, err := newEthereumAdapter(AdapterOptions{}).BuildDiscoveryRequest()
	require.NoError(t, err)
	assert.Equal(t, byte(0xe0), cmd.CLA)
	assert.Equal(t, byte(0x02), cmd.INS)
	assert.Equal(t, byte(0x00), cmd.P1)
	assert.Equal(t, byte(0x00), cmd.P2)
	expected, _ := EthereumPath.Encode(MaxEthereumPathLength)
	assert.Equal(t, expected, cmd.Data)

	cmd, err = newEthereumAdapter(AdapterOptions{DisplayAddress: true, ChainCode: true}).BuildDiscoveryRequest()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), cmd.P1)
	assert.Equal(t, byte(0x01), cmd.P2)
}

func TestEthereumDecodeAddress(t *testing.T) {
	pubKey := append([]byte{0x04}, bytes.Repeat([]byte{0xab}, 64)...)
	addr := []byte("5aaeb6053f3e94c9b9a0")
	require.Len(t, pubKey, 65)
	require.Len(t, addr, 20)

	accounts, err := newEthereumAdapter(AdapterOptions{}).DecodeDiscoveryResponse(ethAddressResponse(pubKey, addr, nil))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a0", accounts[0].Address)
	assert.Equal(t, Ethereum, accounts[0].Network)
	assert.Equal(t, pubKey, accounts[0].PublicKey)
	assert.Equal(t, EthereumPath, accounts[0].Path)
	assert.Nil(t, accounts[0].ChainCode)
}

func TestEthereumDecodeAddressWithChainCode(t *testing.T) {
	pubKey := append([]byte{0x04}, bytes.Repeat([]byte{0x01}, 64)...)
	addr := []byte("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	chainCode := bytes.Repeat([]byte{0xcc}, 32)

	accounts, err := newEthereumAdapter(AdapterOptions{ChainCode: true}).DecodeDiscoveryResponse(ethAddressResponse(pubKey, addr, chainCode))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "0x"+string(addr), accounts[0].Address)
	assert.Equal(t, chainCode, accounts[0].ChainCode)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", accounts[0].Checksummed())
}

func TestEthereumDecodeMalformed(t *testing.T) {
	pubKey := bytes.Repeat([]byte{0x04}, 65)
	valid := ethAddressResponse(pubKey, []byte("0123456789abcdef0123"), nil)

	cases := map[string][]byte{
		"empty":              {},
		"pubkey overrun":     {0x41, 0x04, 0x04},
		"missing addr len":   append([]byte{0x01}, 0x04),
		"addr overrun":       append(append([]byte{}, valid[:66]...), 0x28, 'a', 'b'),
		"odd trailing bytes": append(append([]byte{}, valid...), 0x01, 0x02),
	}
	adapter := newEthereumAdapter(AdapterOptions{})
	for name, data := range cases {
		accounts, err := adapter.DecodeDiscoveryResponse(data)
		assert.Nil(t, accounts, name)
		assert.True(t, IsDecodeError(err), name)
	}
}

func TestEthereumDecodeSignature(t *testing.T) {
	data := make([]byte, 65)
	data[0] = 0x1b
	for i := 1; i < 65; i++ {
		data[i] = byte(i)
	}
	sig, err := newEthereumAdapter(AdapterOptions{}).DecodeSignResponse(data)
	require.NoError(t, err)
	assert.Equal(t, byte(0x1b), sig.V)
	assert.Equal(t, data[1:33], sig.R[:])
	assert.Equal(t, data[33:65], sig.S[:])
	assert.Equal(t, append(append(append([]byte{}, data[1:33]...), data[33:65]...), 0x1b), sig.Bytes())

	for _, n := range []int{0, 64, 66} {
		_, err := newEthereumAdapter(AdapterOptions{}).DecodeSignResponse(make([]byte, n))
		assert.True(t, IsDecodeError(err), "len %d", n)
	}
}

func TestSelectAppCommand(t *testing.T) {
	cmd := selectAppCommand(Bitcoin)
	assert.Equal(t, Command{CLA: 0xe0, INS: 0xd8, Data: []byte("Bitcoin")}, cmd)
	assert.Equal(t, []byte("Ethereum"), selectAppCommand(Ethereum).Data)
}

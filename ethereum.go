// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

const (
	claEthereum      = 0xe0
	insSelectApp     = 0xd8
	insGetAddress    = 0x02
	insSign          = 0x04
	chainCodeLen     = 32
	signatureLen     = 65
	p1ConfirmAddress = 0x01
	p2WithChainCode  = 0x01
)

type ethereumAdapter struct {
	path           DerivationPath
	displayAddress bool
	chainCode      bool
}

func newEthereumAdapter(opts AdapterOptions) *ethereumAdapter {
	path := opts.Path
	if len(path) == 0 {
		path = EthereumPath
	}
	return &ethereumAdapter{path: path, displayAddress: opts.DisplayAddress, chainCode: opts.ChainCode}
}

func (a *ethereumAdapter) Network() Network { return Ethereum }

func (a *ethereumAdapter) BuildDiscoveryRequest() (Command, error) {
	pathBytes, err := a.path.Encode(MaxEthereumPathLength)
	if err != nil {
		return Command{}, err
	}
	var p1, p2 byte
	if a.displayAddress {
		p1 = p1ConfirmAddress
	}
	if a.chainCode {
		p2 = p2WithChainCode
	}
	return BuildCommand(claEthereum, insGetAddress, p1, p2, pathBytes), nil
}

// DecodeDiscoveryResponse parses [pubkey_len][pubkey][addr_len][addr][chain_code?].
func (a *ethereumAdapter) DecodeDiscoveryResponse(data []byte) ([]Account, error) {
	const op = "ethereum address"
	if len(data) < 1 {
		return nil, decodeErrorf(op, "empty payload")
	}
	pubLen := int(data[0])
	offset := 1
	if offset+pubLen > len(data) {
		return nil, decodeErrorf(op, "pubkey length %d exceeds %d remaining bytes", pubLen, len(data)-offset)
	}
	pubKey := data[offset : offset+pubLen]
	offset += pubLen

	if offset >= len(data) {
		return nil, decodeErrorf(op, "missing address length")
	}
	addrLen := int(data[offset])
	offset++
	if offset+addrLen > len(data) {
		return nil, decodeErrorf(op, "address length %d exceeds %d remaining bytes", addrLen, len(data)-offset)
	}
	addr := data[offset : offset+addrLen]
	offset += addrLen

	account := Account{
		Address:   "0x" + string(addr),
		Network:   Ethereum,
		Path:      a.path,
		PublicKey: append([]byte(nil), pubKey...),
	}

	switch rest := len(data) - offset; {
	case rest == 0:
	case rest == chainCodeLen:
		account.ChainCode = append([]byte(nil), data[offset:]...)
	default:
		return nil, decodeErrorf(op, "%d trailing bytes, want 0 or %d", rest, chainCodeLen)
	}
	return []Account{account}, nil
}

func (a *ethereumAdapter) BuildSignFrames(msg []byte) ([]Command, error) {
	pathBytes, err := a.path.Encode(MaxEthereumPathLength)
	if err != nil {
		return nil, err
	}
	return signFrames(claEthereum, insSign, pathBytes, msg), nil
}

// DecodeSignResponse splits the final 65-byte answer into v, r and s.
func (a *ethereumAdapter) DecodeSignResponse(data []byte) (*SignatureResult, error) {
	if len(data) != signatureLen {
		return nil, decodeErrorf("ethereum signature", "length %d, want %d", len(data), signatureLen)
	}
	sig := &SignatureResult{V: data[0]}
	copy(sig.R[:], data[1:33])
	copy(sig.S[:], data[33:65])
	return sig, nil
}

func selectAppCommand(network Network) Command {
	return BuildCommand(claEthereum, insSelectApp, 0x00, 0x00, []byte(network.AppName()))
}

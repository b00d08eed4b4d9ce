// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// HardenedOffset is OR'd into an index on the wire to mark it hardened.
	HardenedOffset uint32 = 0x80000000

	MaxBitcoinPathLength  = 8
	MaxEthereumPathLength = 10
)

// PathElement is one BIP32 index.
type PathElement struct {
	Index    uint32
	Hardened bool
}

// DerivationPath is an ordered BIP32 path.
type DerivationPath []PathElement

var (
	// EthereumPath is m/44'/60'/0'/0.
	EthereumPath = DerivationPath{{44, true}, {60, true}, {0, true}, {0, false}}
	// BitcoinPath is m/84'/0'/0'/0/0.
	BitcoinPath = DerivationPath{{84, true}, {0, true}, {0, true}, {0, false}, {0, false}}
)

// ParseDerivationPath parses the textual m/44'/60'/0'/0 form. Both ' and h
// mark a hardened index.
func ParseDerivationPath(s string) (DerivationPath, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) > 0 && (parts[0] == "m" || parts[0] == "M") {
		parts = parts[1:]
	}
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return nil, errors.Wrapf(ErrInvalidPath, "%q is empty", s)
	}

	path := make(DerivationPath, 0, len(parts))
	for _, p := range parts {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") || strings.HasSuffix(p, "H")
		if hardened {
			p = p[:len(p)-1]
		}
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPath, "component %q: %v", p, err)
		}
		if uint32(v) >= HardenedOffset {
			return nil, errors.Wrapf(ErrInvalidPath, "component %q out of range", p)
		}
		path = append(path, PathElement{Index: uint32(v), Hardened: hardened})
	}
	return path, nil
}

func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, e := range p {
		sb.WriteByte('/')
		sb.WriteString(strconv.FormatUint(uint64(e.Index), 10))
		if e.Hardened {
			sb.WriteByte('\'')
		}
	}
	return sb.String()
}

// Encode emits [count][index as uint32 big-endian]... with hardened indices
// carrying the top bit. The path must hold between 1 and max elements.
func (p DerivationPath) Encode(max int) ([]byte, error) {
	if len(p) == 0 || len(p) > max {
		return nil, errors.Wrapf(ErrInvalidPath, "length %d not in [1,%d]", len(p), max)
	}

	out := make([]byte, 1+4*len(p))
	out[0] = byte(len(p))
	for i, e := range p {
		if e.Index >= HardenedOffset {
			return nil, errors.Wrapf(ErrInvalidPath, "index %d already has the hardened bit", e.Index)
		}
		v := e.Index
		if e.Hardened {
			v |= HardenedOffset
		}
		binary.BigEndian.PutUint32(out[1+4*i:], v)
	}
	return out, nil
}

// EncodeDerivationPath encodes indices, hardening index i when bit i of
// hardenedMask is set.
func EncodeDerivationPath(indices []uint32, hardenedMask uint32) ([]byte, error) {
	path := make(DerivationPath, len(indices))
	for i, idx := range indices {
		path[i] = PathElement{Index: idx, Hardened: hardenedMask&(1<<uint(i)) != 0}
	}
	return path.Encode(MaxEthereumPathLength)
}

// DecodeDerivationPath is the inverse of Encode.
func DecodeDerivationPath(b []byte) (DerivationPath, error) {
	if len(b) == 0 {
		return nil, decodeErrorf("derivation path", "empty")
	}
	n := int(b[0])
	if n == 0 || len(b) != 1+4*n {
		return nil, decodeErrorf("derivation path", "count %d does not match %d bytes", n, len(b)-1)
	}

	path := make(DerivationPath, n)
	for i := range path {
		v := binary.BigEndian.Uint32(b[1+4*i:])
		path[i] = PathElement{Index: v &^ HardenedOffset, Hardened: v&HardenedOffset != 0}
	}
	return path, nil
}

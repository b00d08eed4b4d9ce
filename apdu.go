// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Status words returned in the last two bytes of every response.
const (
	SWOK                     uint16 = 0x9000
	SWWrongLength            uint16 = 0x6700
	SWSecurityStatus         uint16 = 0x6982
	SWConditionsNotSatisfied uint16 = 0x6985
	SWInvalidData            uint16 = 0x6a80
	SWNotSupported           uint16 = 0x6a81
	SWIncorrectP1P2          uint16 = 0x6b00
	SWINSNotSupported        uint16 = 0x6d00
	SWCLANotSupported        uint16 = 0x6e00
	SWAppNotOpen             uint16 = 0x6e01
	SWWrongAppContext        uint16 = 0x6511
	SWDeviceLocked           uint16 = 0x5515
	SWUserRejected           uint16 = 0x6986
)

const (
	// MaxShortData is the largest payload a short-form Lc byte can describe.
	MaxShortData = 0xff
	// MaxFrameData bounds a single command's data: one message chunk plus
	// the longest supported derivation path prefix.
	MaxFrameData = MaxChunkSize + 1 + 4*MaxEthereumPathLength
)

// Command is a single APDU sent to the device.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// BuildCommand assembles a command value. It performs no I/O.
func BuildCommand(cla, ins, p1, p2 byte, data []byte) Command {
	return Command{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data}
}

// Bytes serialises the command. Payloads above 255 bytes use the extended
// length form (0x00 followed by a big-endian uint16).
func (c Command) Bytes() ([]byte, error) {
	n := len(c.Data)
	if n > MaxFrameData {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d > %d bytes", n, MaxFrameData)
	}

	out := make([]byte, 0, 7+n)
	out = append(out, c.CLA, c.INS, c.P1, c.P2)
	if n <= MaxShortData {
		out = append(out, byte(n))
	} else {
		out = append(out, 0x00, byte(n>>8), byte(n))
	}
	return append(out, c.Data...), nil
}

func (c Command) String() string {
	return fmt.Sprintf("cla=%02x ins=%02x p1=%02x p2=%02x len=%d", c.CLA, c.INS, c.P1, c.P2, len(c.Data))
}

// Response is the device answer: payload followed by a status word.
type Response struct {
	Data   []byte
	Status uint16
}

// ParseResponse splits a raw response into payload and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, decodeErrorf("response", "too short: %d bytes", len(raw))
	}
	split := len(raw) - 2
	return Response{
		Data:   raw[:split],
		Status: binary.BigEndian.Uint16(raw[split:]),
	}, nil
}

// OK reports whether the status word signals success.
func (r Response) OK() bool {
	return r.Status == SWOK
}

// Err returns a *StatusError for any non-success status word.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Status: r.Status}
}

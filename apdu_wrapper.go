// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Forked from github.com/zondax/ledger-go
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	tagAPDU         = 0x05
	packetHeaderLen = 5
)

// WrapCommandAPDU turns the command into a sequence of fixed-size packets for HID transport.
// Every packet starts with [channel][tag][sequence]; the first one also carries the total length.
func WrapCommandAPDU(channel uint16, command []byte, packetSize int) ([][]byte, error) {
	if packetSize < packetHeaderLen+3 {
		return nil, errors.New("packet size must be at least 8")
	}
	if len(command) > 0xffff {
		return nil, errors.Wrapf(ErrFrameTooLarge, "command of %d bytes", len(command))
	}

	payload := make([]byte, 2+len(command))
	binary.BigEndian.PutUint16(payload[0:2], uint16(len(command)))
	copy(payload[2:], command)

	var chunks [][]byte
	for seq := uint16(0); len(payload) > 0; seq++ {
		packet := make([]byte, packetSize)
		binary.BigEndian.PutUint16(packet[0:2], channel)
		packet[2] = tagAPDU
		binary.BigEndian.PutUint16(packet[3:5], seq)

		n := copy(packet[packetHeaderLen:], payload)
		payload = payload[n:]
		chunks = append(chunks, packet)
	}

	return chunks, nil
}

// responseReader reassembles a response from HID packets.
type responseReader struct {
	channel uint16
	seq     uint16
	total   int
	data    []byte
}

func newResponseReader(channel uint16) *responseReader {
	return &responseReader{channel: channel, total: -1}
}

// Feed consumes one packet and reports whether the response is complete.
func (r *responseReader) Feed(packet []byte) (bool, error) {
	if len(packet) < packetHeaderLen {
		return false, decodeErrorf("hid packet", "too short: %d bytes", len(packet))
	}
	if ch := binary.BigEndian.Uint16(packet[0:2]); ch != r.channel {
		return false, decodeErrorf("hid packet", "channel 0x%04x, want 0x%04x", ch, r.channel)
	}
	if packet[2] != tagAPDU {
		return false, decodeErrorf("hid packet", "tag 0x%02x, want 0x%02x", packet[2], tagAPDU)
	}
	if seq := binary.BigEndian.Uint16(packet[3:5]); seq != r.seq {
		return false, decodeErrorf("hid packet", "sequence %d, want %d", seq, r.seq)
	}
	r.seq++

	body := packet[packetHeaderLen:]
	if r.total < 0 {
		if len(body) < 2 {
			return false, decodeErrorf("hid packet", "first packet has no length")
		}
		r.total = int(binary.BigEndian.Uint16(body[0:2]))
		r.data = make([]byte, 0, r.total)
		body = body[2:]
	}

	need := r.total - len(r.data)
	if len(body) > need {
		body = body[:need]
	}
	r.data = append(r.data, body...)
	return len(r.data) == r.total, nil
}

// Bytes returns the reassembled response.
func (r *responseReader) Bytes() []byte {
	return r.data
}

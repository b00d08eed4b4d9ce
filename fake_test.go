// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"sync"
	"time"
)

type fakeReply struct {
	raw []byte
	err error
}

func okReply(data []byte) fakeReply {
	return fakeReply{raw: append(append([]byte{}, data...), 0x90, 0x00)}
}

func statusReply(sw uint16) fakeReply {
	return fakeReply{raw: []byte{byte(sw >> 8), byte(sw)}}
}

func errReply(err error) fakeReply {
	return fakeReply{err: err}
}

// fakeAdmin scripts the transport: replies are consumed in order by
// Exchange, and every command and open is recorded.
type fakeAdmin struct {
	mu       sync.Mutex
	devices  []Device
	enumErr  error
	info     DeviceInfo
	openErrs []error
	replies  []fakeReply

	opens    int
	openedAt []time.Time
	closes   int
	commands [][]byte
}

func (f *fakeAdmin) Enumerate() ([]Device, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return append([]Device(nil), f.devices...), nil
}

func (f *fakeAdmin) Info(device Device) (DeviceInfo, error) {
	for _, d := range f.devices {
		if d == device {
			return f.info, nil
		}
	}
	return DeviceInfo{}, ErrDeviceNotFound
}

func (f *fakeAdmin) Open(device Device) (LedgerDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.openedAt = append(f.openedAt, time.Now())
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeDevice{admin: f}, nil
}

func (f *fakeAdmin) recorded() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.commands))
	for i, raw := range f.commands {
		out[i] = parseCommand(raw)
	}
	return out
}

// parseCommand inverts Command.Bytes for test assertions.
func parseCommand(raw []byte) Command {
	cmd := Command{CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3]}
	if raw[4] == 0x00 && len(raw) > 5 {
		cmd.Data = raw[7:]
	} else {
		cmd.Data = raw[5:]
	}
	return cmd
}

type fakeDevice struct {
	admin *fakeAdmin
}

func (d *fakeDevice) Exchange(ctx context.Context, command []byte) ([]byte, error) {
	f := d.admin
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, append([]byte(nil), command...))
	if len(f.replies) == 0 {
		return nil, ErrDeviceBusyOrDisconnected
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.raw, reply.err
}

func (d *fakeDevice) Close() error {
	d.admin.mu.Lock()
	d.admin.closes++
	d.admin.mu.Unlock()
	return nil
}

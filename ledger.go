// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Forked from github.com/zondax/ledger-go
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"fmt"
)

// Device identifies one physical unit. Two handles are equal when they name
// the same transport path and serial number, or the same mock id.
type Device struct {
	Path   string
	Serial string
	MockID int
}

// IsMock reports whether the handle was produced by the mock client.
func (d Device) IsMock() bool {
	return d.MockID != 0
}

func (d Device) String() string {
	if d.IsMock() {
		return fmt.Sprintf("mock#%d", d.MockID)
	}
	if d.Serial != "" {
		return fmt.Sprintf("%s (%s)", d.Path, d.Serial)
	}
	return d.Path
}

// DeviceInfo holds display attributes read from a device.
type DeviceInfo struct {
	Model        string
	Manufacturer string
	ProductID    uint16
	Release      uint16
	AppName      string
	AppVersion   string
}

// LedgerAdmin enumerates and opens devices.
type LedgerAdmin interface {
	Enumerate() ([]Device, error)
	Info(device Device) (DeviceInfo, error)
	Open(device Device) (LedgerDevice, error)
}

// LedgerDevice exchanges raw APDUs with one open device.
type LedgerDevice interface {
	Exchange(ctx context.Context, command []byte) ([]byte, error)
	Close() error
}

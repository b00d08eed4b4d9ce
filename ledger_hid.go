// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Forked from github.com/zondax/ledger-go
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/hid"
	"github.com/pkg/errors"
)

const (
	VendorLedger         = 0x2c97
	UsagePageLedgerNanoS = 0xffa0
	Channel              = 0x0101
	PacketSize           = 64

	DefaultExchangeTimeout = 20 * time.Second
)

// list of supported product ids as well as their corresponding interfaces
// based on https://github.com/LedgerHQ/ledger-live/blob/develop/libs/ledgerjs/packages/devices/src/index.ts
var supportedLedgerProductID = map[uint8]int{
	0x40: 0, // Ledger Nano X
	0x10: 0, // Ledger Nano S
	0x50: 0, // Ledger Nano S Plus
	0x60: 0, // Ledger Stax
	0x70: 0, // Ledger Flex
}

var ledgerModelName = map[uint8]string{
	0x40: "Nano X",
	0x10: "Nano S",
	0x50: "Nano S Plus",
	0x60: "Stax",
	0x70: "Flex",
}

// HIDAdmin enumerates Ledger devices over USB HID.
type HIDAdmin struct {
	vendorID uint16
	timeout  time.Duration
}

// NewHIDAdmin returns an admin filtering on vendorID (VendorLedger when zero).
func NewHIDAdmin(vendorID uint16, exchangeTimeout time.Duration) *HIDAdmin {
	if vendorID == 0 {
		vendorID = VendorLedger
	}
	if exchangeTimeout <= 0 {
		exchangeTimeout = DefaultExchangeTimeout
	}
	return &HIDAdmin{vendorID: vendorID, timeout: exchangeTimeout}
}

type hidDevice struct {
	device      *hid.Device
	timeout     time.Duration
	mu          sync.Mutex
	readCo      *sync.Once
	readChannel chan []byte
	readErr     chan error
}

func logDeviceInfo(d hid.DeviceInfo) {
	log.Debugf("============ %s", d.Path)
	log.Debugf("VendorID      : %x", d.VendorID)
	log.Debugf("ProductID     : %x", d.ProductID)
	log.Debugf("Release       : %x", d.Release)
	log.Debugf("Serial        : %x", d.Serial)
	log.Debugf("Manufacturer  : %s", d.Manufacturer)
	log.Debugf("Product       : %s", d.Product)
	log.Debugf("UsagePage     : %x", d.UsagePage)
	log.Debugf("Usage         : %x", d.Usage)
}

func isLedgerDevice(d hid.DeviceInfo) bool {
	deviceFound := d.UsagePage == UsagePageLedgerNanoS

	// Workarounds for possible empty usage pages
	productIDMM := uint8(d.ProductID >> 8)
	if interfaceID, supported := supportedLedgerProductID[productIDMM]; deviceFound || (supported && (interfaceID == d.Interface)) {
		return true
	}

	return false
}

func (admin *HIDAdmin) matching() ([]hid.DeviceInfo, error) {
	if !hid.Supported() {
		return nil, ErrTransportUnavailable
	}

	var out []hid.DeviceInfo
	for _, d := range hid.Enumerate(admin.vendorID, 0) {
		logDeviceInfo(d)
		if d.VendorID == admin.vendorID && isLedgerDevice(d) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		log.Debug("No devices. Ledger LOCKED OR Other Program/Web Browser may have control of device.")
	}
	return out, nil
}

func (admin *HIDAdmin) lookup(device Device) (hid.DeviceInfo, error) {
	infos, err := admin.matching()
	if err != nil {
		return hid.DeviceInfo{}, err
	}
	for _, d := range infos {
		if d.Path == device.Path && d.Serial == device.Serial {
			return d, nil
		}
	}
	return hid.DeviceInfo{}, errors.Wrapf(ErrDeviceNotFound, "%s", device)
}

// Enumerate lists attached devices matching the vendor filter.
func (admin *HIDAdmin) Enumerate() ([]Device, error) {
	infos, err := admin.matching()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(infos))
	seen := make(map[Device]struct{}, len(infos))
	for _, d := range infos {
		dev := Device{Path: d.Path, Serial: d.Serial}
		if _, dup := seen[dev]; dup {
			continue
		}
		seen[dev] = struct{}{}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Info returns the product attributes reported by the USB descriptor.
func (admin *HIDAdmin) Info(device Device) (DeviceInfo, error) {
	d, err := admin.lookup(device)
	if err != nil {
		return DeviceInfo{}, err
	}
	model := d.Product
	if name, ok := ledgerModelName[uint8(d.ProductID>>8)]; ok && model == "" {
		model = name
	}
	return DeviceInfo{
		Model:        model,
		Manufacturer: d.Manufacturer,
		ProductID:    d.ProductID,
		Release:      d.Release,
	}, nil
}

// Open opens the HID path behind device.
func (admin *HIDAdmin) Open(device Device) (LedgerDevice, error) {
	d, err := admin.lookup(device)
	if err != nil {
		return nil, err
	}
	hd, err := d.Open()
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceBusyOrDisconnected, "open %s: %v", device, err)
	}
	return &hidDevice{
		device:      hd,
		timeout:     admin.timeout,
		readCo:      &sync.Once{},
		readChannel: make(chan []byte, 16),
		readErr:     make(chan error, 1),
	}, nil
}

func (ledger *hidDevice) write(buffer []byte) (int, error) {
	totalBytes := len(buffer)
	totalWrittenBytes := 0
	for totalBytes > totalWrittenBytes {
		writtenBytes, err := ledger.device.Write(buffer[totalWrittenBytes:])
		if err != nil {
			return totalWrittenBytes, err
		}
		totalWrittenBytes += writtenBytes
	}
	return totalWrittenBytes, nil
}

func (ledger *hidDevice) read() <-chan []byte {
	ledger.readCo.Do(func() {
		go ledger.readThread()
	})
	return ledger.readChannel
}

func (ledger *hidDevice) readThread() {
	defer close(ledger.readChannel)
	for {
		buffer := make([]byte, PacketSize)
		readBytes, err := ledger.device.Read(buffer)
		if err != nil {
			ledger.readErr <- err
			return
		}
		select {
		case ledger.readChannel <- buffer[:readBytes]:
		default:
			log.Warnf("[HID] dropped unsolicited packet %x", buffer[:readBytes])
		}
	}
}

// Exchange sends one APDU and waits for the full response. Only one exchange
// runs at a time on a device.
func (ledger *hidDevice) Exchange(ctx context.Context, command []byte) ([]byte, error) {
	if len(command) < 5 {
		return nil, errors.New("APDU commands should not be smaller than 5")
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	log.Debugf("[HID] => %x", command)

	if err := ledger.sendChunks(command); err != nil {
		return nil, errors.Wrapf(ErrDeviceBusyOrDisconnected, "write: %v", err)
	}

	return ledger.getResponse(ctx)
}

func (ledger *hidDevice) sendChunks(command []byte) error {
	chunks, err := WrapCommandAPDU(Channel, command, PacketSize)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if _, err := ledger.write(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (ledger *hidDevice) getResponse(ctx context.Context) ([]byte, error) {
	readChannel := ledger.read()
	timeout := time.NewTimer(ledger.timeout)
	defer timeout.Stop()

	reader := newResponseReader(Channel)
	for {
		select {
		case buffer, ok := <-readChannel:
			if !ok {
				var cause error = errors.New("read channel closed")
				select {
				case cause = <-ledger.readErr:
				default:
				}
				return nil, errors.Wrapf(ErrDeviceBusyOrDisconnected, "read: %v", cause)
			}
			done, err := reader.Feed(buffer)
			if err != nil {
				return nil, err
			}
			if !done {
				continue
			}
			response := reader.Bytes()
			log.Debugf("[HID] <= %x", response)
			if len(response) < 2 {
				return nil, decodeErrorf("response", "too short: %d bytes", len(response))
			}
			return response, nil
		case <-timeout.C:
			return nil, errors.Wrapf(ErrDeviceBusyOrDisconnected, "timeout reading from device after %s", ledger.timeout)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.Wrap(ErrDeviceBusyOrDisconnected, "exchange deadline exceeded")
			}
			return nil, errors.Wrap(ctx.Err(), "exchange cancelled")
		}
	}
}

func (ledger *hidDevice) Close() error {
	return ledger.device.Close()
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTransportUnavailable is returned when the host has no usable HID layer.
	ErrTransportUnavailable = errors.New("hid transport unavailable")
	// ErrDeviceNotFound is returned when a device is not (or no longer) attached.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceBusyOrDisconnected is returned when an exchange fails at the
	// transport level. Reopening the device may recover from it.
	ErrDeviceBusyOrDisconnected = errors.New("device busy or disconnected")
	// ErrNotSupported is returned for operations a network adapter does not implement.
	ErrNotSupported = errors.New("operation not supported")
	// ErrAppNotOpen is returned when accounts are requested for a network
	// whose app was not opened on the device first.
	ErrAppNotOpen = errors.New("app not open for network")
	// ErrInvalidPath is returned for malformed or over-long derivation paths.
	ErrInvalidPath = errors.New("invalid derivation path")
	// ErrFrameTooLarge is returned when command data does not fit one frame.
	ErrFrameTooLarge = errors.New("command data exceeds frame limit")
	// ErrUnknownNetwork is returned for network names no adapter serves.
	ErrUnknownNetwork = errors.New("unknown network")
)

// StatusReason classifies a non-success status word.
type StatusReason int

const (
	ReasonUnknown StatusReason = iota
	ReasonUserRejected
	ReasonWrongApp
	ReasonUnsupported
	ReasonLocked
	ReasonInvalidData
)

func (r StatusReason) String() string {
	switch r {
	case ReasonUserRejected:
		return "user rejected"
	case ReasonWrongApp:
		return "wrong app open"
	case ReasonUnsupported:
		return "unsupported operation"
	case ReasonLocked:
		return "device locked"
	case ReasonInvalidData:
		return "invalid data"
	default:
		return "unknown"
	}
}

// StatusError is a non-success status word reported by the firmware.
type StatusError struct {
	Status uint16
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device reported status 0x%04x (%s)", e.Status, e.Reason())
}

// Reason maps the status word onto the coarse categories callers act upon.
func (e *StatusError) Reason() StatusReason {
	switch e.Status {
	case SWConditionsNotSatisfied, SWUserRejected:
		return ReasonUserRejected
	case SWCLANotSupported, SWINSNotSupported, SWAppNotOpen, SWWrongAppContext:
		return ReasonWrongApp
	case SWIncorrectP1P2, SWNotSupported:
		return ReasonUnsupported
	case SWDeviceLocked, SWSecurityStatus:
		return ReasonLocked
	case SWWrongLength, SWInvalidData:
		return ReasonInvalidData
	default:
		return ReasonUnknown
	}
}

// DecodeError reports a response whose layout does not match what the
// command should have produced.
type DecodeError struct {
	Op  string
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Op, e.Msg)
}

func decodeErrorf(op, format string, args ...interface{}) error {
	return errors.WithStack(&DecodeError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// IsStatusError reports whether err carries a firmware status word.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsDecodeError reports whether err is a protocol decode failure.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

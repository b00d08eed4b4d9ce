// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSettleDelay      = time.Second
	DefaultReconnectRetries = 3
)

// ReconnectPolicy governs how a device is reopened after an app switch. The
// firmware drops the session when it changes app, so the next operation
// waits Delay and then opens a fresh transport, retrying the open up to
// MaxRetries more times.
type ReconnectPolicy struct {
	Delay      time.Duration
	MaxRetries int
}

// DefaultReconnectPolicy returns the settle delay and retry count used by New.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Delay: DefaultSettleDelay, MaxRetries: DefaultReconnectRetries}
}

// Reopen waits for the device to settle and opens it.
func (p ReconnectPolicy) Reopen(ctx context.Context, open func() (LedgerDevice, error)) (LedgerDevice, error) {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := sleepCtx(ctx, p.Delay); err != nil {
			return nil, err
		}
		dev, err := open()
		if err == nil {
			if attempt > 0 {
				log.Infof("device reopened after %d retries", attempt)
			}
			return dev, nil
		}
		lastErr = err
		log.Debugf("reopen attempt %d/%d failed: %v", attempt+1, p.MaxRetries+1, err)
	}
	return nil, errors.Wrapf(lastErr, "reopen failed after %d attempts", p.MaxRetries+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconnectPolicyWaitsBeforeOpen(t *testing.T) {
	policy := ReconnectPolicy{Delay: 20 * time.Millisecond}
	start := time.Now()
	dev, err := policy.Reopen(context.Background(), func() (LedgerDevice, error) {
		return &fakeDevice{admin: &fakeAdmin{}}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, dev)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReconnectPolicyBoundedRetries(t *testing.T) {
	policy := ReconnectPolicy{Delay: time.Millisecond, MaxRetries: 2}
	attempts := 0
	_, err := policy.Reopen(context.Background(), func() (LedgerDevice, error) {
		attempts++
		return nil, ErrDeviceBusyOrDisconnected
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceBusyOrDisconnected))
	assert.Equal(t, 3, attempts)
}

func TestReconnectPolicyRecovers(t *testing.T) {
	policy := ReconnectPolicy{Delay: time.Millisecond, MaxRetries: 3}
	attempts := 0
	_, err := policy.Reopen(context.Background(), func() (LedgerDevice, error) {
		attempts++
		if attempts < 2 {
			return nil, ErrDeviceBusyOrDisconnected
		}
		return &fakeDevice{admin: &fakeAdmin{}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestReconnectPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := ReconnectPolicy{Delay: time.Hour}
	_, err := policy.Reopen(ctx, func() (LedgerDevice, error) {
		t.Fatal("open must not run after cancellation")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

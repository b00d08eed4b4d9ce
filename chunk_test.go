// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i * 7)
	}
	return msg
}

func TestChunkMessage(t *testing.T) {
	for _, n := range []int{1, 2, 254, 255, 256, 509, 510, 511, 1000, 4096} {
		msg := testMessage(n)
		chunks := ChunkMessage(msg)
		require.Len(t, chunks, (n+MaxChunkSize-1)/MaxChunkSize, "len %d", n)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), MaxChunkSize)
		}
		assert.Equal(t, msg, bytes.Join(chunks, nil))
	}
}

func TestChunkEmptyMessage(t *testing.T) {
	assert.Empty(t, ChunkMessage(nil))
	assert.Empty(t, ChunkMessage([]byte{}))
}

func TestSignFramesEmptyMessage(t *testing.T) {
	path := []byte{0x01, 0x80, 0x00, 0x00, 0x2c}
	frames := signFrames(0xe0, 0x04, path, nil)
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x00), frames[0].P1)
	assert.Equal(t, byte(0x00), frames[0].P2)
	assert.Equal(t, path, frames[0].Data)
}

func TestSignFramesSingle(t *testing.T) {
	path := []byte{0x01, 0x80, 0x00, 0x00, 0x2c}
	msg := testMessage(MaxChunkSize)
	frames := signFrames(0xe0, 0x04, path, msg)
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x00), frames[0].P1)
	assert.Equal(t, byte(0x00), frames[0].P2)
	assert.Equal(t, append(append([]byte{}, path...), msg...), frames[0].Data)
}

func TestSignFramesTwo(t *testing.T) {
	path := []byte{0x01, 0x80, 0x00, 0x00, 0x2c}
	msg := testMessage(MaxChunkSize + 1)
	frames := signFrames(0xe0, 0x04, path, msg)
	require.Len(t, frames, 2)

	assert.Equal(t, byte(0x00), frames[0].P1)
	assert.Equal(t, byte(0x01), frames[0].P2)
	assert.Equal(t, path, frames[0].Data[:len(path)])
	assert.Equal(t, msg[:MaxChunkSize], frames[0].Data[len(path):])

	assert.Equal(t, byte(0x80), frames[1].P1)
	assert.Equal(t, byte(0x00), frames[1].P2)
	assert.Equal(t, msg[MaxChunkSize:], frames[1].Data)
}

func TestSignFramesContinuation(t *testing.T) {
	msg := testMessage(3*MaxChunkSize + 10)
	frames := signFrames(0xe0, 0x04, []byte{0x00}, msg)
	require.Len(t, frames, 4)
	for i, f := range frames {
		assert.Equal(t, byte(0xe0), f.CLA)
		assert.Equal(t, byte(0x04), f.INS)
		switch {
		case i == 0:
			assert.Equal(t, byte(0x00), f.P1)
			assert.Equal(t, byte(0x01), f.P2)
		case i == len(frames)-1:
			assert.Equal(t, byte(0x80), f.P1)
			assert.Equal(t, byte(0x00), f.P2)
			assert.Len(t, f.Data, 10)
		default:
			assert.Equal(t, byte(0x80), f.P1)
			assert.Equal(t, byte(0x01), f.P2)
			assert.Len(t, f.Data, MaxChunkSize)
		}
	}
}

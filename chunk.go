// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ledger

const (
	// MaxChunkSize is the largest slice of a message carried by one frame.
	MaxChunkSize = 255

	p1FirstFrame = 0x00
	p1NextFrame  = 0x80
	p2Final      = 0x00
	p2More       = 0x01
)

// ChunkMessage splits msg into ordered chunks of at most MaxChunkSize bytes.
// An empty message yields no chunks.
func ChunkMessage(msg []byte) [][]byte {
	chunks := make([][]byte, 0, (len(msg)+MaxChunkSize-1)/MaxChunkSize)
	for start := 0; start < len(msg); start += MaxChunkSize {
		end := start + MaxChunkSize
		if end > len(msg) {
			end = len(msg)
		}
		chunks = append(chunks, msg[start:end])
	}
	return chunks
}

// signFrames builds the frame sequence for a streamed signature: the first
// frame carries the path prefix, every frame but the last sets p2=more. An
// empty message still produces one final frame holding only the path.
func signFrames(cla, ins byte, pathBytes, msg []byte) []Command {
	chunks := ChunkMessage(msg)
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	frames := make([]Command, len(chunks))
	for i, chunk := range chunks {
		p1 := byte(p1NextFrame)
		data := chunk
		if i == 0 {
			p1 = p1FirstFrame
			data = make([]byte, 0, len(pathBytes)+len(chunk))
			data = append(data, pathBytes...)
			data = append(data, chunk...)
		}
		p2 := byte(p2More)
		if i == len(chunks)-1 {
			p2 = p2Final
		}
		frames[i] = BuildCommand(cla, ins, p1, p2, data)
	}
	return frames
}

// File: api/message.go
// Author: momentics <momentics@gmail.com>
//
// Writable message variant: either a Buffer or a FileChunk.

package api

import (
	"fmt"
	"os"
)

// MessageKind tags the payload carried by a Message.
type MessageKind uint8

const (
	// MessageInvalid is the zero Message; writing it is a programming error.
	MessageInvalid MessageKind = iota
	MessageBuffer
	MessageFile
)

func (k MessageKind) String() string {
	switch k {
	case MessageBuffer:
		return "buffer"
	case MessageFile:
		return "file"
	default:
		return "invalid"
	}
}

// Message is a closed variant over the payloads the write path accepts.
// Construct it with BufferMessage or FileMessage.
type Message struct {
	kind MessageKind
	buf  Buffer
	file *FileChunk
}

// BufferMessage wraps a buffer payload.
func BufferMessage(b Buffer) Message {
	if b == nil {
		return Message{}
	}
	return Message{kind: MessageBuffer, buf: b}
}

// FileMessage wraps a file region payload.
func FileMessage(f *FileChunk) Message {
	if f == nil {
		return Message{}
	}
	return Message{kind: MessageFile, file: f}
}

// Kind returns the variant tag.
func (m Message) Kind() MessageKind { return m.kind }

// Buffer returns the buffer payload, or nil for other kinds.
func (m Message) Buffer() Buffer { return m.buf }

// File returns the file payload, or nil for other kinds.
func (m Message) File() *FileChunk { return m.file }

// Remaining returns the number of bytes still to be written.
func (m Message) Remaining() int64 {
	switch m.kind {
	case MessageBuffer:
		return int64(m.buf.Remaining())
	case MessageFile:
		return m.file.Length
	default:
		return 0
	}
}

// FileChunk is a region of a file sent as one datagram.
type FileChunk struct {
	File   *os.File
	Offset int64
	Length int64
}

// NewFileChunk describes length bytes of f starting at offset.
func NewFileChunk(f *os.File, offset, length int64) (*FileChunk, error) {
	if f == nil || offset < 0 || length < 0 {
		return nil, fmt.Errorf("file chunk: %w", ErrInvalidArgument)
	}
	return &FileChunk{File: f, Offset: offset, Length: length}, nil
}

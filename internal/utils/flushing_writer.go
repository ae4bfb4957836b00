package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter forwards command output to a destination writer, flushing
// buffered destinations after every write. The first write or flush failure
// is retained; later writes are dropped and return that failure so callers
// can print a whole summary and check Err once.
type FlushingWriter struct {
	writer  io.Writer
	mutex   sync.Mutex
	failure error
}

// NewFlushingWriter wraps writer. Wrapping an existing FlushingWriter returns it unchanged.
// A nil writer discards output.
func NewFlushingWriter(writer io.Writer) *FlushingWriter {
	if existing, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped && existing != nil {
		return existing
	}
	if writer == nil {
		writer = io.Discard
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the destination writer and flushes it when it buffers output.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	if flushingWriter.failure != nil {
		return 0, flushingWriter.failure
	}

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		flushingWriter.failure = writeError
		return bytesWritten, writeError
	}

	if bufferedWriter, buffers := flushingWriter.writer.(flusher); buffers {
		if flushError := bufferedWriter.Flush(); flushError != nil {
			flushingWriter.failure = flushError
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}

// Err reports the first failure encountered while writing.
func (flushingWriter *FlushingWriter) Err() error {
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()
	return flushingWriter.failure
}

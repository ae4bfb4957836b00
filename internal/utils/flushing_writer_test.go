package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpartial/internal/utils"
)

type failingWriter struct {
	writes int
}

func (writer *failingWriter) Write(data []byte) (int, error) {
	writer.writes++
	return 0, errors.New("broken pipe")
}

func TestFlushingWriterFlushesBufferedOutput(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	bufferedWriter := bufio.NewWriterSize(destination, 4096)

	flushingWriter := utils.NewFlushingWriter(bufferedWriter)
	bytesWritten, writeError := flushingWriter.Write([]byte("Git Partial Status\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 19, bytesWritten)
	require.Equal(testInstance, "Git Partial Status\n", destination.String())
	require.NoError(testInstance, flushingWriter.Err())

	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
}

func TestFlushingWriterRetainsFirstFailure(testInstance *testing.T) {
	destination := &failingWriter{}
	flushingWriter := utils.NewFlushingWriter(destination)

	fmt.Fprintln(flushingWriter, "Sparse checkout paths:")
	fmt.Fprintln(flushingWriter, "  - docs/**")

	require.EqualError(testInstance, flushingWriter.Err(), "broken pipe")
	require.Equal(testInstance, 1, destination.writes)
}

func TestFlushingWriterDiscardsWithoutDestination(testInstance *testing.T) {
	flushingWriter := utils.NewFlushingWriter(nil)
	bytesWritten, writeError := flushingWriter.Write([]byte("ignored"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 7, bytesWritten)
}

package telnet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

const (
	// DefaultReceiveSize is the size of a single read from the stream.
	DefaultReceiveSize = 1024

	// DefaultMaxLineLength bounds the bytes buffered for one line.
	DefaultMaxLineLength = 4096

	whitespace = " \t\r\n\v\f"
)

var (
	// ErrConnectionClosed is returned when the peer closes the stream before
	// a line terminator is seen.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrLineTooLong is returned when a line exceeds the configured maximum
	// without a terminator.
	ErrLineTooLong = errors.New("line too long")
)

// LineReader assembles newline-terminated lines from a stream of TELNET data.
// It is not safe for concurrent use.
type LineReader struct {
	r       io.Reader
	chunk   []byte
	line    []byte
	maxLine int
	total   int64
}

// NewLineReader creates a LineReader reading at most receiveSize bytes per
// read. A non-positive receiveSize selects DefaultReceiveSize; a non-positive
// maxLine disables the length limit.
func NewLineReader(r io.Reader, receiveSize, maxLine int) *LineReader {
	if receiveSize <= 0 {
		receiveSize = DefaultReceiveSize
	}
	return &LineReader{
		r:       r,
		chunk:   make([]byte, receiveSize),
		maxLine: maxLine,
	}
}

// ReadLine reads chunks until the accumulated data ends with '\n' and returns
// it with surrounding whitespace removed. Invalid UTF-8 is dropped after
// trimming, so whitespace next to an invalid byte is kept.
//
// Data following a newline inside the same chunk stays part of the line, so
// a peer that pipelines "ls\npwd\n" in one segment produces "ls\npwd".
func (lr *LineReader) ReadLine() (string, error) {
	lr.line = lr.line[:0]

	for {
		n, err := lr.r.Read(lr.chunk)
		if n > 0 {
			lr.total += int64(n)
			lr.line = append(lr.line, StripCommands(lr.chunk[:n])...)

			if lr.maxLine > 0 && len(lr.line) > lr.maxLine {
				return "", ErrLineTooLong
			}
			if bytes.HasSuffix(lr.line, []byte{'\n'}) {
				return decodeLine(lr.line), nil
			}
		}

		switch {
		case err == nil && n == 0:
			return "", ErrConnectionClosed
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
			return "", ErrConnectionClosed
		case err != nil:
			return "", fmt.Errorf("read line: %w", err)
		}
	}
}

// BytesReceived returns the raw bytes read from the stream so far,
// negotiation included.
func (lr *LineReader) BytesReceived() int64 {
	return lr.total
}

func decodeLine(b []byte) string {
	return strings.ToValidUTF8(strings.Trim(string(b), whitespace), "")
}

// IsTimeout reports whether err was caused by an expired read deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

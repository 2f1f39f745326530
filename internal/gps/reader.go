package gps

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"
)

const (
	// maxSentenceLen bounds a partial line. NMEA caps sentences at 82 bytes,
	// anything longer is line noise and gets dropped.
	maxSentenceLen = 128
	readChunk      = 256
	idleWait       = 10 * time.Millisecond
)

// SentenceReader splits a serial byte stream into ASCII lines.
// A partial line is kept between calls; bytes outside 7-bit ASCII are dropped.
type SentenceReader struct {
	src     io.Reader
	partial []byte
	chunk   []byte
	discard bool // current line overflowed, skip to the next terminator

	now   func() time.Time
	sleep func(time.Duration)
}

func NewSentenceReader(src io.Reader) *SentenceReader {
	return &SentenceReader{
		src:     src,
		partial: make([]byte, 0, maxSentenceLen),
		chunk:   make([]byte, readChunk),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Read waits up to timeout for at least one complete line and returns every
// line completed by the bytes read so far, trimmed and non-empty. An empty
// result with a nil error means nothing complete arrived in time.
// Source timeouts and empty reads count as idle, not as errors.
func (r *SentenceReader) Read(timeout time.Duration) ([]string, error) {
	deadline := r.now().Add(timeout)
	var lines []string
	for {
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			lines = r.feed(r.chunk[:n], lines)
		}
		if err != nil && !isIdle(err) {
			return lines, err
		}
		if len(lines) > 0 || !r.now().Before(deadline) {
			return lines, nil
		}
		if n == 0 {
			r.sleep(idleWait)
		}
	}
}

func (r *SentenceReader) feed(data []byte, lines []string) []string {
	for _, b := range data {
		switch {
		case b == '\n' || b == '\r':
			if line := bytes.TrimSpace(r.partial); len(line) > 0 && !r.discard {
				lines = append(lines, string(line))
			}
			r.partial = r.partial[:0]
			r.discard = false
		case b == 0 || b >= 0x80:
			// undecodable
		case r.discard:
		case len(r.partial) >= maxSentenceLen:
			r.partial = r.partial[:0]
			r.discard = true
		default:
			r.partial = append(r.partial, b)
		}
	}
	return lines
}

// Reset drops any partial line, e.g. after the port was reopened.
func (r *SentenceReader) Reset() {
	r.partial = r.partial[:0]
	r.discard = false
}

func isIdle(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)
}

// Package sse decodes the line-framed event stream returned by the Pulse
// streaming endpoints: one `data: `-prefixed JSON object per line.
package sse

import (
	"bytes"
)

// LineDecoder splits an incrementally received byte stream into complete
// lines. The unterminated tail is kept between calls.
//
// Splitting happens on the raw bytes, so a multi-byte UTF-8 sequence cut
// across two chunks is reassembled before it is turned into a string.
type LineDecoder struct {
	buf []byte
}

func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Feed appends chunk to the carry-over buffer and returns every line that is
// now complete, without the trailing newline. An empty chunk returns nothing.
func (d *LineDecoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(d.buf[:i]))
		d.buf = d.buf[i+1:]
	}
	if len(d.buf) == 0 {
		// drop the reference to the consumed backing array
		d.buf = nil
	}
	return lines
}

// Pending returns the carry-over content that has no newline yet.
func (d *LineDecoder) Pending() string {
	return string(d.buf)
}

// Flush returns the carry-over and resets the decoder. The returned fragment
// is never a complete line.
func (d *LineDecoder) Flush() string {
	s := string(d.buf)
	d.buf = nil
	return s
}

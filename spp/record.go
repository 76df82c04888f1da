// Package spp keeps the data queued for the classic serial port link and
// formats the records written to it.
package spp

import (
	"fmt"
	"sync/atomic"
)

// Sample is the button and accelerometer state at one instant.
type Sample struct {
	Buttons byte
	X, Y, Z int8
}

// Record type and length of the sensor record.
const (
	SensorRecordType   byte = 0x01
	SensorRecordLength byte = 0x04
	SensorRecordSize        = 6
)

// Formatter writes one record for s into dst and returns the number of
// bytes written. It returns 0 without writing when the record doesn't fit.
type Formatter interface {
	Format(dst []byte, s Sample) int
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(dst []byte, s Sample) int

func (f FormatterFunc) Format(dst []byte, s Sample) int {
	return f(dst, s)
}

// SensorRecord formats [type, length, buttons, x, y, z].
var SensorRecord = FormatterFunc(func(dst []byte, s Sample) int {
	if len(dst) < SensorRecordSize {
		return 0
	}
	dst[0] = SensorRecordType
	dst[1] = SensorRecordLength
	dst[2] = s.Buttons
	dst[3] = byte(s.X)
	dst[4] = byte(s.Y)
	dst[5] = byte(s.Z)
	return SensorRecordSize
})

// HelloRecord formats "hello #N\n" with a counter that advances on every
// record it writes.
type HelloRecord struct {
	n int64
}

func (h *HelloRecord) Format(dst []byte, _ Sample) int {
	n := atomic.LoadInt64(&h.n)
	b := []byte(fmt.Sprintf("hello #%d\n", n))
	if len(b) > len(dst) {
		return 0
	}
	atomic.AddInt64(&h.n, 1)
	return copy(dst, b)
}

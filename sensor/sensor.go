// Package sensor latches the key fob's button and accelerometer state for
// the record formatter.
package sensor

import (
	"sync"
	"time"

	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/spp"
)

// Button identifies a key fob switch.
type Button int

const (
	Switch1 Button = iota
	Switch2
)

// Button bits in a sample.
const (
	Switch1Bit byte = 0x01
	Switch2Bit byte = 0x02
)

func (b Button) bit() byte {
	switch b {
	case Switch1:
		return Switch1Bit
	case Switch2:
		return Switch2Bit
	}
	return 0
}

// Accelerometer reads the three axes.
type Accelerometer interface {
	Acceleration() (x, y, z int8, err error)
}

// Latch holds the most recent button and accelerometer readings.
type Latch struct {
	mu      sync.Mutex
	buttons byte
	xyz     [3]int8
	accel   Accelerometer
	logger  keyfob.Logger
}

// NewLatch returns a latch polling a. a may be nil for a board without an
// accelerometer.
func NewLatch(a Accelerometer) *Latch {
	return &Latch{accel: a, logger: keyfob.ComponentLogger("sensor")}
}

// ButtonEvent records a button state change.
func (l *Latch) ButtonEvent(b Button, pressed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pressed {
		l.buttons |= b.bit()
	} else {
		l.buttons &^= b.bit()
	}
}

// Poll reads the accelerometer. A failed read keeps the previous values.
func (l *Latch) Poll() {
	if l.accel == nil {
		return
	}

	x, y, z, err := l.accel.Acceleration()
	if err != nil {
		l.logger.Warnf("accelerometer read failed: %v", err)
		return
	}

	l.mu.Lock()
	l.xyz = [3]int8{x, y, z}
	l.mu.Unlock()
}

// Sample returns the latched state.
func (l *Latch) Sample() spp.Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	return spp.Sample{Buttons: l.buttons, X: l.xyz[0], Y: l.xyz[1], Z: l.xyz[2]}
}

// DebounceInterval is the minimum time between two counted edges.
const DebounceInterval = 30 * time.Millisecond

// Debouncer counts button edges from interrupt context and replays them as
// press and release events when processed.
type Debouncer struct {
	mu    sync.Mutex
	state [2]struct {
		last     time.Time
		up, down int
	}
	now func() time.Time
	cb  func(Button, bool)
}

// NewDebouncer delivers replayed events to cb.
func NewDebouncer(cb func(b Button, pressed bool)) *Debouncer {
	return &Debouncer{now: time.Now, cb: cb}
}

// Edge records one edge. Edges closer than DebounceInterval to the last
// counted one are ignored.
func (d *Debouncer) Edge(b Button, pressed bool) {
	if b != Switch1 && b != Switch2 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s := &d.state[b]
	now := d.now()
	if !s.last.IsZero() && now.Sub(s.last) < DebounceInterval {
		return
	}
	if pressed {
		s.up++
	} else {
		s.down++
	}
	s.last = now
}

// Process replays counted edges, pairing presses with releases.
func (d *Debouncer) Process() {
	for _, b := range []Button{Switch1, Switch2} {
		d.mu.Lock()
		up, down := d.state[b].up, d.state[b].down
		d.state[b].up, d.state[b].down = 0, 0
		d.mu.Unlock()

		for up > 0 || down > 0 {
			if up > down {
				d.cb(b, true)
				up--
				if down > 0 {
					d.cb(b, false)
					down--
				}
				continue
			}
			if down > 0 {
				d.cb(b, false)
				down--
			}
			if up > 0 {
				d.cb(b, true)
				up--
			}
		}
	}
}

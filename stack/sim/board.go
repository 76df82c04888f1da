package sim

import (
	"sync"

	"github.com/rigado/keyfob/hal"
)

// Board is an in-memory hal.Board with an accelerometer.
type Board struct {
	mu sync.Mutex

	leds      map[hal.LED]bool
	ledEvents []LEDEvent
	sleeping  bool
	locks     int
	rxReady   bool
	modes     []hal.PowerMode
	accel     [3]int8
	accelErr  error

	// OnLED, when set, is called after every LED change.
	OnLED func(led hal.LED, on bool)
}

// LEDEvent is a recorded LED change.
type LEDEvent struct {
	LED hal.LED
	On  bool
}

func NewBoard() *Board {
	return &Board{leds: map[hal.LED]bool{}}
}

func (b *Board) SetLED(led hal.LED, on bool) {
	b.mu.Lock()
	b.leds[led] = on
	b.ledEvents = append(b.ledEvents, LEDEvent{led, on})
	fn := b.OnLED
	b.mu.Unlock()

	if fn != nil {
		fn(led, on)
	}
}

func (b *Board) LED(led hal.LED) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leds[led]
}

func (b *Board) LEDEvents() []LEDEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LEDEvent(nil), b.ledEvents...)
}

func (b *Board) HCILLSleeping() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sleeping
}

func (b *Board) SetHCILLSleeping(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sleeping = v
}

func (b *Board) PowerLockCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks
}

func (b *Board) SetPowerLockCount(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locks = n
}

func (b *Board) RxBytesReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rxReady
}

func (b *Board) SetRxBytesReady(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rxReady = v
}

func (b *Board) EnterLowPower(mode hal.PowerMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modes = append(b.modes, mode)
}

// PowerModes returns every low power mode entered, in order.
func (b *Board) PowerModes() []hal.PowerMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]hal.PowerMode(nil), b.modes...)
}

// Acceleration implements sensor.Accelerometer.
func (b *Board) Acceleration() (x, y, z int8, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accel[0], b.accel[1], b.accel[2], b.accelErr
}

func (b *Board) SetAcceleration(x, y, z int8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accel = [3]int8{x, y, z}
}

// FailAcceleration makes Acceleration return err. A nil err clears it.
func (b *Board) FailAcceleration(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accelErr = err
}

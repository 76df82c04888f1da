// Package hal is the slice of the board support the key fob application
// touches: two LEDs, the HCILL sleep state of the radio UART and the MCU
// low power modes.
package hal

// LED selects one of the board LEDs.
type LED int

const (
	LED0 LED = iota // classic SPP link
	LED1            // LE link
)

func (l LED) String() string {
	switch l {
	case LED0:
		return "LED0"
	case LED1:
		return "LED1"
	}
	return "LED?"
}

// PowerMode is an MCU low power mode.
type PowerMode int

const (
	Active PowerMode = iota
	// LPM0 stops the CPU and keeps the clocks running for the UART.
	LPM0
	// LPM3 stops everything but the low frequency clock.
	LPM3
)

func (m PowerMode) String() string {
	switch m {
	case Active:
		return "active"
	case LPM0:
		return "LPM0"
	case LPM3:
		return "LPM3"
	}
	return "unknown"
}

// Board is implemented by the board support layer.
type Board interface {
	SetLED(led LED, on bool)
	// HCILLSleeping reports whether the radio UART is in HCILL sleep.
	HCILLSleeping() bool
	// PowerLockCount is the number of holders keeping the MCU out of LPM3.
	PowerLockCount() int
	// RxBytesReady reports whether the UART receive buffer holds data.
	RxBytesReady() bool
	EnterLowPower(mode PowerMode)
}

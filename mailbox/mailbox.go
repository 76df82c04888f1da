// Package mailbox is the bounded queue that carries stack events from the
// stack's callback context to the application loop.
package mailbox

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultDepth is the number of messages a mailbox holds.
const DefaultDepth = 8

var ErrFull = errors.New("mailbox full")

// Message is a one byte event ID.
type Message byte

const (
	LEDisconnected Message = 0x01
	LEConnected    Message = 0x02
	CBDisconnected Message = 0x03
	CBConnected    Message = 0x04
	SPPBufferEmpty Message = 0x05
)

var messageStrings = map[Message]string{
	LEDisconnected: "LE disconnected",
	LEConnected:    "LE connected",
	CBDisconnected: "CB disconnected",
	CBConnected:    "CB connected",
	SPPBufferEmpty: "SPP buffer empty",
}

func (m Message) String() string {
	if s, ok := messageStrings[m]; ok {
		return s
	}
	return "unknown message"
}

// Mailbox is a FIFO of messages. Post never blocks and never overwrites.
type Mailbox struct {
	ch chan Message
}

// New returns a mailbox holding up to depth messages.
func New(depth int) (*Mailbox, error) {
	if depth <= 0 {
		return nil, errors.Errorf("invalid mailbox depth %d", depth)
	}
	return &Mailbox{ch: make(chan Message, depth)}, nil
}

// Post queues m, or returns ErrFull.
func (b *Mailbox) Post(m Message) error {
	select {
	case b.ch <- m:
		return nil
	default:
		return ErrFull
	}
}

// Wait returns the oldest message, waiting up to timeout for one. A zero
// timeout polls.
func (b *Mailbox) Wait(timeout time.Duration) (Message, bool) {
	if timeout <= 0 {
		select {
		case m := <-b.ch:
			return m, true
		default:
			return 0, false
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case m := <-b.ch:
		return m, true
	case <-t.C:
		return 0, false
	}
}

// Len returns the number of queued messages.
func (b *Mailbox) Len() int {
	return len(b.ch)
}

// Cap returns the mailbox depth.
func (b *Mailbox) Cap() int {
	return cap(b.ch)
}

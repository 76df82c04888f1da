// Package app is the key fob application: it opens the stack, keeps the
// connection state of the LE and classic transports and runs the event
// loop that reacts to them.
package app

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/bond"
	"github.com/rigado/keyfob/hal"
	"github.com/rigado/keyfob/linkkey"
	"github.com/rigado/keyfob/mailbox"
	"github.com/rigado/keyfob/sched"
	"github.com/rigado/keyfob/security"
	"github.com/rigado/keyfob/sensor"
	"github.com/rigado/keyfob/spp"
	"github.com/rigado/keyfob/stack"
)

// AccelPollInterval is how often the accelerometer is sampled.
const AccelPollInterval = 100 * time.Millisecond

// Application owns the state of one key fob. Stack callbacks and the event
// loop may run on different goroutines.
type Application struct {
	mu    sync.Mutex
	state State

	cfg   *keyfob.Config
	st    stack.Stack
	board hal.Board

	buf    *spp.Buffer
	format spp.Formatter
	mbox   *mailbox.Mailbox

	sched   *sched.Scheduler
	latch   *sensor.Latch
	buttons *sensor.Debouncer

	keys    *security.Keys
	links   *linkkey.Store
	devices *bond.Registry
	bonds   bond.Manager
	resp    *security.Responder

	handlers map[mailbox.Message]func()
	logger   keyfob.Logger
}

// New returns an application for st and board. The stack is not touched
// until Initialize. If board also implements sensor.Accelerometer it is
// polled for samples.
func New(st stack.Stack, board hal.Board, opts ...keyfob.Option) (*Application, error) {
	cfg := keyfob.DefaultConfig()
	if err := cfg.Apply(opts...); err != nil {
		return nil, keyfob.NewError("new", keyfob.CodeAppInvalidParameters, err)
	}

	a := &Application{
		cfg:     cfg,
		st:      st,
		board:   board,
		buf:     spp.NewBuffer(cfg.SPPBufferSize),
		sched:   sched.New(sched.DefaultMaxTasks),
		keys:    security.DefaultKeys(),
		links:   linkkey.New(cfg.MaxLinkKeys),
		devices: bond.NewRegistry(cfg.MaxDevices),
		logger:  keyfob.ComponentLogger("app"),
	}

	switch cfg.PacketFormat {
	case keyfob.PacketFormatHello:
		a.format = &spp.HelloRecord{}
	default:
		a.format = spp.SensorRecord
	}

	if cfg.BondFile != "" {
		a.bonds = bond.NewFileManager(cfg.BondFile)
	}

	var accel sensor.Accelerometer
	if acc, ok := board.(sensor.Accelerometer); ok {
		accel = acc
	}
	a.latch = sensor.NewLatch(accel)
	a.buttons = sensor.NewDebouncer(a.latch.ButtonEvent)

	if _, err := a.sched.Add(sensor.DebounceInterval, a.buttons.Process); err != nil {
		return nil, errors.Wrap(err, "schedule buttons")
	}
	if accel != nil {
		if _, err := a.sched.Add(AccelPollInterval, a.latch.Poll); err != nil {
			return nil, errors.Wrap(err, "schedule accelerometer")
		}
	}

	if st != nil {
		resp, err := security.NewResponder(security.Config{
			PINCode:  cfg.PINCode,
			Keys:     a.keys,
			LinkKeys: a.links,
			Devices:  a.devices,
			Service:  st,
			Bonds:    a.bonds,
		})
		if err != nil {
			return nil, keyfob.NewError("new", keyfob.CodeAppInvalidParameters, err)
		}
		a.resp = resp
	}

	a.handlers = map[mailbox.Message]func(){
		mailbox.SPPBufferEmpty: a.onSPPBufferEmpty,
		mailbox.LEConnected:    a.onLEConnected,
		mailbox.LEDisconnected: a.onLEDisconnected,
		mailbox.CBConnected:    a.onCBConnected,
		mailbox.CBDisconnected: a.onCBDisconnected,
	}

	return a, nil
}

// Config returns the configuration in use.
func (a *Application) Config() keyfob.Config {
	return *a.cfg
}

// State returns a copy of the application state.
func (a *Application) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// BufferLen returns the number of bytes waiting for the classic link.
func (a *Application) BufferLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Len()
}

// Devices returns the LE device registry.
func (a *Application) Devices() *bond.Registry {
	return a.devices
}

// LinkKeys returns the classic link key store.
func (a *Application) LinkKeys() *linkkey.Store {
	return a.links
}

// ButtonEdge feeds a raw button edge from the board.
func (a *Application) ButtonEdge(b sensor.Button, pressed bool) {
	a.buttons.Edge(b, pressed)
}

// Sample returns the latched sensor state.
func (a *Application) Sample() spp.Sample {
	return a.latch.Sample()
}

// post queues m for the event loop. Called from stack context.
func (a *Application) post(m mailbox.Message) {
	a.mu.Lock()
	mb := a.mbox
	a.mu.Unlock()

	if mb == nil {
		a.logger.Warnf("no mailbox, dropping %s", m)
		return
	}
	if err := mb.Post(m); err != nil {
		a.logger.Errorf("post %s: %v", m, err)
	}
}

// apply runs the calls a handler produced, logging failures.
func (a *Application) apply(calls []stack.Call) {
	stack.ApplyAll(a.st, calls, func(c stack.Call, err error) {
		a.logger.Errorf("%s: %v", c, err)
	})
}

// portWriter writes to the open SPP server port.
type portWriter struct {
	st   stack.SPP
	port stack.PortID
}

func (w portWriter) Write(p []byte) (int, error) {
	return w.st.DataWrite(w.port, p)
}

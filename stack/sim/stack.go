// Package sim is an in-memory Bluetooth stack. It records every call the
// application makes, lets callers inject failures, and delivers events to
// the registered handlers one at a time, the way a real stack does.
package sim

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/stack"
)

var ErrNoHandler = errors.New("no handler registered")

// AuthRecord is a recorded classic authentication response.
type AuthRecord struct {
	Addr keyfob.Addr
	Info stack.AuthInfo
}

// LEAuthRecord is a recorded LE authentication response.
type LEAuthRecord struct {
	Addr keyfob.Addr
	Info stack.LEAuthInfo
}

// Stack implements stack.Stack.
type Stack struct {
	mu   sync.Mutex
	evMu sync.Mutex

	rnd     io.Reader
	local   keyfob.Addr
	nextID  stack.ID
	id      stack.ID
	txPower int8
	idle    bool

	fail map[string]error

	classicH stack.ClassicHandler
	leAuthH  stack.LEHandler
	advH     stack.LEHandler
	gattH    stack.GATTHandler
	sppH     map[stack.PortID]stack.SPPHandler

	nextPort     stack.PortID
	ports        map[stack.PortID]uint
	sdp          map[stack.PortID]stack.SDPHandle
	nextSDP      stack.SDPHandle
	gapsInstance stack.InstanceID
	gattUp       bool
	deviceName   string
	appearance   uint16

	security       stack.SecurityParams
	leSecurity     stack.SecurityParams
	pairability    stack.PairabilityMode
	lePairability  stack.PairabilityMode
	encryption     map[keyfob.Addr]stack.EncryptionMode
	writeLimit     int
	storedLinkKeys map[keyfob.Addr]bool

	calls           []string
	authResponses   []AuthRecord
	leAuthResponses []LEAuthRecord
	disconnects     []keyfob.Addr
	advData         [][]byte
	eir             []byte
	discoverability []stack.DiscoverabilityMode
	connectability  []stack.ConnectabilityMode
	advertising     []stack.AdvertisingParams
	writes          [][]byte
}

// Option configures a simulated stack.
type Option func(*Stack)

// WithRand sets the random source used for LTK generation.
func WithRand(r io.Reader) Option {
	return func(s *Stack) { s.rnd = r }
}

// WithLocalAddress sets the controller address.
func WithLocalAddress(a keyfob.Addr) Option {
	return func(s *Stack) { s.local = a }
}

// New returns an uninitialized simulated stack.
func New(opts ...Option) *Stack {
	s := &Stack{
		rnd:            rand.Reader,
		local:          keyfob.Addr{0x00, 0x17, 0xe9, 0x00, 0x00, 0x01},
		nextID:         1,
		idle:           true,
		fail:           map[string]error{},
		sppH:           map[stack.PortID]stack.SPPHandler{},
		ports:          map[stack.PortID]uint{},
		sdp:            map[stack.PortID]stack.SDPHandle{},
		encryption:     map[keyfob.Addr]stack.EncryptionMode{},
		storedLinkKeys: map[keyfob.Addr]bool{},
		nextSDP:        0x10000,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FailOn makes the named method return err until cleared with a nil err.
func (s *Stack) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

// SetWriteLimit caps how many bytes each DataWrite accepts. Zero accepts
// everything.
func (s *Stack) SetWriteLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLimit = n
}

// SetEncryptionMode sets what QueryLEEncryptionMode reports for addr.
func (s *Stack) SetEncryptionMode(addr keyfob.Addr, m stack.EncryptionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryption[addr] = m
}

// SetIdle sets what Idle reports.
func (s *Stack) SetIdle(idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = idle
}

// SetTxPower sets the inquiry response transmit power.
func (s *Stack) SetTxPower(p int8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txPower = p
}

// record logs a call and returns the injected failure for it, if any.
// s.mu must be held.
func (s *Stack) record(method string) error {
	s.calls = append(s.calls, method)
	return s.fail[method]
}

func (s *Stack) begin(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(method)
}

// Controller

func (s *Stack) Initialize() (stack.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("Initialize"); err != nil {
		return 0, err
	}
	if s.id != 0 {
		return 0, errors.New("stack already initialized")
	}

	s.id = s.nextID
	s.nextID++
	return s.id, nil
}

func (s *Stack) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("Shutdown")
	s.id = 0
	s.classicH, s.leAuthH, s.advH, s.gattH = nil, nil, nil, nil
	s.sppH = map[stack.PortID]stack.SPPHandler{}
	s.ports = map[stack.PortID]uint{}
	s.sdp = map[stack.PortID]stack.SDPHandle{}
}

func (s *Stack) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

func (s *Stack) LocalAddress() (keyfob.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("LocalAddress"); err != nil {
		return keyfob.Addr{}, err
	}
	return s.local, nil
}

func (s *Stack) DeleteStoredLinkKey(addr keyfob.Addr) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("DeleteStoredLinkKey"); err != nil {
		return 0, err
	}

	if addr.IsNull() {
		n := len(s.storedLinkKeys)
		s.storedLinkKeys = map[keyfob.Addr]bool{}
		return n, nil
	}
	if s.storedLinkKeys[addr] {
		delete(s.storedLinkKeys, addr)
		return 1, nil
	}
	return 0, nil
}

func (s *Stack) InquiryResponseTxPower() (int8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("InquiryResponseTxPower"); err != nil {
		return 0, err
	}
	return s.txPower, nil
}

// GAP

func (s *Stack) SetSecurityParams(p stack.SecurityParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetSecurityParams"); err != nil {
		return err
	}
	s.security = p
	return nil
}

func (s *Stack) SetPairabilityMode(m stack.PairabilityMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetPairabilityMode"); err != nil {
		return err
	}
	s.pairability = m
	return nil
}

func (s *Stack) RegisterRemoteAuthentication(h stack.ClassicHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("RegisterRemoteAuthentication"); err != nil {
		return err
	}
	s.classicH = h
	return nil
}

func (s *Stack) AuthenticationResponse(addr keyfob.Addr, info stack.AuthInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("AuthenticationResponse"); err != nil {
		return err
	}
	s.authResponses = append(s.authResponses, AuthRecord{addr, info})
	if info.Type == stack.AuthLinkKey && info.DataLength > 0 {
		s.storedLinkKeys[addr] = true
	}
	return nil
}

func (s *Stack) SetDiscoverabilityMode(m stack.DiscoverabilityMode, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetDiscoverabilityMode"); err != nil {
		return err
	}
	s.discoverability = append(s.discoverability, m)
	return nil
}

func (s *Stack) SetConnectabilityMode(m stack.ConnectabilityMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetConnectabilityMode"); err != nil {
		return err
	}
	s.connectability = append(s.connectability, m)
	return nil
}

func (s *Stack) WriteExtendedInquiryInformation(_ bool, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("WriteExtendedInquiryInformation"); err != nil {
		return err
	}
	s.eir = append([]byte(nil), data...)
	return nil
}

// LE

func (s *Stack) SetLESecurityParams(p stack.SecurityParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetLESecurityParams"); err != nil {
		return err
	}
	s.leSecurity = p
	return nil
}

func (s *Stack) SetLEPairabilityMode(m stack.PairabilityMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetLEPairabilityMode"); err != nil {
		return err
	}
	s.lePairability = m
	return nil
}

func (s *Stack) RegisterLERemoteAuthentication(h stack.LEHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("RegisterLERemoteAuthentication"); err != nil {
		return err
	}
	s.leAuthH = h
	return nil
}

func (s *Stack) LEAuthenticationResponse(addr keyfob.Addr, info stack.LEAuthInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("LEAuthenticationResponse"); err != nil {
		return err
	}
	s.leAuthResponses = append(s.leAuthResponses, LEAuthRecord{addr, info})
	return nil
}

func (s *Stack) LEDisconnect(addr keyfob.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("LEDisconnect"); err != nil {
		return err
	}
	s.disconnects = append(s.disconnects, addr)
	return nil
}

func (s *Stack) QueryLEEncryptionMode(addr keyfob.Addr) (stack.EncryptionMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("QueryLEEncryptionMode"); err != nil {
		return stack.EncryptionDisabled, err
	}
	return s.encryption[addr], nil
}

func (s *Stack) SetAdvertisingData(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetAdvertisingData"); err != nil {
		return err
	}
	if len(data) > 31 {
		return errors.Errorf("advertising data too long: %d", len(data))
	}
	s.advData = append(s.advData, append([]byte(nil), data...))
	return nil
}

func (s *Stack) StartAdvertising(p stack.AdvertisingParams, h stack.LEHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("StartAdvertising"); err != nil {
		return err
	}
	s.advertising = append(s.advertising, p)
	s.advH = h
	return nil
}

func (s *Stack) DiversifyFunction(key keyfob.Key, d uint16, r uint16) (keyfob.Key, error) {
	if err := s.begin("DiversifyFunction"); err != nil {
		return keyfob.Key{}, err
	}
	return d1(key, d, r)
}

func (s *Stack) GenerateLTK(dhk, er keyfob.Key) (keyfob.Key, uint16, keyfob.Rand, error) {
	s.mu.Lock()
	err := s.record("GenerateLTK")
	src := s.rnd
	s.mu.Unlock()

	if err != nil {
		return keyfob.Key{}, 0, keyfob.Rand{}, err
	}
	return generateLTK(src, dhk, er)
}

func (s *Stack) RegenerateLTK(dhk, er keyfob.Key, ediv uint16, rnd keyfob.Rand) (keyfob.Key, error) {
	if err := s.begin("RegenerateLTK"); err != nil {
		return keyfob.Key{}, err
	}
	return regenerateLTK(dhk, er, ediv, rnd)
}

// SPP

func (s *Stack) OpenServerPort(port uint, h stack.SPPHandler) (stack.PortID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("OpenServerPort"); err != nil {
		return 0, err
	}
	for _, p := range s.ports {
		if p == port {
			return 0, errors.Errorf("server port %d already open", port)
		}
	}

	s.nextPort++
	id := s.nextPort
	s.ports[id] = port
	s.sppH[id] = h
	return id, nil
}

func (s *Stack) CloseServerPort(id stack.PortID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("CloseServerPort"); err != nil {
		return err
	}
	if _, ok := s.ports[id]; !ok {
		return errors.Errorf("port %d not open", id)
	}
	delete(s.ports, id)
	delete(s.sppH, id)
	return nil
}

func (s *Stack) RegisterSDPRecord(id stack.PortID, _ string) (stack.SDPHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("RegisterSDPRecord"); err != nil {
		return 0, err
	}
	if _, ok := s.ports[id]; !ok {
		return 0, errors.Errorf("port %d not open", id)
	}
	s.nextSDP++
	s.sdp[id] = s.nextSDP
	return s.nextSDP, nil
}

func (s *Stack) UnregisterSDPRecord(id stack.PortID, h stack.SDPHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("UnregisterSDPRecord"); err != nil {
		return err
	}
	if s.sdp[id] != h {
		return errors.Errorf("no sdp record %#x on port %d", h, id)
	}
	delete(s.sdp, id)
	return nil
}

func (s *Stack) DataWrite(id stack.PortID, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("DataWrite"); err != nil {
		return 0, err
	}
	if _, ok := s.ports[id]; !ok {
		return 0, errors.Errorf("port %d not open", id)
	}

	n := len(data)
	if s.writeLimit > 0 && n > s.writeLimit {
		n = s.writeLimit
	}
	s.writes = append(s.writes, append([]byte(nil), data[:n]...))
	return n, nil
}

func (s *Stack) RespondPortInformation(id stack.PortID, _ stack.PortInformation) error {
	return s.begin("RespondPortInformation")
}

// GATT

func (s *Stack) InitializeGATT(h stack.GATTHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("InitializeGATT"); err != nil {
		return err
	}
	s.gattH = h
	s.gattUp = true
	return nil
}

func (s *Stack) CleanupGATT() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("CleanupGATT")
	s.gattH = nil
	s.gattUp = false
}

func (s *Stack) InitializeGAPService() (stack.InstanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("InitializeGAPService"); err != nil {
		return 0, err
	}
	if !s.gattUp {
		return 0, errors.New("gatt not initialized")
	}
	s.gapsInstance++
	return s.gapsInstance, nil
}

func (s *Stack) CleanupGAPService(stack.InstanceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CleanupGAPService")
}

func (s *Stack) SetDeviceName(_ stack.InstanceID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetDeviceName"); err != nil {
		return err
	}
	s.deviceName = name
	return nil
}

func (s *Stack) SetDeviceAppearance(_ stack.InstanceID, a uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record("SetDeviceAppearance"); err != nil {
		return err
	}
	s.appearance = a
	return nil
}

package sim

import (
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/stack"
)

// Calls returns every method called so far, in order.
func (s *Stack) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts calls to method.
func (s *Stack) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (s *Stack) AuthResponses() []AuthRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuthRecord(nil), s.authResponses...)
}

func (s *Stack) LEAuthResponses() []LEAuthRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LEAuthRecord(nil), s.leAuthResponses...)
}

func (s *Stack) Disconnects() []keyfob.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]keyfob.Addr(nil), s.disconnects...)
}

// AdvertisingData returns every advertising payload set so far.
func (s *Stack) AdvertisingData() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.advData...)
}

// EIR returns the last extended inquiry response written.
func (s *Stack) EIR() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.eir...)
}

func (s *Stack) DiscoverabilityModes() []stack.DiscoverabilityMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stack.DiscoverabilityMode(nil), s.discoverability...)
}

func (s *Stack) ConnectabilityModes() []stack.ConnectabilityMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stack.ConnectabilityMode(nil), s.connectability...)
}

// AdvertisingStarts returns the parameters of every StartAdvertising call.
func (s *Stack) AdvertisingStarts() []stack.AdvertisingParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stack.AdvertisingParams(nil), s.advertising...)
}

// Writes returns the bytes accepted by each DataWrite.
func (s *Stack) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Written returns every accepted byte, concatenated.
func (s *Stack) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, w := range s.writes {
		out = append(out, w...)
	}
	return out
}

func (s *Stack) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceName
}

func (s *Stack) Appearance() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appearance
}

// Initialized reports whether the stack is open.
func (s *Stack) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id != 0
}

// OpenPorts counts open SPP server ports.
func (s *Stack) OpenPorts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ports)
}

// SDPRecords counts registered SDP records.
func (s *Stack) SDPRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sdp)
}

func (s *Stack) SecurityParams() (classic, le stack.SecurityParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.security, s.leSecurity
}

func (s *Stack) PairabilityModes() (classic, le stack.PairabilityMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairability, s.lePairability
}

// Reset clears the recorded calls and responses. Stack state is kept.
func (s *Stack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
	s.authResponses = nil
	s.leAuthResponses = nil
	s.disconnects = nil
	s.advData = nil
	s.eir = nil
	s.discoverability = nil
	s.connectability = nil
	s.advertising = nil
	s.writes = nil
}

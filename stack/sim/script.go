package sim

import (
	"encoding/hex"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/keyfob"
	"github.com/rigado/keyfob/stack"
	"gopkg.in/yaml.v3"
)

// Script is a list of peer actions played against a Stack.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one peer action. Only the fields its Action uses are read.
type Step struct {
	Action string        `yaml:"action"`
	Addr   string        `yaml:"addr"`
	Random bool          `yaml:"random"`
	Port   uint          `yaml:"port"`
	Status byte          `yaml:"status"`
	Key    string        `yaml:"key"`
	EDIV   uint16        `yaml:"ediv"`
	Rand   string        `yaml:"rand"`
	Size   byte          `yaml:"size"`
	Limit  int           `yaml:"limit"`
	Value  int           `yaml:"value"`
	XYZ    []int8        `yaml:"xyz"`
	Wait   time.Duration `yaml:"wait"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read script")
	}
	return ParseScript(b)
}

// ParseScript decodes a YAML script.
func ParseScript(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "can't parse script")
	}
	for i, st := range s.Steps {
		if _, ok := actions[st.Action]; !ok {
			return nil, errors.Errorf("step %d: unknown action %q", i, st.Action)
		}
	}
	return &s, nil
}

type action func(s *Stack, b *Board, st Step) error

var actions = map[string]action{
	"le-connect": func(s *Stack, _ *Board, st Step) error {
		return s.ConnectLE(st.addr(), st.addrType(), 1)
	},
	"le-disconnect": func(s *Stack, _ *Board, st Step) error {
		return s.DisconnectLE(st.addr())
	},
	"le-encrypted": func(s *Stack, _ *Board, st Step) error {
		s.SetEncryptionMode(st.addr(), stack.EncryptionEnabled)
		return nil
	},
	"pairing-request": func(s *Stack, _ *Board, st Step) error {
		return s.EmitLE(stack.PairingRequest{Addr: st.addr()})
	},
	"confirmation": func(s *Stack, _ *Board, st Step) error {
		return s.EmitLE(stack.ConfirmationRequest{Addr: st.addr(), Type: stack.ConfirmationType(st.Value)})
	},
	"encryption-info-request": func(s *Stack, _ *Board, st Step) error {
		size := st.Size
		if size == 0 {
			size = stack.MaximumEncryptionKeySize
		}
		return s.EmitLE(stack.EncryptionInformationRequest{Addr: st.addr(), EncryptionKeySize: size})
	},
	"pairing-status": func(s *Stack, _ *Board, st Step) error {
		return s.EmitLE(stack.PairingStatus{Addr: st.addr(), Status: st.Status, NegotiatedEncryptionKeySize: st.Size})
	},
	"ltk-request": func(s *Stack, _ *Board, st Step) error {
		r, err := st.rand()
		if err != nil {
			return err
		}
		return s.EmitLE(stack.LongTermKeyRequest{Addr: st.addr(), EDIV: st.EDIV, Rand: r})
	},
	"spp-open": func(s *Stack, _ *Board, st Step) error {
		return s.ConnectSPP(st.port(), st.addr())
	},
	"spp-close": func(s *Stack, _ *Board, st Step) error {
		return s.DisconnectSPP(st.port())
	},
	"spp-drain": func(s *Stack, _ *Board, st Step) error {
		return s.DrainSPP(st.port())
	},
	"write-limit": func(s *Stack, _ *Board, st Step) error {
		s.SetWriteLimit(st.Limit)
		return nil
	},
	"pin-request": func(s *Stack, _ *Board, st Step) error {
		return s.EmitClassic(stack.PINCodeRequest{Addr: st.addr()})
	},
	"link-key-request": func(s *Stack, _ *Board, st Step) error {
		return s.EmitClassic(stack.LinkKeyRequest{Addr: st.addr()})
	},
	"link-key-created": func(s *Stack, _ *Board, st Step) error {
		k, err := st.key()
		if err != nil {
			return err
		}
		return s.EmitClassic(stack.LinkKeyCreation{Addr: st.addr(), LinkKey: k})
	},
	"auth-status": func(s *Stack, _ *Board, st Step) error {
		return s.EmitClassic(stack.AuthenticationStatus{Addr: st.addr(), Status: st.Status})
	},
	"io-cap-request": func(s *Stack, _ *Board, st Step) error {
		return s.EmitClassic(stack.IOCapabilityRequest{Addr: st.addr()})
	},
	"user-confirmation": func(s *Stack, _ *Board, st Step) error {
		return s.EmitClassic(stack.UserConfirmationRequest{Addr: st.addr(), NumericValue: uint32(st.Value)})
	},
	"accel": func(_ *Stack, b *Board, st Step) error {
		if len(st.XYZ) != 3 {
			return errors.Errorf("accel needs three values, got %d", len(st.XYZ))
		}
		b.SetAcceleration(st.XYZ[0], st.XYZ[1], st.XYZ[2])
		return nil
	},
	"wait": func(*Stack, *Board, Step) error {
		return nil
	},
}

func (st Step) addr() keyfob.Addr {
	a, err := keyfob.ParseAddr(st.Addr)
	if err != nil {
		return keyfob.NullAddr
	}
	return a
}

func (st Step) addrType() keyfob.AddrType {
	if st.Random {
		return keyfob.AddrRandom
	}
	return keyfob.AddrPublic
}

func (st Step) port() uint {
	if st.Port == 0 {
		return 1
	}
	return st.Port
}

func (st Step) key() (keyfob.Key, error) {
	var k keyfob.Key
	b, err := hex.DecodeString(st.Key)
	if err != nil || len(b) != len(k) {
		return k, errors.Errorf("bad key %q", st.Key)
	}
	copy(k[:], b)
	return k, nil
}

func (st Step) rand() (keyfob.Rand, error) {
	var r keyfob.Rand
	b, err := hex.DecodeString(st.Rand)
	if err != nil || len(b) != len(r) {
		return r, errors.Errorf("bad rand %q", st.Rand)
	}
	copy(r[:], b)
	return r, nil
}

// Play runs every step in order. settle is called after each step so the
// caller can drain its event loop; a step's Wait is slept before settle.
func (sc *Script) Play(s *Stack, b *Board, settle func()) error {
	for i, st := range sc.Steps {
		fn, ok := actions[st.Action]
		if !ok {
			return errors.Errorf("step %d: unknown action %q", i, st.Action)
		}
		if err := fn(s, b, st); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, st.Action)
		}
		if st.Wait > 0 {
			time.Sleep(st.Wait)
		}
		if settle != nil {
			settle()
		}
	}
	return nil
}

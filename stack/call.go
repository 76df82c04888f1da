package stack

import (
	"fmt"

	"github.com/rigado/keyfob"
)

// Call is a non-blocking request into the stack, produced by a state
// transition and applied by whoever owns the stack.
type Call interface {
	Apply(s Stack) error
	String() string
}

// AuthenticationResponse answers a classic authentication event.
type AuthenticationResponse struct {
	Addr keyfob.Addr
	Info AuthInfo
}

func (c AuthenticationResponse) Apply(s Stack) error {
	return s.AuthenticationResponse(c.Addr, c.Info)
}

func (c AuthenticationResponse) String() string {
	return fmt.Sprintf("authentication response (%s, len %d) to %s", c.Info.Type, c.Info.DataLength, c.Addr)
}

// LEAuthenticationResponse answers an LE authentication event.
type LEAuthenticationResponse struct {
	Addr keyfob.Addr
	Info LEAuthInfo
}

func (c LEAuthenticationResponse) Apply(s Stack) error {
	return s.LEAuthenticationResponse(c.Addr, c.Info)
}

func (c LEAuthenticationResponse) String() string {
	return fmt.Sprintf("le authentication response (%s, len %d) to %s", c.Info.Type, c.Info.DataLength, c.Addr)
}

// LEDisconnect drops an LE link.
type LEDisconnect struct {
	Addr keyfob.Addr
}

func (c LEDisconnect) Apply(s Stack) error {
	return s.LEDisconnect(c.Addr)
}

func (c LEDisconnect) String() string {
	return fmt.Sprintf("le disconnect %s", c.Addr)
}

// DeleteStoredLinkKey removes the controller's copy of a link key.
type DeleteStoredLinkKey struct {
	Addr keyfob.Addr
}

func (c DeleteStoredLinkKey) Apply(s Stack) error {
	_, err := s.DeleteStoredLinkKey(c.Addr)
	return err
}

func (c DeleteStoredLinkKey) String() string {
	return fmt.Sprintf("delete stored link key %s", c.Addr)
}

// ApplyAll applies calls in order. Failures are reported through onErr and
// do not stop the remaining calls.
func ApplyAll(s Stack, calls []Call, onErr func(Call, error)) {
	for _, c := range calls {
		if err := c.Apply(s); err != nil && onErr != nil {
			onErr(c, err)
		}
	}
}

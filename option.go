package keyfob

import (
	"os"
	"time"

	defaults "github.com/mcuadros/go-defaults"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Packet formats accepted by Config.PacketFormat.
const (
	PacketFormatSensor = "sensor"
	PacketFormatHello  = "hello"
)

// Config holds the fixed policy of the key fob. The zero value is filled
// from the default tags by DefaultConfig and LoadConfig.
type Config struct {
	PINCode      string `yaml:"pin_code" default:"0000"`
	LEDeviceName string `yaml:"le_device_name" default:"Keyfob"`
	CBDeviceName string `yaml:"cb_device_name" default:"Keyfob"`

	SPPPort       uint   `yaml:"spp_port" default:"1"`
	SPPBufferSize int    `yaml:"spp_buffer_size" default:"512"`
	PacketFormat  string `yaml:"packet_format" default:"sensor"`

	MaxLinkKeys int `yaml:"max_link_keys" default:"1"`
	// MaxDevices bounds the device info registry; 0 means unbounded.
	MaxDevices int `yaml:"max_devices" default:"0"`

	MailboxDepth int           `yaml:"mailbox_depth" default:"8"`
	MailboxWait  time.Duration `yaml:"mailbox_wait" default:"10ms"`

	AdvIntervalMin uint16 `yaml:"adv_interval_min" default:"50"`
	AdvIntervalMax uint16 `yaml:"adv_interval_max" default:"100"`

	BondFile string `yaml:"bond_file"`
	LogLevel string `yaml:"log_level" default:"info"`
}

// DefaultConfig returns the stock key fob settings.
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c := &Config{}
	if err := yaml.Unmarshal(in, c); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	defaults.SetDefaults(c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values the device could never hold.
func (c *Config) Validate() error {
	switch {
	case len(c.PINCode) == 0 || len(c.PINCode) > 16:
		return errors.Errorf("pin code must be 1..16 bytes, got %d", len(c.PINCode))
	case c.LEDeviceName == "" || c.CBDeviceName == "":
		return errors.New("device names must not be empty")
	case c.SPPPort < 1 || c.SPPPort > 30:
		return errors.Errorf("spp port %d out of range 1..30", c.SPPPort)
	case c.SPPBufferSize <= 0:
		return errors.Errorf("spp buffer size %d must be positive", c.SPPBufferSize)
	case c.MaxLinkKeys <= 0:
		return errors.Errorf("max link keys %d must be positive", c.MaxLinkKeys)
	case c.MaxDevices < 0:
		return errors.Errorf("max devices %d must not be negative", c.MaxDevices)
	case c.MailboxDepth <= 0:
		return errors.Errorf("mailbox depth %d must be positive", c.MailboxDepth)
	case c.AdvIntervalMin == 0 || c.AdvIntervalMin > c.AdvIntervalMax:
		return errors.Errorf("invalid advertising interval %d..%d", c.AdvIntervalMin, c.AdvIntervalMax)
	case c.PacketFormat != PacketFormatSensor && c.PacketFormat != PacketFormatHello:
		return errors.Errorf("unknown packet format %q", c.PacketFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// SetupLogging applies LogLevel to the package logger.
func (c *Config) SetupLogging() error {
	return SetLogLevel(c.LogLevel)
}

// AppOption is implemented by anything that can be configured with Options.
type AppOption interface {
	SetPINCode(string) error
	SetDeviceNames(le, cb string) error
	SetSPPPort(uint) error
	SetSPPBufferSize(int) error
	SetPacketFormat(string) error
	SetMaxLinkKeys(int) error
	SetMaxDevices(int) error
	SetMailboxDepth(int) error
	SetMailboxWait(time.Duration) error
	SetAdvInterval(min, max uint16) error
	SetBondFile(string) error
	SetLogLevel(string) error
	SetConfig(Config) error
}

// An Option is a configuration function, which configures the application.
type Option func(AppOption) error

// Apply runs opts against c and validates the result.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return c.Validate()
}

func (c *Config) SetPINCode(pin string) error {
	c.PINCode = pin
	return nil
}

func (c *Config) SetDeviceNames(le, cb string) error {
	c.LEDeviceName, c.CBDeviceName = le, cb
	return nil
}

func (c *Config) SetSPPPort(p uint) error {
	c.SPPPort = p
	return nil
}

func (c *Config) SetSPPBufferSize(n int) error {
	c.SPPBufferSize = n
	return nil
}

func (c *Config) SetPacketFormat(f string) error {
	c.PacketFormat = f
	return nil
}

func (c *Config) SetMaxLinkKeys(n int) error {
	c.MaxLinkKeys = n
	return nil
}

func (c *Config) SetMaxDevices(n int) error {
	c.MaxDevices = n
	return nil
}

func (c *Config) SetMailboxDepth(n int) error {
	c.MailboxDepth = n
	return nil
}

func (c *Config) SetMailboxWait(d time.Duration) error {
	if d < 0 {
		return errors.Errorf("negative mailbox wait %s", d)
	}
	c.MailboxWait = d
	return nil
}

func (c *Config) SetAdvInterval(min, max uint16) error {
	c.AdvIntervalMin, c.AdvIntervalMax = min, max
	return nil
}

func (c *Config) SetBondFile(path string) error {
	c.BondFile = path
	return nil
}

// SetConfig replaces the whole config.
func (c *Config) SetLogLevel(level string) error {
	c.LogLevel = level
	return nil
}

func (c *Config) SetConfig(n Config) error {
	*c = n
	return nil
}

// OptConfig starts from a loaded config. Options after it override its
// fields.
func OptConfig(c *Config) Option {
	return func(opt AppOption) error {
		if c == nil {
			return errors.New("nil config")
		}
		return opt.SetConfig(*c)
	}
}

// OptPINCode sets the fixed PIN answered to classic PIN code requests.
func OptPINCode(pin string) Option {
	return func(opt AppOption) error {
		return opt.SetPINCode(pin)
	}
}

// OptDeviceNames sets the LE (GAP service, advertising) and classic (EIR) names.
func OptDeviceNames(le, cb string) Option {
	return func(opt AppOption) error {
		return opt.SetDeviceNames(le, cb)
	}
}

// OptSPPPort sets the RFCOMM server channel of the SPP server.
func OptSPPPort(p uint) Option {
	return func(opt AppOption) error {
		return opt.SetSPPPort(p)
	}
}

// OptSPPBufferSize sets the SPP transmit buffer capacity.
func OptSPPBufferSize(n int) Option {
	return func(opt AppOption) error {
		return opt.SetSPPBufferSize(n)
	}
}

// OptPacketFormat selects the SPP record format, "sensor" or "hello".
func OptPacketFormat(f string) Option {
	return func(opt AppOption) error {
		return opt.SetPacketFormat(f)
	}
}

// OptMaxLinkKeys sets the link key table capacity.
func OptMaxLinkKeys(n int) Option {
	return func(opt AppOption) error {
		return opt.SetMaxLinkKeys(n)
	}
}

// OptMaxDevices bounds the LE device info registry.
func OptMaxDevices(n int) Option {
	return func(opt AppOption) error {
		return opt.SetMaxDevices(n)
	}
}

// OptMailboxDepth sets the application mailbox depth.
func OptMailboxDepth(n int) Option {
	return func(opt AppOption) error {
		return opt.SetMailboxDepth(n)
	}
}

// OptMailboxWait sets how long each loop iteration waits before idling.
func OptMailboxWait(d time.Duration) Option {
	return func(opt AppOption) error {
		return opt.SetMailboxWait(d)
	}
}

// OptAdvInterval overrides the LE advertising interval range.
func OptAdvInterval(min, max uint16) Option {
	return func(opt AppOption) error {
		return opt.SetAdvInterval(min, max)
	}
}

// OptBondFile enables LE bond persistence in the given JSON file.
func OptBondFile(path string) Option {
	return func(opt AppOption) error {
		return opt.SetBondFile(path)
	}
}

// OptLogLevel sets the level the logger is set up with, e.g. "debug".
func OptLogLevel(level string) Option {
	return func(opt AppOption) error {
		return opt.SetLogLevel(level)
	}
}

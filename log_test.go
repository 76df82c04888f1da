package keyfob

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(...interface{})           {}
func (nopLogger) Debug(...interface{})          {}
func (nopLogger) Error(...interface{})          {}
func (nopLogger) Warn(...interface{})           {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

func (n nopLogger) ChildLogger(map[string]interface{}) Logger { return n }

func TestComponentLogger(t *testing.T) {
	SetLogger(newLogrusLogger(&bytes.Buffer{}))
	defer SetLogger(nil)

	var out bytes.Buffer
	require.NoError(t, SetLogOutput(&out))
	require.NoError(t, SetLogLevel("debug"))

	ComponentLogger("mailbox").Debugf("posted %d", 3)
	assert.Contains(t, out.String(), "pkg=mailbox")
	assert.Contains(t, out.String(), "posted 3")

	out.Reset()
	require.NoError(t, SetLogLevel("warn"))
	ComponentLogger("mailbox").Infof("dropped")
	assert.Empty(t, out.String())

	assert.Error(t, SetLogLevel("chatty"))
}

func TestCustomLogger(t *testing.T) {
	SetLogger(nopLogger{})
	defer SetLogger(nil)

	assert.Equal(t, nopLogger{}, ComponentLogger("app"))
	assert.Error(t, SetLogLevel("debug"))
	assert.Error(t, SetLogOutput(&bytes.Buffer{}))
}

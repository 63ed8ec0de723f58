package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenerEcho(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestLoadOptionsAppliesDefaults(t *testing.T) {
	v := viper.New()
	o, err := LoadOptions(v)
	require.NoError(t, err)
	assert.True(t, o.TCPNoDelay)
	assert.True(t, o.SOKeepAlive)
	assert.Equal(t, "OFF", o.DebuggerMode)
	assert.GreaterOrEqual(t, o.EventHistorySize, 2)
}

func TestLoadOptionsRejectsNegativeTimeout(t *testing.T) {
	v := viper.New()
	v.Set("connect-timeout-ms", -5)
	_, err := LoadOptions(v)
	require.Error(t, err)
}

func TestFactoryOpenAndClose(t *testing.T) {
	addr, stop := listenerEcho(t)
	defer stop()

	opts, err := LoadOptions(viper.New())
	require.NoError(t, err)

	f, err := New(opts, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := f.Open(ctx, addr)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.IsClosed())
	require.NoError(t, f.Close())
}

func TestFactoryCloseOnOwnedRuntimeRejectsFurtherOpens(t *testing.T) {
	addr, stop := listenerEcho(t)
	defer stop()

	opts, err := LoadOptions(viper.New())
	require.NoError(t, err)
	f, err := New(opts, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = f.Open(ctx, addr)
	assert.ErrorIs(t, err, errRuntimeClosed)
}

func TestFactoryWithCallerOwnedRuntimeSurvivesClose(t *testing.T) {
	addr, stop := listenerEcho(t)
	defer stop()

	opts, err := LoadOptions(viper.New())
	require.NoError(t, err)
	rt := NewRuntime(4)

	f, err := NewWithRuntime(opts, rt, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close()) // does not close rt, since f does not own it

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := f.Open(ctx, addr)
	require.NoError(t, err)
	defer s.Close()
}

func TestTLSProfileFingerprintStableForSameConfig(t *testing.T) {
	opts, err := LoadOptions(viper.New())
	require.NoError(t, err)
	opts.SSLEnabled = true

	cfg1 := buildTLSConfig(opts, "example.invalid")
	cfg2 := buildTLSConfig(opts, "example.invalid")
	assert.Equal(t, tlsProfileFingerprint(cfg1), tlsProfileFingerprint(cfg2))
	assert.Equal(t, "disabled", tlsProfileFingerprint(nil))
}

package transport

import (
	"fmt"
	"time"

	"github.com/mongowire/core/pkg/debug"
	"github.com/spf13/viper"
)

// Options is the validated, immutable settings struct a Factory consumes.
// It mirrors the configuration table verbatim: connect/read/write timeouts,
// socket buffer sizes, TLS toggles, and debugger settings. The viper
// boundary that produces it lives outside the core; nothing downstream of
// LoadOptions ever touches a *viper.Viper again.
type Options struct {
	ConnectTimeoutMs        int    `mapstructure:"connect-timeout-ms"`
	ReadTimeoutMs           int    `mapstructure:"read-timeout-ms"`
	WriteTimeoutMs          int    `mapstructure:"write-timeout-ms"`
	SendBufferBytes         int    `mapstructure:"send-buffer-bytes"`
	ReceiveBufferBytes      int    `mapstructure:"receive-buffer-bytes"`
	TCPNoDelay              bool   `mapstructure:"tcp-nodelay"`
	SOKeepAlive             bool   `mapstructure:"so-keepalive"`
	SSLEnabled              bool   `mapstructure:"ssl-enabled"`
	InvalidHostnameAllowed  bool   `mapstructure:"invalid-hostname-allowed"`
	DebuggerMode            string `mapstructure:"debugger-mode"`
	EventHistorySize        int    `mapstructure:"event-history-size"`
	MaxConcurrentOpens      int    `mapstructure:"max-concurrent-opens"`
}

// defaults mirror the table's own defaults: nodelay and keepalive are
// "always enabled" per §6, so a zero-value Options (as produced by a bare
// struct literal, not LoadOptions) still behaves correctly.
func defaults() Options {
	return Options{
		ConnectTimeoutMs:       10_000,
		TCPNoDelay:             true,
		SOKeepAlive:            true,
		DebuggerMode:           "OFF",
		EventHistorySize:       64,
		MaxConcurrentOpens:     64,
	}
}

// LoadOptions decodes connect/read/write timeouts, socket buffer sizes,
// TLS toggles, and debugger settings from v, applying defaults for any key
// the caller's file/env did not set, then validates the result.
func LoadOptions(v *viper.Viper) (Options, error) {
	o := defaults()
	if v == nil {
		v = viper.New()
	}
	v.SetDefault("tcp-nodelay", true)
	v.SetDefault("so-keepalive", true)
	v.SetDefault("connect-timeout-ms", o.ConnectTimeoutMs)
	v.SetDefault("debugger-mode", o.DebuggerMode)
	v.SetDefault("event-history-size", o.EventHistorySize)
	v.SetDefault("max-concurrent-opens", o.MaxConcurrentOpens)

	if err := v.Unmarshal(&o); err != nil {
		return Options{}, fmt.Errorf("transport: decoding options: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate rejects settings that would otherwise surface as confusing
// failures deep inside the factory (a negative timeout, an event-history
// size below the ring buffer's own floor of 2).
func (o Options) Validate() error {
	if o.ConnectTimeoutMs < 0 || o.ReadTimeoutMs < 0 || o.WriteTimeoutMs < 0 {
		return fmt.Errorf("transport: timeouts must not be negative")
	}
	if o.SendBufferBytes < 0 || o.ReceiveBufferBytes < 0 {
		return fmt.Errorf("transport: buffer sizes must not be negative")
	}
	if o.EventHistorySize != 0 && o.EventHistorySize < 2 {
		return fmt.Errorf("transport: event-history-size must be >= 2, got %d", o.EventHistorySize)
	}
	if o.MaxConcurrentOpens < 0 {
		return fmt.Errorf("transport: max-concurrent-opens must not be negative")
	}
	return nil
}

func (o Options) connectTimeout() time.Duration { return time.Duration(o.ConnectTimeoutMs) * time.Millisecond }
func (o Options) readTimeout() time.Duration    { return time.Duration(o.ReadTimeoutMs) * time.Millisecond }
func (o Options) writeTimeout() time.Duration   { return time.Duration(o.WriteTimeoutMs) * time.Millisecond }

func (o Options) debuggerMode() debug.Mode { return debug.ParseMode(o.DebuggerMode) }

func (o Options) eventHistorySize() int {
	if o.EventHistorySize < 2 {
		return 2
	}
	return o.EventHistorySize
}

func (o Options) maxConcurrentOpens() int64 {
	if o.MaxConcurrentOpens <= 0 {
		return 64
	}
	return int64(o.MaxConcurrentOpens)
}

package transport

import (
	"crypto/tls"
	"encoding/hex"
	"net"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// buildTLSConfig translates Options' TLS settings into a *tls.Config, or
// returns nil when TLS is disabled — the signal NetStream treats as "plain
// TCP" (§4.7's "optional engine"). host feeds the SNI ServerName.
func buildTLSConfig(o Options, host string) *tls.Config {
	if !o.SSLEnabled {
		return nil
	}
	cfg := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if o.InvalidHostnameAllowed {
		// §6: "if false, enable SNI hostname verification" — true means the
		// caller has explicitly opted out of it.
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

// tlsProfileFingerprint hashes the configured TLS profile — its minimum
// version and the cipher suites the standard library would offer for it —
// into a short, stable identifier a Factory logs each time it opens a TLS
// stream, so operators can tell which TLS profile a fleet of connections is using
// without diffing the full Options struct.
func tlsProfileFingerprint(cfg *tls.Config) string {
	if cfg == nil {
		return "disabled"
	}
	suites := cfg.CipherSuites
	if len(suites) == 0 {
		for _, s := range tls.CipherSuites() {
			suites = append(suites, s.ID)
		}
	}
	sort.Slice(suites, func(i, j int) bool { return suites[i] < suites[j] })

	h, err := blake2b.New256(nil)
	if err != nil {
		return "unavailable"
	}
	_, _ = h.Write([]byte{byte(cfg.MinVersion), byte(cfg.MinVersion >> 8)})
	for _, id := range suites {
		_, _ = h.Write([]byte{byte(id), byte(id >> 8)})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// socketTuner builds the SocketTuner pkg/stream applies to each dialed
// connection, implementing the always-on TCP_NODELAY/SO_KEEPALIVE rule and
// the optional socket buffer sizes from §6's configuration table.
func socketTuner(o Options) func(net.Conn) error {
	return func(conn net.Conn) error {
		tc, ok := conn.(*net.TCPConn)
		if !ok {
			return nil
		}
		if o.TCPNoDelay {
			if err := tc.SetNoDelay(true); err != nil {
				return err
			}
		}
		if o.SOKeepAlive {
			if err := tc.SetKeepAlive(true); err != nil {
				return err
			}
		}
		if o.SendBufferBytes > 0 {
			if err := tc.SetWriteBuffer(o.SendBufferBytes); err != nil {
				return err
			}
		}
		if o.ReceiveBufferBytes > 0 {
			if err := tc.SetReadBuffer(o.ReceiveBufferBytes); err != nil {
				return err
			}
		}
		return nil
	}
}

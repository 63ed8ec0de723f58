// Command wireprobe sends one raw wire-protocol command to a server and
// prints its reply. It exists to exercise pkg/transport, pkg/protocol, and
// pkg/wire end to end from outside the test suite.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mongowire/core/pkg/protocol"
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/transport"
	"github.com/mongowire/core/pkg/wire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	var (
		addr           = flag.String("addr", "127.0.0.1:27017", "server address, host:port")
		commandHex     = flag.String("command-hex", "", "hex-encoded, fully-formed BSON command document to send as OP_COMMAND's payload")
		timeoutMs      = flag.Int("timeout-ms", 5000, "overall deadline for connect+execute, in milliseconds")
		ssl            = flag.Bool("ssl", false, "enable TLS")
		allowInvalidCN = flag.Bool("invalid-hostname-allowed", false, "skip TLS hostname verification")
		debuggerMode   = flag.String("debugger-mode", "OFF", "OFF, LOG, or LOG_AND_THROW")
		verbose        = flag.Bool("verbose", false, "debug-level logging")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *commandHex == "" {
		fmt.Fprintln(os.Stderr, "wireprobe: -command-hex is required (a pre-encoded BSON command document); this core has no BSON codec of its own")
		flag.PrintDefaults()
		os.Exit(2)
	}
	payload, err := hex.DecodeString(*commandHex)
	if err != nil {
		log.WithError(err).Fatal("invalid -command-hex")
	}

	v := viper.New()
	v.Set("ssl-enabled", *ssl)
	v.Set("invalid-hostname-allowed", *allowInvalidCN)
	v.Set("debugger-mode", *debuggerMode)
	v.Set("connect-timeout-ms", *timeoutMs)
	opts, err := transport.LoadOptions(v)
	if err != nil {
		log.WithError(err).Fatal("invalid transport options")
	}

	factory, err := transport.New(opts, log, nil)
	if err != nil {
		log.WithError(err).Fatal("constructing stream factory")
	}
	defer factory.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMs)*time.Millisecond)
	defer cancel()

	s, err := factory.Open(ctx, *addr)
	if err != nil {
		log.WithError(err).Fatal("opening stream")
	}
	defer s.Close()

	engine := protocol.New(s, wire.NewRawBSONCodec(), factory.Pool(), wire.Limits{
		MaxDocumentSize: 16 * 1024 * 1024,
		MaxMessageSize:  48 * 1024 * 1024,
		MaxBatchCount:   100000,
	}, nil, nil, log)

	reply, err := engine.Execute(stream.Operation{Context: ctx}, wire.SimpleMessage{OpCode: wire.OpCommand, Payload: payload})
	if err != nil {
		log.WithError(err).Fatal("command failed")
	}

	fmt.Printf("cursor_id=%d documents=%d\n", reply.CursorID(), len(reply.Documents))
	for i, doc := range reply.Documents {
		fmt.Printf("  [%d] %v\n", i, doc)
	}
}
